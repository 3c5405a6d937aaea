package allocation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"LIMS-backend/internal/owner"
	"LIMS-backend/internal/platform/db"
)

// Store holds the claim statements on cubicles, rooms and member offices.
// Every claim is a compare-and-set; callers treat 0 affected rows as a conflict.
type Store struct{}

// SeatOf returns the cubicle a student holds, if any.
func (Store) SeatOf(ctx context.Context, q db.DBTX, roll string) (id uint64, ref *SeatRef, err error) {
	var r SeatRef
	err = q.QueryRowContext(ctx, `
SELECT c.id, r.name, c.seat_no
FROM cubicles c JOIN rooms r ON r.id = c.room_id
WHERE c.student_roll = ?`, roll).Scan(&id, &r.Room, &r.Seat)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}
	return id, &r, nil
}

func (Store) ClaimSeat(ctx context.Context, tx db.DBTX, cubicleID uint64, roll string, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE cubicles SET student_roll = ?, updated_at = ? WHERE id = ? AND student_roll IS NULL`,
		roll, now, cubicleID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (Store) FreeSeat(ctx context.Context, tx db.DBTX, cubicleID uint64, roll string, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE cubicles SET student_roll = NULL, updated_at = ? WHERE id = ? AND student_roll = ?`,
		now, cubicleID, roll)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (Store) ClaimOffice(ctx context.Context, tx db.DBTX, roomID uint64, o owner.Owner) (bool, error) {
	kind, key := o.Columns()
	res, err := tx.ExecContext(ctx,
		`UPDATE rooms SET occupant_kind = ?, occupant_key = ? WHERE id = ? AND occupant_kind IS NULL`,
		kind, key, roomID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// FreeOffices drops every office claim of o except keepRoomID (0 keeps none).
func (Store) FreeOffices(ctx context.Context, tx db.DBTX, o owner.Owner, keepRoomID uint64) (int64, error) {
	kind, key := o.Columns()
	res, err := tx.ExecContext(ctx,
		`UPDATE rooms SET occupant_kind = NULL, occupant_key = NULL WHERE occupant_kind = ? AND occupant_key = ? AND id <> ?`,
		kind, key, keepRoomID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func memberTable(o owner.Owner) (string, uint64, bool) {
	id, ok := o.ID()
	if !ok {
		return "", 0, false
	}
	if o.Kind() == owner.KindFaculty {
		return "faculty", id, true
	}
	return "staff", id, true
}

func (Store) SetOfficeRoom(ctx context.Context, tx db.DBTX, o owner.Owner, room sql.NullString) error {
	table, id, ok := memberTable(o)
	if !ok {
		return errors.New("allocation: office room on a non-member owner")
	}
	_, err := tx.ExecContext(ctx, `UPDATE `+table+` SET office_room = ? WHERE id = ?`, room, id)
	return err
}
