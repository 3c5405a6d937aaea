package rooms

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"LIMS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

const roomCols = `id, name, kind, capacity, staff_in_charge, occupant_kind, occupant_key, created_at`

func scanRoom(row interface{ Scan(...any) error }) (*Room, error) {
	var r Room
	err := row.Scan(&r.ID, &r.Name, &r.Kind, &r.Capacity, &r.StaffInCharge, &r.OccupantKind, &r.OccupantKey, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) RoomByName(ctx context.Context, q db.DBTX, name string) (*Room, error) {
	return scanRoom(q.QueryRowContext(ctx, `SELECT `+roomCols+` FROM rooms WHERE name = ?`, name))
}

func (s *Store) RoomByID(ctx context.Context, q db.DBTX, id uint64) (*Room, error) {
	return scanRoom(q.QueryRowContext(ctx, `SELECT `+roomCols+` FROM rooms WHERE id = ?`, id))
}

func (s *Store) ListRooms(ctx context.Context, kind string) ([]Room, error) {
	q := `SELECT ` + roomCols + ` FROM rooms`
	var args []any
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, kind)
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) InsertRoom(ctx context.Context, tx db.DBTX, r *Room) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO rooms (name, kind, capacity, staff_in_charge, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.Name, r.Kind, r.Capacity, r.StaffInCharge, r.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// InsertSeats creates seats "1".."n".
func (s *Store) InsertSeats(ctx context.Context, tx db.DBTX, roomID uint64, n int) error {
	for i := 1; i <= n; i++ {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cubicles (room_id, seat_no) VALUES (?, ?)`, roomID, strconv.Itoa(i)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Cubicle(ctx context.Context, q db.DBTX, roomID uint64, seat string) (*Cubicle, error) {
	var c Cubicle
	err := q.QueryRowContext(ctx,
		`SELECT id, room_id, seat_no, student_roll, updated_at FROM cubicles WHERE room_id = ? AND seat_no = ?`,
		roomID, seat).Scan(&c.ID, &c.RoomID, &c.SeatNo, &c.StudentRoll, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Seat is a cubicle with its occupant's name.
type Seat struct {
	Cubicle
	StudentName sql.NullString
}

func (s *Store) Seats(ctx context.Context, roomID uint64) ([]Seat, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, c.room_id, c.seat_no, c.student_roll, c.updated_at, st.name
FROM cubicles c
LEFT JOIN students st ON st.roll = c.student_roll
WHERE c.room_id = ?
ORDER BY c.id`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Seat
	for rows.Next() {
		var r Seat
		if err := rows.Scan(&r.ID, &r.RoomID, &r.SeatNo, &r.StudentRoll, &r.UpdatedAt, &r.StudentName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nowUTC() time.Time { return time.Now().UTC() }
