package people

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"LIMS-backend/internal/owner"
	"LIMS-backend/internal/platform/db"
	"LIMS-backend/internal/platform/paging"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

const studentCols = `roll, name, email, phone, course, year, advisor, user_id, created_at`

func scanStudent(row interface{ Scan(...any) error }) (*Student, error) {
	var s Student
	err := row.Scan(&s.Roll, &s.Name, &s.Email, &s.Phone, &s.Course, &s.Year, &s.Advisor, &s.UserID, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Store) InsertStudent(ctx context.Context, tx db.DBTX, st *Student) error {
	const q = `
INSERT INTO students (roll, name, email, phone, course, year, advisor, user_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	_, err := tx.ExecContext(ctx, q, st.Roll, st.Name, st.Email, st.Phone, st.Course, st.Year, st.Advisor, st.UserID, st.CreatedAt)
	return err
}

func (s *Store) GetStudent(ctx context.Context, q db.DBTX, roll string) (*Student, error) {
	return scanStudent(q.QueryRowContext(ctx, `SELECT `+studentCols+` FROM students WHERE roll = ?`, roll))
}

func (s *Store) UpdateStudent(ctx context.Context, tx db.DBTX, st *Student) error {
	const q = `
UPDATE students SET name = ?, email = ?, phone = ?, course = ?, year = ?, advisor = ?, user_id = ?
WHERE roll = ?
`
	_, err := tx.ExecContext(ctx, q, st.Name, st.Email, st.Phone, st.Course, st.Year, st.Advisor, st.UserID, st.Roll)
	return err
}

func (s *Store) DeleteStudent(ctx context.Context, tx db.DBTX, roll string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE roll = ?`, roll)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func likeArg(v string) string { return db.Contains(v) }

func (s *Store) ListStudents(ctx context.Context, sq SearchQuery, p paging.Page) ([]Student, int64, error) {
	var where []string
	var args []any
	if v := strings.TrimSpace(sq.Q); v != "" {
		where = append(where, "(roll LIKE ?"+db.LikeEscape+" OR name LIKE ?"+db.LikeEscape+" OR email LIKE ?"+db.LikeEscape+")")
		args = append(args, likeArg(v), likeArg(v), likeArg(v))
	}
	if v := strings.TrimSpace(sq.Course); v != "" {
		where = append(where, "course = ?")
		args = append(args, v)
	}
	if v := strings.TrimSpace(sq.Year); v != "" {
		where = append(where, "year = ?")
		args = append(args, v)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + studentCols + ` FROM students` + cond + ` ORDER BY created_at ` + p.Dir() + `, roll LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *st)
	}
	return out, total, rows.Err()
}

const memberCols = `id, employee_code, name, email, phone, designation, office_room, user_id, created_at`

func scanMember(row interface{ Scan(...any) error }) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.EmployeeCode, &m.Name, &m.Email, &m.Phone, &m.Designation, &m.OfficeRoom, &m.UserID, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) InsertMember(ctx context.Context, tx db.DBTX, k MemberKind, m *Member) (uint64, error) {
	q := `INSERT INTO ` + k.table() + ` (employee_code, name, email, phone, designation, user_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, m.EmployeeCode, m.Name, m.Email, m.Phone, m.Designation, m.UserID, m.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (s *Store) GetMember(ctx context.Context, q db.DBTX, k MemberKind, id uint64) (*Member, error) {
	return scanMember(q.QueryRowContext(ctx, `SELECT `+memberCols+` FROM `+k.table()+` WHERE id = ?`, id))
}

func (s *Store) UpdateMember(ctx context.Context, tx db.DBTX, k MemberKind, m *Member) error {
	q := `UPDATE ` + k.table() + ` SET name = ?, email = ?, phone = ?, designation = ?, user_id = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, m.Name, m.Email, m.Phone, m.Designation, m.UserID, m.ID)
	return err
}

func (s *Store) DeleteMember(ctx context.Context, tx db.DBTX, k MemberKind, id uint64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM `+k.table()+` WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) ListMembers(ctx context.Context, k MemberKind, sq SearchQuery, p paging.Page) ([]Member, int64, error) {
	cond := ""
	var args []any
	if v := strings.TrimSpace(sq.Q); v != "" {
		cond = " WHERE (employee_code LIKE ?" + db.LikeEscape + " OR name LIKE ?" + db.LikeEscape + " OR email LIKE ?" + db.LikeEscape + ")"
		args = append(args, likeArg(v), likeArg(v), likeArg(v))
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+k.table()+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + memberCols + ` FROM ` + k.table() + cond + ` ORDER BY id ` + p.Dir() + ` LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	return out, total, rows.Err()
}

// HeldAssets counts active workstation assignments plus equipment held by o.
func (s *Store) HeldAssets(ctx context.Context, q db.DBTX, o owner.Owner) (int, error) {
	kind, key := o.Columns()
	var ws, eq int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workstation_assignments WHERE owner_kind = ? AND owner_key = ? AND is_active = 1`,
		kind, key).Scan(&ws); err != nil {
		return 0, err
	}
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM equipment WHERE owner_kind = ? AND owner_key = ?`,
		kind, key).Scan(&eq); err != nil {
		return 0, err
	}
	return ws + eq, nil
}

// ReleaseOffice clears a room claim held by o when the member is deleted.
func (s *Store) ReleaseOffice(ctx context.Context, tx db.DBTX, o owner.Owner) error {
	kind, key := o.Columns()
	_, err := tx.ExecContext(ctx,
		`UPDATE rooms SET occupant_kind = NULL, occupant_key = NULL WHERE occupant_kind = ? AND occupant_key = ?`,
		kind, key)
	return err
}

func nowUTC() time.Time { return time.Now().UTC() }
