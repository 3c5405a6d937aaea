package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"LIMS-backend/internal/platform/db"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID               uint64
	Email            string
	PasswordHash     string
	Role             string
	IsApproved       bool
	IsActive         bool
	ResetTokenHash   sql.NullString
	ResetTokenExpiry sql.NullTime
	RegisteredAt     time.Time
	ApprovedAt       sql.NullTime
}

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

const userCols = `id, email, password_hash, role, is_approved, is_active, reset_token_hash, reset_token_expiry, registered_at, approved_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsApproved, &u.IsActive,
		&u.ResetTokenHash, &u.ResetTokenExpiry, &u.RegisteredAt, &u.ApprovedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetByEmail(ctx context.Context, q db.DBTX, email string) (*User, error) {
	return scanUser(q.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ? LIMIT 1`, email))
}

func (s *Store) GetByID(ctx context.Context, q db.DBTX, id uint64) (*User, error) {
	return scanUser(q.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ? LIMIT 1`, id))
}

func (s *Store) Create(ctx context.Context, q db.DBTX, u *User) (uint64, error) {
	const ins = `
INSERT INTO users (email, password_hash, role, is_approved, is_active, registered_at, approved_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`
	res, err := q.ExecContext(ctx, ins, u.Email, u.PasswordHash, u.Role, u.IsApproved, u.IsActive, u.RegisteredAt, u.ApprovedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (s *Store) List(ctx context.Context, pendingOnly bool) ([]User, error) {
	q := `SELECT ` + userCols + ` FROM users`
	if pendingOnly {
		q += ` WHERE is_approved = 0`
	}
	q += ` ORDER BY registered_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func affected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) SetApproval(ctx context.Context, id uint64, approved bool, at time.Time) (int64, error) {
	return affected(s.db.ExecContext(ctx, `UPDATE users SET is_approved = ?, approved_at = ? WHERE id = ?`, approved, at, id))
}

func (s *Store) SetActive(ctx context.Context, id uint64, active bool) (int64, error) {
	return affected(s.db.ExecContext(ctx, `UPDATE users SET is_active = ? WHERE id = ?`, active, id))
}

func (s *Store) SetPassword(ctx context.Context, id uint64, hash string) (int64, error) {
	return affected(s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, reset_token_hash = NULL, reset_token_expiry = NULL WHERE id = ?`, hash, id))
}

func (s *Store) SetResetToken(ctx context.Context, id uint64, hash string, expiry time.Time) (int64, error) {
	return affected(s.db.ExecContext(ctx, `UPDATE users SET reset_token_hash = ?, reset_token_expiry = ? WHERE id = ?`, hash, expiry, id))
}

func (s *Store) Delete(ctx context.Context, id uint64) (int64, error) {
	return affected(s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id))
}
