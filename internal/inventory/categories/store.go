package categories

import (
	"context"
	"database/sql"
	"errors"

	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

const selectCols = `
SELECT c.id, c.name, c.description, c.is_disabled, c.created_at,
       (SELECT COUNT(*) FROM equipment e WHERE c.name = e.category)
FROM equipment_categories c`

func scan(row interface{ Scan(...any) error }) (*Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.IsDisabled, &c.CreatedAt, &c.Items)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) List(ctx context.Context, includeDisabled bool) ([]Category, error) {
	q := selectCols
	if !includeDisabled {
		q += ` WHERE c.is_disabled = ?`
	}
	q += ` ORDER BY c.name`
	var args []any
	if !includeDisabled {
		args = append(args, false)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Category, 0, 16)
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Get returns nil when id does not exist.
func (s *Store) Get(ctx context.Context, q db.DBTX, id uint64) (*Category, error) {
	return scan(q.QueryRowContext(ctx, selectCols+` WHERE c.id = ?`, id))
}

func (s *Store) Insert(ctx context.Context, tx db.DBTX, c *Category) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO equipment_categories (name, description, is_disabled, created_at) VALUES (?, ?, ?, ?)`,
		c.Name, c.Description, c.IsDisabled, c.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

func (s *Store) Update(ctx context.Context, tx db.DBTX, id uint64, desc sql.NullString, disabled bool) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE equipment_categories SET description = ?, is_disabled = ? WHERE id = ?`, desc, disabled, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Disabled reports whether name is catalogued and switched off. Names
// missing from the catalogue are not disabled.
func (s *Store) Disabled(ctx context.Context, q db.DBTX, name string) (bool, error) {
	var off bool
	err := q.QueryRowContext(ctx, `SELECT is_disabled FROM equipment_categories WHERE name = ?`, name).Scan(&off)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return off, err
}

// CheckUsable rejects a disabled category for new or edited equipment.
func (s *Store) CheckUsable(ctx context.Context, q db.DBTX, name string) error {
	off, err := s.Disabled(ctx, q, name)
	if err != nil {
		return err
	}
	if off {
		return apierr.Invalidf("category %q is disabled", name)
	}
	return nil
}
