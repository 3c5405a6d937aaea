package workstations

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"LIMS-backend/internal/inventory/lifecycle"
	"LIMS-backend/internal/owner"
	"LIMS-backend/internal/platform/db"
	"LIMS-backend/internal/platform/paging"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

const cols = `id, manufacturer, model, serial, mac_address, os, processor, cores, ram_gb, storage, gpu, vram_gb,
po_date, indenter, source_of_fund, warranty_start, warranty_expiry, location, department_code, status,
po_invoice_key, remarks, created_at, updated_at`

type scanner interface{ Scan(...any) error }

func scanWorkstation(row scanner) (*Workstation, error) {
	var w Workstation
	var status string
	err := row.Scan(&w.ID, &w.Manufacturer, &w.Model, &w.Serial, &w.MACAddress, &w.OS, &w.Processor,
		&w.Cores, &w.RAMGB, &w.Storage, &w.GPU, &w.VRAMGB,
		&w.PODate, &w.Indenter, &w.SourceOfFund, &w.WarrantyStart, &w.WarrantyExpiry, &w.Location,
		&w.DepartmentCode, &status, &w.POInvoiceKey, &w.Remarks, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	w.Status = lifecycle.Status(status)
	return &w, nil
}

func (s *Store) Insert(ctx context.Context, tx db.DBTX, w *Workstation) (uint64, error) {
	const q = `
INSERT INTO workstation_assets (
  manufacturer, model, serial, mac_address, os, processor, cores, ram_gb, storage, gpu, vram_gb,
  po_date, indenter, source_of_fund, warranty_start, warranty_expiry, location, department_code, status,
  remarks, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	res, err := tx.ExecContext(ctx, q,
		w.Manufacturer, w.Model, w.Serial, w.MACAddress, w.OS, w.Processor, w.Cores, w.RAMGB, w.Storage, w.GPU, w.VRAMGB,
		w.PODate, w.Indenter, w.SourceOfFund, w.WarrantyStart, w.WarrantyExpiry, w.Location, w.DepartmentCode, string(w.Status),
		w.Remarks, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (s *Store) Get(ctx context.Context, q db.DBTX, id uint64) (*Workstation, error) {
	return scanWorkstation(q.QueryRowContext(ctx, `SELECT `+cols+` FROM workstation_assets WHERE id = ?`, id))
}

// Taken reports whether column already holds value on an asset other than exceptID.
func (s *Store) Taken(ctx context.Context, q db.DBTX, column, value string, exceptID uint64) (bool, error) {
	switch column {
	case "serial", "mac_address":
	default:
		return false, errors.New("workstations: unsupported unique column " + column)
	}
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workstation_assets WHERE `+column+` = ? AND id <> ?`, value, exceptID).Scan(&n)
	return n > 0, err
}

// Update writes the editable columns. Status, code and invoice key have their own paths.
func (s *Store) Update(ctx context.Context, tx db.DBTX, w *Workstation) error {
	const q = `
UPDATE workstation_assets SET
  manufacturer = ?, model = ?, serial = ?, mac_address = ?, os = ?, processor = ?, cores = ?, ram_gb = ?,
  storage = ?, gpu = ?, vram_gb = ?, po_date = ?, indenter = ?, source_of_fund = ?, warranty_start = ?,
  warranty_expiry = ?, location = ?, remarks = ?, updated_at = ?
WHERE id = ?
`
	_, err := tx.ExecContext(ctx, q,
		w.Manufacturer, w.Model, w.Serial, w.MACAddress, w.OS, w.Processor, w.Cores, w.RAMGB,
		w.Storage, w.GPU, w.VRAMGB, w.PODate, w.Indenter, w.SourceOfFund, w.WarrantyStart,
		w.WarrantyExpiry, w.Location, w.Remarks, w.UpdatedAt, w.ID)
	return err
}

// CASStatus moves id from one status to another. false means the row was
// not in status from any more.
func (s *Store) CASStatus(ctx context.Context, tx db.DBTX, id uint64, from, to lifecycle.Status, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE workstation_assets SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), now, id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *Store) SetLocation(ctx context.Context, tx db.DBTX, id uint64, location string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE workstation_assets SET location = ?, updated_at = ? WHERE id = ?`, location, now, id)
	return err
}

func (s *Store) SetInvoiceKey(ctx context.Context, tx db.DBTX, id uint64, key sql.NullString, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE workstation_assets SET po_invoice_key = ?, updated_at = ? WHERE id = ?`, key, now, id)
	return err
}

func (s *Store) Delete(ctx context.Context, tx db.DBTX, id uint64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM workstation_assets WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func where(f Filter) (string, []any) {
	var conds []string
	var args []any
	if v := strings.TrimSpace(f.Status); v != "" {
		conds = append(conds, "status = ?")
		args = append(args, v)
	}
	if v := strings.TrimSpace(f.Location); v != "" {
		conds = append(conds, "location = ?")
		args = append(args, v)
	}
	if v := strings.TrimSpace(f.Q); v != "" {
		var or []string
		for _, c := range []string{"model", "manufacturer", "serial", "department_code", "indenter", "location"} {
			or = append(or, c+" LIKE ?"+db.LikeEscape)
			args = append(args, db.Contains(v))
		}
		conds = append(conds, "("+strings.Join(or, " OR ")+")")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) List(ctx context.Context, f Filter, p paging.Page) ([]Workstation, int64, error) {
	cond, args := where(f)
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workstation_assets`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + cols + ` FROM workstation_assets` + cond + ` ORDER BY id ` + p.Dir() + ` LIMIT ? OFFSET ?`
	out, err := s.query(ctx, q, append(args, p.Limit, p.Offset)...)
	return out, total, err
}

// All is List without paging, for exports.
func (s *Store) All(ctx context.Context, f Filter) ([]Workstation, error) {
	cond, args := where(f)
	return s.query(ctx, `SELECT `+cols+` FROM workstation_assets`+cond+` ORDER BY id`, args...)
}

// ByOwner returns the workstations currently issued to o.
func (s *Store) ByOwner(ctx context.Context, q db.DBTX, o owner.Owner) ([]Workstation, error) {
	kind, key := o.Columns()
	rows, err := q.QueryContext(ctx, `
SELECT `+prefixed("w.", cols)+`
FROM workstation_assets w
JOIN workstation_assignments a ON a.asset_id = w.id AND a.is_active = 1
WHERE a.owner_kind = ? AND a.owner_key = ?
ORDER BY w.id`, kind, key)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func prefixed(alias, list string) string {
	parts := strings.Split(list, ",")
	for i, p := range parts {
		parts[i] = alias + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Workstation, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func collect(rows *sql.Rows) ([]Workstation, error) {
	defer rows.Close()
	var out []Workstation
	for rows.Next() {
		w, err := scanWorkstation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// ===== assignments =====

const assignmentCols = `id, assignment_ulid, asset_id, owner_kind, owner_key, issue_date, system_required_till,
end_date, is_active, issued_by, returned_by, created_at, returned_at`

func scanAssignment(row scanner) (*Assignment, error) {
	var a Assignment
	var kind, key string
	err := row.Scan(&a.ID, &a.ULID, &a.AssetID, &kind, &key, &a.IssueDate, &a.SystemRequiredTill,
		&a.EndDate, &a.IsActive, &a.IssuedBy, &a.ReturnedBy, &a.CreatedAt, &a.ReturnedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if a.Owner, err = owner.Parse(kind, key); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) InsertAssignment(ctx context.Context, tx db.DBTX, a *Assignment) (uint64, error) {
	const q = `
INSERT INTO workstation_assignments (
  assignment_ulid, asset_id, owner_kind, owner_key, issue_date, system_required_till, is_active, issued_by, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	kind, key := a.Owner.Columns()
	res, err := tx.ExecContext(ctx, q, a.ULID, a.AssetID, kind, key, a.IssueDate, a.SystemRequiredTill, true, a.IssuedBy, a.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (s *Store) ActiveAssignment(ctx context.Context, q db.DBTX, assetID uint64) (*Assignment, error) {
	return scanAssignment(q.QueryRowContext(ctx,
		`SELECT `+assignmentCols+` FROM workstation_assignments WHERE asset_id = ? AND is_active = 1`, assetID))
}

// CloseAssignment ends an active assignment. false means it was already closed.
func (s *Store) CloseAssignment(ctx context.Context, tx db.DBTX, id uint64, end time.Time, returnedBy sql.NullString, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, `
UPDATE workstation_assignments SET end_date = ?, is_active = ?, returned_by = ?, returned_at = ?
WHERE id = ? AND is_active = 1`, end, false, returnedBy, now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *Store) CountAssignments(ctx context.Context, q db.DBTX, assetID uint64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM workstation_assignments WHERE asset_id = ?`, assetID).Scan(&n)
	return n, err
}

// Assignments lists every assignment of one asset, newest first.
func (s *Store) Assignments(ctx context.Context, q db.DBTX, assetID uint64) ([]Assignment, error) {
	return s.assignments(ctx, q, `WHERE asset_id = ? ORDER BY id DESC`, assetID)
}

// AssignmentsByOwner lists o's assignments, optionally only the active ones.
func (s *Store) AssignmentsByOwner(ctx context.Context, q db.DBTX, o owner.Owner, activeOnly bool) ([]Assignment, error) {
	kind, key := o.Columns()
	cond := `WHERE owner_kind = ? AND owner_key = ?`
	if activeOnly {
		cond += ` AND is_active = 1`
	}
	return s.assignments(ctx, q, cond+` ORDER BY id DESC`, kind, key)
}

func (s *Store) assignments(ctx context.Context, q db.DBTX, tail string, args ...any) ([]Assignment, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+assignmentCols+` FROM workstation_assignments `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
