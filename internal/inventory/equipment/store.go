package equipment

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

const cols = `id, name, category, manufacturer, model, serial_number, mac_address, invoice_number, cost_per_unit,
warranty_expiry, location, purchase_date, po_date, indenter, department_code, status, owner_kind, owner_key,
assigned_by, assigned_date, remarks, created_at, updated_at`

type scanner interface{ Scan(...any) error }

func scanEquipment(row scanner) (*Equipment, error) {
	var e Equipment
	var status string
	var kind, key sql.NullString
	err := row.Scan(&e.ID, &e.Name, &e.Category, &e.Manufacturer, &e.Model, &e.SerialNumber, &e.MACAddress,
		&e.InvoiceNumber, &e.CostPerUnit, &e.WarrantyExpiry, &e.Location, &e.PurchaseDate, &e.PODate,
		&e.Indenter, &e.DepartmentCode, &status, &kind, &key, &e.AssignedBy, &e.AssignedDate, &e.Remarks,
		&e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Status = lifecycle.Status(status)
	if e.Owner, err = owner.FromNull(kind, key); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) Insert(ctx context.Context, tx db.DBTX, e *Equipment) (uint64, error) {
	const q = `
INSERT INTO equipment (
  name, category, manufacturer, model, serial_number, mac_address, invoice_number, cost_per_unit,
  warranty_expiry, location, purchase_date, po_date, indenter, department_code, status, remarks,
  created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	res, err := tx.ExecContext(ctx, q,
		e.Name, e.Category, e.Manufacturer, e.Model, e.SerialNumber, e.MACAddress, e.InvoiceNumber, e.CostPerUnit,
		e.WarrantyExpiry, e.Location, e.PurchaseDate, e.PODate, e.Indenter, e.DepartmentCode, string(e.Status), e.Remarks,
		e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (s *Store) Get(ctx context.Context, q db.DBTX, id uint64) (*Equipment, error) {
	return scanEquipment(q.QueryRowContext(ctx, `SELECT `+cols+` FROM equipment WHERE id = ?`, id))
}

// Taken reports whether column already holds value on an item other than exceptID.
func (s *Store) Taken(ctx context.Context, q db.DBTX, column, value string, exceptID uint64) (bool, error) {
	switch column {
	case "serial_number", "mac_address":
	default:
		return false, errors.New("equipment: unsupported unique column " + column)
	}
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM equipment WHERE `+column+` = ? AND id <> ?`, value, exceptID).Scan(&n)
	return n > 0, err
}

func (s *Store) Update(ctx context.Context, tx db.DBTX, e *Equipment) error {
	const q = `
UPDATE equipment SET
  name = ?, category = ?, manufacturer = ?, model = ?, serial_number = ?, mac_address = ?, invoice_number = ?,
  cost_per_unit = ?, warranty_expiry = ?, location = ?, purchase_date = ?, po_date = ?, indenter = ?,
  remarks = ?, updated_at = ?
WHERE id = ?
`
	_, err := tx.ExecContext(ctx, q,
		e.Name, e.Category, e.Manufacturer, e.Model, e.SerialNumber, e.MACAddress, e.InvoiceNumber,
		e.CostPerUnit, e.WarrantyExpiry, e.Location, e.PurchaseDate, e.PODate, e.Indenter,
		e.Remarks, e.UpdatedAt, e.ID)
	return err
}

// CASStatus is the lifecycle update for an unowned item.
func (s *Store) CASStatus(ctx context.Context, tx db.DBTX, id uint64, from, to lifecycle.Status, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE equipment SET status = ?, updated_at = ? WHERE id = ? AND status = ? AND owner_kind IS NULL`,
		string(to), now, id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ClaimOwner issues an Available, unowned item to o. false means someone
// else got there first or the item is not issuable.
func (s *Store) ClaimOwner(ctx context.Context, tx db.DBTX, id uint64, o owner.Owner, by sql.NullString, at, now time.Time) (bool, error) {
	kind, key := o.Columns()
	res, err := tx.ExecContext(ctx, `
UPDATE equipment SET owner_kind = ?, owner_key = ?, assigned_by = ?, assigned_date = ?, status = ?, updated_at = ?
WHERE id = ? AND status = ? AND owner_kind IS NULL`,
		kind, key, by, at, string(lifecycle.Issued), now, id, string(lifecycle.Available))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ClearOwner returns an item held by o.
func (s *Store) ClearOwner(ctx context.Context, tx db.DBTX, id uint64, o owner.Owner, now time.Time) (bool, error) {
	kind, key := o.Columns()
	res, err := tx.ExecContext(ctx, `
UPDATE equipment SET owner_kind = NULL, owner_key = NULL, assigned_by = NULL, assigned_date = NULL, status = ?, updated_at = ?
WHERE id = ? AND owner_kind = ? AND owner_key = ?`,
		string(lifecycle.Available), now, id, kind, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *Store) SetLocation(ctx context.Context, tx db.DBTX, id uint64, location string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE equipment SET location = ?, updated_at = ? WHERE id = ?`, location, now, id)
	return err
}

func (s *Store) Delete(ctx context.Context, tx db.DBTX, id uint64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM equipment WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func where(f Filter) (string, []any) {
	var conds []string
	var args []any
	eq := func(col, v string) {
		if v = strings.TrimSpace(v); v != "" {
			conds = append(conds, col+" = ?")
			args = append(args, v)
		}
	}
	eq("status", f.Status)
	eq("category", f.Category)
	eq("location", f.Location)
	if !f.Owner.IsZero() {
		kind, key := f.Owner.Columns()
		conds = append(conds, "owner_kind = ? AND owner_key = ?")
		args = append(args, kind, key)
	}
	if v := strings.TrimSpace(f.Q); v != "" {
		var or []string
		for _, c := range []string{"name", "category", "department_code", "indenter", "model", "manufacturer", "serial_number"} {
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

func (s *Store) List(ctx context.Context, f Filter, p paging.Page) ([]Equipment, int64, error) {
	cond, args := where(f)
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM equipment`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	out, err := s.query(ctx, s.db, `SELECT `+cols+` FROM equipment`+cond+` ORDER BY id `+p.Dir()+` LIMIT ? OFFSET ?`,
		append(args, p.Limit, p.Offset)...)
	return out, total, err
}

// All is List without paging, for exports.
func (s *Store) All(ctx context.Context, f Filter) ([]Equipment, error) {
	cond, args := where(f)
	return s.query(ctx, s.db, `SELECT `+cols+` FROM equipment`+cond+` ORDER BY id`, args...)
}

// ByOwner returns the items o currently holds.
func (s *Store) ByOwner(ctx context.Context, q db.DBTX, o owner.Owner) ([]Equipment, error) {
	kind, key := o.Columns()
	return s.query(ctx, q, `SELECT `+cols+` FROM equipment WHERE owner_kind = ? AND owner_key = ? ORDER BY id`, kind, key)
}

func (s *Store) query(ctx context.Context, q db.DBTX, query string, args ...any) ([]Equipment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// ===== history =====

const historyCols = `id, history_ulid, equipment_id, event, owner_kind, owner_key, assigned_by, assigned_date,
unassigned_date, status_snapshot, created_at`

func scanHistory(row scanner) (*History, error) {
	var h History
	var kind, key string
	err := row.Scan(&h.ID, &h.ULID, &h.EquipmentID, &h.Event, &kind, &key, &h.AssignedBy, &h.AssignedDate,
		&h.UnassignedDate, &h.StatusSnapshot, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	if h.Owner, err = owner.Parse(kind, key); err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Store) InsertHistory(ctx context.Context, tx db.DBTX, h *History) error {
	const q = `
INSERT INTO equipment_history (
  history_ulid, equipment_id, event, owner_kind, owner_key, assigned_by, assigned_date, status_snapshot, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	kind, key := h.Owner.Columns()
	res, err := tx.ExecContext(ctx, q, h.ULID, h.EquipmentID, h.Event, kind, key, h.AssignedBy, h.AssignedDate, h.StatusSnapshot, h.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// CloseOpenAssign fills unassigned_date on the newest open assign row.
// false means there was none.
func (s *Store) CloseOpenAssign(ctx context.Context, tx db.DBTX, equipmentID uint64, at time.Time) (bool, error) {
	var id uint64
	err := tx.QueryRowContext(ctx, `
SELECT id FROM equipment_history
WHERE equipment_id = ? AND event = ? AND unassigned_date IS NULL
ORDER BY id DESC LIMIT 1`, equipmentID, EventAssign).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE equipment_history SET unassigned_date = ? WHERE id = ? AND unassigned_date IS NULL`, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *Store) CountHistory(ctx context.Context, q db.DBTX, equipmentID uint64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM equipment_history WHERE equipment_id = ?`, equipmentID).Scan(&n)
	return n, err
}

// History lists the ledger of one item, oldest first.
func (s *Store) History(ctx context.Context, q db.DBTX, equipmentID uint64) ([]History, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+historyCols+` FROM equipment_history WHERE equipment_id = ? ORDER BY id`, equipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []History{}
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}
