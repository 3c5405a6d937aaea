package equipment

import (
	"database/sql"
	"time"

	"LIMS-backend/internal/inventory/lifecycle"
	"LIMS-backend/internal/owner"
)

type Equipment struct {
	ID             uint64
	Name           string
	Category       string
	Manufacturer   string
	Model          string
	SerialNumber   string
	MACAddress     sql.NullString
	InvoiceNumber  sql.NullString
	CostPerUnit    sql.NullFloat64
	WarrantyExpiry sql.NullTime
	Location       string
	PurchaseDate   sql.NullTime
	PODate         sql.NullTime
	Indenter       string
	DepartmentCode string
	Status         lifecycle.Status
	Owner          owner.Owner // zero when unassigned
	AssignedBy     sql.NullString
	AssignedDate   sql.NullTime
	Remarks        sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const (
	EventAssign   = "assign"
	EventLocation = "location"
)

// History is an append-only ledger row. Only UnassignedDate is ever filled in later.
type History struct {
	ID             uint64
	ULID           string
	EquipmentID    uint64
	Event          string
	Owner          owner.Owner
	AssignedBy     sql.NullString
	AssignedDate   sql.NullTime
	UnassignedDate sql.NullTime
	StatusSnapshot string
	CreatedAt      time.Time
}

type Filter struct {
	Status   string
	Category string
	Location string
	Q        string
	Owner    owner.Owner
}
