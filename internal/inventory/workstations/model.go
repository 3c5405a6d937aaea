package workstations

import (
	"database/sql"
	"time"

	"LIMS-backend/internal/inventory/lifecycle"
	"LIMS-backend/internal/owner"
)

type Workstation struct {
	ID             uint64
	Manufacturer   string
	Model          string
	Serial         string
	MACAddress     sql.NullString
	OS             sql.NullString
	Processor      sql.NullString
	Cores          sql.NullInt64
	RAMGB          sql.NullInt64
	Storage        sql.NullString
	GPU            sql.NullString
	VRAMGB         sql.NullInt64
	PODate         sql.NullTime
	Indenter       string
	SourceOfFund   sql.NullString
	WarrantyStart  sql.NullTime
	WarrantyExpiry sql.NullTime
	Location       string
	DepartmentCode string
	Status         lifecycle.Status
	POInvoiceKey   sql.NullString
	Remarks        sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Assignment is one issue of a workstation to a single owner.
type Assignment struct {
	ID                 uint64
	ULID               string
	AssetID            uint64
	Owner              owner.Owner
	IssueDate          time.Time
	SystemRequiredTill sql.NullTime
	EndDate            sql.NullTime
	IsActive           bool
	IssuedBy           sql.NullString
	ReturnedBy         sql.NullString
	CreatedAt          time.Time
	ReturnedAt         sql.NullTime
}

// Filter narrows List. Zero values are ignored.
type Filter struct {
	Status   string
	Location string
	Q        string
}
