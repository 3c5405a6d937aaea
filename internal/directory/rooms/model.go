package rooms

import (
	"database/sql"
	"time"
)

const (
	KindLab    = "lab"
	KindOffice = "office"
)

type Room struct {
	ID            uint64
	Name          string
	Kind          string
	Capacity      int
	StaffInCharge sql.NullString
	OccupantKind  sql.NullString
	OccupantKey   sql.NullString
	CreatedAt     time.Time
}

type Cubicle struct {
	ID          uint64
	RoomID      uint64
	SeatNo      string
	StudentRoll sql.NullString
	UpdatedAt   sql.NullTime
}

// LabSpec is a lab record from configuration.
type LabSpec struct {
	Name          string
	Capacity      int
	StaffInCharge string
}
