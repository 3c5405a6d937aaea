package allocation

import "LIMS-backend/internal/owner"

type CubicleRequest struct {
	Roll string `json:"roll"`
	Room string `json:"room"`
	Seat string `json:"seat"`
}

// OfficeRequest takes a staff or faculty owner.
type OfficeRequest struct {
	Owner owner.Owner `json:"owner"`
	Room  string      `json:"room"`
}

type IssueWorkstationRequest struct {
	Owner              owner.Owner `json:"owner"`
	IssueDate          string      `json:"issue_date"` // YYYY-MM-DD
	SystemRequiredTill *string     `json:"system_required_till"`
}

type ReturnWorkstationRequest struct {
	EndDate *string `json:"end_date"` // defaults to today
}

type IssueEquipmentRequest struct {
	Owner        owner.Owner `json:"owner"`
	AssignedDate *string     `json:"assigned_date"` // defaults to now
}

type RelocateRequest struct {
	Owner owner.Owner `json:"owner"`
	Room  string      `json:"room"`
}
