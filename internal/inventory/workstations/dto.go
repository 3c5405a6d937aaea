package workstations

import (
	"time"

	"LIMS-backend/internal/inventory/audit"
	"LIMS-backend/internal/owner"
)

// ===== request DTOs =====

type CreateWorkstationRequest struct {
	Manufacturer   string  `json:"manufacturer"`
	Model          string  `json:"model"`
	Serial         string  `json:"serial"`
	MACAddress     *string `json:"mac_address"`
	OS             *string `json:"os"`
	Processor      *string `json:"processor"`
	Cores          *int    `json:"cores"`
	RAMGB          *int    `json:"ram_gb"`
	Storage        *string `json:"storage"`
	GPU            *string `json:"gpu"`
	VRAMGB         *int    `json:"vram_gb"`
	PODate         *string `json:"po_date"` // YYYY-MM-DD
	Indenter       string  `json:"indenter"`
	SourceOfFund   *string `json:"source_of_fund"`
	WarrantyStart  *string `json:"warranty_start"`
	WarrantyExpiry *string `json:"warranty_expiry"`
	Location       string  `json:"location"`
	Remarks        *string `json:"remarks"`
}

// UpdateWorkstationRequest: nil keeps the stored value, "" clears an optional one.
// The department code is fixed at creation.
type UpdateWorkstationRequest struct {
	Manufacturer   *string `json:"manufacturer"`
	Model          *string `json:"model"`
	Serial         *string `json:"serial"`
	MACAddress     *string `json:"mac_address"`
	OS             *string `json:"os"`
	Processor      *string `json:"processor"`
	Cores          *int    `json:"cores"`
	RAMGB          *int    `json:"ram_gb"`
	Storage        *string `json:"storage"`
	GPU            *string `json:"gpu"`
	VRAMGB         *int    `json:"vram_gb"`
	PODate         *string `json:"po_date"`
	Indenter       *string `json:"indenter"`
	SourceOfFund   *string `json:"source_of_fund"`
	WarrantyStart  *string `json:"warranty_start"`
	WarrantyExpiry *string `json:"warranty_expiry"`
	Location       *string `json:"location"`
	Remarks        *string `json:"remarks"`
}

type StatusChangeRequest struct {
	Reason string `json:"reason"`
}

// ===== response DTOs =====

type AssignmentResponse struct {
	ID                 string      `json:"id"`
	AssetID            uint64      `json:"asset_id"`
	Owner              owner.Owner `json:"owner"`
	IssueDate          string      `json:"issue_date"`
	SystemRequiredTill *string     `json:"system_required_till,omitempty"`
	EndDate            *string     `json:"end_date,omitempty"`
	IsActive           bool        `json:"is_active"`
	IssuedBy           *string     `json:"issued_by,omitempty"`
	ReturnedBy         *string     `json:"returned_by,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	ReturnedAt         *time.Time  `json:"returned_at,omitempty"`
}

type WorkstationResponse struct {
	ID               uint64              `json:"id"`
	Manufacturer     string              `json:"manufacturer"`
	Model            string              `json:"model"`
	Serial           string              `json:"serial"`
	MACAddress       *string             `json:"mac_address,omitempty"`
	OS               *string             `json:"os,omitempty"`
	Processor        *string             `json:"processor,omitempty"`
	Cores            *int                `json:"cores,omitempty"`
	RAMGB            *int                `json:"ram_gb,omitempty"`
	Storage          *string             `json:"storage,omitempty"`
	GPU              *string             `json:"gpu,omitempty"`
	VRAMGB           *int                `json:"vram_gb,omitempty"`
	PODate           *string             `json:"po_date,omitempty"`
	Indenter         string              `json:"indenter"`
	SourceOfFund     *string             `json:"source_of_fund,omitempty"`
	WarrantyStart    *string             `json:"warranty_start,omitempty"`
	WarrantyExpiry   *string             `json:"warranty_expiry,omitempty"`
	Location         string              `json:"location"`
	DepartmentCode   string              `json:"department_code"`
	Status           string              `json:"status"`
	HasPOInvoice     bool                `json:"has_po_invoice"`
	Remarks          *string             `json:"remarks,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	ActiveAssignment *AssignmentResponse `json:"active_assignment,omitempty"`
}

type DetailResponse struct {
	WorkstationResponse
	Assignments []AssignmentResponse `json:"assignments"`
	Audit       []audit.Entry        `json:"audit"`
}
