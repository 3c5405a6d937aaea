package equipment

import (
	"time"

	"LIMS-backend/internal/inventory/audit"
	"LIMS-backend/internal/owner"
)

// CreateEquipmentRequest registers one or more identical items. Quantity
// must match the number of serial numbers; a MAC address is only accepted
// for a single item.
type CreateEquipmentRequest struct {
	Name           *string  `json:"name"` // defaults to the category
	Category       string   `json:"category"`
	Manufacturer   string   `json:"manufacturer"`
	Model          string   `json:"model"`
	Quantity       int      `json:"quantity"`
	SerialNumbers  []string `json:"serial_numbers"`
	SerialNumber   string   `json:"serial_number"`
	MACAddress     *string  `json:"mac_address"`
	InvoiceNumber  *string  `json:"invoice_number"`
	CostPerUnit    *float64 `json:"cost_per_unit"`
	WarrantyExpiry *string  `json:"warranty_expiry"`
	Location       string   `json:"location"`
	PurchaseDate   *string  `json:"purchase_date"`
	PODate         *string  `json:"po_date"`
	Indenter       string   `json:"indenter"`
	Remarks        *string  `json:"remarks"`
}

type UpdateEquipmentRequest struct {
	Name           *string  `json:"name"`
	Category       *string  `json:"category"`
	Manufacturer   *string  `json:"manufacturer"`
	Model          *string  `json:"model"`
	SerialNumber   *string  `json:"serial_number"`
	MACAddress     *string  `json:"mac_address"`
	InvoiceNumber  *string  `json:"invoice_number"`
	CostPerUnit    *float64 `json:"cost_per_unit"`
	WarrantyExpiry *string  `json:"warranty_expiry"`
	Location       *string  `json:"location"`
	PurchaseDate   *string  `json:"purchase_date"`
	PODate         *string  `json:"po_date"`
	Indenter       *string  `json:"indenter"`
	Remarks        *string  `json:"remarks"`
}

type StatusChangeRequest struct {
	Reason string `json:"reason"`
}

type EquipmentResponse struct {
	ID             uint64       `json:"id"`
	Name           string       `json:"name"`
	Category       string       `json:"category"`
	Manufacturer   string       `json:"manufacturer"`
	Model          string       `json:"model"`
	SerialNumber   string       `json:"serial_number"`
	MACAddress     *string      `json:"mac_address,omitempty"`
	InvoiceNumber  *string      `json:"invoice_number,omitempty"`
	CostPerUnit    *float64     `json:"cost_per_unit,omitempty"`
	WarrantyExpiry *string      `json:"warranty_expiry,omitempty"`
	Location       string       `json:"location"`
	PurchaseDate   *string      `json:"purchase_date,omitempty"`
	PODate         *string      `json:"po_date,omitempty"`
	Indenter       string       `json:"indenter"`
	DepartmentCode string       `json:"department_code"`
	Status         string       `json:"status"`
	Owner          *owner.Owner `json:"owner"`
	AssignedBy     *string      `json:"assigned_by,omitempty"`
	AssignedDate   *time.Time   `json:"assigned_date,omitempty"`
	Remarks        *string      `json:"remarks,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type HistoryResponse struct {
	ID             string      `json:"id"`
	EquipmentID    uint64      `json:"equipment_id"`
	Event          string      `json:"event"`
	Owner          owner.Owner `json:"owner"`
	AssignedBy     *string     `json:"assigned_by,omitempty"`
	AssignedDate   *time.Time  `json:"assigned_date,omitempty"`
	UnassignedDate *time.Time  `json:"unassigned_date,omitempty"`
	StatusSnapshot string      `json:"status_snapshot"`
	CreatedAt      time.Time   `json:"created_at"`
}

type DetailResponse struct {
	EquipmentResponse
	History []HistoryResponse `json:"history"`
	Audit   []audit.Entry     `json:"audit"`
}

type BatchResponse struct {
	Items []EquipmentResponse `json:"items"`
}
