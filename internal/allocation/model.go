package allocation

import (
	"LIMS-backend/internal/inventory/equipment"
	"LIMS-backend/internal/inventory/workstations"
	"LIMS-backend/internal/owner"
)

// SeatRef names one cubicle.
type SeatRef struct {
	Room string `json:"room"`
	Seat string `json:"seat"`
}

// Relocation counts the assets moved by RelocateOwnerResources.
type Relocation struct {
	Room         string `json:"room"`
	Workstations int    `json:"workstations"`
	Equipment    int    `json:"equipment"`
}

type CubicleResult struct {
	Roll       string      `json:"roll"`
	Seat       SeatRef     `json:"seat"`
	Previous   *SeatRef    `json:"previous,omitempty"`
	Unchanged  bool        `json:"unchanged"`
	Relocation *Relocation `json:"relocation,omitempty"`
}

type OfficeResult struct {
	Owner      owner.Owner `json:"owner"`
	Room       string      `json:"room"`
	Previous   string      `json:"previous,omitempty"`
	Shared     bool        `json:"shared"`
	Unchanged  bool        `json:"unchanged"`
	Relocation *Relocation `json:"relocation,omitempty"`
}

type WorkstationHolding struct {
	workstations.WorkstationResponse
	Assignment workstations.AssignmentResponse `json:"assignment"`
}

// Resources is everything one owner currently holds.
type Resources struct {
	Owner        owner.Owner                   `json:"owner"`
	Name         string                        `json:"name"`
	Email        string                        `json:"email"`
	Cubicle      *SeatRef                      `json:"cubicle,omitempty"`
	Office       string                        `json:"office,omitempty"`
	Workstations []WorkstationHolding          `json:"workstations"`
	Equipment    []equipment.EquipmentResponse `json:"equipment"`
}
