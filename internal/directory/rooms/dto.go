package rooms

import "LIMS-backend/internal/owner"

type CreateRoomRequest struct {
	Name          string `json:"name" binding:"required"`
	Kind          string `json:"kind" binding:"required"` // lab | office
	Capacity      int    `json:"capacity"`
	StaffInCharge string `json:"staff_in_charge"`
}

type CubicleResponse struct {
	ID          uint64  `json:"id"`
	SeatNo      string  `json:"seat_no"`
	StudentRoll *string `json:"student_roll,omitempty"`
	StudentName *string `json:"student_name,omitempty"`
}

type RoomResponse struct {
	ID            uint64            `json:"id"`
	Name          string            `json:"name"`
	Kind          string            `json:"kind"`
	Capacity      int               `json:"capacity"`
	StaffInCharge *string           `json:"staff_in_charge,omitempty"`
	Occupant      owner.Owner       `json:"occupant"`
	Cubicles      []CubicleResponse `json:"cubicles,omitempty"`
}
