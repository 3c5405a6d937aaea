package people

import "time"

type CreateStudentRequest struct {
	Roll    string  `json:"roll" binding:"required"`
	Name    string  `json:"name" binding:"required"`
	Email   string  `json:"email" binding:"required"`
	Phone   *string `json:"phone,omitempty"`
	Course  *string `json:"course,omitempty"`
	Year    *string `json:"year,omitempty"`
	Advisor *string `json:"advisor,omitempty"`
}

type UpdateStudentRequest struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Course  *string `json:"course,omitempty"`
	Year    *string `json:"year,omitempty"`
	Advisor *string `json:"advisor,omitempty"`
}

type StudentResponse struct {
	Roll      string    `json:"roll"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Course    *string   `json:"course,omitempty"`
	Year      *string   `json:"year,omitempty"`
	Advisor   *string   `json:"advisor,omitempty"`
	UserID    *int64    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateMemberRequest struct {
	EmployeeCode string  `json:"employee_code" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Email        string  `json:"email" binding:"required"`
	Phone        *string `json:"phone,omitempty"`
	Designation  *string `json:"designation,omitempty"`
}

type UpdateMemberRequest struct {
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Designation *string `json:"designation,omitempty"`
}

type MemberResponse struct {
	ID           uint64    `json:"id"`
	EmployeeCode string    `json:"employee_code"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone,omitempty"`
	Designation  *string   `json:"designation,omitempty"`
	OfficeRoom   *string   `json:"office_room,omitempty"`
	UserID       *int64    `json:"user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type SearchQuery struct {
	Q      string
	Course string
	Year   string
}
