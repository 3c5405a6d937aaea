package auth

import "time"

type RegisterRequest struct {
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password"`
}

type ResetRequest struct {
	Email string `json:"email" binding:"required"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password"`
}

type UserDTO struct {
	ID           uint64     `json:"id"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	IsApproved   bool       `json:"is_approved"`
	IsActive     bool       `json:"is_active"`
	RegisteredAt time.Time  `json:"registered_at"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
}
