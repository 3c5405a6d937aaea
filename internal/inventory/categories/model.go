package categories

import (
	"database/sql"
	"time"
)

// Category is an entry of the equipment category catalogue.
type Category struct {
	ID          uint64
	Name        string
	Description sql.NullString
	IsDisabled  bool
	CreatedAt   time.Time
	// Items is the number of equipment rows filed under Name.
	Items int
}

type CreateRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// UpdateRequest cannot rename: equipment rows and department codes carry the name.
type UpdateRequest struct {
	Description *string `json:"description"`
	IsDisabled  *bool   `json:"is_disabled"`
}

type Response struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	IsDisabled  bool      `json:"is_disabled"`
	Items       int       `json:"items"`
	CreatedAt   time.Time `json:"created_at"`
}
