package people

import (
	"database/sql"
	"time"

	"LIMS-backend/internal/owner"
)

type Student struct {
	Roll      string
	Name      string
	Email     string
	Phone     sql.NullString
	Course    sql.NullString
	Year      sql.NullString
	Advisor   sql.NullString
	UserID    sql.NullInt64
	CreatedAt time.Time
}

// Member is a faculty or staff row; both tables share this shape.
type Member struct {
	ID           uint64
	EmployeeCode string
	Name         string
	Email        string
	Phone        sql.NullString
	Designation  sql.NullString
	OfficeRoom   sql.NullString
	UserID       sql.NullInt64
	CreatedAt    time.Time
}

// Person is the part of any directory entry other packages need.
type Person struct {
	Owner      owner.Owner
	Name       string
	Email      string
	OfficeRoom string
}

type MemberKind string

const (
	KindFaculty MemberKind = "faculty"
	KindStaff   MemberKind = "staff"
)

func (k MemberKind) table() string { return string(k) }

func (k MemberKind) owner(id uint64) owner.Owner {
	if k == KindFaculty {
		return owner.Faculty(id)
	}
	return owner.Staff(id)
}
