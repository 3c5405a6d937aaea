// Package owner is the holder of an issued asset: exactly one student,
// staff member or faculty member.
package owner

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Kind string

const (
	KindStudent Kind = "student"
	KindStaff   Kind = "staff"
	KindFaculty Kind = "faculty"
)

// Owner is a closed sum type. The zero value means "no owner".
type Owner struct {
	kind Kind
	roll string
	id   uint64
}

func Student(roll string) Owner { return Owner{kind: KindStudent, roll: roll} }
func Staff(id uint64) Owner     { return Owner{kind: KindStaff, id: id} }
func Faculty(id uint64) Owner   { return Owner{kind: KindFaculty, id: id} }

func (o Owner) Kind() Kind      { return o.kind }
func (o Owner) IsZero() bool    { return o.kind == "" }
func (o Owner) IsStudent() bool { return o.kind == KindStudent }

// Roll is set only for students.
func (o Owner) Roll() (string, bool) { return o.roll, o.kind == KindStudent }

// ID is set only for staff and faculty.
func (o Owner) ID() (uint64, bool) { return o.id, o.kind == KindStaff || o.kind == KindFaculty }

// Key is the owner_key column value.
func (o Owner) Key() string {
	switch o.kind {
	case KindStudent:
		return o.roll
	case KindStaff, KindFaculty:
		return strconv.FormatUint(o.id, 10)
	default:
		return ""
	}
}

func (o Owner) String() string {
	if o.IsZero() {
		return "none"
	}
	return string(o.kind) + ":" + o.Key()
}

// Parse rebuilds an Owner from its kind and key.
func Parse(kind, key string) (Owner, error) {
	key = strings.TrimSpace(key)
	k := Kind(strings.ToLower(strings.TrimSpace(kind)))
	switch k {
	case KindStudent:
		if key == "" {
			return Owner{}, fmt.Errorf("student roll is required")
		}
		return Student(key), nil
	case KindStaff, KindFaculty:
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil || id == 0 {
			return Owner{}, fmt.Errorf("%s id must be a positive number", kind)
		}
		if k == KindStaff {
			return Staff(id), nil
		}
		return Faculty(id), nil
	default:
		return Owner{}, fmt.Errorf("owner kind must be student, staff or faculty")
	}
}

// FromNull reads the nullable column pair. Both NULL is the zero Owner.
func FromNull(kind, key sql.NullString) (Owner, error) {
	if !kind.Valid && !key.Valid {
		return Owner{}, nil
	}
	return Parse(kind.String, key.String)
}

// Columns returns the values for the (owner_kind, owner_key) pair, NULL for the zero Owner.
func (o Owner) Columns() (any, any) {
	if o.IsZero() {
		return nil, nil
	}
	return string(o.kind), o.Key()
}

type wire struct {
	Kind Kind   `json:"kind"`
	Key  string `json:"key"`
}

func (o Owner) MarshalJSON() ([]byte, error) {
	if o.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(wire{Kind: o.kind, Key: o.Key()})
}

func (o *Owner) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = Owner{}
		return nil
	}
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	parsed, err := Parse(string(w.Kind), w.Key)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
