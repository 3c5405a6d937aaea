// Package fields validates the free-form inputs shared by both asset kinds.
package fields

import (
	"database/sql"
	"net"
	"strings"
	"time"

	"LIMS-backend/internal/platform/apierr"
)

const DateLayout = "2006-01-02"

// Date parses an optional YYYY-MM-DD value. nil or blank is NULL.
func Date(field string, v *string) (sql.NullTime, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(*v))
	if err != nil {
		return sql.NullTime{}, apierr.Invalidf("%s must be a date in YYYY-MM-DD format", field)
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

// RequiredDate is Date for a mandatory value.
func RequiredDate(field, v string) (time.Time, error) {
	d, err := Date(field, &v)
	if err != nil {
		return time.Time{}, err
	}
	if !d.Valid {
		return time.Time{}, apierr.Invalidf("%s is required", field)
	}
	return d.Time, nil
}

// NotAfter rejects a > b when both are set.
func NotAfter(aName string, a sql.NullTime, bName string, b sql.NullTime) error {
	if a.Valid && b.Valid && a.Time.After(b.Time) {
		return apierr.Invalidf("%s must not be after %s", aName, bName)
	}
	return nil
}

// MAC normalizes to lower-case colon form. nil or blank is NULL.
func MAC(v *string) (sql.NullString, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return sql.NullString{}, nil
	}
	hw, err := net.ParseMAC(strings.TrimSpace(*v))
	if err != nil || len(hw) != 6 {
		return sql.NullString{}, apierr.ErrInvalid("mac_address must look like aa:bb:cc:dd:ee:ff")
	}
	return sql.NullString{String: hw.String(), Valid: true}, nil
}

func Required(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", apierr.Invalidf("%s is required", field)
	}
	return v, nil
}

// Optional trims v; blank is NULL.
func Optional(v *string) sql.NullString {
	if v == nil || strings.TrimSpace(*v) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.TrimSpace(*v), Valid: true}
}

func OptionalInt(field string, v *int) (sql.NullInt64, error) {
	if v == nil {
		return sql.NullInt64{}, nil
	}
	if *v < 0 {
		return sql.NullInt64{}, apierr.Invalidf("%s must not be negative", field)
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}, nil
}

func StrPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func IntPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// DatePtr renders a NULL-able date column as YYYY-MM-DD.
func DatePtr(n sql.NullTime) *string {
	if !n.Valid {
		return nil
	}
	v := n.Time.Format(DateLayout)
	return &v
}

func TimePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}
