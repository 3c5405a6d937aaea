package db

import (
	"errors"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// IsDuplicateKey reports a unique/primary key violation on either driver.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// IsForeignKey reports a foreign key violation on either driver.
func IsForeignKey(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1452 || me.Number == 1451
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

// UniqueKeys maps a unique column to the MySQL key names that enforce it.
type UniqueKeys map[string][]string

// DuplicateColumn reports which column of keys a duplicate error hit, or "".
// SQLite names the column ("UNIQUE constraint failed: t.col"); MySQL names the
// key ("Duplicate entry 'v' for key 't.ux_name'").
func DuplicateColumn(err error, keys UniqueKeys) string {
	if !IsDuplicateKey(err) {
		return ""
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		key := afterLast(me.Message, "for key ")
		key = strings.Trim(key, "'`")
		key = afterLast(key, ".")
		for col, names := range keys {
			for _, n := range names {
				if n == key {
					return col
				}
			}
		}
		return ""
	}
	msg := afterLast(err.Error(), "failed: ")
	if i := strings.LastIndex(msg, " ("); i >= 0 {
		msg = msg[:i]
	}
	for _, part := range strings.Split(msg, ",") {
		col := afterLast(strings.TrimSpace(part), ".")
		if _, ok := keys[col]; ok {
			return col
		}
	}
	return ""
}

func afterLast(s, sep string) string {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[i+len(sep):]
	}
	return s
}
