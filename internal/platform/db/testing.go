package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTest returns a migrated SQLite database in t's temp dir.
func OpenTest(t testing.TB) *sql.DB {
	t.Helper()
	conn, err := OpenSQLite(filepath.Join(t.TempDir(), "lims_test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := Migrate(context.Background(), conn, DriverSQLite); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return conn
}
