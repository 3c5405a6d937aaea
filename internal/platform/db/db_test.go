package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn := OpenTest(t)
	require.NoError(t, Migrate(context.Background(), conn, DriverSQLite))
}

func TestIsDuplicateKey_SQLite(t *testing.T) {
	conn := OpenTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := conn.ExecContext(ctx, `INSERT INTO department_codes (code, asset_kind, asset_id, created_at) VALUES (?,?,?,?)`, "CSE/X/001", "equipment", 1, now)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO department_codes (code, asset_kind, asset_id, created_at) VALUES (?,?,?,?)`, "CSE/X/001", "equipment", 2, now)
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
	assert.False(t, IsForeignKey(err))
	assert.False(t, IsDuplicateKey(errors.New("boom")))
	assert.Equal(t, "code", DuplicateColumn(err, UniqueKeys{"code": {"PRIMARY"}, "asset_kind": nil}))
	assert.Equal(t, "", DuplicateColumn(err, UniqueKeys{"serial": {"ux_ws_serial"}}))
}

func TestDuplicateColumnReadsMySQLKeyNames(t *testing.T) {
	keys := UniqueKeys{
		"serial":          {"ux_ws_serial"},
		"mac_address":     {"ux_ws_mac"},
		"department_code": {"ux_ws_code"},
	}
	dup := func(msg string) error {
		return fmt.Errorf("insert workstation: %w", &mysql.MySQLError{Number: 1062, Message: msg})
	}

	assert.Equal(t, "mac_address", DuplicateColumn(dup("Duplicate entry 'aa:bb:cc:dd:ee:ff' for key 'workstation_assets.ux_ws_mac'"), keys))
	assert.Equal(t, "department_code", DuplicateColumn(dup("Duplicate entry 'CSE/20240315/OptiPlex7010/Dell/A/001' for key 'ux_ws_code'"), keys))
	// the entry value does not decide the column
	assert.Equal(t, "serial", DuplicateColumn(dup("Duplicate entry 'mac_address' for key 'workstation_assets.ux_ws_serial'"), keys))
	assert.Equal(t, "", DuplicateColumn(dup("Duplicate entry 'x' for key 'workstation_assets.PRIMARY'"), keys))
	assert.Equal(t, "", DuplicateColumn(&mysql.MySQLError{Number: 1452, Message: "foreign key"}, keys))
}

func TestOneActiveAssignmentIndex(t *testing.T) {
	conn := OpenTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	res, err := conn.ExecContext(ctx, `INSERT INTO workstation_assets
		(manufacturer, model, serial, indenter, location, department_code, status, created_at, updated_at)
		VALUES ('Dell','OptiPlex','SN1','A','CS-107','CSE/1','Available',?,?)`, now, now)
	require.NoError(t, err)
	id, _ := res.LastInsertId()

	ins := `INSERT INTO workstation_assignments (assignment_ulid, asset_id, owner_kind, owner_key, issue_date, is_active, created_at)
		VALUES (?,?,?,?,?,?,?)`
	_, err = conn.ExecContext(ctx, ins, "01A", id, "staff", "5", now, true, now)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, ins, "01B", id, "staff", "6", now, true, now)
	assert.True(t, IsDuplicateKey(err))
	_, err = conn.ExecContext(ctx, ins, "01C", id, "staff", "6", now, false, now)
	assert.NoError(t, err)
}

func TestReadOnlyDoesNotWaitForWriters(t *testing.T) {
	conn := OpenTest(t)
	ctx := context.Background()
	ins := `INSERT INTO department_codes (code, asset_kind, asset_id, created_at) VALUES (?,'equipment',1,?)`
	_, err := conn.ExecContext(ctx, ins, "C1", time.Now().UTC())
	require.NoError(t, err)

	err = RunInTx(ctx, conn, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, ins, "C2", time.Now().UTC()); err != nil {
			return err
		}
		// another connection reads while the write lock is held
		var n int
		start := time.Now()
		err := ReadOnly(ctx, conn, func(ctx context.Context, q DBTX) error {
			return q.QueryRowContext(ctx, `SELECT COUNT(*) FROM department_codes`).Scan(&n)
		})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Less(t, time.Since(start), 2*time.Second)
		return nil
	})
	require.NoError(t, err)
}

func TestRunInTxRollsBack(t *testing.T) {
	conn := OpenTest(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := RunInTx(ctx, conn, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO department_codes (code, asset_kind, asset_id, created_at) VALUES ('C1','equipment',1,?)`, time.Now().UTC()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM department_codes`).Scan(&n))
	assert.Equal(t, 0, n)
}
