package workstations

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LIMS-backend/internal/inventory/deptcode"
	"LIMS-backend/internal/inventory/lifecycle"
	"LIMS-backend/internal/owner"
	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/blob"
	"LIMS-backend/internal/platform/db"
	"LIMS-backend/internal/platform/paging"
)

func str(s string) *string { return &s }

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	conn := db.OpenTest(t)
	blobs, err := blob.NewFilesystem(t.TempDir())
	require.NoError(t, err)
	codes := deptcode.New(deptcode.Config{Prefix: "CSE", PadWidth: 3, Initials: map[string]string{"M.V.Panduranga Rao": "MVP"}})
	return NewService(conn, codes, blobs), conn
}

func sample(serial string) CreateWorkstationRequest {
	return CreateWorkstationRequest{
		Manufacturer: "Dell", Model: "OptiPlex 7010", Serial: serial,
		PODate: str("2024-03-15"), Indenter: "Dr. Anil Kumar", Location: "CS-107",
		WarrantyStart: str("2024-03-20"), WarrantyExpiry: str("2027-03-19"),
	}
}

func countCodes(t *testing.T, conn *sql.DB) int {
	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM department_codes`).Scan(&n))
	return n
}

func TestCreateAssignsDepartmentCode(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, sample("SN100"))
	require.NoError(t, err)
	assert.Equal(t, "CSE/20240315/OptiPlex7010/Dell/Anil/001", w.DepartmentCode)
	assert.Equal(t, string(lifecycle.Available), w.Status)
	assert.Equal(t, "2024-03-15", *w.PODate)

	w2, err := svc.Create(ctx, sample("SN101"))
	require.NoError(t, err)
	assert.Equal(t, "CSE/20240315/OptiPlex7010/Dell/Anil/002", w2.DepartmentCode)

	var bound uint64
	require.NoError(t, conn.QueryRow(`SELECT asset_id FROM department_codes WHERE code = ?`, w2.DepartmentCode).Scan(&bound))
	assert.Equal(t, w2.ID, bound)
}

func TestCreateRejectsWithoutSideEffects(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, sample("SN100"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, sample("SN100"))
	assert.True(t, apierr.Is(err, apierr.CodeConflict))
	assert.Equal(t, 1, countCodes(t, conn))

	bad := sample("SN200")
	bad.WarrantyStart, bad.WarrantyExpiry = str("2027-01-01"), str("2026-01-01")
	_, err = svc.Create(ctx, bad)
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	bad = sample("SN201")
	bad.PODate = str("15/03/2024")
	_, err = svc.Create(ctx, bad)
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	bad = sample("SN202")
	bad.Indenter = " "
	_, err = svc.Create(ctx, bad)
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	withMAC := sample("SN300")
	withMAC.MACAddress = str("AA-BB-CC-DD-EE-01")
	w, err := svc.Create(ctx, withMAC)
	require.NoError(t, err)
	assert.Equal(t, "aa:bb:cc:dd:ee:01", *w.MACAddress)

	dupMAC := sample("SN301")
	dupMAC.MACAddress = str("aa:bb:cc:dd:ee:01")
	_, err = svc.Create(ctx, dupMAC)
	assert.True(t, apierr.Is(err, apierr.CodeConflict))

	assert.Equal(t, 2, countCodes(t, conn))
}

func TestMissingPODateUsesCreationDate(t *testing.T) {
	svc, _ := newTestService(t)
	svc.now = func() time.Time { return time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC) }
	req := sample("SN1")
	req.PODate = nil
	w, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(w.DepartmentCode, "CSE/20250102/"))
	assert.Nil(t, w.PODate)
}

func TestStatusLifecycleIsAudited(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w, err := svc.Create(ctx, sample("SN100"))
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, w.ID, lifecycle.Retire, "", "admin@cse.iith.ac.in")
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	res, err := svc.ChangeStatus(ctx, w.ID, lifecycle.Retire, "out of support", "admin@cse.iith.ac.in")
	require.NoError(t, err)
	assert.Equal(t, "Retired", res.Status)

	res, err = svc.ChangeStatus(ctx, w.ID, lifecycle.Unretire, "", "admin@cse.iith.ac.in")
	require.NoError(t, err)
	assert.Equal(t, "Available", res.Status)

	_, err = svc.ChangeStatus(ctx, w.ID, lifecycle.Scrap, "board failure", "admin@cse.iith.ac.in")
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, w.ID, lifecycle.Unretire, "", "admin@cse.iith.ac.in")
	assert.True(t, apierr.Is(err, apierr.CodeConflict))

	d, err := svc.Get(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, d.Audit, 3)
	assert.Equal(t, "Available", d.Audit[0].FromStatus)
	assert.Equal(t, "Retired", d.Audit[0].ToStatus)
	assert.Equal(t, "out of support", d.Audit[0].Reason)
	assert.Equal(t, "Scrapped", d.Audit[2].ToStatus)
}

func TestIssuedAssetRefusesLifecycleActions(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	w, err := svc.Create(ctx, sample("SN100"))
	require.NoError(t, err)
	_, err = conn.Exec(`UPDATE workstation_assets SET status = 'Issued' WHERE id = ?`, w.ID)
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, w.ID, lifecycle.Retire, "old", "a")
	assert.True(t, apierr.Is(err, apierr.CodeConflict))
	_, err = svc.ChangeStatus(ctx, w.ID, lifecycle.Scrap, "old", "a")
	assert.True(t, apierr.Is(err, apierr.CodeConflict))
	assert.True(t, apierr.Is(svc.Delete(ctx, w.ID), apierr.CodeConflict))
}

func TestDeleteRequiresCleanHistory(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	fresh, err := svc.Create(ctx, sample("SN100"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, fresh.ID))
	assert.Equal(t, 0, countCodes(t, conn))
	_, err = svc.Get(ctx, fresh.ID)
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))

	used, err := svc.Create(ctx, sample("SN101"))
	require.NoError(t, err)
	now := time.Now().UTC()
	_, err = svc.Store().InsertAssignment(ctx, conn, &Assignment{
		ULID: "01HZZZZZZZZZZZZZZZZZZZZZZZ", AssetID: used.ID, Owner: owner.Staff(5), IssueDate: now, CreatedAt: now,
	})
	require.NoError(t, err)
	_, err = conn.Exec(`UPDATE workstation_assignments SET is_active = 0`)
	require.NoError(t, err)

	assert.True(t, apierr.Is(svc.Delete(ctx, used.ID), apierr.CodeConflict))
	assert.True(t, apierr.Is(svc.Delete(ctx, 999), apierr.CodeNotFound))
}

func TestUpdateRecordsRelocation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w, err := svc.Create(ctx, sample("SN100"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, sample("SN101"))
	require.NoError(t, err)

	res, err := svc.Update(ctx, w.ID, UpdateWorkstationRequest{Location: str("CS-108"), Remarks: str("moved")}, "staff@cse.iith.ac.in")
	require.NoError(t, err)
	assert.Equal(t, "CS-108", res.Location)
	assert.Equal(t, w.DepartmentCode, res.DepartmentCode)

	_, err = svc.Update(ctx, w.ID, UpdateWorkstationRequest{Serial: str("SN101")}, "x")
	assert.True(t, apierr.Is(err, apierr.CodeConflict))

	d, err := svc.Get(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, d.Audit, 1)
	assert.Equal(t, "Location changed to CS-108", d.Audit[0].Reason)

	items, total, err := svc.List(ctx, Filter{Location: "CS-108"}, paging.Page{Limit: 10}.Normalize())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "SN100", items[0].Serial)

	_, total, err = svc.List(ctx, Filter{Q: "optiplex"}, paging.Page{Limit: 10}.Normalize())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestInvoiceUploadAndDownload(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w, err := svc.Create(ctx, sample("SN100"))
	require.NoError(t, err)

	pdf := []byte("%PDF-1.4\n1 0 obj << >> endobj\n%%EOF\n")
	res, err := svc.UploadInvoice(ctx, w.ID, "po.pdf", bytes.NewReader(pdf))
	require.NoError(t, err)
	assert.True(t, res.HasPOInvoice)

	info, rc, err := svc.Invoice(ctx, w.ID)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, pdf, got)
	assert.Equal(t, "application/pdf", info.ContentType)

	_, err = svc.UploadInvoice(ctx, w.ID, "notes.txt", strings.NewReader("just text"))
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
}

func TestDuplicateNamesMySQLKey(t *testing.T) {
	cases := map[string]string{
		"workstation_assets.ux_ws_mac":    "CONFLICT: mac_address already exists",
		"workstation_assets.ux_ws_code":   "CONFLICT: department code already exists",
		"workstation_assets.ux_ws_serial": "CONFLICT: serial already exists",
		"workstation_assets.PRIMARY":      "CONFLICT: workstation already exists",
	}
	for key, want := range cases {
		err := duplicate(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key '" + key + "'"})
		assert.True(t, apierr.Is(err, apierr.CodeConflict), key)
		assert.EqualError(t, err, want, key)
	}
}
