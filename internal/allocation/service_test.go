package allocation

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LIMS-backend/internal/directory/people"
	"LIMS-backend/internal/directory/rooms"
	"LIMS-backend/internal/inventory/deptcode"
	"LIMS-backend/internal/inventory/equipment"
	"LIMS-backend/internal/inventory/lifecycle"
	"LIMS-backend/internal/inventory/workstations"
	"LIMS-backend/internal/owner"
	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/auth"
	"LIMS-backend/internal/platform/db"
	"LIMS-backend/internal/platform/notify"
)

type captured struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (c *captured) Notify(m notify.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

func (c *captured) kinds() []notify.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []notify.Kind
	for _, m := range c.msgs {
		out = append(out, m.Kind)
	}
	return out
}

type fixture struct {
	conn *sql.DB
	svc  *Service
	ws   *workstations.Service
	eq   *equipment.Service
	sent *captured
}

func str(s string) *string { return &s }

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	conn := db.OpenTest(t)
	sent := &captured{}

	accounts := auth.NewService(conn, auth.Config{Secret: []byte("s"), EmailDomains: []string{"cse.iith.ac.in"}}, sent)
	dir := people.NewService(conn, accounts.Emails(), accounts, sent)
	require.NoError(t, rooms.NewService(conn).Bootstrap(ctx,
		[]rooms.LabSpec{{Name: "CS-107", Capacity: 2}, {Name: "CS-108", Capacity: 4}},
		[]string{"F-201", "F-202", "Staff Room"}))

	now := time.Now().UTC()
	for _, roll := range []string{"cs24mtech001", "cs24mtech002"} {
		_, err := conn.Exec(`INSERT INTO students (roll, name, email, created_at) VALUES (?, ?, ?, ?)`,
			roll, "Student "+roll, roll+"@cse.iith.ac.in", now)
		require.NoError(t, err)
	}
	for _, id := range []int{5, 6} {
		_, err := conn.Exec(`INSERT INTO staff (id, employee_code, name, email, created_at) VALUES (?, ?, ?, ?, ?)`,
			id, fmt.Sprintf("S%03d", id), fmt.Sprintf("Staff %d", id), fmt.Sprintf("staff%d@cse.iith.ac.in", id), now)
		require.NoError(t, err)
	}
	for _, id := range []int{1, 2} {
		_, err := conn.Exec(`INSERT INTO faculty (id, employee_code, name, email, created_at) VALUES (?, ?, ?, ?, ?)`,
			id, fmt.Sprintf("F%03d", id), fmt.Sprintf("Prof %d", id), fmt.Sprintf("prof%d@cse.iith.ac.in", id), now)
		require.NoError(t, err)
	}

	codes := deptcode.New(deptcode.Config{})
	ws := workstations.NewService(conn, codes, nil)
	eq := equipment.NewService(conn, codes)
	svc := NewService(conn, Config{SharedStaffRoom: "Staff Room"}, dir, ws.Store(), eq.Store(), sent)
	return &fixture{conn: conn, svc: svc, ws: ws, eq: eq, sent: sent}
}

func (f *fixture) seatHolder(t *testing.T, room, seat string) string {
	var roll sql.NullString
	require.NoError(t, f.conn.QueryRow(`
SELECT c.student_roll FROM cubicles c JOIN rooms r ON r.id = c.room_id
WHERE r.name = ? AND c.seat_no = ?`, room, seat).Scan(&roll))
	return roll.String
}

func (f *fixture) workstation(t *testing.T, serial string) workstations.WorkstationResponse {
	w, err := f.ws.Create(context.Background(), workstations.CreateWorkstationRequest{
		Manufacturer: "Dell", Model: "OptiPlex 7010", Serial: serial, Indenter: "Dr. A Sharma", Location: "Store",
	})
	require.NoError(t, err)
	return w
}

func (f *fixture) monitor(t *testing.T, serial string) equipment.EquipmentResponse {
	res, err := f.eq.Create(context.Background(), equipment.CreateEquipmentRequest{
		Category: "Monitor", Manufacturer: "Dell", Model: "P2422H", SerialNumber: serial, Indenter: "Dr. A Sharma", Location: "Store",
	})
	require.NoError(t, err)
	return res.Items[0]
}

func TestCubicleReassignmentReleasesOldSeat(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.AssignCubicle(ctx, CubicleRequest{Roll: "cs24mtech001", Room: "CS-107", Seat: "1"}, "admin")
	require.NoError(t, err)
	assert.Nil(t, res.Previous)
	assert.Equal(t, "cs24mtech001", f.seatHolder(t, "CS-107", "1"))

	res, err = f.svc.AssignCubicle(ctx, CubicleRequest{Roll: "cs24mtech001", Room: "CS-107", Seat: "2"}, "admin")
	require.NoError(t, err)
	require.NotNil(t, res.Previous)
	assert.Equal(t, SeatRef{Room: "CS-107", Seat: "1"}, *res.Previous)
	assert.Equal(t, "", f.seatHolder(t, "CS-107", "1"))
	assert.Equal(t, "cs24mtech001", f.seatHolder(t, "CS-107", "2"))

	var held int
	require.NoError(t, f.conn.QueryRow(`SELECT COUNT(*) FROM cubicles WHERE student_roll = ?`, "cs24mtech001").Scan(&held))
	assert.Equal(t, 1, held)

	res, err = f.svc.AssignCubicle(ctx, CubicleRequest{Roll: "cs24mtech001", Room: "CS-107", Seat: "2"}, "admin")
	require.NoError(t, err)
	assert.True(t, res.Unchanged)

	_, err = f.svc.AssignCubicle(ctx, CubicleRequest{Roll: "cs24mtech002", Room: "CS-107", Seat: "2"}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeConflict))

	_, err = f.svc.AssignCubicle(ctx, CubicleRequest{Roll: "cs24mtech002", Room: "CS-107", Seat: "9"}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))
	_, err = f.svc.AssignCubicle(ctx, CubicleRequest{Roll: "nobody", Room: "CS-107", Seat: "1"}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))
	_, err = f.svc.AssignCubicle(ctx, CubicleRequest{Roll: "cs24mtech002", Room: "F-201", Seat: "1"}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	require.NoError(t, f.svc.ReleaseCubicle(ctx, "cs24mtech001"))
	assert.Equal(t, "", f.seatHolder(t, "CS-107", "2"))
	assert.True(t, apierr.Is(f.svc.ReleaseCubicle(ctx, "cs24mtech001"), apierr.CodeNotFound))
}

func TestWorkstationIssueAndReturn(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	w := f.workstation(t, "SN100")
	assert.Equal(t, "Available", w.Status)

	a, err := f.svc.IssueWorkstation(ctx, w.ID, IssueWorkstationRequest{Owner: owner.Staff(5), IssueDate: "2024-01-01"}, "admin")
	require.NoError(t, err)
	assert.True(t, a.IsActive)
	assert.Equal(t, owner.Staff(5), a.Owner)

	d, err := f.ws.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Issued", d.Status)
	require.NotNil(t, d.ActiveAssignment)

	_, err = f.svc.IssueWorkstation(ctx, w.ID, IssueWorkstationRequest{Owner: owner.Student("cs24mtech001"), IssueDate: "2024-02-01"}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeConflict))
	var rows int
	require.NoError(t, f.conn.QueryRow(`SELECT COUNT(*) FROM workstation_assignments WHERE asset_id = ?`, w.ID).Scan(&rows))
	assert.Equal(t, 1, rows)

	ret, err := f.svc.ReturnWorkstation(ctx, w.ID, ReturnWorkstationRequest{EndDate: str("2024-06-30")}, "admin")
	require.NoError(t, err)
	assert.False(t, ret.IsActive)
	assert.Equal(t, "2024-06-30", *ret.EndDate)

	d, err = f.ws.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Available", d.Status)
	assert.Nil(t, d.ActiveAssignment)
	require.Len(t, d.Assignments, 1)
	assert.False(t, d.Assignments[0].IsActive)

	_, err = f.svc.ReturnWorkstation(ctx, w.ID, ReturnWorkstationRequest{}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeConflict))

	assert.Equal(t, []notify.Kind{notify.KindWorkstationIssued, notify.KindWorkstationReturned}, f.sent.kinds())
}

func TestWorkstationIssueValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	w := f.workstation(t, "SN100")

	_, err := f.svc.IssueWorkstation(ctx, w.ID, IssueWorkstationRequest{IssueDate: "2024-01-01"}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
	_, err = f.svc.IssueWorkstation(ctx, w.ID, IssueWorkstationRequest{Owner: owner.Staff(5)}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
	_, err = f.svc.IssueWorkstation(ctx, w.ID, IssueWorkstationRequest{Owner: owner.Staff(5), IssueDate: "2024-05-01", SystemRequiredTill: str("2024-01-01")}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
	_, err = f.svc.IssueWorkstation(ctx, w.ID, IssueWorkstationRequest{Owner: owner.Staff(99), IssueDate: "2024-01-01"}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))

	_, err = f.ws.ChangeStatus(ctx, w.ID, lifecycle.Retire, "old", "admin")
	require.NoError(t, err)
	_, err = f.svc.IssueWorkstation(ctx, w.ID, IssueWorkstationRequest{Owner: owner.Staff(5), IssueDate: "2024-01-01"}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeConflict))
	assert.Empty(t, f.sent.kinds())
}

func TestConcurrentIssueHasOneWinner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	w := f.workstation(t, "SN100")

	owners := []owner.Owner{owner.Staff(5), owner.Staff(6), owner.Faculty(1), owner.Faculty(2), owner.Student("cs24mtech001"), owner.Student("cs24mtech002")}
	var wg sync.WaitGroup
	errs := make([]error, len(owners))
	for i, o := range owners {
		wg.Add(1)
		go func(i int, o owner.Owner) {
			defer wg.Done()
			_, errs[i] = f.svc.IssueWorkstation(ctx, w.ID, IssueWorkstationRequest{Owner: o, IssueDate: "2024-01-01"}, "admin")
		}(i, o)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, apierr.Is(err, apierr.CodeConflict), err.Error())
	}
	assert.Equal(t, 1, wins)
	var active int
	require.NoError(t, f.conn.QueryRow(`SELECT COUNT(*) FROM workstation_assignments WHERE asset_id = ? AND is_active = 1`, w.ID).Scan(&active))
	assert.Equal(t, 1, active)
}

func TestConcurrentSeatClaimHasOneWinner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, roll := range []string{"cs24mtech001", "cs24mtech002"} {
		wg.Add(1)
		go func(i int, roll string) {
			defer wg.Done()
			_, errs[i] = f.svc.AssignCubicle(ctx, CubicleRequest{Roll: roll, Room: "CS-107", Seat: "1"}, "admin")
		}(i, roll)
	}
	wg.Wait()
	assert.True(t, (errs[0] == nil) != (errs[1] == nil), "exactly one claim must succeed: %v", errs)
}

func TestEquipmentRoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m := f.monitor(t, "MON-1")

	got, err := f.svc.IssueEquipment(ctx, m.ID, IssueEquipmentRequest{Owner: owner.Student("cs24mtech001")}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "Issued", got.Status)
	require.NotNil(t, got.Owner)
	assert.Equal(t, owner.Student("cs24mtech001"), *got.Owner)

	_, err = f.svc.IssueEquipment(ctx, m.ID, IssueEquipmentRequest{Owner: owner.Staff(5)}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeConflict))

	back, err := f.svc.ReturnEquipment(ctx, m.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, "Available", back.Status)
	assert.Nil(t, back.Owner)

	d, err := f.eq.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, d.Owner)
	assert.Nil(t, d.AssignedDate)
	require.Len(t, d.History, 1)
	assert.Equal(t, equipment.EventAssign, d.History[0].Event)
	assert.NotNil(t, d.History[0].UnassignedDate)

	_, err = f.svc.ReturnEquipment(ctx, m.ID, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeConflict))

	_, err = f.eq.ChangeStatus(ctx, m.ID, lifecycle.Retire, "dead pixels", "admin")
	require.NoError(t, err)
	_, err = f.svc.IssueEquipment(ctx, m.ID, IssueEquipmentRequest{Owner: owner.Staff(5)}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeConflict))
}

func TestSeatChangeRelocatesAssets(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	roll := "cs24mtech001"
	_, err := f.svc.AssignCubicle(ctx, CubicleRequest{Roll: roll, Room: "CS-107", Seat: "1"}, "admin")
	require.NoError(t, err)

	w := f.workstation(t, "SN100")
	m := f.monitor(t, "MON-1")
	_, err = f.svc.IssueWorkstation(ctx, w.ID, IssueWorkstationRequest{Owner: owner.Student(roll), IssueDate: "2024-01-01"}, "admin")
	require.NoError(t, err)
	got, err := f.svc.IssueEquipment(ctx, m.ID, IssueEquipmentRequest{Owner: owner.Student(roll)}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "CS-107", got.Location)

	res, err := f.svc.AssignCubicle(ctx, CubicleRequest{Roll: roll, Room: "CS-108", Seat: "3"}, "admin")
	require.NoError(t, err)
	require.NotNil(t, res.Relocation)
	assert.Equal(t, 1, res.Relocation.Workstations)
	assert.Equal(t, 1, res.Relocation.Equipment)

	wd, err := f.ws.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "CS-108", wd.Location)
	require.NotEmpty(t, wd.Audit)
	assert.Equal(t, "Location changed to CS-108", wd.Audit[len(wd.Audit)-1].Reason)

	ed, err := f.eq.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "CS-108", ed.Location)
	require.Len(t, ed.History, 2)
	assert.Equal(t, equipment.EventLocation, ed.History[1].Event)
	assert.Equal(t, "Location changed to CS-108", ed.History[1].StatusSnapshot)

	view, err := f.svc.OwnerResources(ctx, owner.Student(roll))
	require.NoError(t, err)
	require.NotNil(t, view.Cubicle)
	assert.Equal(t, SeatRef{Room: "CS-108", Seat: "3"}, *view.Cubicle)
	assert.Len(t, view.Workstations, 1)
	assert.Len(t, view.Equipment, 1)
}

func TestOfficeRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.AssignOffice(ctx, OfficeRequest{Owner: owner.Faculty(1), Room: "F-201"}, "admin")
	require.NoError(t, err)
	_, err = f.svc.AssignOffice(ctx, OfficeRequest{Owner: owner.Faculty(2), Room: "F-201"}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeConflict))

	res, err := f.svc.AssignOffice(ctx, OfficeRequest{Owner: owner.Faculty(1), Room: "F-201"}, "admin")
	require.NoError(t, err)
	assert.True(t, res.Unchanged)

	for _, id := range []uint64{5, 6} {
		res, err := f.svc.AssignOffice(ctx, OfficeRequest{Owner: owner.Staff(id), Room: "Staff Room"}, "admin")
		require.NoError(t, err)
		assert.True(t, res.Shared)
	}
	_, err = f.svc.AssignOffice(ctx, OfficeRequest{Owner: owner.Faculty(2), Room: "Staff Room"}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
	_, err = f.svc.AssignOffice(ctx, OfficeRequest{Owner: owner.Student("cs24mtech001"), Room: "F-202"}, "admin")
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	// moving frees the old office
	res, err = f.svc.AssignOffice(ctx, OfficeRequest{Owner: owner.Faculty(1), Room: "F-202"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "F-201", res.Previous)
	_, err = f.svc.AssignOffice(ctx, OfficeRequest{Owner: owner.Faculty(2), Room: "F-201"}, "admin")
	require.NoError(t, err)

	require.NoError(t, f.svc.ReleaseOffice(ctx, owner.Faculty(1)))
	var office sql.NullString
	require.NoError(t, f.conn.QueryRow(`SELECT office_room FROM faculty WHERE id = 1`).Scan(&office))
	assert.False(t, office.Valid)
	assert.True(t, apierr.Is(f.svc.ReleaseOffice(ctx, owner.Faculty(1)), apierr.CodeNotFound))
}
