package people

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/auth"
	"LIMS-backend/internal/platform/db"
	"LIMS-backend/internal/platform/notify"
	"LIMS-backend/internal/platform/paging"
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

func newTestService(t *testing.T) (*Service, *captured) {
	t.Helper()
	conn := db.OpenTest(t)
	n := &captured{}
	accounts := auth.NewService(conn, auth.Config{Secret: []byte("s"), EmailDomains: []string{"cse.iith.ac.in"}}, n)
	return NewService(conn, accounts.Emails(), accounts, n), n
}

func str(s string) *string { return &s }

func TestCreateStudentProvisionsAccount(t *testing.T) {
	svc, n := newTestService(t)
	ctx := context.Background()

	st, err := svc.CreateStudent(ctx, CreateStudentRequest{Roll: "cs24mtech001", Name: "Asha", Email: "cs24mtech001@cse.iith.ac.in", Course: str("MTech")})
	require.NoError(t, err)
	require.NotNil(t, st.UserID)
	require.Len(t, n.msgs, 1)
	assert.Equal(t, notify.KindAccountCreated, n.msgs[0].Kind)
	assert.NotEmpty(t, n.msgs[0].Data["temp_password"])

	_, err = svc.CreateStudent(ctx, CreateStudentRequest{Roll: "cs24mtech001", Name: "Other", Email: "other@cse.iith.ac.in"})
	assert.True(t, apierr.Is(err, apierr.CodeConflict))

	_, err = svc.CreateStudent(ctx, CreateStudentRequest{Roll: "cs24mtech002", Name: "Dup", Email: "cs24mtech001@cse.iith.ac.in"})
	assert.True(t, apierr.Is(err, apierr.CodeConflict))

	_, err = svc.CreateStudent(ctx, CreateStudentRequest{Roll: "cs24mtech003", Name: "Out", Email: "x@gmail.com"})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	items, total, err := svc.ListStudents(ctx, SearchQuery{Q: "Asha"}, paging.Page{Limit: 10}.Normalize())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "cs24mtech001", items[0].Roll)
	// the failed creates sent nothing
	assert.Len(t, n.msgs, 1)
}

func TestListStudentsByCourseAndYear(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for _, st := range []CreateStudentRequest{
		{Roll: "cs24mtech001", Name: "Asha", Email: "cs24mtech001@cse.iith.ac.in", Course: str("MTech"), Year: str("1")},
		{Roll: "cs23mtech001", Name: "Bala", Email: "cs23mtech001@cse.iith.ac.in", Course: str("MTech"), Year: str("2")},
		{Roll: "cs24btech001", Name: "Chitra", Email: "cs24btech001@cse.iith.ac.in", Course: str("BTech"), Year: str("1")},
	} {
		_, err := svc.CreateStudent(ctx, st)
		require.NoError(t, err)
	}
	page := paging.Page{Limit: 10}.Normalize()

	items, total, err := svc.ListStudents(ctx, SearchQuery{Course: "MTech", Year: "2"}, page)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "cs23mtech001", items[0].Roll)

	_, total, err = svc.ListStudents(ctx, SearchQuery{Year: "1"}, page)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = svc.ListStudents(ctx, SearchQuery{Course: "MTech"}, page)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestExistingAccountIsLinkedWithoutTempPassword(t *testing.T) {
	svc, n := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateMember(ctx, KindFaculty, CreateMemberRequest{EmployeeCode: "F001", Name: "Dr. A Sharma", Email: "asharma@cse.iith.ac.in"})
	require.NoError(t, err)
	require.Len(t, n.msgs, 1)

	// staff profile for the same person reuses the login
	m, err := svc.CreateMember(ctx, KindStaff, CreateMemberRequest{EmployeeCode: "S001", Name: "A Sharma", Email: "asharma@cse.iith.ac.in"})
	require.NoError(t, err)
	assert.NotNil(t, m.UserID)
	assert.Len(t, n.msgs, 1)

	_, err = svc.CreateMember(ctx, KindStaff, CreateMemberRequest{EmployeeCode: "S001", Name: "B", Email: "b@cse.iith.ac.in"})
	assert.True(t, apierr.Is(err, apierr.CodeConflict))
}

func TestUpdateAndDeleteMember(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	m, err := svc.CreateMember(ctx, KindStaff, CreateMemberRequest{EmployeeCode: "S005", Name: "Ravi", Email: "ravi@cse.iith.ac.in"})
	require.NoError(t, err)

	got, err := svc.UpdateMember(ctx, KindStaff, m.ID, UpdateMemberRequest{Designation: str("Lab Engineer")})
	require.NoError(t, err)
	assert.Equal(t, "Lab Engineer", *got.Designation)

	_, err = svc.UpdateMember(ctx, KindStaff, m.ID, UpdateMemberRequest{Email: str("ravi@yahoo.com")})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	require.NoError(t, svc.DeleteMember(ctx, KindStaff, m.ID))
	_, err = svc.GetMember(ctx, KindStaff, m.ID)
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))
}

func TestDeleteStudentWithEquipmentIsRefused(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateStudent(ctx, CreateStudentRequest{Roll: "cs1", Name: "A", Email: "cs1@cse.iith.ac.in"})
	require.NoError(t, err)

	_, err = svc.db.ExecContext(ctx, `INSERT INTO equipment
		(name, category, manufacturer, model, serial_number, location, indenter, department_code, status, owner_kind, owner_key, created_at, updated_at)
		VALUES ('Mouse','Mouse','HP','M1','SNM1','CS-107','A','CSE/1','Issued','student','cs1',?,?)`, svc.now(), svc.now())
	require.NoError(t, err)

	err = svc.DeleteStudent(ctx, "cs1")
	assert.True(t, apierr.Is(err, apierr.CodeConflict))
}
