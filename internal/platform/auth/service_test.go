package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LIMS-backend/internal/platform/apierr"
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

func (c *captured) last() notify.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msgs[len(c.msgs)-1]
}

func newTestService(t *testing.T) (*Service, *captured) {
	t.Helper()
	n := &captured{}
	svc := NewService(db.OpenTest(t), Config{
		Secret:       []byte("test-secret"),
		AdminEmails:  []string{"admin@cse.iith.ac.in"},
		EmailDomains: []string{"cse.iith.ac.in"},
	}, n)
	return svc, n
}

func TestEmailPolicy(t *testing.T) {
	p := NewEmailPolicy([]string{"@cse.iith.ac.in"})
	got, err := p.Check("  CS24MTECH001@CSE.IITH.AC.IN ")
	require.NoError(t, err)
	assert.Equal(t, "cs24mtech001@cse.iith.ac.in", got)

	_, err = p.Check("someone@gmail.com")
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
	_, err = p.Check("not-an-email")
	assert.Error(t, err)
}

func TestRegisterApprovalFlow(t *testing.T) {
	svc, n := newTestService(t)
	ctx := context.Background()

	admin, err := svc.Register(ctx, RegisterRequest{Email: "admin@cse.iith.ac.in", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, admin.IsApproved)
	assert.Equal(t, RoleAdmin, admin.Role)

	u, err := svc.Register(ctx, RegisterRequest{Email: "ravi@cse.iith.ac.in", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)
	assert.False(t, u.IsApproved)

	_, err = svc.Register(ctx, RegisterRequest{Email: "ravi@cse.iith.ac.in", Password: "secret1"})
	assert.True(t, apierr.Is(err, apierr.CodeConflict))
	_, err = svc.Register(ctx, RegisterRequest{Email: "x@cse.iith.ac.in", Password: "123"})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	_, _, err = svc.Login(ctx, "ravi@cse.iith.ac.in", "secret1")
	assert.True(t, apierr.Is(err, apierr.CodeForbidden))

	pending, err := svc.ListUsers(ctx, true)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.Approve(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, notify.KindRegistrationApproved, n.last().Kind)

	token, _, err := svc.Login(ctx, "Ravi@cse.iith.ac.in", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(ctx, "ravi@cse.iith.ac.in", "wrong-pass")
	assert.True(t, apierr.Is(err, apierr.CodeUnauthorized))
}

func TestToggleAndDeleteGuardSelf(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	admin, err := svc.Register(ctx, RegisterRequest{Email: "admin@cse.iith.ac.in", Password: "secret1"})
	require.NoError(t, err)
	u, err := svc.Register(ctx, RegisterRequest{Email: "u@cse.iith.ac.in", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.ToggleActive(ctx, admin.ID, admin.ID)
	assert.True(t, apierr.Is(err, apierr.CodeConflict))

	got, err := svc.ToggleActive(ctx, u.ID, admin.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.NoError(t, svc.Delete(ctx, u.ID, admin.ID))
	assert.True(t, apierr.Is(svc.Delete(ctx, u.ID, admin.ID), apierr.CodeNotFound))
}

func TestPasswordResetRoundTrip(t *testing.T) {
	svc, n := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Email: "admin@cse.iith.ac.in", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.RequestReset(ctx, "nobody@cse.iith.ac.in"))
	require.NoError(t, svc.RequestReset(ctx, "admin@cse.iith.ac.in"))
	msg := n.last()
	require.Equal(t, notify.KindPasswordReset, msg.Kind)
	token := msg.Data["token"]

	idPart, _, _ := strings.Cut(token, ".")
	err = svc.ResetPassword(ctx, ResetPasswordRequest{Token: idPart + ".deadbeef", NewPassword: "newpass1"})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
	require.NoError(t, svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "newpass1"}))
	_, _, err = svc.Login(ctx, "admin@cse.iith.ac.in", "newpass1")
	require.NoError(t, err)

	// single use
	err = svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "another1"})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
}

func TestResetTokenExpires(t *testing.T) {
	svc, n := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Email: "admin@cse.iith.ac.in", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, svc.RequestReset(ctx, "admin@cse.iith.ac.in"))

	svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	err = svc.ResetPassword(ctx, ResetPasswordRequest{Token: n.last().Data["token"], NewPassword: "newpass1"})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
}

func TestEnsureAccountTx(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var id uint64
	var pw string
	require.NoError(t, db.RunInTx(ctx, svc.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var err error
		id, pw, err = svc.EnsureAccountTx(ctx, tx, "s1@cse.iith.ac.in")
		return err
	}))
	assert.NotZero(t, id)
	assert.Len(t, pw, 10)

	_, _, err := svc.Login(ctx, "s1@cse.iith.ac.in", pw)
	require.NoError(t, err)

	require.NoError(t, db.RunInTx(ctx, svc.db, nil, func(ctx context.Context, tx db.DBTX) error {
		again, pw2, err := svc.EnsureAccountTx(ctx, tx, "s1@cse.iith.ac.in")
		assert.Equal(t, id, again)
		assert.Empty(t, pw2)
		return err
	}))
}
