package categories_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LIMS-backend/internal/inventory/categories"
	"LIMS-backend/internal/inventory/deptcode"
	"LIMS-backend/internal/inventory/equipment"
	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/db"
)

func ptr[T any](v T) *T { return &v }

func TestCatalogueLifecycle(t *testing.T) {
	conn := db.OpenTest(t)
	svc := categories.NewService(conn)
	ctx := context.Background()

	mon, err := svc.Create(ctx, categories.CreateRequest{Name: "Monitor", Description: ptr("Displays")})
	require.NoError(t, err)
	assert.False(t, mon.IsDisabled)
	assert.Equal(t, "Displays", *mon.Description)

	_, err = svc.Create(ctx, categories.CreateRequest{Name: "monitor"})
	assert.True(t, apierr.Is(err, apierr.CodeConflict))
	_, err = svc.Create(ctx, categories.CreateRequest{Name: "A/B"})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	kb, err := svc.Create(ctx, categories.CreateRequest{Name: "Keyboard"})
	require.NoError(t, err)
	require.NoError(t, svc.Disable(ctx, kb.ID))

	list, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Monitor", list[0].Name)

	list, err = svc.List(ctx, "all")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	back, err := svc.Update(ctx, kb.ID, categories.UpdateRequest{IsDisabled: ptr(false)})
	require.NoError(t, err)
	assert.False(t, back.IsDisabled)

	_, err = svc.Get(ctx, 999)
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))
}

func TestDisabledCategoryBlocksEquipment(t *testing.T) {
	conn := db.OpenTest(t)
	cats := categories.NewService(conn)
	eq := equipment.NewService(conn, deptcode.New(deptcode.Config{}))
	ctx := context.Background()

	c, err := cats.Create(ctx, categories.CreateRequest{Name: "Monitor"})
	require.NoError(t, err)
	req := equipment.CreateEquipmentRequest{
		Category: "Monitor", Manufacturer: "Dell", Model: "P2422H", SerialNumber: "MON-1",
		Indenter: "Dr. A Sharma", Location: "Store",
	}
	_, err = eq.Create(ctx, req)
	require.NoError(t, err)

	got, err := cats.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Items)

	require.NoError(t, cats.Disable(ctx, c.ID))
	req.SerialNumber = "MON-2"
	_, err = eq.Create(ctx, req)
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	// categories outside the catalogue are accepted
	req.Category = "Webcam"
	_, err = eq.Create(ctx, req)
	assert.NoError(t, err)
}
