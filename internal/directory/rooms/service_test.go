package rooms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/db"
)

func TestBootstrapIsIdempotentAndKeepsCapacity(t *testing.T) {
	svc := NewService(db.OpenTest(t))
	ctx := context.Background()

	require.NoError(t, svc.Bootstrap(ctx, []LabSpec{{Name: "CS-107", Capacity: 2, StaffInCharge: "Ravi"}}, []string{"C-201"}))
	require.NoError(t, svc.Bootstrap(ctx, []LabSpec{{Name: "CS-107", Capacity: 5}}, []string{"C-201"}))

	room, err := svc.GetRoom(ctx, "CS-107")
	require.NoError(t, err)
	assert.Equal(t, 2, room.Capacity)
	require.Len(t, room.Cubicles, 2)
	assert.Equal(t, "1", room.Cubicles[0].SeatNo)
	assert.Equal(t, "2", room.Cubicles[1].SeatNo)

	offices, err := svc.ListRooms(ctx, KindOffice)
	require.NoError(t, err)
	require.Len(t, offices, 1)
	assert.True(t, offices[0].Occupant.IsZero())
}

func TestCreateRoom(t *testing.T) {
	svc := NewService(db.OpenTest(t))
	ctx := context.Background()

	res, err := svc.CreateRoom(ctx, CreateRoomRequest{Name: "CS-210", Kind: "Lab", Capacity: 3})
	require.NoError(t, err)
	assert.Len(t, res.Cubicles, 3)

	_, err = svc.CreateRoom(ctx, CreateRoomRequest{Name: "CS-210", Kind: "lab", Capacity: 3})
	assert.True(t, apierr.Is(err, apierr.CodeConflict))

	_, err = svc.CreateRoom(ctx, CreateRoomRequest{Name: "X", Kind: "lab"})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	_, err = svc.CreateRoom(ctx, CreateRoomRequest{Name: "X", Kind: "hall", Capacity: 1})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	_, err = svc.GetRoom(ctx, "nope")
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))
}
