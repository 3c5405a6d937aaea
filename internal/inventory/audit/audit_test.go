package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LIMS-backend/internal/platform/db"
)

func TestRecordAndList(t *testing.T) {
	conn := db.OpenTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, Record(ctx, conn, Entry{AssetKind: "workstation", AssetID: 1, Event: EventStatusChange, FromStatus: "Available", ToStatus: "Retired", Reason: "old", Actor: "admin@cse.iith.ac.in", CreatedAt: now}))
	require.NoError(t, Record(ctx, conn, Entry{AssetKind: "workstation", AssetID: 1, Event: EventLocationChange, Reason: "Location changed to CS-107", CreatedAt: now}))
	require.NoError(t, Record(ctx, conn, Entry{AssetKind: "equipment", AssetID: 1, Event: EventStatusChange, CreatedAt: now}))

	got, err := List(ctx, conn, "workstation", 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Retired", got[0].ToStatus)
	assert.Equal(t, "", got[1].FromStatus)
}
