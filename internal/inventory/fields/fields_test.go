package fields

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LIMS-backend/internal/platform/apierr"
)

func s(v string) *string { return &v }

func TestDate(t *testing.T) {
	d, err := Date("po_date", s("2024-03-15"))
	require.NoError(t, err)
	assert.True(t, d.Valid)

	d, err = Date("po_date", s("  "))
	require.NoError(t, err)
	assert.False(t, d.Valid)

	_, err = Date("po_date", s("15/03/2024"))
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	_, err = RequiredDate("issue_date", "")
	assert.Error(t, err)
}

func TestNotAfter(t *testing.T) {
	start, _ := Date("a", s("2024-05-01"))
	end, _ := Date("b", s("2024-04-01"))
	assert.Error(t, NotAfter("warranty_start", start, "warranty_expiry", end))
	assert.NoError(t, NotAfter("warranty_start", end, "warranty_expiry", start))
	assert.NoError(t, NotAfter("warranty_start", start, "warranty_expiry", sql.NullTime{}))
}

func TestMAC(t *testing.T) {
	m, err := MAC(s("AA-BB-CC-DD-EE-0F"))
	require.NoError(t, err)
	assert.Equal(t, "aa:bb:cc:dd:ee:0f", m.String)

	_, err = MAC(s("nope"))
	assert.Error(t, err)

	m, err = MAC(nil)
	require.NoError(t, err)
	assert.False(t, m.Valid)
}
