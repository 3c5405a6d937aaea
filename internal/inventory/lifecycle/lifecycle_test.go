package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LIMS-backend/internal/platform/apierr"
)

func TestApply(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
		reason string
		want   Status
		ok     bool
	}{
		{Available, Retire, "obsolete", Retired, true},
		{Available, Retire, "  ", "", false},
		{Available, Scrap, "broken", Scrapped, true},
		{Available, Scrap, "", "", false},
		{Issued, Retire, "obsolete", "", false},
		{Issued, Scrap, "broken", "", false},
		{Retired, Unretire, "", Available, true},
		{Retired, Scrap, "beyond repair", Scrapped, true},
		{Retired, Retire, "again", "", false},
		{Available, Unretire, "", "", false},
		{Scrapped, Unretire, "", "", false},
		{Scrapped, Retire, "x", "", false},
	}
	for _, tc := range cases {
		got, err := Apply(tc.from, tc.action, tc.reason)
		if tc.ok {
			require.NoError(t, err, "%s %s", tc.from, tc.action)
			assert.Equal(t, tc.want, got)
		} else {
			assert.Error(t, err, "%s %s", tc.from, tc.action)
		}
	}
}

func TestApplyTransitionErrorType(t *testing.T) {
	_, err := Apply(Issued, Retire, "x")
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, Issued, te.From)

	// missing reason is a validation problem, not a refused edge
	_, err = Apply(Available, Retire, "")
	assert.False(t, errors.As(err, &te))
}

func TestCanDelete(t *testing.T) {
	assert.True(t, CanDelete(Available, 0))
	assert.True(t, CanDelete(Retired, 0))
	assert.False(t, CanDelete(Available, 1))
	assert.False(t, CanDelete(Issued, 0))
	assert.False(t, CanDelete(Scrapped, 0))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("issued")
	require.NoError(t, err)
	assert.Equal(t, Issued, s)
	_, err = ParseStatus("lost")
	assert.Error(t, err)
	assert.True(t, CanIssue(Available))
	assert.False(t, CanIssue(Retired))
}

func TestToAPI(t *testing.T) {
	_, err := Apply(Issued, Retire, "x")
	assert.True(t, apierr.Is(ToAPI(err), apierr.CodeConflict))

	_, err = Apply(Available, Scrap, "")
	assert.True(t, apierr.Is(ToAPI(err), apierr.CodeInvalidArgument))

	assert.NoError(t, ToAPI(nil))
}
