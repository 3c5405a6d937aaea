package owner

import (
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsCarryExactlyOneIdentity(t *testing.T) {
	s := Student("cs24mtech001")
	roll, ok := s.Roll()
	assert.True(t, ok)
	assert.Equal(t, "cs24mtech001", roll)
	_, ok = s.ID()
	assert.False(t, ok)

	st := Staff(5)
	id, ok := st.ID()
	assert.True(t, ok)
	assert.Equal(t, uint64(5), id)
	_, ok = st.Roll()
	assert.False(t, ok)
	assert.Equal(t, "5", st.Key())
	assert.Equal(t, KindFaculty, Faculty(9).Kind())
}

func TestParse(t *testing.T) {
	o, err := Parse("Staff", " 5 ")
	require.NoError(t, err)
	assert.Equal(t, Staff(5), o)

	for _, tc := range []struct{ kind, key string }{
		{"student", ""},
		{"staff", "abc"},
		{"faculty", "0"},
		{"visitor", "1"},
	} {
		_, err := Parse(tc.kind, tc.key)
		assert.Error(t, err, "%s/%s", tc.kind, tc.key)
	}
}

func TestFromNull(t *testing.T) {
	o, err := FromNull(sql.NullString{}, sql.NullString{})
	require.NoError(t, err)
	assert.True(t, o.IsZero())

	o, err = FromNull(sql.NullString{String: "student", Valid: true}, sql.NullString{String: "cs1", Valid: true})
	require.NoError(t, err)
	assert.Equal(t, Student("cs1"), o)

	k, v := Owner{}.Columns()
	assert.Nil(t, k)
	assert.Nil(t, v)
}

func TestJSON(t *testing.T) {
	b, err := json.Marshal(Faculty(3))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"faculty","key":"3"}`, string(b))

	var o Owner
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"student","key":"cs2"}`), &o))
	assert.Equal(t, Student("cs2"), o)

	b, _ = json.Marshal(Owner{})
	assert.Equal(t, "null", string(b))
}
