package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullableAny(t *testing.T) {
	na, err := NullableAnyFrom(map[string]any{"interval": 30})
	require.NoError(t, err)
	assert.False(t, na.IsNil())

	got := na.Get()
	m, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(30), m["interval"])

	// Raw JSON input keeps its bytes.
	var fromRaw NullableAny
	require.NoError(t, fromRaw.Set(json.RawMessage(`{"a":1}`)))
	out, err := json.Marshal(fromRaw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(out))

	// Invalid JSON is rejected.
	var bad NullableAny
	assert.Error(t, bad.Set(json.RawMessage(`{"a":`)))
	assert.True(t, bad.IsNil())

	// Null marshals as null and unmarshals back to nil.
	out, err = json.Marshal(NilAny())
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	var roundTrip NullableAny
	require.NoError(t, json.Unmarshal([]byte("null"), &roundTrip))
	assert.True(t, roundTrip.IsNil())

	assert.True(t, NilAny().Equals(NilAny()))
	assert.False(t, na.Equals(NilAny()))

	var decoded struct {
		Interval int `json:"interval"`
	}
	require.NoError(t, na.GetAs(&decoded))
	assert.Equal(t, 30, decoded.Interval)
	assert.Error(t, NilAny().GetAs(&decoded))
}

func TestNullableString(t *testing.T) {
	ns := NullableStringFrom("maintenance window")
	assert.False(t, ns.IsNil())
	assert.Equal(t, "maintenance window", ns.String())

	// Empty but valid is not null.
	empty := NullableStringFrom("")
	assert.False(t, empty.IsNil())

	null := NullString()
	assert.True(t, null.IsNil())
	assert.Equal(t, "", null.String())

	out, err := json.Marshal(null)
	assert.NoError(t, err)
	assert.Equal(t, "null", string(out))

	var parsed NullableString
	assert.NoError(t, json.Unmarshal([]byte(`"ops"`), &parsed))
	assert.True(t, parsed.Valid)
	assert.Equal(t, "ops", parsed.Value)

	assert.NoError(t, json.Unmarshal([]byte("null"), &parsed))
	assert.False(t, parsed.Valid)
}
