package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Columnar 0/1 values must always present as real booleans, and clients may
// send either form back.
func TestFlagJSONCoercion(t *testing.T) {
	out, err := json.Marshal(Flag(1))
	require.NoError(t, err)
	assert.Equal(t, "true", string(out))

	out, err = json.Marshal(Flag(0))
	require.NoError(t, err)
	assert.Equal(t, "false", string(out))

	var f Flag
	require.NoError(t, json.Unmarshal([]byte("1"), &f))
	assert.True(t, f.Bool())
	require.NoError(t, json.Unmarshal([]byte("false"), &f))
	assert.False(t, f.Bool())
	assert.Error(t, json.Unmarshal([]byte(`"yes"`), &f))
}

func TestFlagScan(t *testing.T) {
	var f Flag
	require.NoError(t, f.Scan(int64(1)))
	assert.True(t, f.Bool())
	require.NoError(t, f.Scan(nil))
	assert.False(t, f.Bool())
	require.NoError(t, f.Scan(true))
	assert.True(t, f.Bool())
}
