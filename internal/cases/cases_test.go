package cases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtjones1001/nvmeharness/internal/framework"
)

func TestLookup(t *testing.T) {
	fn, err := Lookup("suite_start_info")
	require.NoError(t, err)
	assert.NotNil(t, fn)

	_, err = Lookup("does_not_exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does_not_exist")
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	require.NotEmpty(t, names)
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "high_iops_stress")
	assert.Contains(t, names, "extended_selftest")
}

func TestSpecFloat(t *testing.T) {
	s := &framework.Suite{Device: map[string]any{
		"Linearity Limit": 0.8,
		"Client Drive":    true,
	}}
	assert.Equal(t, 0.8, specFloat(s, "Linearity Limit", 0.9))
	// Missing or non-numeric keys fall back.
	assert.Equal(t, 0.9, specFloat(s, "Missing", 0.9))
	assert.Equal(t, 0.9, specFloat(s, "Client Drive", 0.9))
}
