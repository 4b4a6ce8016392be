package framework

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpec(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDeviceSpecificationUserOverrideWins(t *testing.T) {
	userDir := t.TempDir()
	specDir := t.TempDir()
	writeSpec(t, userDir, "ExampleSSD100.json", `{"Linearity Limit": 0.5}`)
	writeSpec(t, specDir, "ExampleSSD100.json", `{"Linearity Limit": 0.8}`)

	// Model strings lose their spaces in the filename lookup.
	spec, path, err := loadDeviceSpecification(userDir, specDir, "Example SSD 100")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(userDir, "ExampleSSD100.json"), path)
	assert.Equal(t, 0.5, spec["Linearity Limit"])
}

func TestLoadDeviceSpecificationDefaultFileFallback(t *testing.T) {
	specDir := t.TempDir()
	writeSpec(t, specDir, "default.json", `{"Linearity Limit": 0.7}`)

	spec, path, err := loadDeviceSpecification("", specDir, "Unknown Model")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(specDir, "default.json"), path)
	assert.Equal(t, 0.7, spec["Linearity Limit"])
}

func TestLoadDeviceSpecificationBuiltinFallback(t *testing.T) {
	spec, path, err := loadDeviceSpecification("", "", "No Files Anywhere")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, 0.9, spec["Linearity Limit"])
	assert.Contains(t, spec, "Average Admin Cmd Limit mS")
}

func TestLoadDeviceSpecificationMalformed(t *testing.T) {
	specDir := t.TempDir()
	writeSpec(t, specDir, "default.json", `{broken`)

	_, _, err := loadDeviceSpecification("", specDir, "")
	assert.Error(t, err)
}
