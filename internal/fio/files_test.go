package fio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePaths(t *testing.T) {
	f := &Files{Volume: "/mnt/nvme0"}
	assert.Equal(t, filepath.Join("/mnt/nvme0", "nvmeharness", "fio_big_file.bin"), f.BigFilePath())
	assert.Equal(t, filepath.Join("/mnt/nvme0", "nvmeharness", "fio_small_file.bin"), f.SmallFilePath())
}

func TestCreateReturnsExistingFile(t *testing.T) {
	f := &Files{Directory: t.TempDir(), Volume: t.TempDir()}
	path := f.SmallFilePath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xA5}, 2048), 0o644))

	// An existing file is reused as-is; fio never runs.
	file, err := f.Create(context.Background(), false, true, 0)
	require.NoError(t, err)
	assert.Equal(t, path, file.Path)
	assert.Equal(t, int64(2048), file.Size)
}

func TestCreateFailsWhenFioProducesNothing(t *testing.T) {
	stubCommand(t)
	f := &Files{Directory: t.TempDir(), Volume: t.TempDir()}
	require.NoError(t, os.WriteFile(filepath.Join(f.Directory, OutputFile), []byte(sampleFioJSON), 0o644))

	_, err := f.Create(context.Background(), false, false, 0)
	assert.Error(t, err)
}
