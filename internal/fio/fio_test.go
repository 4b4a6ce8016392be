package fio

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCommand replaces the fio invocation with a no-op for the duration of
// the test.
func stubCommand(t *testing.T) {
	t.Helper()
	orig := command
	command = func(ctx context.Context, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "true")
	}
	t.Cleanup(func() { command = orig })
}

const sampleFioJSON = `{
    "jobs": [
        {
            "error": 0,
            "read": {"io_bytes": 1000000000, "total_ios": 250000, "iops": 1388.8, "bw": 5555},
            "write": {"io_bytes": 2000000000, "total_ios": 500000, "iops": 2777.7, "bw": 11111}
        },
        {
            "error": 84,
            "read": {"io_bytes": 500000000, "total_ios": 125000, "iops": 694.4, "bw": 2777},
            "write": {"io_bytes": 0, "total_ios": 0, "iops": 0, "bw": 0}
        }
    ]
}`

func TestParseOutput(t *testing.T) {
	result, err := ParseOutput([]byte(sampleFioJSON))
	require.NoError(t, err)

	assert.Equal(t, 375000, result.ReadIOS)
	assert.Equal(t, 500000, result.WriteIOS)
	assert.Equal(t, 1.5e9, result.DataReadBytes)
	assert.Equal(t, 2e9, result.DataWriteBytes)
	assert.InDelta(t, 2083.2, result.ReadIOPS, 0.01)
	assert.InDelta(t, 8332, result.ReadBandwidthKiBs, 0.01)

	// Error 84 is EILSEQ, fio's verify mismatch errno.
	assert.Equal(t, 1, result.IOErrors)
	assert.Equal(t, 1, result.CorruptionErrors)
}

func TestParseOutputIOErrorWithoutCorruption(t *testing.T) {
	result, err := ParseOutput([]byte(`{
        "jobs": [{"error": 5, "read": {}, "write": {}}]
    }`))
	require.NoError(t, err)
	assert.Equal(t, 1, result.IOErrors)
	assert.Equal(t, 0, result.CorruptionErrors)
}

func TestParseOutputRejectsEmpty(t *testing.T) {
	_, err := ParseOutput([]byte(`{"jobs": []}`))
	assert.Error(t, err)

	_, err = ParseOutput([]byte(`garbage`))
	assert.Error(t, err)
}

func TestRunParsesOutputFile(t *testing.T) {
	stubCommand(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, OutputFile), []byte(sampleFioJSON), 0o644))

	result, err := Run(context.Background(), []string{"--name=fio"}, dir)
	require.NoError(t, err)
	assert.Equal(t, 375000, result.ReadIOS)
}

func TestStartAndWait(t *testing.T) {
	stubCommand(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, OutputFile), []byte(sampleFioJSON), 0o644))

	job, err := Start(context.Background(), []string{"--name=fio"}, dir)
	require.NoError(t, err)
	result, err := job.Wait()
	require.NoError(t, err)
	assert.Equal(t, 500000, result.WriteIOS)
}

func TestRunInterruptedReturnsCancellation(t *testing.T) {
	orig := command
	command = func(ctx context.Context, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sleep", "60")
	}
	t.Cleanup(func() { command = orig })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	// The killed tool must surface as a cancellation, not an exec failure,
	// so an interrupted run stops gracefully instead of aborting.
	_, err := Run(ctx, []string{"--name=fio"}, t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunMissingOutput(t *testing.T) {
	stubCommand(t)
	_, err := Run(context.Background(), []string{"--name=fio"}, t.TempDir())
	assert.Error(t, err)
}

func TestResultTotalsAndDescribe(t *testing.T) {
	result := &Result{
		ReadIOS:        1234567,
		WriteIOS:       10,
		DataReadBytes:  2.5e9,
		DataWriteBytes: 1e9,
	}
	assert.Equal(t, 2.5, result.DataReadGB())
	assert.Equal(t, 1.0, result.DataWrittenGB())
	// Large counters are grouped for readability.
	assert.Contains(t, result.Describe(), "1,234,567")
}
