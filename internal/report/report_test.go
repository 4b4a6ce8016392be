package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtjones1001/nvmeharness/internal/framework"
)

func writeSuiteResult(t *testing.T, dir string, state *framework.SuiteState) {
	t.Helper()
	data, err := json.MarshalIndent(state, "", "    ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, framework.ResultsFile), data, 0o644))
}

func TestCreateReports(t *testing.T) {
	dir := t.TempDir()
	state := &framework.SuiteState{
		Title:     "Drive health",
		Result:    framework.Failed,
		Model:     "Example NVMe SSD",
		System:    "testhost",
		StartTime: "2026-08-25 09:00:00.000",
		Duration:  "0:01:00.000",
		Tests: []framework.CaseState{
			{Number: 1, Title: "Suite start info", Result: framework.Passed, Duration: "0:00:05.000"},
			{Number: 2, Title: "Short selftest", Result: framework.Failed, Duration: "0:00:55.000"},
		},
		Verifications: []framework.Verification{
			{Number: 1, Title: "Self-test shall pass", Result: framework.Failed, Value: false, Test: "Short selftest"},
		},
		Rqmts: map[string]*framework.RqmtCounts{
			"Self-test shall pass": {Fail: 1, Total: 1},
		},
	}
	state.Summary.Tests = framework.TestCounts{Total: 2, Pass: 1, Fail: 1}
	state.Summary.Verifications = framework.Counts{Total: 1, Fail: 1}
	writeSuiteResult(t, dir, state)

	require.NoError(t, CreateReports(dir, "Drive health", "Verifies drive health."))

	data, err := os.ReadFile(filepath.Join(dir, DashboardFile))
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "Drive health")
	assert.Contains(t, html, "Example NVMe SSD")
	assert.Contains(t, html, "Short selftest")
	assert.Contains(t, html, "Self-test shall pass")
	assert.Contains(t, html, "FAILED")
}

func TestCreateReportsMissingResults(t *testing.T) {
	err := CreateReports(t.TempDir(), "Title", "Description")
	assert.Error(t, err)
}

func TestCreateReportsMalformedResults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, framework.ResultsFile), []byte("{broken"), 0o644))
	err := CreateReports(dir, "Title", "Description")
	assert.Error(t, err)
}
