package framework

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runFailingSuite produces a results directory whose only case failed one of
// two verifications.
func runFailingSuite(t *testing.T) string {
	t.Helper()
	s := newSuite(t, Options{Title: "Reconcile suite"})
	s.RunCase("Case one", "One failing verification.", func(tc *Case) error {
		return tc.RunStep("Step one", "Pass then fail.", func(st *Step) error {
			if err := st.Verify(1, "Rqmt A shall hold", true, 1); err != nil {
				return err
			}
			return st.Verify(2, "Rqmt B shall hold", false, 0)
		})
	})
	require.Equal(t, Failed, s.Close())
	return s.Directory
}

func TestUpdateSuiteFilesAppliesEdits(t *testing.T) {
	dir := runFailingSuite(t)
	caseFile := filepath.Join(dir, "1_case_one", ResultsFile)

	// A reviewer flips the failed verification to PASSED with a note.
	var test CaseState
	require.NoError(t, readResults(caseFile, &test))
	require.Equal(t, Failed, test.Steps[0].Verifications[1].Result)
	test.Steps[0].Verifications[1].Result = Passed
	test.Steps[0].Verifications[1].Reviewer = "jtj"
	test.Steps[0].Verifications[1].Note = "margin within spec on re-read"
	require.NoError(t, writeResults(caseFile, &test))

	require.NoError(t, UpdateSuiteFiles(dir, discardLogger(), nil))

	var updated CaseState
	require.NoError(t, readResults(caseFile, &updated))
	assert.Equal(t, Passed, updated.Result)
	assert.Equal(t, "jtj", updated.Verifications[1].Reviewer)

	var suite SuiteState
	require.NoError(t, readResults(filepath.Join(dir, ResultsFile), &suite))
	assert.Equal(t, Passed, suite.Result)
	assert.Equal(t, 0, suite.Summary.Verifications.Fail)
}

func TestUpdateSuiteFilesIdempotent(t *testing.T) {
	dir := runFailingSuite(t)
	require.NoError(t, UpdateSuiteFiles(dir, discardLogger(), nil))

	suiteFile := filepath.Join(dir, ResultsFile)
	caseFile := filepath.Join(dir, "1_case_one", ResultsFile)
	suiteBefore, err := os.ReadFile(suiteFile)
	require.NoError(t, err)
	caseBefore, err := os.ReadFile(caseFile)
	require.NoError(t, err)

	require.NoError(t, UpdateSuiteFiles(dir, discardLogger(), nil))

	suiteAfter, err := os.ReadFile(suiteFile)
	require.NoError(t, err)
	caseAfter, err := os.ReadFile(caseFile)
	require.NoError(t, err)
	assert.Equal(t, string(suiteBefore), string(suiteAfter))
	assert.Equal(t, string(caseBefore), string(caseAfter))
}

func TestUpdateSuiteFilesInvokesReporter(t *testing.T) {
	dir := runFailingSuite(t)

	var gotDir, gotTitle string
	reporter := func(directory, title, description string) error {
		gotDir = directory
		gotTitle = title
		return nil
	}
	require.NoError(t, UpdateSuiteFiles(dir, discardLogger(), reporter))
	assert.Equal(t, dir, gotDir)
	assert.Equal(t, "Reconcile suite", gotTitle)
}

func TestUpdateSuiteFilesMalformedCaseFails(t *testing.T) {
	dir := runFailingSuite(t)
	caseFile := filepath.Join(dir, "1_case_one", ResultsFile)
	require.NoError(t, os.WriteFile(caseFile, []byte("{not json"), 0o644))

	err := UpdateSuiteFiles(dir, discardLogger(), nil)
	assert.Error(t, err)
}

func TestUpdateSuiteFilesMissingSuite(t *testing.T) {
	err := UpdateSuiteFiles(t.TempDir(), discardLogger(), nil)
	assert.Error(t, err)
}

func TestUpdateSuiteFilesOrdersCasesByNumber(t *testing.T) {
	s := newSuite(t, Options{Title: "Ordered suite"})
	for _, title := range []string{"Alpha", "Bravo", "Charlie"} {
		s.RunCase(title, "Passes.", func(tc *Case) error {
			return tc.RunStep("Step", "Passes.", func(st *Step) error {
				return st.Verify(1, "Rqmt A shall hold", true, 1)
			})
		})
	}
	s.Close()

	require.NoError(t, UpdateSuiteFiles(s.Directory, discardLogger(), nil))

	data, err := os.ReadFile(filepath.Join(s.Directory, ResultsFile))
	require.NoError(t, err)
	var suite SuiteState
	require.NoError(t, json.Unmarshal(data, &suite))
	require.Len(t, suite.Tests, 3)
	for i, test := range suite.Tests {
		assert.Equal(t, i+1, test.Number)
	}
}
