package framework

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
)

// UpdateSuiteFiles reconciles a suite directory after result files were
// edited by hand. Every immediate-child case result file is reloaded, its
// rollup recomputed and rewritten, then the suite rollup is recomputed over
// the updated case list and the suite file rewritten, and finally the
// reporter regenerates the dashboard. No hardware is touched.
//
// To edit a result, change a verification's "result" in the case's
// result.json to "PASSED" or "FAILED" and fill in "reviewer" and "note" with
// the reason. Running the same reconciliation twice without edits is
// idempotent.
//
// A malformed result file fails the whole reconciliation; partial updates
// are not attempted.
func UpdateSuiteFiles(directory string, log *slog.Logger, reporter Reporter) error {
	if log == nil {
		log = slog.Default()
	}

	full, err := filepath.Abs(directory)
	if err != nil {
		return fmt.Errorf("resolve suite directory: %w", err)
	}
	suiteFile := filepath.Join(full, ResultsFile)

	var suite SuiteState
	if err := readResults(suiteFile, &suite); err != nil {
		return err
	}

	log.Info("updating test suite",
		"title", suite.Title, "directory", full)

	caseFiles, err := filepath.Glob(filepath.Join(full, "*", ResultsFile))
	if err != nil {
		return fmt.Errorf("list test results: %w", err)
	}

	tests := make([]CaseState, 0, len(caseFiles))
	for _, caseFile := range caseFiles {
		var test CaseState
		if err := readResults(caseFile, &test); err != nil {
			return err
		}
		UpdateCaseSummary(&test)
		if err := writeResults(caseFile, &test); err != nil {
			return err
		}
		log.Debug("test results updated",
			"test", test.Number, "title", test.Title, "result", test.Result)
		tests = append(tests, test)
	}

	// Glob order is filesystem dependent; case numbers define the canonical
	// order and keep reconciliation idempotent.
	sort.Slice(tests, func(i, j int) bool { return tests[i].Number < tests[j].Number })
	suite.Tests = tests

	UpdateSuiteSummary(&suite)
	if err := writeResults(suiteFile, &suite); err != nil {
		return err
	}

	log.Info("test suite updated",
		"result", suite.Result,
		"tests_total", suite.Summary.Tests.Total,
		"verifications_total", suite.Summary.Verifications.Total,
	)

	if reporter != nil {
		if err := reporter(full, suite.Title, suite.Description); err != nil {
			return fmt.Errorf("regenerate reports: %w", err)
		}
	}
	return nil
}
