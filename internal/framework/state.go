package framework

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Result states shared by suites, cases, steps, and verifications.
const (
	Skipped = "SKIPPED"
	Passed  = "PASSED"
	Failed  = "FAILED"
	Aborted = "ABORTED"
	Started = "STARTED"
)

// ResultsFile is the snapshot written into every suite and case directory.
// The report generator and the reconciliation path both depend on this name
// and on the exact JSON keys below.
const ResultsFile = "result.json"

// timeFormat matches the original result files: millisecond precision,
// no timezone.
const timeFormat = "2006-01-02 15:04:05.000"

// Verification is a single pass/fail judgment against a named requirement.
//
// Reviewer, Note, and Result may be hand-edited in a persisted result file;
// UpdateSuiteFiles re-aggregates every ancestor summary afterwards.
type Verification struct {
	Number     int    `json:"number"`
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Result     string `json:"result"`
	Value      any    `json:"value"`
	Time       string `json:"time"`
	Reviewer   string `json:"reviewer"`
	Note       string `json:"note"`
	Test       string `json:"test"`
	TestNumber int    `json:"test number"`
}

// Counts holds a total/pass/fail triple for one summary row.
type Counts struct {
	Total int `json:"total"`
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`
}

// TestCounts is the suite-level case tally; unlike Counts it also tracks
// skipped cases.
type TestCounts struct {
	Total int `json:"total"`
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`
	Skip  int `json:"skip"`
}

// RqmtCounts aggregates verifications sharing one requirement title.
//
// The rqmts index is keyed by the verification title string, not the
// requirement id. Two distinct requirements sharing a display title merge
// statistics. This is a known, load-bearing quirk of the result file format
// and is preserved deliberately.
type RqmtCounts struct {
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`
	Total int `json:"total"`
}

// CaseSummary is the rollup block persisted with every case.
type CaseSummary struct {
	Steps         Counts `json:"steps"`
	Rqmts         Counts `json:"rqmts"`
	Verifications Counts `json:"verifications"`
}

// SuiteSummary is the rollup block persisted with the suite.
type SuiteSummary struct {
	Tests         TestCounts `json:"tests"`
	Rqmts         Counts     `json:"rqmts"`
	Verifications Counts     `json:"verifications"`
}

// StepState is the persisted form of a test step.
type StepState struct {
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Result        string         `json:"result"`
	StartTime     string         `json:"start time"`
	EndTime       string         `json:"end time"`
	DurationSec   string         `json:"duration (sec)"`
	Duration      string         `json:"duration"`
	Directory     string         `json:"directory"`
	DirectoryName string         `json:"directory name"`
	Verifications []Verification `json:"verifications"`
}

// CaseState is the persisted form of a test case, written to
// <case dir>/result.json when the case closes.
type CaseState struct {
	Number        int                    `json:"number"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Details       string                 `json:"details"`
	Result        string                 `json:"result"`
	StartTime     string                 `json:"start time"`
	EndTime       string                 `json:"end time"`
	DurationSec   string                 `json:"duration (sec)"`
	Duration      string                 `json:"duration"`
	Directory     string                 `json:"directory"`
	DirectoryName string                 `json:"directory name"`
	Summary       CaseSummary            `json:"summary"`
	Steps         []StepState            `json:"steps"`
	Verifications []Verification         `json:"verifications"`
	Rqmts         map[string]*RqmtCounts `json:"rqmts"`
	Data          map[string]any         `json:"data"`
}

// SuiteState is the persisted form of a test suite, written to
// <suite dir>/result.json when the suite closes.
type SuiteState struct {
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Details       string                 `json:"details"`
	Result        string                 `json:"result"`
	Complete      bool                   `json:"complete"`
	StartTime     string                 `json:"start time"`
	EndTime       string                 `json:"end time"`
	DurationSec   string                 `json:"duration (sec)"`
	Duration      string                 `json:"duration"`
	Directory     string                 `json:"directory"`
	ScriptVersion string                 `json:"script version"`
	ID            string                 `json:"id"`
	RunID         string                 `json:"run id"`
	Model         string                 `json:"model"`
	System        string                 `json:"system"`
	Location      string                 `json:"location"`
	Summary       SuiteSummary           `json:"summary"`
	Tests         []CaseState            `json:"tests"`
	Verifications []Verification         `json:"verifications"`
	Rqmts         map[string]*RqmtCounts `json:"rqmts"`
	Data          map[string]any         `json:"data"`
}

// slug converts a title into the directory-name form used throughout the
// result tree: lowercase with spaces replaced by underscores.
func slug(title string) string {
	return strings.ToLower(strings.ReplaceAll(title, " ", "_"))
}

// timestamp formats t for the result file time fields.
func timestamp(t time.Time) string {
	return t.Format(timeFormat)
}

// writeResults serializes v and atomically replaces path. Writing through a
// temp file plus rename keeps a half-written snapshot from ever shadowing a
// good one during reconciliation.
func writeResults(path string, v any) error {
	content, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	content = append(content, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".result-*.json")
	if err != nil {
		return fmt.Errorf("create temp results file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close results: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename results into place: %w", err)
	}
	return nil
}

// readResults loads a JSON snapshot into out.
func readResults(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read results file: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
