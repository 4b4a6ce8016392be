package framework

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jtjones1001/nvmeharness/internal/conversions"
)

// Case is a single named test within a suite, grouping one or more steps.
type Case struct {
	// Number is the 1-based case number within the suite.
	Number int

	// Title names the case in logs and result files.
	Title string

	// Directory is the case's working directory under the suite directory.
	Directory string

	// Data holds caller-recorded measurements persisted verbatim with the
	// case result.
	Data map[string]any

	// StopOnFail stops the case after the first failed step.
	StopOnFail bool

	suite *Suite
	state *CaseState
	log   *slog.Logger

	stepNumber int
	start      time.Time
	forceFail  bool
}

// newCase creates the case scope and its working directory. The directory
// name encodes the case number, so a collision means the numbering sequence
// was corrupted and is fatal.
func (s *Suite) newCase(title, description string) (*Case, error) {
	s.caseNumber++
	dirName := fmt.Sprintf("%d_%s", s.caseNumber, slug(title))
	dir := filepath.Join(s.Directory, dirName)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create test directory %s: %w", dir, err)
	}

	now := time.Now()
	firstLine, _, _ := strings.Cut(description, "\n")
	tc := &Case{
		Number:    s.caseNumber,
		Title:     title,
		Directory: dir,
		Data:      map[string]any{},
		suite:     s,
		log:       s.log,
		start:     now,
		state: &CaseState{
			Number:        s.caseNumber,
			Title:         title,
			Description:   firstLine,
			Details:       description,
			Result:        Aborted,
			StartTime:     timestamp(now),
			Directory:     dir,
			DirectoryName: dirName,
			Steps:         []StepState{},
			Verifications: []Verification{},
			Rqmts:         map[string]*RqmtCounts{},
			Data:          map[string]any{},
		},
	}

	tc.log.Info("test started",
		"test", tc.Number, "title", title, "description", firstLine)
	return tc, nil
}

// RunCase runs body inside a new case scope. All case-boundary semantics
// live here: skip and stop signals are absorbed, a suite stop latches the
// suite, a user interrupt is logged distinctly and escalated into a suite
// stop, and any other error aborts the case and then the suite. Once the
// suite has been stopped or aborted, RunCase is a no-op.
func (s *Suite) RunCase(title, description string, body func(*Case) error) {
	if s.stopped || s.abortErr != nil {
		return
	}

	tc, err := s.newCase(title, description)
	if err != nil {
		s.abortErr = err
		s.log.Error("test could not start", "title", title, "error", err)
		return
	}
	tc.finish(runCaseBody(tc, body))
}

// runCaseBody executes body, converting a panic into an error so the case
// records ABORTED and the suite still writes its result file.
func runCaseBody(tc *Case, body func(*Case) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("test %q panicked: %v", tc.Title, r)
		}
	}()
	return body(tc)
}

// Skip marks the case SKIPPED. Skip always wins over any step failures
// recorded before the call. The body should return the value.
func (tc *Case) Skip(msg string) error {
	tc.log.Info("test skip requested", "test", tc.Number, "reason", msg)
	return ErrCaseSkip
}

// Stop ends the case early with a controlled signal. The final result is
// FAILED if forceFail is set or any step failed, otherwise PASSED. The body
// should return the value.
func (tc *Case) Stop(forceFail bool) error {
	tc.forceFail = tc.forceFail || forceFail
	tc.log.Info("test stop requested", "test", tc.Number, "force_fail", forceFail)
	return ErrCaseStop
}

// Log returns the suite logger for use inside case bodies.
func (tc *Case) Log() *slog.Logger { return tc.log }

// Suite returns the owning suite.
func (tc *Case) Suite() *Suite { return tc.suite }

// updateSummary recomputes the live rollup. Called on every verification so
// progress reporting sees accurate counts mid-run.
func (tc *Case) updateSummary() {
	UpdateCaseSummary(tc.state)
}

// finish resolves the case's final state, recomputes the rollup, persists
// the case snapshot, appends the case to the suite, and propagates fail/stop
// signals to the suite scope.
func (tc *Case) finish(err error) {
	s := tc.suite
	now := time.Now()
	seconds := now.Sub(tc.start).Seconds()
	tc.state.EndTime = timestamp(now)
	tc.state.DurationSec = fmt.Sprintf("%.3f", seconds)
	tc.state.Duration = conversions.AsDuration(seconds)
	tc.state.Data = tc.Data

	failSteps := 0
	for _, step := range tc.state.Steps {
		if step.Result != Passed {
			failSteps++
		}
	}

	switch {
	case err == nil || isControlSignal(err):
		if errors.Is(err, ErrCaseSkip) {
			tc.state.Result = Skipped
		} else if tc.forceFail || failSteps > 0 {
			tc.state.Result = Failed
		} else {
			tc.state.Result = Passed
		}
	case isInterrupt(err):
		tc.state.Result = Aborted
		tc.log.Error("test aborted by user interrupt", "test", tc.Number)
		s.requestStop(true)
	default:
		tc.state.Result = Aborted
		s.abortErr = err
		tc.log.Error("test aborted", "test", tc.Number, "error", err)
	}

	UpdateCaseSummary(tc.state)

	s.state.Tests = append(s.state.Tests, *tc.state)

	resultsFile := filepath.Join(tc.Directory, ResultsFile)
	if writeErr := writeResults(resultsFile, tc.state); writeErr != nil {
		tc.log.Error("test results could not be written",
			"test", tc.Number, "error", writeErr)
		if s.abortErr == nil {
			s.abortErr = writeErr
		}
	}

	tc.log.Info("test finished",
		"test", tc.Number,
		"title", tc.Title,
		"result", tc.state.Result,
		"duration_sec", tc.state.DurationSec,
		"verifications_pass", tc.state.Summary.Verifications.Pass,
		"verifications_fail", tc.state.Summary.Verifications.Fail,
	)

	if errors.Is(err, ErrSuiteStop) {
		s.stopped = true
	}
	if tc.state.Result == Failed && s.StopOnFail {
		s.requestStop(true)
	}
}
