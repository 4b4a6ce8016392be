package framework

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jtjones1001/nvmeharness/internal/conversions"
)

// Step is a scoped unit of work inside a case. A step fails if any of its
// verifications fail or if it was stopped with force-fail; a step with zero
// verifications is vacuously PASSED.
type Step struct {
	// Number is the 1-based step number within the case.
	Number int

	// Title names the step in logs and result files.
	Title string

	// Directory is the step's working directory, created eagerly and unique
	// within the case directory.
	Directory string

	// StopOnFail makes the first failed verification stop the step. It may be
	// toggled between verifications inside the step body.
	StopOnFail bool

	test  *Case
	suite *Suite
	state *StepState
	log   *slog.Logger

	start     time.Time
	forceFail bool
	stopped   bool
	closed    bool
}

// newStep creates the step scope and its working directory. A directory
// collision means the same numbered step would run twice, so it is fatal.
func (tc *Case) newStep(title, description string) (*Step, error) {
	tc.stepNumber++
	dirName := fmt.Sprintf("%d_%s", tc.stepNumber, slug(title))
	dir := filepath.Join(tc.Directory, dirName)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create step directory %s: %w", dir, err)
	}

	now := time.Now()
	st := &Step{
		Number:    tc.stepNumber,
		Title:     title,
		Directory: dir,
		test:      tc,
		suite:     tc.suite,
		log:       tc.log,
		start:     now,
		state: &StepState{
			Title:         title,
			Description:   description,
			Result:        Aborted,
			StartTime:     timestamp(now),
			Directory:     dir,
			DirectoryName: dirName,
			Verifications: []Verification{},
		},
	}

	st.log.Debug("step started", "step", st.Number, "title", title)
	return st, nil
}

// RunStep runs body inside a new step scope and resolves the step's final
// state. The returned error is nil unless a signal or defect must cross the
// step boundary: case stop, case skip, and suite stop pass through unchanged,
// and an unexpected defect aborts the step and propagates to the case.
func (tc *Case) RunStep(title, description string, body func(*Step) error) error {
	st, err := tc.newStep(title, description)
	if err != nil {
		return err
	}
	return st.finish(runStepBody(st, body))
}

// runStepBody executes body, converting a panic into an error so the step
// still records an ABORTED state instead of unwinding the process.
func runStepBody(st *Step, body func(*Step) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %q panicked: %v", st.Title, r)
		}
	}()
	return body(st)
}

// Stop ends the step early with a controlled signal. The step still resolves
// to PASSED or FAILED: forceFail forces FAILED even when every verification
// passed. The body should return the value.
func (st *Step) Stop(forceFail bool) error {
	st.stopped = true
	st.forceFail = st.forceFail || forceFail
	st.log.Info("step stop requested", "step", st.Number, "force_fail", forceFail)
	return ErrStepStop
}

// Log returns the suite logger for use inside step bodies.
func (st *Step) Log() *slog.Logger { return st.log }

// Suite returns the owning suite, for access to the device specification and
// recorded data.
func (st *Step) Suite() *Suite { return st.suite }

// Case returns the owning test case.
func (st *Step) Case() *Case { return st.test }

// finish resolves the step's final state from the body's outcome, appends it
// to the parent case, and decides what crosses the step boundary.
func (st *Step) finish(err error) error {
	st.closed = true
	now := time.Now()
	seconds := now.Sub(st.start).Seconds()
	st.state.EndTime = timestamp(now)
	st.state.DurationSec = fmt.Sprintf("%.3f", seconds)
	st.state.Duration = conversions.AsDuration(seconds)

	failVers := 0
	for _, ver := range st.state.Verifications {
		if ver.Result != Passed {
			failVers++
		}
	}

	var ret error
	switch {
	case err == nil || isControlSignal(err):
		if st.forceFail || failVers > 0 {
			st.state.Result = Failed
		} else {
			st.state.Result = Passed
		}
		// A step stop is absorbed here; case and suite level signals
		// continue to the parent.
		if err != nil && !errors.Is(err, ErrStepStop) {
			ret = err
		}
	default:
		// Unexpected defect or user interrupt: record the abort and let the
		// case boundary classify it.
		st.state.Result = Aborted
		ret = err
	}

	st.test.state.Steps = append(st.test.state.Steps, *st.state)
	st.log.Debug("step finished", "step", st.Number, "result", st.state.Result)

	if st.state.Result == Failed && st.test.StopOnFail {
		st.test.forceFail = true
		if ret == nil {
			ret = ErrCaseStop
		}
	}
	return ret
}
