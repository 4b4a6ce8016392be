package framework

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSuite creates a suite in a temp directory with logging discarded.
func newSuite(t *testing.T, opts Options) *Suite {
	t.Helper()
	if opts.Title == "" {
		opts.Title = "Unit suite"
	}
	if opts.ResultsRoot == "" {
		opts.ResultsRoot = t.TempDir()
	}
	if opts.RunID == "" {
		opts.RunID = "run"
	}
	opts.LogWriter = io.Discard

	s, err := New(opts)
	require.NoError(t, err)
	return s
}

func TestSuitePassFailRollup(t *testing.T) {
	s := newSuite(t, Options{})

	s.RunCase("Case one", "First case.", func(tc *Case) error {
		return tc.RunStep("Step one", "Records two passing verifications.", func(st *Step) error {
			if err := st.Verify(1, "Rqmt A shall hold", true, 1); err != nil {
				return err
			}
			return st.Verify(2, "Rqmt B shall hold", true, 2)
		})
	})
	s.RunCase("Case two", "Second case.", func(tc *Case) error {
		return tc.RunStep("Step one", "Records one failing verification.", func(st *Step) error {
			return st.Verify(1, "Rqmt A shall hold", false, 0)
		})
	})

	result := s.Close()
	assert.Equal(t, Failed, result)

	state := s.State()
	assert.True(t, state.Complete)
	assert.Equal(t, TestCounts{Total: 2, Pass: 1, Fail: 1}, state.Summary.Tests)
	assert.Equal(t, Counts{Total: 3, Pass: 2, Fail: 1}, state.Summary.Verifications)
	assert.Equal(t, Counts{Total: 2, Pass: 1, Fail: 1}, state.Summary.Rqmts)

	// Verification numbers are suite-wide and sequential across cases.
	require.Len(t, state.Verifications, 3)
	for i, ver := range state.Verifications {
		assert.Equal(t, i+1, ver.Number)
	}
	assert.Equal(t, "Case two", state.Verifications[2].Test)
	assert.Equal(t, 2, state.Verifications[2].TestNumber)

	// The rqmts index merges by title across cases.
	require.Contains(t, state.Rqmts, "Rqmt A shall hold")
	assert.Equal(t, &RqmtCounts{Pass: 1, Fail: 1, Total: 2}, state.Rqmts["Rqmt A shall hold"])

	// Result files exist for the suite and every case.
	assert.FileExists(t, filepath.Join(s.Directory, ResultsFile))
	assert.FileExists(t, filepath.Join(s.Directory, "1_case_one", ResultsFile))
	assert.FileExists(t, filepath.Join(s.Directory, "2_case_two", ResultsFile))
	assert.FileExists(t, filepath.Join(s.Directory, "console.log"))
}

func TestResultFileKeys(t *testing.T) {
	s := newSuite(t, Options{})
	s.RunCase("Case one", "First case.", func(tc *Case) error {
		return tc.RunStep("Step one", "One verification.", func(st *Step) error {
			return st.Verify(1, "Rqmt A shall hold", true, "value")
		})
	})
	s.Close()

	data, err := os.ReadFile(filepath.Join(s.Directory, ResultsFile))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{
		"title", "result", "complete", "start time", "end time",
		"duration (sec)", "duration", "script version", "id", "run id",
		"model", "system", "location", "summary", "tests",
		"verifications", "rqmts", "data",
	} {
		assert.Contains(t, raw, key)
	}

	caseData, err := os.ReadFile(filepath.Join(s.Directory, "1_case_one", ResultsFile))
	require.NoError(t, err)
	var caseRaw map[string]any
	require.NoError(t, json.Unmarshal(caseData, &caseRaw))
	assert.Contains(t, caseRaw, "directory name")
	assert.Equal(t, "1_case_one", caseRaw["directory name"])
}

func TestZeroVerificationStepPasses(t *testing.T) {
	s := newSuite(t, Options{})
	s.RunCase("Empty", "A case whose step records nothing.", func(tc *Case) error {
		return tc.RunStep("Nothing", "No verifications.", func(st *Step) error {
			return nil
		})
	})
	assert.Equal(t, Passed, s.Close())
	require.Len(t, s.State().Tests, 1)
	assert.Equal(t, Passed, s.State().Tests[0].Steps[0].Result)
}

func TestSkipWinsOverFailures(t *testing.T) {
	s := newSuite(t, Options{})
	s.RunCase("Skipper", "Fails a verification, then skips.", func(tc *Case) error {
		err := tc.RunStep("Failing", "One failing verification.", func(st *Step) error {
			return st.Verify(1, "Rqmt A shall hold", false, 0)
		})
		require.NoError(t, err)
		return tc.Skip("feature not supported")
	})

	// A skipped case does not fail the suite.
	assert.Equal(t, Passed, s.Close())

	state := s.State()
	assert.Equal(t, Skipped, state.Tests[0].Result)
	assert.Equal(t, TestCounts{Total: 1, Skip: 1}, state.Summary.Tests)
	// The failed verification still counts in the rollup.
	assert.Equal(t, 1, state.Summary.Verifications.Fail)
}

func TestStepStopOnFail(t *testing.T) {
	s := newSuite(t, Options{})
	s.RunCase("Stopper", "Stops the step at the first failure.", func(tc *Case) error {
		return tc.RunStep("Guarded", "Stop-on-fail verifications.", func(st *Step) error {
			st.StopOnFail = true
			require.NoError(t, st.Verify(1, "Rqmt A shall hold", true, 1))

			err := st.Verify(2, "Rqmt B shall hold", false, 0)
			require.ErrorIs(t, err, ErrStepStop)

			// Later verifications on a stopped step are no-ops.
			require.ErrorIs(t, st.Verify(3, "Rqmt C shall hold", true, 1), ErrStepStop)
			return err
		})
	})
	assert.Equal(t, Failed, s.Close())

	state := s.State()
	assert.Equal(t, 2, state.Summary.Verifications.Total)
	assert.NotContains(t, state.Rqmts, "Rqmt C shall hold")
}

func TestCaseStopOnFailSkipsRemainingSteps(t *testing.T) {
	s := newSuite(t, Options{})
	secondStepRan := false

	s.RunCase("Guarded", "Stops after the first failed step.", func(tc *Case) error {
		tc.StopOnFail = true
		err := tc.RunStep("Failing", "One failing verification.", func(st *Step) error {
			return st.Verify(1, "Rqmt A shall hold", false, 0)
		})
		require.ErrorIs(t, err, ErrCaseStop)
		if err != nil {
			return err
		}
		return tc.RunStep("Unreached", "Should not run.", func(st *Step) error {
			secondStepRan = true
			return nil
		})
	})
	s.RunCase("After", "Runs normally after the failed case.", func(tc *Case) error {
		return tc.RunStep("Fine", "Passes.", func(st *Step) error {
			return st.Verify(1, "Rqmt B shall hold", true, 1)
		})
	})

	assert.Equal(t, Failed, s.Close())
	assert.False(t, secondStepRan)

	state := s.State()
	require.Len(t, state.Tests, 2)
	assert.Equal(t, Failed, state.Tests[0].Result)
	assert.Equal(t, 1, state.Tests[0].Summary.Steps.Total)
	assert.Equal(t, Passed, state.Tests[1].Result)
}

func TestSuiteStopOnFail(t *testing.T) {
	s := newSuite(t, Options{StopOnFail: true})
	secondCaseRan := false

	s.RunCase("Failing", "Fails one verification.", func(tc *Case) error {
		return tc.RunStep("Bad", "Fails.", func(st *Step) error {
			return st.Verify(1, "Rqmt A shall hold", false, 0)
		})
	})
	s.RunCase("Unreached", "Should not run.", func(tc *Case) error {
		secondCaseRan = true
		return nil
	})

	assert.Equal(t, Failed, s.Close())
	assert.False(t, secondCaseRan)
	assert.Len(t, s.State().Tests, 1)
}

func TestSuiteStopSignal(t *testing.T) {
	s := newSuite(t, Options{})
	s.RunCase("Stopper", "Requests a suite stop.", func(tc *Case) error {
		err := tc.RunStep("Fine", "Passes.", func(st *Step) error {
			return st.Verify(1, "Rqmt A shall hold", true, 1)
		})
		require.NoError(t, err)
		return tc.Suite().Stop(false)
	})
	s.RunCase("Unreached", "Should not run.", func(tc *Case) error {
		t.Fatal("case ran after suite stop")
		return nil
	})

	assert.Equal(t, Passed, s.Close())
	state := s.State()
	require.Len(t, state.Tests, 1)
	assert.Equal(t, Passed, state.Tests[0].Result)
	assert.True(t, state.Complete)
}

func TestSuiteStopForceFail(t *testing.T) {
	s := newSuite(t, Options{})
	s.RunCase("Stopper", "Requests a force-fail suite stop.", func(tc *Case) error {
		err := tc.RunStep("Fine", "Passes.", func(st *Step) error {
			return st.Verify(1, "Rqmt A shall hold", true, 1)
		})
		require.NoError(t, err)
		return tc.Suite().Stop(true)
	})

	// The forced failure survives the rollup even though every recorded case
	// passed.
	assert.Equal(t, Failed, s.Close())
	state := s.State()
	require.Len(t, state.Tests, 1)
	assert.Equal(t, Passed, state.Tests[0].Result)
	assert.True(t, state.Complete)
}

func TestCaseAbortOnError(t *testing.T) {
	s := newSuite(t, Options{})
	s.RunCase("Broken", "Returns an unexpected defect.", func(tc *Case) error {
		return errors.New("tool exploded")
	})
	s.RunCase("Unreached", "Should not run.", func(tc *Case) error {
		t.Fatal("case ran after suite abort")
		return nil
	})

	assert.Equal(t, Aborted, s.Close())
	state := s.State()
	assert.False(t, state.Complete)
	require.Len(t, state.Tests, 1)
	assert.Equal(t, Aborted, state.Tests[0].Result)
}

func TestPanicRecordsAbort(t *testing.T) {
	s := newSuite(t, Options{})
	s.RunCase("Panicky", "Panics in the body.", func(tc *Case) error {
		panic("nil map write")
	})
	assert.Equal(t, Aborted, s.Close())
	assert.Equal(t, Aborted, s.State().Tests[0].Result)
}

func TestInterruptStopsSuite(t *testing.T) {
	s := newSuite(t, Options{})
	s.RunCase("Interrupted", "Simulates Ctrl-C.", func(tc *Case) error {
		return ErrInterrupted
	})
	s.RunCase("Unreached", "Should not run.", func(tc *Case) error {
		t.Fatal("case ran after interrupt")
		return nil
	})

	// An interrupt is not a defect: the suite is stopped and force-failed,
	// not aborted.
	assert.Equal(t, Failed, s.Close())
	state := s.State()
	assert.False(t, state.Complete)
	require.Len(t, state.Tests, 1)
	assert.Equal(t, Aborted, state.Tests[0].Result)
}

func TestCaseDirectoryCollisionAborts(t *testing.T) {
	s := newSuite(t, Options{})
	require.NoError(t, os.Mkdir(filepath.Join(s.Directory, "1_first"), 0o755))

	s.RunCase("First", "Collides with a pre-existing directory.", func(tc *Case) error {
		t.Fatal("body ran despite directory collision")
		return nil
	})
	assert.Equal(t, Aborted, s.Close())
}

func TestStepDirectoryCollisionAbortsCase(t *testing.T) {
	s := newSuite(t, Options{})
	s.RunCase("Case", "Step directory collides.", func(tc *Case) error {
		require.NoError(t, os.Mkdir(filepath.Join(tc.Directory, "1_step"), 0o755))
		return tc.RunStep("Step", "Never runs.", func(st *Step) error {
			t.Fatal("body ran despite directory collision")
			return nil
		})
	})
	assert.Equal(t, Aborted, s.Close())
	assert.Equal(t, Aborted, s.State().Tests[0].Result)
}

func TestRollupOverridesForceFail(t *testing.T) {
	// A force-failed stop only drives stop-on-fail propagation; the persisted
	// result is recomputed from the verifications, and with none failed the
	// case ends PASSED.
	s := newSuite(t, Options{})
	s.RunCase("Stopped", "Force-fail stop with clean verifications.", func(tc *Case) error {
		err := tc.RunStep("Fine", "Passes.", func(st *Step) error {
			return st.Verify(1, "Rqmt A shall hold", true, 1)
		})
		require.NoError(t, err)
		return tc.Stop(true)
	})
	s.Close()
	assert.Equal(t, Passed, s.State().Tests[0].Result)
}

func TestRerunReplacesSuiteDirectory(t *testing.T) {
	root := t.TempDir()
	s1 := newSuite(t, Options{ResultsRoot: root})
	s1.RunCase("Only", "One case.", func(tc *Case) error { return nil })
	s1.Close()

	// Same title and run id: the old tree is destroyed, so case numbering
	// starts clean instead of colliding.
	s2 := newSuite(t, Options{ResultsRoot: root})
	s2.RunCase("Only", "One case.", func(tc *Case) error { return nil })
	assert.Equal(t, Passed, s2.Close())
}

func TestSuiteTitleRequired(t *testing.T) {
	_, err := New(Options{ResultsRoot: t.TempDir(), LogWriter: io.Discard})
	assert.Error(t, err)
}

func TestVerifyOnClosedStep(t *testing.T) {
	s := newSuite(t, Options{})
	var leaked *Step
	s.RunCase("Leaky", "Leaks the step handle.", func(tc *Case) error {
		return tc.RunStep("Step", "Captures itself.", func(st *Step) error {
			leaked = st
			return nil
		})
	})
	err := leaked.Verify(1, "Rqmt A shall hold", true, 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrStepStop)
	s.Close()
}
