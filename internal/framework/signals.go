package framework

import (
	"context"
	"errors"
)

// Controlled early-exit signals. Each is returned from a scope body and
// absorbed exactly at its owning scope; none of them ever reaches the caller
// of Suite.Close. Anything that is not one of these (and not a user
// interrupt) is an unexpected defect and aborts the enclosing scopes.
var (
	// ErrStepStop ends the current step early. The step still resolves to
	// PASSED or FAILED as usual.
	ErrStepStop = errors.New("step stop")

	// ErrCaseStop ends the current case early after the current step closes.
	ErrCaseStop = errors.New("test stop")

	// ErrCaseSkip marks the current case SKIPPED regardless of any step
	// results recorded before the skip.
	ErrCaseSkip = errors.New("test skip")

	// ErrSuiteStop ends the suite after the current case closes. Cases not
	// yet started do not run.
	ErrSuiteStop = errors.New("suite stop")

	// ErrInterrupted reports a user interrupt. It is logged distinctly at the
	// case boundary and escalated into a suite stop so the run still produces
	// a clean summary for everything completed so far.
	ErrInterrupted = errors.New("interrupted by user")
)

// isControlSignal reports whether err is one of the framework's own
// early-exit signals.
func isControlSignal(err error) bool {
	return errors.Is(err, ErrStepStop) ||
		errors.Is(err, ErrCaseStop) ||
		errors.Is(err, ErrCaseSkip) ||
		errors.Is(err, ErrSuiteStop)
}

// isInterrupt reports whether err is a user interrupt, either the explicit
// sentinel or a context cancellation coming from a signal handler.
func isInterrupt(err error) bool {
	return errors.Is(err, ErrInterrupted) || errors.Is(err, context.Canceled)
}
