package framework

import (
	"fmt"
	"time"
)

// Verify records a single pass/fail judgment against a requirement.
//
// The verification receives the next suite-wide sequential number, is
// appended to the open step, and immediately triggers the parent case's
// rollup so mid-run summaries stay accurate. If the step has StopOnFail set
// and verified is false, the step is stopped: the returned signal should be
// propagated from the step body, and any later Verify calls on the same step
// are no-ops returning the same signal.
//
// Requirement functions in internal/rqmts wrap this with stable requirement
// ids and titles; test case bodies normally never call it directly.
func (st *Step) Verify(rqmtID int, title string, verified bool, value any) error {
	if st.closed {
		return fmt.Errorf("verification %q recorded on closed step %q", title, st.Title)
	}
	if st.stopped {
		return ErrStepStop
	}

	number := st.suite.nextVerificationNumber()

	result := Passed
	if verified {
		st.log.Debug("verification passed",
			"number", number, "title", title, "value", value)
	} else {
		result = Failed
		st.log.Info("verification FAILED",
			"number", number, "title", title, "value", value)
	}

	st.state.Verifications = append(st.state.Verifications, Verification{
		Number:     number,
		ID:         rqmtID,
		Title:      title,
		Result:     result,
		Value:      value,
		Time:       timestamp(time.Now()),
		Test:       st.test.Title,
		TestNumber: st.test.Number,
	})

	st.test.updateSummary()

	if st.StopOnFail && !verified {
		st.stopped = true
		st.forceFail = true
		return ErrStepStop
	}
	return nil
}
