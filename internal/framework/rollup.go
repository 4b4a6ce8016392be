package framework

// UpdateCaseSummary recomputes a case's rollup from its steps.
//
// The summary, flattened verification list, and rqmts index are rebuilt from
// scratch, so the function works identically against a live case and against
// a CaseState reloaded from disk during reconciliation. Each step's result is
// recomputed as PASSED iff none of its verifications failed; the case result
// is then PASSED iff no step failed, unless the case ended SKIPPED or
// ABORTED, which short-circuit the recompute.
func UpdateCaseSummary(state *CaseState) {
	state.Summary = CaseSummary{}
	state.Verifications = []Verification{}
	state.Rqmts = map[string]*RqmtCounts{}

	for i := range state.Steps {
		step := &state.Steps[i]
		stepFails := 0
		state.Summary.Steps.Total++

		for _, ver := range step.Verifications {
			state.Verifications = append(state.Verifications, ver)
			state.Summary.Verifications.Total++

			rqmt, ok := state.Rqmts[ver.Title]
			if !ok {
				rqmt = &RqmtCounts{}
				state.Rqmts[ver.Title] = rqmt
			}
			rqmt.Total++

			if ver.Result == Passed {
				state.Summary.Verifications.Pass++
				rqmt.Pass++
			} else {
				state.Summary.Verifications.Fail++
				rqmt.Fail++
				stepFails++
			}
		}

		if stepFails == 0 {
			state.Summary.Steps.Pass++
			step.Result = Passed
		} else {
			state.Summary.Steps.Fail++
			step.Result = Failed
		}
	}

	updateRqmtCounts(&state.Summary.Rqmts, state.Rqmts)

	if state.Result != Skipped && state.Result != Aborted {
		if state.Summary.Steps.Fail == 0 {
			state.Result = Passed
		} else {
			state.Result = Failed
		}
	}
}

// UpdateSuiteSummary recomputes a suite's rollup from its cases.
//
// Like UpdateCaseSummary it is a pure function of the result tree and is
// shared by the live exit path and the reconciliation path. The suite result
// is PASSED iff no case FAILED; skipped cases do not fail the suite. An
// ABORTED suite keeps its result.
func UpdateSuiteSummary(state *SuiteState) {
	state.Summary = SuiteSummary{}
	state.Verifications = []Verification{}
	state.Rqmts = map[string]*RqmtCounts{}

	state.Summary.Tests.Total = len(state.Tests)
	for i := range state.Tests {
		switch state.Tests[i].Result {
		case Passed:
			state.Summary.Tests.Pass++
		case Failed:
			state.Summary.Tests.Fail++
		case Skipped:
			state.Summary.Tests.Skip++
		}
	}

	for i := range state.Tests {
		for j := range state.Tests[i].Steps {
			for _, ver := range state.Tests[i].Steps[j].Verifications {
				state.Verifications = append(state.Verifications, ver)
				state.Summary.Verifications.Total++

				rqmt, ok := state.Rqmts[ver.Title]
				if !ok {
					rqmt = &RqmtCounts{}
					state.Rqmts[ver.Title] = rqmt
				}
				rqmt.Total++

				if ver.Result == Passed {
					state.Summary.Verifications.Pass++
					rqmt.Pass++
				} else {
					state.Summary.Verifications.Fail++
					rqmt.Fail++
				}
			}
		}
	}

	updateRqmtCounts(&state.Summary.Rqmts, state.Rqmts)

	if state.Result != Aborted {
		if state.Summary.Tests.Fail == 0 {
			state.Result = Passed
		} else {
			state.Result = Failed
		}
	}
}

// updateRqmtCounts fills the requirement summary row: a requirement passes
// only if every verification sharing its title passed.
func updateRqmtCounts(summary *Counts, rqmts map[string]*RqmtCounts) {
	summary.Total = len(rqmts)
	for _, rqmt := range rqmts {
		if rqmt.Fail == 0 {
			summary.Pass++
		} else {
			summary.Fail++
		}
	}
}
