// Package framework implements the nested test execution state machine for
// NVMe validation runs.
//
// A run is a Suite containing Cases, each Case containing Steps, each Step
// containing zero or more requirement Verifications:
//
//	Suite
//	    Case
//	        Step
//	            Verification
//
// Scopes are entered through closures: Suite.RunCase runs a case body,
// Case.RunStep runs a step body. Early exits (step stop, case stop, case
// skip, suite stop) are sentinel errors returned from the body and absorbed
// exactly at their owning scope. Any other error marks the scope ABORTED and
// propagates upward; the suite's Close is the single place guaranteed to
// absorb it, record the aborted result, and still write the result file.
//
// Every scope close recomputes its rollup summary with the pure functions
// UpdateCaseSummary and UpdateSuiteSummary and persists a JSON snapshot.
// The same functions drive UpdateSuiteFiles, which reconciles hand-edited
// result files without rerunning any hardware.
package framework
