// Package rqmts defines the requirement verifications test cases record
// against a step. Every function wraps Step.Verify with a stable requirement
// id and title; the returned error is the step's stop signal when the step
// has stop-on-fail set, and must be propagated from the step body.
package rqmts

import (
	"math"

	"github.com/jtjones1001/nvmeharness/internal/device"
	"github.com/jtjones1001/nvmeharness/internal/fio"
	"github.com/jtjones1001/nvmeharness/internal/framework"
	"github.com/jtjones1001/nvmeharness/internal/selftest"
)

// Stable requirement ids. Appending is fine; renumbering breaks existing
// result files.
const (
	rqmtNoCriticalWarnings = iota + 1
	rqmtNoStaticParameterChanges
	rqmtNoCounterParameterDecrements
	rqmtNoErrorCountChange
	rqmtNoPriorSelftestFailures
	rqmtNoIOErrors
	rqmtNoDataCorruption
	rqmtAdminCommandsPass
	rqmtAdminCommandAvgLatency
	rqmtAdminCommandMaxLatency
	rqmtSelftestPass
	rqmtSelftestRuntime
	rqmtSelftestMonotonicity
	rqmtSelftestLinearity
	rqmtSelftestPowerOnHours
	rqmtSmartDataReadAccurate
	rqmtSmartDataWrittenAccurate
)

// NoCriticalWarnings verifies the drive reports no critical warnings.
func NoCriticalWarnings(st *framework.Step, info *device.Info) error {
	value := info.CriticalWarnings()
	return st.Verify(rqmtNoCriticalWarnings,
		"Critical warnings shall be 0",
		value == "No" || value == "0",
		value)
}

// NoPriorSelftestFailures verifies the drive logged no failed self-tests
// before this run.
func NoPriorSelftestFailures(st *framework.Step, info *device.Info) error {
	value := info.Parameters["Number Of Failed Self-Tests"]
	return st.Verify(rqmtNoPriorSelftestFailures,
		"Prior self-test failures shall be 0",
		value == "0",
		value)
}

// NoStaticParameterChanges verifies identity parameters did not change
// between two snapshots.
func NoStaticParameterChanges(st *framework.Step, cmp *device.Compare) error {
	return st.Verify(rqmtNoStaticParameterChanges,
		"Static parameter changes shall be 0",
		len(cmp.StaticChanges) == 0,
		len(cmp.StaticChanges))
}

// NoCounterParameterDecrements verifies monotonic counters did not decrease
// between two snapshots.
func NoCounterParameterDecrements(st *framework.Step, cmp *device.Compare) error {
	return st.Verify(rqmtNoCounterParameterDecrements,
		"SMART counter decrements shall be 0",
		len(cmp.CounterDecrements) == 0,
		len(cmp.CounterDecrements))
}

// NoErrorCountChange verifies the error log did not grow between two
// snapshots.
func NoErrorCountChange(st *framework.Step, cmp *device.Compare) error {
	return st.Verify(rqmtNoErrorCountChange,
		"Error count change shall be 0",
		cmp.ErrorCountDelta == 0,
		cmp.ErrorCountDelta)
}

// NoIOErrors verifies the IO workload completed without IO errors.
func NoIOErrors(st *framework.Step, result *fio.Result) error {
	return st.Verify(rqmtNoIOErrors,
		"IO errors shall be 0",
		result.IOErrors == 0,
		result.IOErrors)
}

// NoDataCorruption verifies the IO workload's data verification found no
// corruption.
func NoDataCorruption(st *framework.Step, result *fio.Result) error {
	return st.Verify(rqmtNoDataCorruption,
		"Data corruption shall not occur",
		result.CorruptionErrors == 0,
		result.CorruptionErrors)
}

// AdminCommandsPass verifies every sampled admin command completed without
// error.
func AdminCommandsPass(st *framework.Step, samples *device.Samples) error {
	errors := samples.AdminErrors()
	return st.Verify(rqmtAdminCommandsPass,
		"Admin command errors shall be 0",
		errors == 0,
		errors)
}

// AdminCommandAvgLatency verifies the average sampled admin command latency
// stays under the device specification limit.
func AdminCommandAvgLatency(st *framework.Step, samples *device.Samples, limitMS float64) error {
	avg, _ := samples.AdminLatency()
	return st.Verify(rqmtAdminCommandAvgLatency,
		"Average admin command latency shall be within limit",
		avg <= limitMS,
		avg)
}

// AdminCommandMaxLatency verifies the worst sampled admin command latency
// stays under the device specification limit.
func AdminCommandMaxLatency(st *framework.Step, samples *device.Samples, limitMS float64) error {
	_, max := samples.AdminLatency()
	return st.Verify(rqmtAdminCommandMaxLatency,
		"Maximum admin command latency shall be within limit",
		max <= limitMS,
		max)
}

// SelftestPass verifies the diagnostic reported PASSED.
func SelftestPass(st *framework.Step, result *selftest.Result) error {
	return st.Verify(rqmtSelftestPass,
		"Self-test shall pass",
		result.Passed,
		result.Passed)
}

// SelftestRuntime verifies the diagnostic finished within its nominal
// runtime.
func SelftestRuntime(st *framework.Step, result *selftest.Result, limitMin float64) error {
	return st.Verify(rqmtSelftestRuntime,
		"Self-test runtime shall be within limit",
		result.RuntimeMin <= limitMin,
		result.RuntimeMin)
}

// SelftestMonotonicity verifies reported progress never went backwards.
func SelftestMonotonicity(st *framework.Step, result *selftest.Result) error {
	return st.Verify(rqmtSelftestMonotonicity,
		"Self-test progress shall be monotonic",
		result.Monotonic == "Monotonic",
		result.Monotonic)
}

// SelftestLinearity verifies reported progress tracks elapsed time at least
// as linearly as the device specification requires.
func SelftestLinearity(st *framework.Step, result *selftest.Result, limit float64) error {
	return st.Verify(rqmtSelftestLinearity,
		"Self-test progress shall be linear",
		result.Linearity >= limit,
		result.Linearity)
}

// SmartDataReadAccurate verifies the SMART data-read counter moved by the
// amount of data the workload actually read, within toleranceBytes. The
// SMART attributes are only accurate to their reporting unit, so the
// tolerance accounts for at least one unit per snapshot.
func SmartDataReadAccurate(st *framework.Step, smartDeltaBytes, ioBytes, toleranceBytes float64) error {
	diff := math.Abs(smartDeltaBytes - ioBytes)
	return st.Verify(rqmtSmartDataReadAccurate,
		"SMART data read shall match measured IO",
		diff <= toleranceBytes,
		diff)
}

// SmartDataWrittenAccurate verifies the SMART data-written counter moved by
// the amount of data the workload actually wrote, within toleranceBytes.
func SmartDataWrittenAccurate(st *framework.Step, smartDeltaBytes, ioBytes, toleranceBytes float64) error {
	diff := math.Abs(smartDeltaBytes - ioBytes)
	return st.Verify(rqmtSmartDataWrittenAccurate,
		"SMART data written shall match measured IO",
		diff <= toleranceBytes,
		diff)
}

// SelftestPowerOnHours verifies the power-on-hours counter moved by a
// plausible amount across the diagnostic: never backwards, and by no more
// than the runtime rounded up.
func SelftestPowerOnHours(st *framework.Step, result *selftest.Result) error {
	limit := int(math.Ceil(result.RuntimeMin/60)) + 1
	ok := result.PowerOnHoursDelta >= 0 && result.PowerOnHoursDelta <= limit
	return st.Verify(rqmtSelftestPowerOnHours,
		"Power-on hours change shall match self-test runtime",
		ok,
		result.PowerOnHoursDelta)
}
