package cases

import (
	"github.com/jtjones1001/nvmeharness/internal/conversions"
	"github.com/jtjones1001/nvmeharness/internal/device"
	"github.com/jtjones1001/nvmeharness/internal/framework"
	"github.com/jtjones1001/nvmeharness/internal/rqmts"
	"github.com/jtjones1001/nvmeharness/internal/selftest"
)

const shortSelftestLimitMin = 2

// ShortSelftest runs the two minute self-test diagnostic and verifies its
// verdict, runtime, and progress reporting.
func ShortSelftest(rt *Runtime) {
	description := `Runs the short self-test diagnostic and verifies it passes within its
two minute limit with well behaved progress reporting.`

	rt.Suite.RunCase("Short selftest", description, func(tc *framework.Case) error {
		return runSelftest(rt, tc, false, shortSelftestLimitMin)
	})
}

// ExtendedSelftest runs the extended self-test diagnostic. The drive's
// reported nominal runtime (EDSTT) is the runtime limit; drives without
// self-test support skip the case.
func ExtendedSelftest(rt *Runtime) {
	description := `Runs the extended self-test diagnostic and verifies it passes within the
drive's nominal runtime with well behaved progress reporting.`

	rt.Suite.RunCase("Extended selftest", description, func(tc *framework.Case) error {
		var limitMin int
		err := tc.RunStep("Test start info", "Read device info and verify self-test support.", func(st *framework.Step) error {
			st.StopOnFail = true

			info, err := device.ReadInfo(rt.Ctx, rt.Suite.Nvme, st.Directory, nil)
			if err != nil {
				return err
			}
			if info.Parameters["Device Self-test Command"] != "Supported" {
				return tc.Skip("Device Self-test Command not supported")
			}
			// EDSTT is the nominal time, not the maximum.
			limitMin, err = conversions.AsInt(info.Parameters["Extended Device Self-test Time (EDSTT)"])
			if err != nil {
				return err
			}
			tc.Data["runtime limit"] = limitMin
			return rqmts.NoCriticalWarnings(st, info)
		})
		if err != nil {
			return err
		}

		return runSelftest(rt, tc, true, limitMin)
	})
}

// runSelftest is the shared diagnostic step for the short and extended
// cases.
func runSelftest(rt *Runtime, tc *framework.Case, extended bool, limitMin int) error {
	tc.Data["linearity limit"] = specFloat(rt.Suite, "Linearity Limit", 0.9)

	return tc.RunStep("Selftest", "Run the self-test diagnostic with nvmecmd.", func(st *framework.Step) error {
		result, err := selftest.Run(rt.Ctx, rt.Suite.Nvme, st.Directory, extended, limitMin)
		if err != nil {
			return err
		}
		tc.Data["selftest runtime min"] = result.RuntimeMin
		tc.Data["selftest return code"] = result.ReturnCode

		if err := rqmts.SelftestPass(st, result); err != nil {
			return err
		}
		if err := rqmts.SelftestRuntime(st, result, float64(limitMin)); err != nil {
			return err
		}
		if err := rqmts.SelftestMonotonicity(st, result); err != nil {
			return err
		}
		if err := rqmts.SelftestLinearity(st, result, specFloat(rt.Suite, "Linearity Limit", 0.9)); err != nil {
			return err
		}
		return rqmts.SelftestPowerOnHours(st, result)
	})
}
