package cases

import (
	"github.com/jtjones1001/nvmeharness/internal/device"
	"github.com/jtjones1001/nvmeharness/internal/framework"
	"github.com/jtjones1001/nvmeharness/internal/rqmts"
)

// SuiteStartInfo reads the device information at suite start and verifies
// the drive is healthy enough to test. Every suite runs this first: later
// cases and the suite end case compare against the snapshot it records.
func SuiteStartInfo(rt *Runtime) {
	description := `Reads device information at suite start and verifies the drive is not in
an error state before any test runs.`

	rt.Suite.RunCase("Suite start info", description, func(tc *framework.Case) error {
		return tc.RunStep("Read info", "Read device information using nvmecmd.", func(st *framework.Step) error {
			st.StopOnFail = true

			info, err := device.ReadInfo(rt.Ctx, rt.Suite.Nvme, st.Directory, nil)
			if err != nil {
				return err
			}
			rt.StartInfo = info
			rt.Suite.Data["start_info"] = map[string]any{
				"metadata":   info.Metadata,
				"parameters": info.Parameters,
			}

			if err := rqmts.NoCriticalWarnings(st, info); err != nil {
				return err
			}
			return rqmts.NoPriorSelftestFailures(st, info)
		})
	})
}

// SuiteEndInfo reads the device information at suite end and verifies no
// errors or unexpected changes occurred across the whole run. Static
// parameters must not change and SMART counters must not decrease.
func SuiteEndInfo(rt *Runtime) {
	description := `Reads device information at suite end and verifies no critical errors,
warnings, or unexpected parameter changes occurred during the suite.`

	rt.Suite.RunCase("Suite end info", description, func(tc *framework.Case) error {
		if rt.StartInfo == nil {
			return tc.Skip("no start info was recorded")
		}

		var info *device.Info
		err := tc.RunStep("Read info", "Read device information using nvmecmd.", func(st *framework.Step) error {
			read, err := device.ReadInfo(rt.Ctx, rt.Suite.Nvme, st.Directory, rt.StartInfo)
			if err != nil {
				return err
			}
			info = read
			rt.Suite.Data["end_info"] = map[string]any{
				"metadata":   info.Metadata,
				"parameters": info.Parameters,
			}
			return nil
		})
		if err != nil {
			return err
		}

		return tc.RunStep("Verify changes", "Verify no unexpected changes from starting info.", func(st *framework.Step) error {
			if err := rqmts.NoCriticalWarnings(st, info); err != nil {
				return err
			}
			if err := rqmts.NoStaticParameterChanges(st, info.Compare); err != nil {
				return err
			}
			if err := rqmts.NoCounterParameterDecrements(st, info.Compare); err != nil {
				return err
			}
			return rqmts.NoErrorCountChange(st, info.Compare)
		})
	})
}
