package cases

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jtjones1001/nvmeharness/internal/conversions"
	"github.com/jtjones1001/nvmeharness/internal/device"
	"github.com/jtjones1001/nvmeharness/internal/fio"
	"github.com/jtjones1001/nvmeharness/internal/framework"
	"github.com/jtjones1001/nvmeharness/internal/rqmts"
)

const (
	stressRuntimeSec  = 180
	stressWorkload    = "Random RW, QD8, 4KiB"
	sampleDelay       = 30 * time.Second
	sampleIntervalSec = 1
)

// HighIopsStress verifies drive reliability under high IO-per-second
// stress: small blocks at high queue depth, reads and writes mixed, with
// SMART and power state telemetry sampled throughout.
func HighIopsStress(rt *Runtime) {
	description := `Verifies drive reliability under high IOPS stress. High IO rates are
obtained with small block sizes and a large queue depth while SMART and
power state telemetry is sampled in the background.`

	rt.Suite.RunCase("High iops stress", description, func(tc *framework.Case) error {
		var startInfo *device.Info
		err := tc.RunStep("Test start info", "Read device info and stop if critical warnings found.", func(st *framework.Step) error {
			st.StopOnFail = true
			info, err := device.ReadInfo(rt.Ctx, rt.Suite.Nvme, st.Directory, nil)
			if err != nil {
				return err
			}
			startInfo = info
			return rqmts.NoCriticalWarnings(st, info)
		})
		if err != nil {
			return err
		}

		var workFile *fio.File
		err = tc.RunStep("Create fio file", "Use the big stress file if present, else a small verified file.", func(st *framework.Step) error {
			st.StopOnFail = true
			files := &fio.Files{Directory: st.Directory, Volume: rt.Suite.Volume}
			diskSize, err := conversions.AsFloat(startInfo.Parameters["Size"])
			if err != nil {
				diskSize = 0
			}
			created, err := files.Create(rt.Ctx, diskSize > 0, true, diskSize)
			if err != nil {
				return err
			}
			workFile = created
			tc.Data["file size"] = workFile.Size
			tc.Data["file size gb"] = float64(workFile.Size) / conversions.BytesInGB
			tc.Data["fio filepath"] = workFile.Path
			return nil
		})
		if err != nil {
			return err
		}

		var samples *device.Samples
		err = tc.RunStep("Sample info", "Start sampling SMART and power state info every second.", func(st *framework.Step) error {
			started, err := device.StartSamples(rt.Ctx, device.SampleOptions{
				Nvme:      rt.Suite.Nvme,
				Directory: st.Directory,
				Samples:   100000,
				Interval:  sampleIntervalSec * time.Second,
				CmdFile:   "state",
			})
			if err != nil {
				return err
			}
			samples = started
			return nil
		})
		if err != nil {
			return err
		}

		err = tc.RunStep("IO stress", "Run high IOPS stress with fio.", func(st *framework.Step) error {
			workload, err := conversions.ParseIO(stressWorkload)
			if err != nil {
				return err
			}
			tc.Data["io workload"] = stressWorkload
			tc.Data["block size"] = workload.SizeB
			tc.Data["queue depth"] = workload.Depth
			tc.Data["run time sec"] = stressRuntimeSec

			st.Log().Debug("waiting before starting IO", "delay", sampleDelay)
			sleep(rt.Ctx, sampleDelay)

			args := []string{
				"--direct=1",
				"--thread",
				"--numjobs=1",
				fmt.Sprintf("--filesize=%d", workFile.Size),
				fmt.Sprintf("--filename=%s", workFile.Path),
				"--rw=randrw",
				"--rwmixread=50",
				fmt.Sprintf("--iodepth=%d", workload.Depth),
				fmt.Sprintf("--bs=%d", workload.SizeB),
				"--verify=crc32c",
				"--verify_state_save=0",
				"--continue_on_error=verify",
				fmt.Sprintf("--output=%s", filepath.Join(st.Directory, fio.OutputFile)),
				"--output-format=json",
				"--time_based",
				fmt.Sprintf("--runtime=%d", stressRuntimeSec),
				"--name=fio",
			}
			result, err := fio.Run(rt.Ctx, args, st.Directory)
			if err != nil {
				return err
			}
			if err := rqmts.NoIOErrors(st, result); err != nil {
				return err
			}
			if err := rqmts.NoDataCorruption(st, result); err != nil {
				return err
			}

			tc.Data["read"] = fmt.Sprintf("%0.1f GB", result.DataReadGB())
			tc.Data["read IOPS"] = fmt.Sprintf("%0.1f K", float64(result.ReadIOS)/(stressRuntimeSec*1000))
			tc.Data["written"] = fmt.Sprintf("%0.1f GB", result.DataWrittenGB())
			tc.Data["write IOPS"] = fmt.Sprintf("%0.1f K", float64(result.WriteIOS)/(stressRuntimeSec*1000))

			st.Log().Debug("waiting before stopping samples", "delay", sampleDelay)
			sleep(rt.Ctx, sampleDelay)
			return nil
		})
		if err != nil {
			_ = samples.Stop()
			return err
		}

		err = tc.RunStep("Verify samples", "Stop sampling and verify no sample errors.", func(st *framework.Step) error {
			if err := samples.Stop(); err != nil {
				return err
			}
			if err := samples.WriteSummary(st.Directory); err != nil {
				return err
			}

			cmp := samples.CompareEnds()
			if err := rqmts.NoCounterParameterDecrements(st, cmp); err != nil {
				return err
			}
			if err := rqmts.NoErrorCountChange(st, cmp); err != nil {
				return err
			}
			if err := rqmts.AdminCommandsPass(st, samples); err != nil {
				return err
			}
			avgLimit := specFloat(rt.Suite, "Average Admin Cmd Limit mS", 50)
			if err := rqmts.AdminCommandAvgLatency(st, samples, avgLimit); err != nil {
				return err
			}
			maxLimit := specFloat(rt.Suite, "Maximum Admin Cmd Limit mS", 500)
			if err := rqmts.AdminCommandMaxLatency(st, samples, maxLimit); err != nil {
				return err
			}

			tc.Data["min temp"] = samples.MinTemperature()
			tc.Data["max temp"] = samples.MaxTemperature()
			tc.Data["time throttled"] = samples.TimeThrottled().String()
			return nil
		})
		if err != nil {
			return err
		}

		return tc.RunStep("Test end info", "Verify no errors or unexpected changes during test.", func(st *framework.Step) error {
			endInfo, err := device.ReadInfo(rt.Ctx, rt.Suite.Nvme, st.Directory, startInfo)
			if err != nil {
				return err
			}
			if err := rqmts.NoCriticalWarnings(st, endInfo); err != nil {
				return err
			}
			if err := rqmts.NoErrorCountChange(st, endInfo.Compare); err != nil {
				return err
			}
			if err := rqmts.NoStaticParameterChanges(st, endInfo.Compare); err != nil {
				return err
			}
			return rqmts.NoCounterParameterDecrements(st, endInfo.Compare)
		})
	})
}

// sleep waits for d or until the run is interrupted, whichever comes first.
func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
