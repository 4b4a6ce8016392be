package cases

import (
	"fmt"
	"path/filepath"

	"github.com/jtjones1001/nvmeharness/internal/conversions"
	"github.com/jtjones1001/nvmeharness/internal/device"
	"github.com/jtjones1001/nvmeharness/internal/fio"
	"github.com/jtjones1001/nvmeharness/internal/framework"
	"github.com/jtjones1001/nvmeharness/internal/rqmts"
)

// smartDataLSB is the reporting unit of the SMART data read/written
// attributes: one unit is 1000 units of 512 bytes.
const smartDataLSB = 512000.0

const smartDataRuntimeSec = 180

// SmartData verifies the SMART data read/written attributes are accurate by
// running a measured IO workload and comparing the attribute deltas against
// the bytes fio actually moved.
func SmartData(rt *Runtime) {
	description := `Verifies the SMART data read and written attributes are accurate by
comparing their change across a measured fio workload. The attributes are
only accurate to 512,000 bytes.`

	rt.Suite.RunCase("SMART data", description, func(tc *framework.Case) error {
		tc.Data["smart data lsb"] = smartDataLSB
		tc.Data["run time sec"] = smartDataRuntimeSec

		var workFile *fio.File
		err := tc.RunStep("Create fio file", "Create the workload file if it does not exist.", func(st *framework.Step) error {
			st.StopOnFail = true
			files := &fio.Files{Directory: st.Directory, Volume: rt.Suite.Volume}
			created, err := files.Create(rt.Ctx, false, true, 0)
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

		var startInfo *device.Info
		err = tc.RunStep("Start info", "Verify the drive is not in an error state.", func(st *framework.Step) error {
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

		var ioResult *fio.Result
		err = tc.RunStep("IO", "Run IO to generate read and write data.", func(st *framework.Step) error {
			args := []string{
				"--direct=1",
				"--thread",
				"--numjobs=1",
				"--allow_file_create=0",
				fmt.Sprintf("--filesize=%d", workFile.Size),
				fmt.Sprintf("--filename=%s", workFile.Path),
				"--verify=crc32c",
				"--verify_state_save=0",
				"--continue_on_error=verify",
				"--rw=rw",
				"--iodepth=8",
				"--bs=1M",
				"--rwmixread=50",
				fmt.Sprintf("--size=%d", workFile.Size),
				fmt.Sprintf("--output=%s", filepath.Join(st.Directory, fio.OutputFile)),
				"--output-format=json",
				"--time_based",
				fmt.Sprintf("--runtime=%d", smartDataRuntimeSec),
				"--name=fio",
			}
			result, err := fio.Run(rt.Ctx, args, st.Directory)
			if err != nil {
				return err
			}
			ioResult = result
			st.Log().Info("io workload complete", "io", result.Describe())

			if err := rqmts.NoIOErrors(st, result); err != nil {
				return err
			}
			return rqmts.NoDataCorruption(st, result)
		})
		if err != nil {
			return err
		}

		return tc.RunStep("End info", "Verify the SMART attributes tracked the measured IO.", func(st *framework.Step) error {
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

			readDelta, err := smartDelta(startInfo, endInfo, "Data Read")
			if err != nil {
				return err
			}
			writeDelta, err := smartDelta(startInfo, endInfo, "Data Written")
			if err != nil {
				return err
			}
			tc.Data["smart read delta"] = readDelta
			tc.Data["smart write delta"] = writeDelta
			tc.Data["fio read bytes"] = ioResult.DataReadBytes
			tc.Data["fio write bytes"] = ioResult.DataWriteBytes

			// Two snapshot roundings plus 1% for background host IO on the
			// shared volume.
			readTolerance := 2*smartDataLSB + 0.01*ioResult.DataReadBytes
			writeTolerance := 2*smartDataLSB + 0.01*ioResult.DataWriteBytes

			if err := rqmts.SmartDataReadAccurate(st, readDelta, ioResult.DataReadBytes, readTolerance); err != nil {
				return err
			}
			return rqmts.SmartDataWrittenAccurate(st, writeDelta, ioResult.DataWriteBytes, writeTolerance)
		})
	})
}

// smartDelta returns the change of a SMART data attribute in bytes between
// two snapshots. The attribute is reported in units of 512,000 bytes.
func smartDelta(start, end *device.Info, name string) (float64, error) {
	startUnits, err := conversions.AsFloat(start.Parameters[name])
	if err != nil {
		return 0, fmt.Errorf("parse start %s: %w", name, err)
	}
	endUnits, err := conversions.AsFloat(end.Parameters[name])
	if err != nil {
		return 0, fmt.Errorf("parse end %s: %w", name, err)
	}
	return (endUnits - startUnits) * smartDataLSB, nil
}
