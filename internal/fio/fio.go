// Package fio wraps the fio IO-load generator: blocking and non-blocking
// workload runs plus management of the target files workloads read and
// write.
package fio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jtjones1001/nvmeharness/internal/conversions"
)

// OutputFile is the JSON report fio writes into the step directory.
const OutputFile = "fio.json"

// eilseq is the errno fio reports for a data verification mismatch.
const eilseq = 84

// command builds the fio invocation. Tests replace it to avoid running the
// real binary.
var command = func(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, "fio", args...)
}

// printer formats large IO counters with thousands grouping for logs.
var printer = message.NewPrinter(language.English)

// Result holds the measured outcome of one fio workload.
type Result struct {
	// ReadIOS and WriteIOS are total completed IOs per direction.
	ReadIOS  int
	WriteIOS int

	// DataReadBytes and DataWriteBytes are total bytes moved per direction.
	DataReadBytes  float64
	DataWriteBytes float64

	// ReadIOPS and WriteIOPS are the measured IO rates.
	ReadIOPS  float64
	WriteIOPS float64

	// ReadBandwidthKiBs and WriteBandwidthKiBs are the measured bandwidths.
	ReadBandwidthKiBs  float64
	WriteBandwidthKiBs float64

	// IOErrors counts jobs that ended with a non-zero error.
	IOErrors int

	// CorruptionErrors counts jobs that failed data verification.
	CorruptionErrors int
}

// DataReadGB returns total data read in decimal gigabytes.
func (r *Result) DataReadGB() float64 { return r.DataReadBytes / conversions.BytesInGB }

// DataWrittenGB returns total data written in decimal gigabytes.
func (r *Result) DataWrittenGB() float64 { return r.DataWriteBytes / conversions.BytesInGB }

// Describe returns a one-line human summary of the measured IO.
func (r *Result) Describe() string {
	return printer.Sprintf("read %d IOs (%.1f GB), wrote %d IOs (%.1f GB)",
		r.ReadIOS, r.DataReadGB(), r.WriteIOS, r.DataWrittenGB())
}

// Run runs a blocking fio workload with the given arguments and parses the
// JSON output from directory. The caller includes --output and
// --output-format=json in args, pointing at OutputFile in directory.
func Run(ctx context.Context, args []string, directory string) (*Result, error) {
	cmd := command(ctx, args...)
	cmd.Dir = directory
	if output, err := cmd.CombinedOutput(); err != nil {
		// A cancelled context kills the tool; report the interrupt, not the
		// resulting exec failure, so the case boundary classifies it.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("fio failed: %w: %s", err, output)
	}
	return readOutput(directory)
}

// Job is a handle to a non-blocking fio workload started with Start.
type Job struct {
	directory string
	cancel    context.CancelFunc
	group     *errgroup.Group
}

// Start launches a fio workload in the background. Use Stop to end it early
// or Wait to block until it completes on its own.
func Start(ctx context.Context, args []string, directory string) (*Job, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmd := command(ctx, args...)
	cmd.Dir = directory
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start fio: %w", err)
	}

	job := &Job{directory: directory, cancel: cancel}
	group, _ := errgroup.WithContext(ctx)
	job.group = group
	group.Go(func() error {
		err := cmd.Wait()
		if ctx.Err() != nil {
			// Stopped on purpose; fio flushes its output on termination.
			return nil
		}
		return err
	})
	return job, nil
}

// Wait blocks until the workload completes and returns its parsed result.
func (j *Job) Wait() (*Result, error) {
	if err := j.group.Wait(); err != nil {
		return nil, fmt.Errorf("fio failed: %w", err)
	}
	return readOutput(j.directory)
}

// Stop terminates the workload early and returns whatever results fio
// managed to write.
func (j *Job) Stop() (*Result, error) {
	j.cancel()
	return j.Wait()
}

func readOutput(directory string) (*Result, error) {
	data, err := os.ReadFile(filepath.Join(directory, OutputFile))
	if err != nil {
		return nil, fmt.Errorf("read fio output: %w", err)
	}
	return ParseOutput(data)
}

// ParseOutput parses fio's JSON report.
func ParseOutput(data []byte) (*Result, error) {
	var raw struct {
		Jobs []struct {
			Error int `json:"error"`
			Read  struct {
				IOBytes  float64 `json:"io_bytes"`
				TotalIOS int     `json:"total_ios"`
				IOPS     float64 `json:"iops"`
				BW       float64 `json:"bw"`
			} `json:"read"`
			Write struct {
				IOBytes  float64 `json:"io_bytes"`
				TotalIOS int     `json:"total_ios"`
				IOPS     float64 `json:"iops"`
				BW       float64 `json:"bw"`
			} `json:"write"`
		} `json:"jobs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse fio output: %w", err)
	}
	if len(raw.Jobs) == 0 {
		return nil, fmt.Errorf("fio output has no jobs")
	}

	result := &Result{}
	for _, job := range raw.Jobs {
		result.ReadIOS += job.Read.TotalIOS
		result.WriteIOS += job.Write.TotalIOS
		result.DataReadBytes += job.Read.IOBytes
		result.DataWriteBytes += job.Write.IOBytes
		result.ReadIOPS += job.Read.IOPS
		result.WriteIOPS += job.Write.IOPS
		result.ReadBandwidthKiBs += job.Read.BW
		result.WriteBandwidthKiBs += job.Write.BW
		if job.Error != 0 {
			result.IOErrors++
			if job.Error == eilseq {
				result.CorruptionErrors++
			}
		}
	}
	return result, nil
}
