// Package selftest wraps the vendor self-test diagnostic: it runs the
// device self-test through nvmecmd, then derives runtime and
// progress-reporting quality (monotonicity, linearity) from the recorded
// progress samples.
package selftest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/jtjones1001/nvmeharness/internal/conversions"
)

// summaryFile is written by nvmecmd when the diagnostic completes.
const summaryFile = "selftest.summary.json"

// command builds the nvmecmd invocation. Tests replace it to avoid running
// the real binary.
var command = func(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, "nvmecmd", args...)
}

// Result is the outcome of one self-test diagnostic run.
type Result struct {
	// Passed reports the diagnostic's own verdict.
	Passed bool

	// RuntimeMin is the wall-clock runtime in minutes.
	RuntimeMin float64

	// Monotonic is "Monotonic" when reported progress never went backwards.
	Monotonic string

	// Linearity is the Pearson correlation between elapsed time and reported
	// progress; a well behaved drive reports progress close to linearly.
	Linearity float64

	// PowerOnHoursDelta is the change in the power-on-hours counter across
	// the diagnostic.
	PowerOnHoursDelta int

	// ReturnCode is nvmecmd's exit code, kept for the report.
	ReturnCode int
}

// summary is the JSON document nvmecmd writes for a self-test run.
type summary struct {
	Result       string  `json:"result"`
	RuntimeMin   float64 `json:"runtime min"`
	PowerOnHours struct {
		Start int `json:"start"`
		End   int `json:"end"`
	} `json:"power on hours"`
	Progress []struct {
		ElapsedSec float64 `json:"elapsed sec"`
		Percent    float64 `json:"percent"`
	} `json:"progress"`
}

// Run executes the self-test diagnostic on the given drive. extended selects
// the long diagnostic; limitMin is passed to nvmecmd as the runtime limit.
func Run(ctx context.Context, nvme int, directory string, extended bool, limitMin int) (*Result, error) {
	kind := "short"
	if extended {
		kind = "extended"
	}
	cmd := command(ctx, "selftest",
		"--nvme", fmt.Sprint(nvme),
		"--dir", directory,
		"--type", kind,
		"--limit", fmt.Sprint(limitMin),
	)
	output, err := cmd.CombinedOutput()
	returnCode := 0
	if cmd.ProcessState != nil {
		returnCode = cmd.ProcessState.ExitCode()
	}
	if err != nil && returnCode <= 0 {
		// A cancelled context kills the tool; report the interrupt, not the
		// resulting exec failure, so the case boundary classifies it.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("nvmecmd selftest failed: %w: %s", err, output)
	}

	data, err := os.ReadFile(filepath.Join(directory, summaryFile))
	if err != nil {
		return nil, fmt.Errorf("read selftest summary: %w", err)
	}
	result, err := ParseSummary(data)
	if err != nil {
		return nil, err
	}
	result.ReturnCode = returnCode
	return result, nil
}

// ParseSummary parses the self-test summary document and derives the
// progress-quality measures.
func ParseSummary(data []byte) (*Result, error) {
	var s summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse selftest summary: %w", err)
	}

	times := make([]float64, 0, len(s.Progress))
	percents := make([]float64, 0, len(s.Progress))
	for _, p := range s.Progress {
		times = append(times, p.ElapsedSec)
		percents = append(percents, p.Percent)
	}

	return &Result{
		Passed:            s.Result == "PASSED",
		RuntimeMin:        s.RuntimeMin,
		Monotonic:         conversions.AsMonotonic(percents),
		Linearity:         conversions.AsLinear(times, percents),
		PowerOnHoursDelta: s.PowerOnHours.End - s.PowerOnHours.Start,
	}, nil
}
