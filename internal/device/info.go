// Package device wraps the vendor nvmecmd utility: point-in-time information
// snapshots, snapshot comparison, and periodic telemetry sampling.
package device

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/jtjones1001/nvmeharness/internal/conversions"
)

// infoFile is written by nvmecmd into the step directory.
const infoFile = "nvme.info.json"

// command builds the nvmecmd invocation. Tests replace it to avoid running
// the real binary.
var command = func(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, "nvmecmd", args...)
}

// Info is a snapshot of device parameters and counters at a point in time.
type Info struct {
	// Nvme is the drive number the snapshot was read from.
	Nvme int

	// Metadata describes the reading itself (tool version, timestamps).
	Metadata map[string]any

	// Parameters maps human readable parameter names to reported values,
	// e.g. "Critical Warnings" -> "No".
	Parameters map[string]string

	// FullParameters carries every reported field including vendor extras.
	FullParameters map[string]string

	// Compare holds the comparison against a prior snapshot, when one was
	// given to ReadInfo.
	Compare *Compare
}

// Compare is the result of comparing two snapshots of the same drive.
type Compare struct {
	// StaticChanges lists identity parameters (model, serial, firmware) that
	// changed between snapshots. Any entry is a defect.
	StaticChanges []ParameterChange

	// CounterDecrements lists monotonic counters that decreased or reset.
	CounterDecrements []ParameterChange

	// ErrorCountDelta is the change in logged error count.
	ErrorCountDelta int
}

// ParameterChange records one parameter differing between snapshots.
type ParameterChange struct {
	Name   string
	Before string
	After  string
}

// staticParameters must never change across readings of one drive.
var staticParameters = []string{
	"Model",
	"Serial Number",
	"Firmware Revision",
	"Size",
	"Model No Spaces",
}

// counterParameters must never decrease across readings of one drive.
var counterParameters = []string{
	"Power On Hours",
	"Power Cycles",
	"Data Read",
	"Data Written",
	"Unsafe Shutdowns",
	"Number Of Failed Self-Tests",
}

// ReadInfo reads a device snapshot with nvmecmd into directory and parses
// it. When compare is non-nil the snapshot also carries the comparison
// against that prior snapshot.
func ReadInfo(ctx context.Context, nvme int, directory string, compare *Info) (*Info, error) {
	cmd := command(ctx, "read",
		"--nvme", fmt.Sprint(nvme),
		"--dir", directory,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		// A cancelled context kills the tool; report the interrupt, not the
		// resulting exec failure, so the case boundary classifies it.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("nvmecmd read failed: %w: %s", err, output)
	}

	data, err := os.ReadFile(filepath.Join(directory, infoFile))
	if err != nil {
		return nil, fmt.Errorf("read device info: %w", err)
	}
	info, err := ParseInfo(data)
	if err != nil {
		return nil, err
	}
	info.Nvme = nvme
	if compare != nil {
		info.Compare = CompareInfo(compare, info)
	}
	return info, nil
}

// ParseInfo parses the JSON snapshot nvmecmd writes.
func ParseInfo(data []byte) (*Info, error) {
	var raw struct {
		Metadata       map[string]any    `json:"metadata"`
		Parameters     map[string]string `json:"parameters"`
		FullParameters map[string]string `json:"full parameters"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse device info: %w", err)
	}
	if len(raw.Parameters) == 0 {
		return nil, fmt.Errorf("device info has no parameters")
	}
	if raw.FullParameters == nil {
		raw.FullParameters = raw.Parameters
	}
	return &Info{
		Metadata:       raw.Metadata,
		Parameters:     raw.Parameters,
		FullParameters: raw.FullParameters,
	}, nil
}

// CompareInfo compares a later snapshot against an earlier one of the same
// drive.
func CompareInfo(start, end *Info) *Compare {
	cmp := &Compare{}

	for _, name := range staticParameters {
		before, okBefore := start.Parameters[name]
		after, okAfter := end.Parameters[name]
		if okBefore && okAfter && before != after {
			cmp.StaticChanges = append(cmp.StaticChanges, ParameterChange{
				Name: name, Before: before, After: after,
			})
		}
	}

	for _, name := range counterParameters {
		before, okBefore := counterValue(start, name)
		after, okAfter := counterValue(end, name)
		if okBefore && okAfter && after < before {
			cmp.CounterDecrements = append(cmp.CounterDecrements, ParameterChange{
				Name:   name,
				Before: start.Parameters[name],
				After:  end.Parameters[name],
			})
		}
	}

	startErrors, _ := counterValue(start, "Error Information Log Entries")
	endErrors, _ := counterValue(end, "Error Information Log Entries")
	cmp.ErrorCountDelta = endErrors - startErrors

	return cmp
}

// counterValue parses a numeric counter parameter, tolerating commas and
// units in the reported string.
func counterValue(info *Info, name string) (int, bool) {
	value, ok := info.Parameters[name]
	if !ok {
		return 0, false
	}
	n, err := conversions.AsInt(value)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CriticalWarnings returns the reported critical warning indicator, "N/A"
// when the drive did not report one.
func (i *Info) CriticalWarnings() string {
	if value, ok := i.Parameters["Critical Warnings"]; ok {
		return value
	}
	return "N/A"
}
