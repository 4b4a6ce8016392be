package device

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jtjones1001/nvmeharness/internal/conversions"
)

// Sample is one periodic telemetry reading emitted by nvmecmd in sample
// mode, one JSON object per line on stdout.
type Sample struct {
	TimestampMS    float64           `json:"timestamp ms"`
	Parameters     map[string]string `json:"parameters"`
	AdminLatencyMS float64           `json:"admin latency ms"`
	AdminError     string            `json:"admin error"`
}

// SampleOptions configures a sampling run.
type SampleOptions struct {
	Nvme      int
	Directory string
	Samples   int
	Interval  time.Duration
	CmdFile   string
}

// Samples runs nvmecmd in sample mode in the background and collects the
// periodic readings until stopped. It is the non-blocking telemetry
// collaborator used while IO workloads run: start before the workload, stop
// after it, then verify the aggregate.
type Samples struct {
	// Readings holds every collected sample, valid after Stop returns.
	Readings []Sample

	cancel context.CancelFunc
	group  *errgroup.Group
}

// StartSamples launches the sampler. The samples are also logged by nvmecmd
// into opts.Directory for the report generator.
func StartSamples(ctx context.Context, opts SampleOptions) (*Samples, error) {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.CmdFile == "" {
		opts.CmdFile = "state"
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := command(ctx, "sample",
		"--nvme", fmt.Sprint(opts.Nvme),
		"--dir", opts.Directory,
		"--samples", fmt.Sprint(opts.Samples),
		"--interval", fmt.Sprint(opts.Interval.Milliseconds()),
		"--cmd", opts.CmdFile,
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("attach to nvmecmd: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start nvmecmd sampling: %w", err)
	}

	s := &Samples{cancel: cancel}
	group, _ := errgroup.WithContext(ctx)
	s.group = group

	group.Go(func() error {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			var sample Sample
			if err := json.Unmarshal(scanner.Bytes(), &sample); err != nil {
				continue
			}
			s.Readings = append(s.Readings, sample)
		}
		return scanner.Err()
	})
	group.Go(func() error {
		err := cmd.Wait()
		// Cancellation is the normal way a sampling run ends.
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	return s, nil
}

// Stop ends the sampling run and waits for the collector to drain.
func (s *Samples) Stop() error {
	s.cancel()
	return s.group.Wait()
}

// MinTemperature returns the lowest sampled composite temperature in
// Celsius.
func (s *Samples) MinTemperature() float64 {
	min, _ := s.temperatureRange()
	return min
}

// MaxTemperature returns the highest sampled composite temperature in
// Celsius.
func (s *Samples) MaxTemperature() float64 {
	_, max := s.temperatureRange()
	return max
}

func (s *Samples) temperatureRange() (float64, float64) {
	var min, max float64
	first := true
	for _, sample := range s.Readings {
		value, ok := sample.Parameters["Composite Temperature"]
		if !ok {
			continue
		}
		temp, err := conversions.AsFloat(value)
		if err != nil {
			continue
		}
		if first {
			min, max = temp, temp
			first = false
			continue
		}
		if temp < min {
			min = temp
		}
		if temp > max {
			max = temp
		}
	}
	return min, max
}

// TimeThrottled returns the total sampled time the drive reported thermal
// throttling.
func (s *Samples) TimeThrottled() time.Duration {
	var throttled time.Duration
	for i := 1; i < len(s.Readings); i++ {
		if s.Readings[i].Parameters["Thermal Throttling"] == "Yes" {
			delta := s.Readings[i].TimestampMS - s.Readings[i-1].TimestampMS
			throttled += time.Duration(delta * float64(time.Millisecond))
		}
	}
	return throttled
}

// AdminErrors counts samples whose admin command reported an error.
func (s *Samples) AdminErrors() int {
	errors := 0
	for _, sample := range s.Readings {
		if sample.AdminError != "" {
			errors++
		}
	}
	return errors
}

// AdminLatency returns the average and maximum admin command latency in
// milliseconds across the sampling run.
func (s *Samples) AdminLatency() (avg, max float64) {
	if len(s.Readings) == 0 {
		return 0, 0
	}
	var sum float64
	for _, sample := range s.Readings {
		sum += sample.AdminLatencyMS
		if sample.AdminLatencyMS > max {
			max = sample.AdminLatencyMS
		}
	}
	return sum / float64(len(s.Readings)), max
}

// CompareEnds compares the first and last sample of the run the same way
// two Info snapshots are compared, so the standard no-change requirements
// can be verified over a sampling window.
func (s *Samples) CompareEnds() *Compare {
	if len(s.Readings) < 2 {
		return &Compare{}
	}
	start := &Info{Parameters: s.Readings[0].Parameters}
	end := &Info{Parameters: s.Readings[len(s.Readings)-1].Parameters}
	return CompareInfo(start, end)
}

// WriteSummary persists the collected readings for later inspection.
func (s *Samples) WriteSummary(directory string) error {
	data, err := json.MarshalIndent(s.Readings, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal samples: %w", err)
	}
	path := filepath.Join(directory, "samples.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}
	return nil
}
