// Package suites names the runnable test suites: the builtin compositions
// and user-defined YAML suite files. A suite is a title, a description, and
// an ordered list of case names from the cases registry.
package suites

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jtjones1001/nvmeharness/internal/cases"
	"github.com/jtjones1001/nvmeharness/internal/framework"
)

// Definition is one runnable suite.
type Definition struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Cases       []string `yaml:"cases"`
}

// builtin holds the suite compositions shipped with the harness. Every
// composition starts and ends with the info cases so drive health brackets
// the run.
var builtin = map[string]Definition{
	"devinfo": {
		Title: "Device info",
		Description: `Reads the device information and verifies the drive is healthy.

Short suite for verifying a drive reports no critical warnings, errors, or
prior self-test failures.`,
		Cases: []string{
			"suite_start_info",
		},
	},
	"health": {
		Title: "Drive health",
		Description: `Verifies drive health with the short self-test diagnostic.

Reads device information, runs the short self-test, and verifies no errors
or unexpected changes occurred.`,
		Cases: []string{
			"suite_start_info",
			"short_selftest",
			"suite_end_info",
		},
	},
	"short": {
		Title: "Short drive check",
		Description: `Short drive checkout covering SMART accuracy and the self-test.

Runs the SMART data accuracy case and the short self-test between device
information snapshots.`,
		Cases: []string{
			"suite_start_info",
			"smart_data",
			"short_selftest",
			"suite_end_info",
		},
	},
	"stress": {
		Title: "Drive stress",
		Description: `Stresses the drive with high IOPS workloads.

Runs the high IOPS stress case with background telemetry sampling between
device information snapshots.`,
		Cases: []string{
			"suite_start_info",
			"high_iops_stress",
			"suite_end_info",
		},
	},
	"selftest": {
		Title: "Extended selftest",
		Description: `Runs the extended self-test diagnostic.

Verifies the extended self-test passes within the drive's nominal runtime
with well behaved progress reporting.`,
		Cases: []string{
			"suite_start_info",
			"extended_selftest",
			"suite_end_info",
		},
	},
}

// Names returns the builtin suite names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the suite to run for a command line argument: a builtin
// suite name, or the path of a YAML suite definition file.
func Resolve(arg string) (*Definition, error) {
	if def, ok := builtin[arg]; ok {
		return &def, nil
	}
	if strings.HasSuffix(arg, ".yaml") || strings.HasSuffix(arg, ".yml") {
		return Load(arg)
	}
	return nil, fmt.Errorf("unknown suite %q (builtin suites: %s)", arg, strings.Join(Names(), ", "))
}

// Load reads and parses a YAML suite definition file. Returns an error if
// the file doesn't exist, is malformed, contains unknown fields (typos), is
// missing required fields, or names an unknown test case.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite definition: %w", err)
	}

	// Strict field validation catches typos like "case:" vs "cases:".
	var def Definition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&def); err != nil {
		return nil, fmt.Errorf("parse suite definition: %w", err)
	}

	if err := validate(&def); err != nil {
		return nil, fmt.Errorf("invalid suite definition %s: %w", path, err)
	}
	return &def, nil
}

func validate(def *Definition) error {
	if def.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(def.Cases) == 0 {
		return fmt.Errorf("at least one case is required")
	}
	for _, name := range def.Cases {
		if _, err := cases.Lookup(name); err != nil {
			return err
		}
	}
	return nil
}

// Run creates the suite, runs every case of the definition in order, and
// closes the suite. The definition's title and description override any set
// in opts. The returned state is the final persisted suite result.
func (def *Definition) Run(ctx context.Context, opts framework.Options) (*framework.SuiteState, error) {
	opts.Title = def.Title
	opts.Description = def.Description

	suite, err := framework.New(opts)
	if err != nil {
		return nil, err
	}

	rt := &cases.Runtime{Ctx: ctx, Suite: suite}
	for _, name := range def.Cases {
		fn, err := cases.Lookup(name)
		if err != nil {
			// Unreachable for validated definitions; builtin typos land here.
			suite.Log().Error("unknown test case", "case", name)
			_ = suite.Stop(true)
			break
		}
		fn(rt)
	}

	suite.Close()
	return suite.State(), nil
}
