// Package cases holds the NVMe test cases that run inside the framework.
// Each case is a named function driving hardware through the collaborator
// wrappers (device, fio, selftest) and recording requirement verifications.
package cases

import (
	"context"
	"fmt"
	"sort"

	"github.com/jtjones1001/nvmeharness/internal/device"
	"github.com/jtjones1001/nvmeharness/internal/framework"
)

// Runtime carries per-run state shared between cases of one suite, such as
// the start-of-suite device snapshot the end-of-suite case compares against.
type Runtime struct {
	Ctx   context.Context
	Suite *framework.Suite

	// StartInfo is recorded by the suite start info case and consumed by the
	// suite end info case.
	StartInfo *device.Info
}

// Func is a runnable test case.
type Func func(rt *Runtime)

// registry maps the case names usable in suite definitions to their
// implementations.
var registry = map[string]Func{
	"suite_start_info":  SuiteStartInfo,
	"suite_end_info":    SuiteEndInfo,
	"smart_data":        SmartData,
	"high_iops_stress":  HighIopsStress,
	"short_selftest":    ShortSelftest,
	"extended_selftest": ExtendedSelftest,
	"firmware_update":   FirmwareUpdate,
	"firmware_activate": FirmwareActivate,
	"firmware_download": FirmwareDownload,
	"firmware_security": FirmwareSecurity,
}

// Lookup resolves a case name from a suite definition.
func Lookup(name string) (Func, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown test case %q", name)
	}
	return fn, nil
}

// Names returns every registered case name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// specFloat reads a numeric threshold from the suite's device
// specification, with a fallback for specifications missing the key.
func specFloat(s *framework.Suite, key string, fallback float64) float64 {
	if value, ok := s.Device[key].(float64); ok {
		return value
	}
	return fallback
}
