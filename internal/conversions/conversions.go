// Package conversions provides value parsing and formatting helpers shared
// by the framework, the tool wrappers, and the requirement verifications.
package conversions

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Decimal and binary byte units used when sizing IO workload files and
// reporting drive capacity.
const (
	BytesInGB  = 1e9
	BytesInKiB = 1024
	BytesInGiB = 1024 * 1024 * 1024
)

// ErrIllegalIOString reports a malformed IO workload description.
var ErrIllegalIOString = errors.New("illegal IO string")

// IO describes one IO workload payload parsed from a description such as
// "Random Write, QD32, 4KiB".
type IO struct {
	Pattern string
	Depth   int
	SizeB   int
}

// ParseIO parses a three-field workload description: access pattern, queue
// depth prefixed with QD, and block size in KiB.
func ParseIO(description string) (IO, error) {
	fields := strings.Split(description, ",")
	if len(fields) != 3 {
		return IO{}, ErrIllegalIOString
	}

	io := IO{Pattern: strings.ToLower(strings.TrimSpace(fields[0]))}

	depth := strings.TrimSpace(fields[1])
	if !strings.HasPrefix(depth, "QD") {
		return IO{}, ErrIllegalIOString
	}
	qd, err := strconv.Atoi(depth[2:])
	if err != nil {
		return IO{}, ErrIllegalIOString
	}
	io.Depth = qd

	size := strings.TrimSpace(fields[2])
	if !strings.HasSuffix(size, "KiB") {
		return IO{}, ErrIllegalIOString
	}
	kib, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(size, "KiB")))
	if err != nil {
		return IO{}, ErrIllegalIOString
	}
	io.SizeB = kib * BytesInKiB

	return io, nil
}

// AsInt converts a reported parameter string to an int, removing commas and
// a trailing unit ("1,024 mS" -> 1024).
func AsInt(value string) (int, error) {
	trimmed := stripUnits(value)
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse %q as int: %w", value, err)
	}
	return n, nil
}

// AsFloat converts a reported parameter string to a float, removing commas
// and a trailing unit.
func AsFloat(value string) (float64, error) {
	trimmed := stripUnits(value)
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q as float: %w", value, err)
	}
	return f, nil
}

func stripUnits(value string) string {
	trimmed := strings.ReplaceAll(value, ",", "")
	if i := strings.LastIndex(trimmed, " "); i != -1 {
		trimmed = trimmed[:i]
	}
	return trimmed
}

// AsDuration formats a duration in seconds as H:MM:SS.mmm for the human
// readable duration field in result files.
func AsDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int(seconds)
	millis := int(math.Round((seconds - float64(whole)) * 1000))
	if millis == 1000 {
		whole++
		millis = 0
	}
	return fmt.Sprintf("%d:%02d:%02d.%03d", whole/3600, (whole/60)%60, whole%60, millis)
}

// AsLinear returns the Pearson correlation coefficient between elapsed time
// and reported progress. A self-test reporting progress linearly over time
// scores close to 1. A constant progress series has no defined coefficient
// and scores 0.
func AsLinear(elapsedTime, elapsedProgress []float64) float64 {
	if len(elapsedTime) != len(elapsedProgress) || len(elapsedTime) < 2 {
		return 0
	}
	if allEqual(elapsedProgress) {
		return 0
	}

	meanT := mean(elapsedTime)
	meanP := mean(elapsedProgress)

	var cov, varT, varP float64
	for i := range elapsedTime {
		dt := elapsedTime[i] - meanT
		dp := elapsedProgress[i] - meanP
		cov += dt * dp
		varT += dt * dt
		varP += dp * dp
	}
	if varT == 0 || varP == 0 {
		return 0
	}
	return cov / math.Sqrt(varT*varP)
}

// AsMonotonic reports whether a progress series never reverses direction.
func AsMonotonic(series []float64) string {
	increasing, decreasing := true, true
	for i := 1; i < len(series); i++ {
		diff := series[i] - series[i-1]
		if diff > 0 {
			decreasing = false
		}
		if diff < 0 {
			increasing = false
		}
	}
	if increasing || decreasing {
		return "Monotonic"
	}
	return "NOT Monotonic"
}

func allEqual(series []float64) bool {
	for _, v := range series {
		if v != series[0] {
			return false
		}
	}
	return true
}

func mean(series []float64) float64 {
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}
