package framework

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// loadDeviceSpecification resolves the device specification record supplying
// pass/fail thresholds to verifications. Lookup order: a user override file
// named after the normalized model string, the bundled file for that model,
// then the bundled generic default. First existing file wins. With no file
// found the built-in generic thresholds are used.
func loadDeviceSpecification(userDir, specDir, model string) (map[string]any, string, error) {
	filename := "default.json"
	if model != "" {
		filename = strings.ReplaceAll(model, " ", "") + ".json"
	}

	candidates := []string{}
	if userDir != "" {
		candidates = append(candidates, filepath.Join(userDir, filename))
	}
	if specDir != "" {
		candidates = append(candidates,
			filepath.Join(specDir, filename),
			filepath.Join(specDir, "default.json"),
		)
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("read device specification: %w", err)
		}
		spec := map[string]any{}
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, "", fmt.Errorf("parse device specification %s: %w", path, err)
		}
		return spec, path, nil
	}

	return defaultDeviceSpecification(), "", nil
}

// defaultDeviceSpecification holds the generic thresholds used when no
// specification file exists for the device model.
func defaultDeviceSpecification() map[string]any {
	return map[string]any{
		"Client Drive":               true,
		"TBW":                        600.0,
		"Warranty Years":             5.0,
		"Throttle Percent Limit":     1.0,
		"Linearity Limit":            0.9,
		"Average Admin Cmd Limit mS": 50.0,
		"Maximum Admin Cmd Limit mS": 500.0,
	}
}
