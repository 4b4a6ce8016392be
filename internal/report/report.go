// Package report renders human-readable reports from a completed suite
// results directory. The framework calls it through the Reporter hook so a
// dashboard exists for every run, including aborted ones.
package report

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/jtjones1001/nvmeharness/internal/framework"
)

// DashboardFile is the report written beside result.json.
const DashboardFile = "dashboard.html"

//go:embed dashboard.html.tmpl
var dashboardTemplate string

var dashboard = template.Must(template.New("dashboard").Parse(dashboardTemplate))

// dashboardData is the template input: the persisted suite state plus the
// caller supplied display title and description.
type dashboardData struct {
	Title       string
	Description string
	State       *framework.SuiteState
}

// CreateReports renders dashboard.html from the suite result.json in
// directory. It satisfies framework.Reporter.
func CreateReports(directory, title, description string) error {
	data, err := os.ReadFile(filepath.Join(directory, framework.ResultsFile))
	if err != nil {
		return fmt.Errorf("read suite results: %w", err)
	}
	var state framework.SuiteState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("parse suite results: %w", err)
	}

	out, err := os.Create(filepath.Join(directory, DashboardFile))
	if err != nil {
		return fmt.Errorf("create dashboard: %w", err)
	}
	defer out.Close()

	input := dashboardData{Title: title, Description: description, State: &state}
	if err := dashboard.Execute(out, input); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}
