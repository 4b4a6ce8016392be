package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jtjones1001/nvmeharness/internal/framework"
	"github.com/jtjones1001/nvmeharness/internal/report"
)

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	NoReports bool
}

// NewUpdateCommand creates the update command. It reconciles an existing
// results directory after manual edits: reviewers may change a
// verification's result, reviewer, or note fields in a case result.json,
// then run update to recompute every rollup and regenerate the reports.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <directory>",
		Short: "Recompute results after manual edits",
		Long: `Recompute a suite results directory from its case result files.

Reviewers may hand-edit verification results, reviewers, and notes in the
case result.json files; update reloads every case, recomputes the case and
suite rollups, rewrites the result files, and regenerates the reports.

Example:
  nvmeharness update ~/nvmeharness/suites/drive_health/20260825_094512`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: level,
			}))

			var reporter framework.Reporter
			if !opts.NoReports {
				reporter = report.CreateReports
			}
			if err := framework.UpdateSuiteFiles(args[0], log, reporter); err != nil {
				return WrapExitError(ExitCommandError, "update suite results", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.NoReports, "no-reports", false, "skip report generation")

	return cmd
}
