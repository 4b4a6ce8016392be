package cli

import (
	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command, a shorthand for running the
// health suite.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the drive health suite",
		Long: `Run the drive health suite: device information, the short self-test
diagnostic, and a final change verification. Exits 0 when the drive passes.

Example:
  nvmeharness check --nvme 0 --volume /mnt/nvme0`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd.Context(), opts, "health")
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run directory name (default: timestamp)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "device model for the specification lookup")
	cmd.Flags().StringVar(&opts.SpecDir, "spec-dir", "", "directory of default device specifications")
	cmd.Flags().StringVar(&opts.UserSpecDir, "user-spec-dir", "", "directory of user device specifications")
	cmd.Flags().BoolVar(&opts.NoReports, "no-reports", false, "skip report generation")

	return cmd
}
