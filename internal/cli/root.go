// Package cli implements the nvmeharness command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose     bool
	Nvme        int
	Volume      string
	ResultsRoot string
}

// NewRootCommand creates the root command for the nvmeharness CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nvmeharness",
		Short: "NVMe drive validation harness",
		Long: `nvmeharness runs validation test suites against NVMe drives and records
structured pass/fail results for every requirement verified.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().IntVarP(&opts.Nvme, "nvme", "n", 0, "NVMe drive number to test")
	cmd.PersistentFlags().StringVar(&opts.Volume, "volume", "", "filesystem volume backing the drive")
	cmd.PersistentFlags().StringVar(&opts.ResultsRoot, "results", "", "parent directory for suite results (default ~/nvmeharness/suites)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewListCommand(opts))

	return cmd
}
