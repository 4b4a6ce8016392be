package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jtjones1001/nvmeharness/internal/framework"
	"github.com/jtjones1001/nvmeharness/internal/report"
	"github.com/jtjones1001/nvmeharness/internal/store"
	"github.com/jtjones1001/nvmeharness/internal/suites"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	RunID       string
	StopOnFail  bool
	Model       string
	SpecDir     string
	UserSpecDir string
	NoReports   bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <suite>",
		Short: "Run a test suite against an NVMe drive",
		Long: fmt.Sprintf(`Run a builtin test suite or a YAML suite definition file.

Builtin suites: %s

A unique run directory is created under the results root and every case
writes its result.json there. Interrupting the run (Ctrl-C) aborts the
current case, stops the suite, and still writes the suite results.

Example:
  nvmeharness run health --nvme 0 --volume /mnt/nvme0
  nvmeharness run ./mysuite.yaml --nvme 1 --volume /mnt/nvme1 --stop-on-fail`,
			strings.Join(suites.Names(), ", ")),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd.Context(), opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run directory name (default: timestamp)")
	cmd.Flags().BoolVar(&opts.StopOnFail, "stop-on-fail", false, "stop the suite after the first failed case")
	cmd.Flags().StringVar(&opts.Model, "model", "", "device model for the specification lookup")
	cmd.Flags().StringVar(&opts.SpecDir, "spec-dir", "", "directory of default device specifications")
	cmd.Flags().StringVar(&opts.UserSpecDir, "user-spec-dir", "", "directory of user device specifications")
	cmd.Flags().BoolVar(&opts.NoReports, "no-reports", false, "skip report generation")

	return cmd
}

func runSuite(parent context.Context, opts *RunOptions, arg string) error {
	def, err := suites.Resolve(arg)
	if err != nil {
		return WrapExitError(ExitCommandError, "resolve suite", err)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fwOpts := framework.Options{
		Nvme:        opts.Nvme,
		Volume:      opts.Volume,
		RunID:       opts.RunID,
		Verbose:     opts.Verbose,
		StopOnFail:  opts.StopOnFail,
		ResultsRoot: opts.ResultsRoot,
		UserSpecDir: opts.UserSpecDir,
		SpecDir:     opts.SpecDir,
		Model:       opts.Model,
	}
	if !opts.NoReports {
		fwOpts.Reporter = report.CreateReports
	}

	state, err := def.Run(ctx, fwOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "start suite", err)
	}

	if err := recordRun(parent, opts.ResultsRoot, state); err != nil {
		// The run itself succeeded; a broken index is not worth a bad exit
		// code, but the user should know.
		fmt.Printf("warning: run history not recorded: %v\n", err)
	}

	if state.Result != framework.Passed {
		return NewExitError(ExitFailure, fmt.Sprintf("suite result: %s", state.Result))
	}
	return nil
}

// recordRun indexes the finished run in the run-history database.
func recordRun(ctx context.Context, resultsRoot string, state *framework.SuiteState) error {
	path, err := store.DefaultPath(resultsRoot)
	if err != nil {
		return err
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.RecordRun(ctx, state)
}
