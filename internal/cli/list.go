package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jtjones1001/nvmeharness/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Limit int
}

// NewListCommand creates the list command printing the run history.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List past suite runs",
		Long: `List past suite runs from the run-history index, newest first.

Example:
  nvmeharness list
  nvmeharness list --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := store.DefaultPath(opts.ResultsRoot)
			if err != nil {
				return WrapExitError(ExitCommandError, "resolve run index", err)
			}
			st, err := store.Open(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "open run index", err)
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), opts.Limit)
			if err != nil {
				return WrapExitError(ExitCommandError, "list runs", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "START\tSUITE\tRESULT\tMODEL\tTESTS\tFAILED\tDIRECTORY")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					r.StartTime, r.Title, r.Result, r.Model,
					r.TestsTotal, r.TestsFail, r.Directory)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 for all)")

	return cmd
}
