package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/huntkil/lexis/internal/metrics"
	rebuilduc "github.com/huntkil/lexis/internal/usecase/rebuild"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [type...]",
	Short: "Rebuild entity indexes from the authoritative store",
	Long: `Rebuilds the in-process index of each named entity type, or of every
configured type when none is given, and prints the per-type outcome.

Examples:
  lexis rebuild
  lexis rebuild word user`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var report rebuilduc.Report
		if len(args) == 0 {
			report = a.rebuild.RebuildAll(ctx)
		} else {
			for _, name := range args {
				// the failure is kept in o.Err
				o, _ := a.rebuild.Rebuild(ctx, name)
				report.Outcomes = append(report.Outcomes, o)
			}
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tSTATUS\tDOCUMENTS\tELAPSED")
		for _, o := range report.Outcomes {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", o.EntityType, metrics.StatusOf(o.Err), o.Documents, o.Duration)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		errs := multierr.Errors(report.Err())
		if len(errs) > 0 {
			return fmt.Errorf("%d of %d rebuilds failed: %w", len(errs), len(report.Outcomes), report.Err())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}
