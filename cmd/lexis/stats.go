package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Build every index and print its statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.warmUp(ctx); err != nil {
			return err
		}

		sum := a.registry.Stats()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tSTATE\tDOCUMENTS\tTERMS\tAVG LENGTH")
		for _, st := range sum.Types {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.1f\n", st.EntityType, st.State, st.Documents, st.Terms, st.AvgLength)
		}
		fmt.Fprintf(w, "total\t\t%d\t%d\t\n", sum.Documents, sum.Terms)
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
