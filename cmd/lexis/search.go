package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/huntkil/lexis/internal/domain/search/filter"
	"github.com/huntkil/lexis/internal/domain/search/order"
	"github.com/huntkil/lexis/internal/domain/search/request"
)

var searchFlags struct {
	types     []string
	filters   []string
	sort      string
	limit     int
	offset    int
	highlight bool
	json      bool
}

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Run a one-off query against freshly built indexes",
	Long: `Builds every index from the authoritative store, runs one query and
prints the ranked page.

Examples:
  lexis search "quick fox"
  lexis search apple --type word --filter word.lang:en --sort name
  lexis search apple --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		filters, err := filter.Parse(searchFlags.filters)
		if err != nil {
			return err
		}
		o, err := order.Parse(searchFlags.sort)
		if err != nil {
			return err
		}

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.warmUp(ctx); err != nil {
			return err
		}

		req, err := request.New(strings.Join(args, " "), searchFlags.types, filters, o,
			searchFlags.limit, searchFlags.offset, searchFlags.highlight,
			request.Limits{Default: a.cfg.Search.DefaultLimit, Max: a.cfg.Search.MaxLimit})
		if err != nil {
			return err
		}
		page, err := a.search.Search(ctx, req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if searchFlags.json {
			type item struct {
				ID         int64             `json:"id"`
				EntityType string            `json:"entity_type"`
				Score      float64           `json:"score"`
				URL        string            `json:"url"`
				Fields     map[string]string `json:"fields"`
			}
			items := make([]item, 0, len(page.Results()))
			for _, r := range page.Results() {
				items = append(items, item{r.ID(), r.EntityType(), r.Score(), r.URL(), r.Fields()})
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"total": page.Total(), "has_more": page.HasMore(), "items": items})
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tID\tSCORE\tURL")
		for _, r := range page.Results() {
			fmt.Fprintf(w, "%s\t%d\t%.4f\t%s\n", r.EntityType(), r.ID(), r.Score(), r.URL())
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d of %d results (%s)\n", len(page.Results()), page.Total(), page.Elapsed())
		if u := page.Unavailable(); len(u) > 0 {
			fmt.Fprintf(out, "unavailable: %s\n", strings.Join(u, ", "))
		}
		return nil
	},
}

func init() {
	f := searchCmd.Flags()
	f.StringSliceVarP(&searchFlags.types, "type", "t", nil, "entity types to search (default: all)")
	f.StringArrayVarP(&searchFlags.filters, "filter", "f", nil, "attribute filter type.attr:v1,v2 (repeatable)")
	f.StringVarP(&searchFlags.sort, "sort", "s", "", "sort mode: relevance, date or name")
	f.IntVarP(&searchFlags.limit, "limit", "n", 0, "page size")
	f.IntVar(&searchFlags.offset, "offset", 0, "results to skip")
	f.BoolVar(&searchFlags.highlight, "highlight", false, "highlight matched terms")
	f.BoolVar(&searchFlags.json, "json", false, "print JSON")
	rootCmd.AddCommand(searchCmd)
}
