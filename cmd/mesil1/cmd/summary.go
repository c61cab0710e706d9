package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"text/tabwriter"

	"github.com/sarchlab/mesil1/datarecording"
	"github.com/sarchlab/mesil1/mem/coherence/stats"
	"github.com/sarchlab/mesil1/mem/trace"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <file.sqlite3>",
	Short: "Summarize a run recorded with run --record.",
	Long: "Summary reads a recording back and prints how the run was " +
		"started, the transactions grouped by request and outcome, and " +
		"the counter totals per kind.",
	Args: cobra.ExactArgs(1),
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().String("requester", "",
		"Only summarize the transactions of this cache.")
}

func runSummary(cmd *cobra.Command, args []string) error {
	reader, err := datarecording.OpenReader(args[0])
	if err != nil {
		return err
	}
	defer reader.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tables, err := reader.Tables(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	if slices.Contains(tables, datarecording.ExecTable) {
		err = printExecInfo(ctx, w, reader)
		if err != nil {
			return err
		}
	}

	if slices.Contains(tables, trace.TransactionTable) {
		requester, _ := cmd.Flags().GetString("requester")

		err = printTransactions(ctx, w, reader, requester)
		if err != nil {
			return err
		}
	}

	if slices.Contains(tables, stats.CountersTable) {
		err = printCounterTotals(ctx, w, reader)
		if err != nil {
			return err
		}
	}

	return nil
}

func printExecInfo(
	ctx context.Context,
	w io.Writer,
	reader *datarecording.Reader,
) error {
	infos, err := datarecording.Query[datarecording.ExecInfo](ctx, reader,
		datarecording.ExecTable, datarecording.Filter{OrderBy: "rowid"})
	if err != nil {
		return err
	}

	for _, info := range infos {
		fmt.Fprintf(w, "%s: %s\n", info.Property, info.Value)
	}

	fmt.Fprintln(w)

	return nil
}

type transactionGroup struct {
	what, outcome string
	count         int
	cycles        uint64
	retries       int
}

func printTransactions(
	ctx context.Context,
	w io.Writer,
	reader *datarecording.Reader,
	requester string,
) error {
	filter := datarecording.Filter{OrderBy: "StartTime"}
	if requester != "" {
		filter.Where = "Requester = ?"
		filter.Args = []any{requester}
	}

	total, err := reader.Count(ctx, trace.TransactionTable, filter)
	if err != nil {
		return err
	}

	entries, err := datarecording.Query[trace.TransactionEntry](ctx, reader,
		trace.TransactionTable, filter)
	if err != nil {
		return err
	}

	groups := map[[2]string]*transactionGroup{}

	for _, e := range entries {
		key := [2]string{e.What, e.Outcome}

		g, ok := groups[key]
		if !ok {
			g = &transactionGroup{what: e.What, outcome: e.Outcome}
			groups[key] = g
		}

		g.count++
		g.cycles += e.EndTime - e.StartTime
		g.retries += e.Retries
	}

	sorted := make([]*transactionGroup, 0, len(groups))
	for _, g := range groups {
		sorted = append(sorted, g)
	}

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].what != sorted[j].what {
			return sorted[i].what < sorted[j].what
		}

		return sorted[i].outcome < sorted[j].outcome
	})

	fmt.Fprintf(w, "Transactions: %d\n", total)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REQUEST\tOUTCOME\tCOUNT\tAVG CYCLES\tRETRIES")

	for _, g := range sorted {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\t%d\n", g.what, g.outcome,
			g.count, float64(g.cycles)/float64(g.count), g.retries)
	}

	tw.Flush()
	fmt.Fprintln(w)

	return nil
}

func printCounterTotals(
	ctx context.Context,
	w io.Writer,
	reader *datarecording.Reader,
) error {
	rows, err := datarecording.Query[stats.CountRow](ctx, reader,
		stats.CountersTable, datarecording.Filter{})
	if err != nil {
		return err
	}

	totals := map[string]uint64{}
	for _, r := range rows {
		totals[r.Kind] += r.Value
	}

	kinds := make([]string, 0, len(totals))
	for k := range totals {
		kinds = append(kinds, k)
	}

	sort.Strings(kinds)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tTOTAL")

	for _, k := range kinds {
		fmt.Fprintf(tw, "%s\t%d\n", k, totals[k])
	}

	tw.Flush()

	return nil
}
