package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skillkit/skilleval/pkg/tracker"
)

// TrendsOptions contains all options for the trends command.
type TrendsOptions struct {
	resultsDir string
	limit      int
}

var trendsOptions = &TrendsOptions{}

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show pass-rate trends across tracked runs",
	Long:  "Summarize recent tracked runs (saved with `skilleval run --track`) and their pass rates, newest first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, err := tracker.New(trendsOptions.resultsDir)
		if err != nil {
			return err
		}
		trend, err := tr.Trend(trendsOptions.limit)
		if err != nil {
			return err
		}
		entries, err := tr.Recent(trendsOptions.limit)
		if err != nil {
			return err
		}
		fmt.Print(formatTrend(trend, entries))
		return nil
	},
}

func init() {
	trendsCmd.Flags().StringVar(&trendsOptions.resultsDir, "results-dir", "results", "directory containing tracked result files")
	trendsCmd.Flags().IntVarP(&trendsOptions.limit, "limit", "n", 10, "number of recent runs to include")
}

func formatTrend(trend *tracker.Trend, entries []tracker.Entry) string {
	var b strings.Builder

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Runs:\t%d\n", trend.Count)
	fmt.Fprintf(w, "Latest:\t%.1f%%\n", trend.Latest*100)
	fmt.Fprintf(w, "Average:\t%.1f%%\n", trend.Average*100)
	w.Flush()

	if len(entries) == 0 {
		return b.String()
	}

	b.WriteString("\n")
	w = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tMODEL\tSUITE\tPASS RATE\tCOMMIT")
	for _, e := range entries {
		rate, s := 0.0, ""
		if e.Results != nil {
			rate = e.Results.PassRate
			s = e.Results.Suite
		}
		commit := e.Metadata.GitCommit
		if e.Metadata.GitDirty {
			commit += " (dirty)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f%%\t%s\n",
			e.Metadata.Timestamp.Format("2006-01-02 15:04"), e.Metadata.Model, s, rate*100, commit)
	}
	w.Flush()
	return b.String()
}
