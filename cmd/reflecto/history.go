package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent mirrorlist generation runs",
		Long: `Show the most recent mirrorlist generation runs recorded in the local
database: when each run happened, how many mirrors the feed contained,
how many survived filtering, and where the output went.`,
		Example: `  reflecto history
  reflecto history --limit 5`,
		RunE: historyRun,
	}

	cmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show")

	return cmd
}

func historyRun(cmd *cobra.Command, args []string) error {
	if globalStore == nil {
		return fmt.Errorf("store not initialized")
	}

	runs, err := globalStore.RecentRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No generation runs recorded yet")
		return nil
	}

	fmt.Printf("%-20s %8s %9s %11s %-8s %-22s %s\n",
		"Started", "Mirrors", "Retained", "Sort", "Status", "Output", "Error")
	fmt.Println(strings.Repeat("-", 90))

	for _, r := range runs {
		output := r.OutputPath
		if output == "" {
			output = "(stdout)"
		}
		sortLabel := r.SortKey
		if r.Limit >= 0 {
			sortLabel = fmt.Sprintf("%s/%d", r.SortKey, r.Limit)
		}
		fmt.Printf("%-20s %8d %9d %11s %-8s %-22s %s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.TotalMirrors,
			r.Retained,
			sortLabel,
			r.Status,
			output,
			r.ErrorMessage,
		)
	}

	return nil
}
