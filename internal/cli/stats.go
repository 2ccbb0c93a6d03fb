package cli

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"

	"corpus-manager/internal/database"
	"corpus-manager/internal/search"

	"github.com/spf13/cobra"
)

func newStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := opts.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := db.CalculateStats(cmd.Context())
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), cfg.Corpus.RootPath, stats)
			return nil
		},
	}
}

func printStats(w io.Writer, root string, stats *database.IndexStats) {
	headerColor.Fprintf(w, "\n=== Corpus %s ===\n\n", root)

	fmt.Fprintf(w, "  Active files:     %d\n", stats.ActiveFiles)
	fmt.Fprintf(w, "  Deleted files:    %d\n", stats.DeletedFiles)
	fmt.Fprintf(w, "  Total size:       %s\n", formatBytes(stats.TotalBytes))
	fmt.Fprintf(w, "  Tags:             %d\n", stats.Tags)
	fmt.Fprintf(w, "  Jobs:             %d\n", stats.Jobs)
	fmt.Fprintf(w, "  Last full index:  %s\n", formatTime(stats.LastFullIndex))
	fmt.Fprintf(w, "  Last index:       %s\n", formatTime(stats.LastIndex))

	printCounts(w, "By extension", stats.ByExtension, "(none)")
	printCounts(w, "By section", stats.BySection, search.RootSection)
}

// printCounts lists counts largest first; empty keys print as emptyLabel.
func printCounts(w io.Writer, title string, counts map[string]int64, emptyLabel string) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintln(w)
	headerColor.Fprintf(w, "%s:\n", title)

	keys := slices.SortedFunc(maps.Keys(counts), func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	for _, k := range keys {
		label := k
		if label == "" {
			label = emptyLabel
		}
		fmt.Fprintf(w, "  %-20s %d\n", label, counts[k])
	}
}
