package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"corpus-manager/internal/database"
	"corpus-manager/internal/search"

	"github.com/spf13/cobra"
)

func newSearchCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Query the index",
		Long: `List indexed files matching every given filter.

Without filters all active files are listed. Results are paged; the footer
shows the total number of matches.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			values, _ := filterValues(cmd.Flags())
			params, err := search.ParseParams(values)
			if err != nil {
				return err
			}

			_, db, err := opts.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			page, err := search.NewEngine(db).Query(cmd.Context(), params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(page)
			}
			printPage(out, page)
			return nil
		},
	}

	addFilterFlags(cmd)
	addPagingFlags(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the page as JSON")

	return cmd
}

func printPage(w io.Writer, page *search.Page) {
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No matching files.")
		return
	}

	// path | size | modified
	const sizeWidth, timeWidth = 10, len(timeLayout)
	pathWidth := max(outputWidth(w)-sizeWidth-timeWidth-4, minPathWidth)

	labelColor.Fprintf(w, "%s  %*s  %s\n", padRight("PATH", pathWidth), sizeWidth, "SIZE", "MODIFIED")
	for _, rec := range page.Items {
		line := fmt.Sprintf("%s  %*s  %s", padRight(truncateLeft(rec.Path, pathWidth), pathWidth),
			sizeWidth, formatBytes(rec.Size), formatTime(rec.ModTime))
		if rec.Status == database.StatusDeleted {
			dimColor.Fprintln(w, line+"  (deleted)")
			continue
		}
		fmt.Fprintln(w, line)
	}

	first := page.Offset + 1
	last := page.Offset + len(page.Items)
	fmt.Fprintf(w, "\nShowing %d-%d of %d", first, last, page.Total)
	if page.HasMore() {
		fmt.Fprintf(w, " (next: --offset %d)", last)
	}
	fmt.Fprintln(w)
}
