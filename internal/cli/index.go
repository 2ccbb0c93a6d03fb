package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"corpus-manager/internal/indexer"

	"github.com/spf13/cobra"
)

func newIndexCommand(opts *rootOptions) *cobra.Command {
	var incremental, verify bool

	cmd := &cobra.Command{
		Use:   "index [subpath...]",
		Short: "Scan the corpus and update the index",
		Long: `Scan the corpus root and reconcile it with the index.

A full run (the default) walks the whole tree and marks files that are gone
as deleted. An incremental run may be limited to subpaths and never marks
anything deleted. --verify re-fingerprints every file instead of trusting
unchanged size and modification time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && !incremental {
				return errors.New("subpaths require --incremental")
			}
			return runIndex(cmd, opts, incremental, indexer.RunOptions{Verify: verify}, args)
		},
	}

	cmd.Flags().BoolVar(&incremental, "incremental", false, "Run incrementally (no deletion detection)")
	cmd.Flags().BoolVar(&verify, "verify", false, "Re-fingerprint every file")

	return cmd
}

func runIndex(cmd *cobra.Command, opts *rootOptions, incremental bool, runOpts indexer.RunOptions, subpaths []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, db, err := opts.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	idx, err := indexer.New(db, cfg.IndexerConfig(false))
	if err != nil {
		return fmt.Errorf("configure indexer: %w", err)
	}
	defer idx.Stop()

	var stats indexer.RunStats
	if incremental {
		stats, err = idx.RunIncremental(ctx, runOpts, subpaths...)
	} else {
		stats, err = idx.RunFull(ctx, runOpts)
	}

	out := cmd.OutOrStdout()
	switch {
	case errors.Is(err, indexer.ErrRunInProgress):
		return errors.New("another index run is in progress")
	case errors.Is(err, context.Canceled):
		printRunStats(out, idx.Root(), stats)
		warnColor.Fprintln(out, "Run interrupted; committed batches are kept.")
		return err
	case err != nil:
		var storeErr *indexer.StoreError
		if errors.As(err, &storeErr) {
			printRunStats(out, idx.Root(), storeErr.Stats)
		}
		return err
	}

	printRunStats(out, idx.Root(), stats)
	return nil
}

func printRunStats(w io.Writer, root string, stats indexer.RunStats) {
	headerColor.Fprintf(w, "\n=== %s index of %s ===\n\n", stats.Mode, root)

	fmt.Fprintf(w, "  New:        ")
	successColor.Fprintf(w, "%d\n", stats.New)
	fmt.Fprintf(w, "  Updated:    ")
	warnColor.Fprintf(w, "%d\n", stats.Updated)
	fmt.Fprintf(w, "  Unchanged:  %d\n", stats.Unchanged)
	fmt.Fprintf(w, "  Deleted:    ")
	errorColor.Fprintf(w, "%d\n", stats.Deleted)
	fmt.Fprintf(w, "  Total:      %d\n", stats.Total)
	fmt.Fprintf(w, "  Hashed:     %d\n", stats.Hashed)

	if stats.ScanErrors > 0 || stats.ReadErrors > 0 {
		fmt.Fprintf(w, "  Errors:     ")
		errorColor.Fprintf(w, "%d scan, %d read\n", stats.ScanErrors, stats.ReadErrors)
	}
	fmt.Fprintf(w, "  Duration:   %v\n", stats.Duration.Round(time.Millisecond))
}
