package cli

import (
	"errors"
	"fmt"
	"io"

	"corpus-manager/internal/consolidate"
	"corpus-manager/internal/database"
	"corpus-manager/internal/search"

	"github.com/spf13/cobra"
)

func newConsolidateCommand(opts *rootOptions) *cobra.Command {
	var (
		name   string
		format string
		paths  []string
	)

	cmd := &cobra.Command{
		Use:   "consolidate --name NAME (--file PATH... | filters)",
		Short: "Export a selection of indexed files into one document",
		Long: `Write a consolidated artifact for a selection of indexed files.

Select files either explicitly with repeated --file flags, in the given
order, or with the same filters as "search". Filter selections are
re-evaluated against the index at export time. Every export is recorded as
a job; see "jobs".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			values, filtered := filterValues(cmd.Flags())
			if filtered && len(paths) > 0 {
				return errors.New("give either --file or filter flags, not both")
			}

			req := consolidate.Request{
				Name:   name,
				Format: consolidate.Format(format),
				Paths:  paths,
			}
			if len(paths) == 0 {
				params, err := search.ParseParams(values)
				if err != nil {
					return err
				}
				req.Criteria = &params
			}

			cfg, db, err := opts.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			engine := consolidate.NewEngine(db, search.NewEngine(db), cfg.Consolidation.OutputDir)
			if f, err := consolidate.ParseFormat(cfg.Consolidation.DefaultFormat); err == nil {
				engine.SetDefaultFormat(f)
			}

			job, err := engine.Consolidate(cmd.Context(), req)
			if job != nil {
				printJob(cmd.OutOrStdout(), job)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name of the consolidation (required)")
	cmd.Flags().StringVar(&format, "format", "", "Artifact format: markdown, json or text (default from config)")
	cmd.Flags().StringArrayVar(&paths, "file", nil, "Indexed path to include; repeat to select several")
	addFilterFlags(cmd)
	addSortFlags(cmd)
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func printJob(w io.Writer, job *database.ConsolidationJob) {
	headerColor.Fprintf(w, "Job %s\n", job.ID)
	fmt.Fprintf(w, "  Name:     %s\n", job.Name)
	fmt.Fprintf(w, "  Source:   %s\n", job.Source)
	fmt.Fprintf(w, "  Format:   %s\n", job.Format)
	fmt.Fprintf(w, "  Status:   ")
	switch job.Status {
	case database.JobCompleted:
		successColor.Fprintln(w, job.Status)
	case database.JobFailed:
		errorColor.Fprintln(w, job.Status)
	default:
		warnColor.Fprintln(w, job.Status)
	}
	fmt.Fprintf(w, "  Files:    %d\n", job.FileCount)
	fmt.Fprintf(w, "  Created:  %s\n", formatTime(job.CreatedAt))
	if job.OutputPath != "" {
		fmt.Fprintf(w, "  Output:   %s\n", job.OutputPath)
	}
	if job.Error != "" {
		fmt.Fprintf(w, "  Error:    ")
		errorColor.Fprintln(w, job.Error)
	}
	if job.Criteria != "" {
		dimColor.Fprintf(w, "  Criteria: %s\n", job.Criteria)
	}
}
