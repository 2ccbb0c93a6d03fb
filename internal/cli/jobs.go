package cli

import (
	"fmt"
	"io"

	"corpus-manager/internal/database"

	"github.com/spf13/cobra"
)

func newJobsCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs [id]",
		Short: "List consolidation jobs or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := opts.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				job, err := db.GetJob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printJob(out, job)
				return nil
			}

			jobs, err := db.ListJobs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printJobs(out, jobs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to list (0 = all)")

	return cmd
}

func printJobs(w io.Writer, jobs []database.ConsolidationJob) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No consolidation jobs.")
		return
	}

	nameWidth := max(outputWidth(w)-36-10-8-6-len(timeLayout)-8, 12)
	labelColor.Fprintf(w, "%-36s  %s  %-9s  %5s  %-8s  %s\n", "ID", padRight("NAME", nameWidth), "STATUS", "FILES", "FORMAT", "CREATED")
	for _, job := range jobs {
		fmt.Fprintf(w, "%-36s  %s  ", job.ID, padRight(truncateLeft(job.Name, nameWidth), nameWidth))
		status := fmt.Sprintf("%-9s", job.Status)
		switch job.Status {
		case database.JobCompleted:
			successColor.Fprint(w, status)
		case database.JobFailed:
			errorColor.Fprint(w, status)
		default:
			warnColor.Fprint(w, status)
		}
		fmt.Fprintf(w, "  %5d  %-8s  %s\n", job.FileCount, job.Format, formatTime(job.CreatedAt))
	}
}
