package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect recognition job history",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsStatsCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.requireJobs()
			if err != nil {
				return err
			}
			defer store.Close()

			recent, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, recent)
			}
			if len(recent) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded")
				return nil
			}
			rows := make([][]string, 0, len(recent))
			for _, job := range recent {
				rows = append(rows, []string{
					job.ID,
					job.Filename,
					job.Engine,
					string(job.Status),
					yesNo(job.Cached),
					strconv.FormatFloat(job.ProcessingSeconds, 'f', 2, 64),
					formatTimestamp(job.CreatedAt),
				})
			}
			writeRows(cmd,
				[]string{"ID", "File", "Engine", "Status", "Cached", "Seconds", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.requireJobs()
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("job %s: %w", args[0], err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, job)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Job:        %s\n", job.ID)
			fmt.Fprintf(w, "File:       %s (%s)\n", job.Filename, formatBytes(job.FileSize))
			fmt.Fprintf(w, "Engine:     %s\n", job.Engine)
			if job.Language != "" {
				fmt.Fprintf(w, "Language:   %s\n", job.Language)
			}
			fmt.Fprintf(w, "Status:     %s\n", job.Status)
			fmt.Fprintf(w, "Cached:     %s\n", yesNo(job.Cached))
			if job.CacheKey != "" {
				fmt.Fprintf(w, "Cache key:  %s\n", job.CacheKey)
			}
			fmt.Fprintf(w, "Created:    %s\n", formatTimestamp(job.CreatedAt))
			if job.CompletedAt != nil {
				fmt.Fprintf(w, "Completed:  %s\n", formatTimestamp(*job.CompletedAt))
			}
			fmt.Fprintf(w, "Pages:      %d\n", job.TotalPages)
			fmt.Fprintf(w, "Characters: %d\n", job.TotalCharacters)
			if job.ErrorMessage != "" {
				fmt.Fprintf(w, "Error:      %s\n", job.ErrorMessage)
			}
			return nil
		},
	}
}

func newJobsStatsCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize jobs over a trailing window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.requireJobs()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Statistics(cmd.Context(), days)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, stats)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Period:       %d days\n", stats.PeriodDays)
			fmt.Fprintf(w, "Jobs:         %d (%d ok, %d failed, %d cached)\n",
				stats.TotalJobs, stats.SuccessfulJobs, stats.FailedJobs, stats.CachedJobs)
			fmt.Fprintf(w, "Success rate: %.2f%%\n", stats.SuccessRate)
			fmt.Fprintf(w, "Avg seconds:  %.2f\n", stats.AverageProcessingTime)
			fmt.Fprintf(w, "Pages:        %d\n", stats.TotalPages)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Window size in days")
	return cmd
}
