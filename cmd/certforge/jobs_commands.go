package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/certforge/certforge/internal/archive"
	"github.com/certforge/certforge/internal/job"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect recorded generation jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsStatusCommand(ctx))
	jobsCmd.AddCommand(newJobsErrorsCommand(ctx))
	jobsCmd.AddCommand(newJobsArchiveCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}
			jobs, err := svc.store.List()
			if err != nil {
				return err
			}

			if asJSON {
				if jobs == nil {
					jobs = []*job.Job{}
				}
				return writeJSON(cmd, jobs)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded")
				return nil
			}

			tableRows := make([][]string, 0, len(jobs))
			for _, j := range jobs {
				tableRows = append(tableRows, []string{
					j.ID,
					string(j.Status),
					fmt.Sprintf("%d/%d", j.ProcessedItems, j.TotalItems),
					strconv.Itoa(j.FailedItems),
					formatTime(j.CreatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Job", "Status", "Progress", "Failed", "Created"},
				tableRows, 2, 3))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit jobs as JSON")
	return cmd
}

func newJobsStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show one job's progress and outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}
			got, err := svc.store.Get(args[0])
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, got)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job: %s\n", got.ID)
			fmt.Fprintf(out, "Status: %s\n", got.Status)
			fmt.Fprintf(out, "Progress: %d/%d (%d ok, %d failed)\n",
				got.ProcessedItems, got.TotalItems, got.SuccessfulItems, got.FailedItems)
			fmt.Fprintf(out, "Created: %s\n", formatTime(got.CreatedAt))
			fmt.Fprintf(out, "Updated: %s\n", formatTime(got.UpdatedAt))
			if got.OutputDir != "" {
				fmt.Fprintf(out, "Output: %s\n", got.OutputDir)
			}
			if got.Archive != "" {
				fmt.Fprintf(out, "Archive: %s\n", got.Archive)
			}
			if template, ok := got.Metadata["template"]; ok {
				fmt.Fprintf(out, "Template: %s\n", template)
			}
			if data, ok := got.Metadata["data"]; ok {
				fmt.Fprintf(out, "Data: %s\n", data)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the job as JSON")
	return cmd
}

func newJobsErrorsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "errors <job-id>",
		Short: "Show a job's per-row failures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}
			failures, err := svc.store.Errors(args[0])
			if err != nil {
				return err
			}

			if asJSON {
				if failures == nil {
					failures = []job.Failure{}
				}
				return writeJSON(cmd, failures)
			}
			if len(failures) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No failures recorded")
				return nil
			}

			tableRows := make([][]string, 0, len(failures))
			for _, failure := range failures {
				tableRows = append(tableRows, []string{
					failure.ItemID,
					failure.Reason,
					formatTime(failure.Timestamp),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Item", "Error", "At"}, tableRows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit failures as JSON")
	return cmd
}

func newJobsArchiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <job-id>",
		Short: "Bundle a job's certificates into a zip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}
			got, err := svc.store.Get(args[0])
			if err != nil {
				return err
			}
			if got.OutputDir == "" {
				return fmt.Errorf("job %s has no generated output to archive", got.ID)
			}

			zipPath := filepath.Join(got.OutputDir, archive.Name(got.ID))
			entries, err := archive.Create(zipPath, got.OutputDir)
			if err != nil {
				return fmt.Errorf("create archive: %w", err)
			}
			if _, err := svc.store.SetArchive(got.ID, zipPath); err != nil {
				return fmt.Errorf("record archive: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Archived %d certificates to %s\n", entries, zipPath)
			return nil
		},
	}
}
