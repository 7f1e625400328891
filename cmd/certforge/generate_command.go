package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/certforge/certforge/internal/config"
	"github.com/certforge/certforge/internal/rows"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var mappings []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "generate <template> <data>",
		Short: "Generate certificates for every row in a data file",
		Long:  "Generate runs a batch synchronously: it reads recipient rows from a CSV\nor XLSX file, renders one certificate per row, and reports the job result.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}
			mapping, err := parseMapping(mappings)
			if err != nil {
				return err
			}
			templatePath, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			dataPath, err := config.ExpandPath(args[1])
			if err != nil {
				return err
			}

			src, err := rows.ReadFile(dataPath)
			if err != nil {
				return fmt.Errorf("read rows: %w", err)
			}

			created, err := svc.store.Create(len(src.Rows), map[string]string{
				"template": templatePath,
				"data":     dataPath,
			})
			if err != nil {
				return fmt.Errorf("create job: %w", err)
			}

			result, err := svc.coordinator.Generate(cmd.Context(), created.ID, templatePath, src, mapping)
			if err != nil {
				return fmt.Errorf("job %s: %w", created.ID, err)
			}

			if asJSON {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s: %d generated, %d failed of %d rows\n",
				result.JobID, result.GeneratedCount, result.FailedCount, result.TotalItems)
			fmt.Fprintf(out, "Output: %s\n", result.OutputDir)
			if result.Archive != "" {
				fmt.Fprintf(out, "Archive: %s\n", result.Archive)
			}

			if result.FailedCount > 0 {
				failures, err := svc.store.Errors(result.JobID)
				if err != nil {
					return fmt.Errorf("read failures: %w", err)
				}
				tableRows := make([][]string, 0, len(failures))
				for _, failure := range failures {
					tableRows = append(tableRows, []string{failure.ItemID, failure.Reason})
				}
				fmt.Fprintln(out, renderTable([]string{"Item", "Error"}, tableRows))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&mappings, "map", "m", nil, "Placeholder mapping KEY=column (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the job result as JSON")
	return cmd
}
