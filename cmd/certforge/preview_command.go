package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/certforge/certforge/internal/config"
	"github.com/certforge/certforge/internal/fsutil"
	"github.com/certforge/certforge/internal/imaging"
	"github.com/certforge/certforge/internal/rows"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var assignments []string
	var dataPath string
	var rowIndex int
	var outPath string
	var mappings []string

	cmd := &cobra.Command{
		Use:   "preview <template>",
		Short: "Render a single certificate without recording a job",
		Long:  "Preview renders one certificate from inline --set values or from a row\nof a data file and writes the result as a PNG.",
		Args:  cobra.ExactArgs(1),
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

			var columns []string
			var row rows.Row
			switch {
			case len(assignments) > 0:
				cols, values, err := parseAssignments(assignments)
				if err != nil {
					return err
				}
				columns = cols
				row = rows.NewRow(cols, values)
			case dataPath != "":
				expanded, err := config.ExpandPath(dataPath)
				if err != nil {
					return err
				}
				src, err := rows.ReadFile(expanded)
				if err != nil {
					return fmt.Errorf("read rows: %w", err)
				}
				if rowIndex < 1 || rowIndex > len(src.Rows) {
					return fmt.Errorf("row %d is out of range, source has %d rows", rowIndex, len(src.Rows))
				}
				columns = src.Columns
				row = src.Rows[rowIndex-1]
			default:
				return errors.New("either --set or --data is required")
			}

			img, name, err := svc.coordinator.Preview(cmd.Context(), templatePath, columns, row, mapping)
			if err != nil {
				return fmt.Errorf("render preview: %w", err)
			}

			target := outPath
			if target == "" {
				target = fmt.Sprintf("preview_%s.png", fsutil.SanitizeFilename(name))
			}
			target, err = config.ExpandPath(target)
			if err != nil {
				return err
			}
			if err := imaging.SavePNG(img, target); err != nil {
				return fmt.Errorf("save preview: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Preview for %q written to %s\n", name, target)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&assignments, "set", "s", nil, "Inline value key=value (repeatable)")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "Data file to take the row from")
	cmd.Flags().IntVarP(&rowIndex, "row", "r", 1, "1-based row number within --data")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output PNG path (default preview_<name>.png)")
	cmd.Flags().StringArrayVarP(&mappings, "map", "m", nil, "Placeholder mapping KEY=column (repeatable)")
	return cmd
}
