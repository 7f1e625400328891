package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/certforge/certforge/internal/config"
)

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "detect <template>",
		Short: "Detect placeholder regions in a template image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureServices()
			if err != nil {
				return err
			}
			templatePath, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			if force {
				svc.cache.Invalidate(templatePath)
			}
			analysis, err := svc.analyzer.Analyze(cmd.Context(), templatePath)
			if err != nil {
				return fmt.Errorf("analyze template: %w", err)
			}

			if asJSON {
				return writeJSON(cmd, analysis)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Template: %s (%dx%d %s)\n", analysis.Path,
				analysis.Image.Width, analysis.Image.Height, analysis.Image.Format)

			source := "ocr detection"
			if analysis.Manual {
				source = "manual layout"
			}
			fmt.Fprintf(out, "Placeholders: %d (%s)\n", len(analysis.Placeholders), source)

			if len(analysis.Placeholders) > 0 {
				tableRows := make([][]string, 0, len(analysis.Placeholders))
				for _, key := range analysis.Placeholders.Keys() {
					rec := analysis.Placeholders[key]
					tableRows = append(tableRows, []string{
						key,
						strconv.Itoa(rec.Left),
						strconv.Itoa(rec.Top),
						strconv.Itoa(rec.Width),
						strconv.Itoa(rec.Height),
						fmt.Sprintf("%.0f", rec.Confidence),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Key", "Left", "Top", "Width", "Height", "Confidence"},
					tableRows, 1, 2, 3, 4, 5))
			}

			if analysis.Degraded {
				fmt.Fprintln(out, "OCR was unavailable; positions are fallback estimates.")
			}
			if len(analysis.Suggestions) > 0 {
				fmt.Fprintf(out, "Suggested additions: %s\n", strings.Join(analysis.Suggestions, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Bypass the analysis cache")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the full analysis as JSON")
	return cmd
}
