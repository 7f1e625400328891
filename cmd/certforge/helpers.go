package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/certforge/certforge/internal/rows"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseMapping converts repeated KEY=column flags into a column mapping.
func parseMapping(pairs []string) (rows.Mapping, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	mapping := make(rows.Mapping, len(pairs))
	for _, pair := range pairs {
		key, column, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		column = strings.TrimSpace(column)
		if !ok || key == "" || column == "" {
			return nil, fmt.Errorf("invalid mapping %q: expected KEY=column", pair)
		}
		mapping[key] = column
	}
	return mapping, nil
}

// parseAssignments converts repeated key=value flags into column order and
// a value lookup. Repeating a key overwrites its value without duplicating
// the column.
func parseAssignments(pairs []string) ([]string, map[string]string, error) {
	columns := make([]string, 0, len(pairs))
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, nil, fmt.Errorf("invalid assignment %q: expected key=value", pair)
		}
		if _, seen := values[key]; !seen {
			columns = append(columns, key)
		}
		values[key] = value
	}
	return columns, values, nil
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
