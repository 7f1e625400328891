package rows

import (
	"errors"
	"fmt"
	"strings"

	"github.com/certforge/certforge/internal/placeholder"
)

// Mapping assigns placeholder keys to source columns. Keys are compared
// in normalized form, so {"name": "Employee"} and {"NAME": "Employee"}
// are equivalent.
type Mapping map[string]string

// nameHeaderVariants are the normalized headers recognized as carrying
// the certificate name when no mapping says otherwise, in preference
// order.
var nameHeaderVariants = []string{"NAME", "FULL_NAME", "FULLNAME", "PARTICIPANT", "STUDENT", "RECIPIENT"}

// Binder resolves placeholder values against one source's columns.
// Build it once per source; it is read-only afterwards.
type Binder struct {
	mapped     map[string]string // normalized placeholder key -> column
	normalized map[string]string // normalized header -> original header
	nameColumn string
}

// NewBinder prepares resolution for the given columns and mapping.
func NewBinder(columns []string, mapping Mapping) *Binder {
	b := &Binder{
		mapped:     make(map[string]string, len(mapping)),
		normalized: make(map[string]string, len(columns)),
	}
	for key, column := range mapping {
		norm := placeholder.NormalizeKey(key)
		column = strings.TrimSpace(column)
		if norm == "" || column == "" {
			continue
		}
		b.mapped[norm] = column
	}
	for _, column := range columns {
		norm := placeholder.NormalizeKey(column)
		if norm == "" {
			continue
		}
		// First header wins when two normalize identically.
		if _, ok := b.normalized[norm]; !ok {
			b.normalized[norm] = column
		}
	}
	b.nameColumn = b.resolveNameColumn(columns)
	return b
}

func (b *Binder) resolveNameColumn(columns []string) string {
	if column, ok := b.mapped["NAME"]; ok {
		return column
	}
	for _, variant := range nameHeaderVariants {
		if column, ok := b.normalized[variant]; ok {
			return column
		}
	}
	if len(columns) > 0 {
		return columns[0]
	}
	return ""
}

// NameColumn returns the column that feeds the mandatory certificate
// name. Empty means the source had no columns at all.
func (b *Binder) NameColumn() string { return b.nameColumn }

// Name returns the trimmed name value for a row. A missing column or an
// empty value is an error; such rows produce no certificate.
func (b *Binder) Name(row Row) (string, error) {
	if b.nameColumn == "" {
		return "", errors.New("no name column available")
	}
	value, ok := row.Value(b.nameColumn)
	if !ok {
		return "", fmt.Errorf("name column %q not present in row", b.nameColumn)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("empty name value")
	}
	return value, nil
}

// Value resolves the value feeding a placeholder key. An explicit mapping
// wins over normalized header matching; ok is false when no column
// serves the key.
func (b *Binder) Value(row Row, key string) (string, bool) {
	norm := placeholder.NormalizeKey(key)
	column, ok := b.mapped[norm]
	if !ok {
		column, ok = b.normalized[norm]
	}
	if !ok {
		return "", false
	}
	value, present := row.Value(column)
	if !present {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// ValidateMapping checks a mapping against the source columns and the
// template's placeholder keys, reporting every problem at once. The
// special "name" key is always accepted since the name need not have a
// placeholder of its own.
func ValidateMapping(mapping Mapping, columns []string, placeholderKeys []string) error {
	known := make(map[string]bool, len(placeholderKeys))
	for _, key := range placeholderKeys {
		known[placeholder.NormalizeKey(key)] = true
	}
	cols := make(map[string]bool, len(columns))
	for _, c := range columns {
		cols[c] = true
	}

	var errs []error
	for key, column := range mapping {
		norm := placeholder.NormalizeKey(key)
		if norm == "" {
			errs = append(errs, fmt.Errorf("mapping key %q is not usable", key))
			continue
		}
		if norm != "NAME" && !known[norm] {
			errs = append(errs, fmt.Errorf("mapping key %q matches no template placeholder", key))
		}
		if !cols[strings.TrimSpace(column)] {
			errs = append(errs, fmt.Errorf("mapped column %q not found in source", column))
		}
	}
	return errors.Join(errs...)
}

// PreviewEntry shows how one row would resolve during generation.
type PreviewEntry struct {
	RowIndex int               `json:"row_index"`
	Name     string            `json:"name,omitempty"`
	NameErr  string            `json:"name_error,omitempty"`
	Values   map[string]string `json:"values"`
}

// Preview resolves the first n rows the way generation would, without
// rendering anything. Row indices are 1-based; n <= 0 previews every
// row.
func Preview(src *Source, mapping Mapping, placeholderKeys []string, n int) []PreviewEntry {
	binder := NewBinder(src.Columns, mapping)
	if n <= 0 || n > len(src.Rows) {
		n = len(src.Rows)
	}
	entries := make([]PreviewEntry, 0, n)
	for i := 0; i < n; i++ {
		row := src.Rows[i]
		entry := PreviewEntry{RowIndex: i + 1, Values: make(map[string]string)}
		if name, err := binder.Name(row); err != nil {
			entry.NameErr = err.Error()
		} else {
			entry.Name = name
		}
		for _, key := range placeholderKeys {
			if value, ok := binder.Value(row, key); ok && value != "" {
				entry.Values[placeholder.NormalizeKey(key)] = value
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
