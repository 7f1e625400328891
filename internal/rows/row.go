package rows

// Row is one record from a tabular source: column names in source order
// with their string values. A Row is immutable once constructed.
type Row struct {
	columns []string
	values  map[string]string
}

// NewRow builds a Row from columns and their values. Both inputs are
// copied; columns without a value entry read as empty strings.
func NewRow(columns []string, values map[string]string) Row {
	cols := make([]string, len(columns))
	copy(cols, columns)
	vals := make(map[string]string, len(values))
	for k, v := range values {
		vals[k] = v
	}
	return Row{columns: cols, values: vals}
}

// Columns returns the column names in source order.
func (r Row) Columns() []string {
	cols := make([]string, len(r.columns))
	copy(cols, r.columns)
	return cols
}

// Value returns the value for an exact column name.
func (r Row) Value(column string) (string, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.columns)
}
