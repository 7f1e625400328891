// Package rows reads tabular certificate data and binds its columns to
// placeholder keys.
//
// Sources are CSV files (with an encoding fallback chain for files that
// are not UTF-8) and XLSX workbooks (first sheet, first row as headers).
// Each data row becomes an immutable ordered mapping from column name to
// string value. A Binder resolves which column feeds each placeholder,
// honoring an explicit mapping first and falling back to normalized
// header matching; the mandatory name column is resolved the same way
// with a first-column fallback.
package rows
