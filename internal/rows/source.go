package rows

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Source holds the parsed contents of one tabular input.
type Source struct {
	// Columns are the trimmed header names in file order.
	Columns []string
	// Rows are the data records, one per non-header line.
	Rows []Row
	// Encoding names the character encoding the file was read with.
	Encoding string
}

// ReadFile parses a tabular file, dispatching on its extension. CSV and
// XLSX (plus XLSM) are supported.
func ReadFile(path string) (*Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(path)
	case ".xlsx", ".xlsm":
		return ReadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported row source %q: expected .csv or .xlsx", filepath.Base(path))
	}
}

// ReadCSV parses a CSV file. Files that are not valid UTF-8 are decoded
// through Windows-1252 and then ISO 8859-1, in that order, so exports
// from legacy spreadsheet tools still load. Headers and values are
// trimmed; records shorter than the header row read as empty strings for
// the missing columns.
func ReadCSV(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read row source: %w", err)
	}
	text, encoding := decodeBytes(data)

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return &Source{Encoding: encoding}, nil
	}

	columns := trimHeaders(records[0])
	src := &Source{Columns: columns, Encoding: encoding}
	for _, record := range records[1:] {
		src.Rows = append(src.Rows, assembleRow(columns, record))
	}
	return src, nil
}

// ReadXLSX parses the first sheet of an XLSX workbook, treating the first
// row as headers.
func ReadXLSX(path string) (*Source, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %q has no sheets", filepath.Base(path))
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return &Source{Encoding: "xlsx"}, nil
	}

	columns := trimHeaders(records[0])
	src := &Source{Columns: columns, Encoding: "xlsx"}
	for _, record := range records[1:] {
		src.Rows = append(src.Rows, assembleRow(columns, record))
	}
	return src, nil
}

// decodeBytes returns data as text along with the encoding used. UTF-8 is
// preferred; Windows-1252 is tried next but rejected when it produces
// replacement runes (it leaves a few byte values undefined); ISO 8859-1
// accepts every byte and terminates the chain.
func decodeBytes(data []byte) (string, string) {
	if utf8.Valid(data) {
		return string(data), "utf-8"
	}
	if decoded, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil && !bytes.ContainsRune(decoded, utf8.RuneError) {
		return string(decoded), "windows-1252"
	}
	decoded, _ := charmap.ISO8859_1.NewDecoder().Bytes(data)
	return string(decoded), "iso-8859-1"
}

func trimHeaders(record []string) []string {
	columns := make([]string, 0, len(record))
	for i, header := range record {
		header = strings.TrimSpace(header)
		if i == 0 {
			header = strings.TrimPrefix(header, "\uFEFF")
		}
		columns = append(columns, header)
	}
	return columns
}

func assembleRow(columns []string, record []string) Row {
	values := make(map[string]string, len(columns))
	for i, column := range columns {
		if i < len(record) {
			values[column] = strings.TrimSpace(record[i])
		} else {
			values[column] = ""
		}
	}
	return NewRow(columns, values)
}
