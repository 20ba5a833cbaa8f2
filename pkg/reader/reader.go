// pkg/reader/reader.go
package reader

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Row maps normalized header names to raw cell text. Cells that are empty
// in the source are absent from the map.
type Row map[string]string

// RowSet is the ordered parsed content of one source file. A file with a
// header but no data rows parses to an empty Rows slice, which is valid
// input downstream.
type RowSet struct {
	FileName string
	Headers  []string
	Rows     []Row
}

// ParseError reports a file that cannot be parsed into rows at all. The
// whole file is quarantined with Reason; per-row classification never runs.
type ParseError struct {
	FileName string
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot parse %s: %s: %v", e.FileName, e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot parse %s: %s", e.FileName, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ReadFile parses a source file into an ordered row sequence, dispatching
// on extension. Supported formats are CSV and XLSX.
func ReadFile(path string) (*RowSet, error) {
	name := filepath.Base(path)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path, name)
	case ".xlsx":
		return readXLSX(path, name)
	default:
		return nil, &ParseError{FileName: name, Reason: "unsupported file type " + filepath.Ext(path)}
	}
}

// normalizeHeader maps a source column name onto the canonical field
// naming: lowercase with underscores.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF")
	h = strings.TrimSpace(strings.ToLower(h))
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

func buildRow(headers []string, cells []string) Row {
	row := make(Row, len(headers))
	for i, header := range headers {
		if header == "" || i >= len(cells) {
			continue
		}
		value := strings.TrimSpace(cells[i])
		if value == "" {
			continue
		}
		row[header] = value
	}
	return row
}
