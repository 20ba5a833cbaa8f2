// pkg/reader/xlsx.go
package reader

import (
	"github.com/xuri/excelize/v2"
)

// readXLSX parses the first sheet of a workbook. Unlike CSV, short rows are
// normal in spreadsheets (trailing empty cells are trimmed by the format),
// so missing cells mean absent values rather than a malformed file.
func readXLSX(path, name string) (*RowSet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &ParseError{FileName: name, Reason: "cannot open workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{FileName: name, Reason: "workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{FileName: name, Reason: "cannot read sheet " + sheets[0], Err: err}
	}
	if len(rows) == 0 {
		return nil, &ParseError{FileName: name, Reason: "file is empty"}
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = normalizeHeader(h)
	}

	set := &RowSet{FileName: name, Headers: headers, Rows: make([]Row, 0, len(rows)-1)}
	for _, cells := range rows[1:] {
		set.Rows = append(set.Rows, buildRow(headers, cells))
	}

	return set, nil
}
