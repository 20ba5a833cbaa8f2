// pkg/reader/csv.go
package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// readCSV parses a comma-separated file. The first record is the header;
// every data record must have the same field count, so a ragged file is
// malformed as a whole.
func readCSV(path, name string) (*RowSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{FileName: name, Reason: "cannot open file", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err == io.EOF {
		return nil, &ParseError{FileName: name, Reason: "file is empty"}
	}
	if err != nil {
		return nil, &ParseError{FileName: name, Reason: "cannot read header row", Err: err}
	}

	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = normalizeHeader(h)
	}

	set := &RowSet{FileName: name, Headers: headers, Rows: []Row{}}

	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			reason := fmt.Sprintf("malformed record at line %d", line)
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				reason = fmt.Sprintf("malformed record at line %d", parseErr.Line)
			}
			return nil, &ParseError{FileName: name, Reason: reason, Err: err}
		}
		set.Rows = append(set.Rows, buildRow(headers, record))
	}

	return set, nil
}
