// pkg/reader/reader_test.go
package reader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadFile_CSV(t *testing.T) {
	path := writeTempFile(t, "sensors.csv",
		"Location ID,Timestamp,Temperature Celsius,Humidity Percent\n"+
			"library,2024-03-01T10:00:00Z,21.5,45\n"+
			"cafe,2024-03-01T10:05:00Z,,60\n")

	set, err := ReadFile(path)

	require.NoError(t, err)
	assert.Equal(t, "sensors.csv", set.FileName)
	assert.Equal(t, []string{"location_id", "timestamp", "temperature_celsius", "humidity_percent"}, set.Headers)
	require.Len(t, set.Rows, 2)

	assert.Equal(t, "library", set.Rows[0]["location_id"])
	assert.Equal(t, "21.5", set.Rows[0]["temperature_celsius"])

	// Empty cells are absent, not empty strings
	_, present := set.Rows[1]["temperature_celsius"]
	assert.False(t, present)
	assert.Equal(t, "60", set.Rows[1]["humidity_percent"])
}

func TestReadFile_CSVStripsBOMAndWhitespace(t *testing.T) {
	path := writeTempFile(t, "sensors.csv",
		"\xEF\xBB\xBFLocation ID, Timestamp \n"+
			"  library  ,2024-03-01\n")

	set, err := ReadFile(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"location_id", "timestamp"}, set.Headers)
	require.Len(t, set.Rows, 1)
	assert.Equal(t, "library", set.Rows[0]["location_id"])
}

func TestReadFile_CSVHeaderOnly(t *testing.T) {
	path := writeTempFile(t, "sensors.csv", "location_id,timestamp\n")

	set, err := ReadFile(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"location_id", "timestamp"}, set.Headers)
	assert.Empty(t, set.Rows)
}

func TestReadFile_CSVEmpty(t *testing.T) {
	path := writeTempFile(t, "sensors.csv", "")

	_, err := ReadFile(path)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "file is empty", parseErr.Reason)
	assert.Equal(t, "sensors.csv", parseErr.FileName)
}

func TestReadFile_CSVRaggedRecord(t *testing.T) {
	path := writeTempFile(t, "sensors.csv",
		"location_id,timestamp\n"+
			"library,2024-03-01,extra_cell\n")

	_, err := ReadFile(path)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "malformed record at line 2", parseErr.Reason)
	assert.NotNil(t, parseErr.Err)
}

func TestReadFile_CSVUnterminatedQuote(t *testing.T) {
	path := writeTempFile(t, "sensors.csv",
		"location_id,timestamp\n"+
			"\"library,2024-03-01\n")

	_, err := ReadFile(path)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Reason, "malformed record at line")
}

func TestReadFile_MissingFile(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.csv"))

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "cannot open file", parseErr.Reason)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadFile_UnsupportedExtension(t *testing.T) {
	_, err := ReadFile("notes.txt")

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Reason, "unsupported file type .txt")
}

func writeWorkbook(t *testing.T, rows ...[]interface{}) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sensors.xlsx")

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))

	return path
}

func TestReadFile_XLSX(t *testing.T) {
	path := writeWorkbook(t,
		[]interface{}{"Location ID", "Timestamp", "Temperature Celsius"},
		[]interface{}{"library", "2024-03-01T10:00:00Z", 21.5},
		[]interface{}{"cafe", "2024-03-01T10:05:00Z", 19.0},
	)

	set, err := ReadFile(path)

	require.NoError(t, err)
	assert.Equal(t, "sensors.xlsx", set.FileName)
	assert.Equal(t, []string{"location_id", "timestamp", "temperature_celsius"}, set.Headers)
	require.Len(t, set.Rows, 2)
	assert.Equal(t, "library", set.Rows[0]["location_id"])
	assert.Equal(t, "21.5", set.Rows[0]["temperature_celsius"])
}

func TestReadFile_XLSXShortRowsAreNotMalformed(t *testing.T) {
	path := writeWorkbook(t,
		[]interface{}{"Location ID", "Timestamp", "Temperature Celsius"},
		[]interface{}{"library", "2024-03-01T10:00:00Z"},
	)

	set, err := ReadFile(path)

	require.NoError(t, err)
	require.Len(t, set.Rows, 1)
	_, present := set.Rows[0]["temperature_celsius"]
	assert.False(t, present)
}

func TestReadFile_XLSXGarbage(t *testing.T) {
	path := writeTempFile(t, "sensors.xlsx", "this is not a zip archive")

	_, err := ReadFile(path)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "cannot open workbook", parseErr.Reason)
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Location ID":             "location_id",
		"  Timestamp  ":           "timestamp",
		"noise-level-db":          "noise_level_db",
		"MOOD SCORE":              "mood_score",
		"\xEF\xBB\xBFLocation ID": "location_id",
	}

	for in, want := range cases {
		assert.Equal(t, want, normalizeHeader(in))
	}
}
