// pkg/validator/coerce.go
package validator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// parseFloat converts raw cell text to a float64.
func parseFloat(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, errors.New("empty value")
	}
	return strconv.ParseFloat(cleaned, 64)
}

// parseInt converts raw cell text to an int64. Values serialized with a
// zero fraction ("42.0") are accepted; a nonzero fraction is a type error,
// not a range error.
func parseInt(s string) (int64, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, errors.New("empty value")
	}

	if v, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		return v, nil
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("'%s' is not an integer", s)
	}
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("'%s' is not an integer", s)
	}
	return int64(f), nil
}

// timeFormats are tried in order when a timestamp is not epoch-encoded.
var timeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// parseTime converts raw cell text to a timestamp. Accepts RFC3339, the
// common date and date-time layouts above, and epoch seconds or
// milliseconds.
func parseTime(s string) (time.Time, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return time.Time{}, errors.New("empty value")
	}

	// Epoch timestamps are 10-digit seconds or 13-digit milliseconds;
	// other digit runs (compact dates like "20240301") are not epochs.
	if epoch, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		switch len(cleaned) {
		case 13:
			return time.UnixMilli(epoch).UTC(), nil
		case 10:
			return time.Unix(epoch, 0).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("cannot parse time from '%s'", s)
	}

	for _, format := range timeFormats {
		if t, err := time.Parse(format, cleaned); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot parse time from '%s'", s)
}
