// pkg/pipeline/error.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/sensorflow/pipeline/pkg/reader"
)

// ErrorCategory classifies a failure by how the pipeline reacts to it.
type ErrorCategory int

const (
	CategoryNone ErrorCategory = iota
	// CategoryValidation covers per-row rule violations. The row is
	// quarantined; the file keeps going.
	CategoryValidation
	// CategoryTransient covers storage failures worth retrying: lost
	// connections, timeouts, lock and serialization contention.
	CategoryTransient
	// CategorySchema covers storage failures that signal a logic defect.
	// Retrying cannot fix them, so the file fails immediately.
	CategorySchema
	// CategoryMalformedFile covers files that cannot be parsed at all. The
	// whole file is quarantined without per-row classification.
	CategoryMalformedFile
)

// String returns a string representation of the error category
func (c ErrorCategory) String() string {
	switch c {
	case CategoryNone:
		return "None"
	case CategoryValidation:
		return "Validation"
	case CategoryTransient:
		return "Transient"
	case CategorySchema:
		return "Schema"
	case CategoryMalformedFile:
		return "MalformedFile"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// Stage names the pipeline step an error came from.
type Stage string

const (
	StageRead     Stage = "read"
	StageClassify Stage = "classify"
	StagePersist  Stage = "persist"
	StageVerify   Stage = "verify"
	StageDispose  Stage = "dispose"
)

// ErrorRecord is a single structured failure observed while processing a
// file. RowIndex is -1 unless the error is tied to one row.
type ErrorRecord struct {
	Category  ErrorCategory
	Stage     Stage
	FileName  string
	RowIndex  int
	Err       error
	Message   string // Derived from Err but stored for serialization
	Timestamp time.Time
	Attempt   int
}

// NewErrorRecord creates a new error record with current timestamp
func NewErrorRecord(err error, category ErrorCategory) ErrorRecord {
	record := ErrorRecord{
		Category:  category,
		RowIndex:  -1,
		Err:       err,
		Timestamp: time.Now(),
	}

	if err != nil {
		record.Message = err.Error()
	}

	return record
}

// WithStage adds the originating pipeline stage to the error record
func (r ErrorRecord) WithStage(stage Stage) ErrorRecord {
	r.Stage = stage
	return r
}

// WithFile adds the source file name to the error record
func (r ErrorRecord) WithFile(fileName string) ErrorRecord {
	r.FileName = fileName
	return r
}

// WithRow adds row context to the error record
func (r ErrorRecord) WithRow(index int) ErrorRecord {
	r.RowIndex = index
	return r
}

// WithAttempt records which persistence attempt produced the error
func (r ErrorRecord) WithAttempt(attempt int) ErrorRecord {
	r.Attempt = attempt
	return r
}

// Retryable reports whether the recorded failure may clear on retry
func (r ErrorRecord) Retryable() bool {
	return r.Category == CategoryTransient
}

// String returns a formatted error message
func (r ErrorRecord) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", r.Category))

	if r.Stage != "" {
		sb.WriteString(fmt.Sprintf("Stage: %s ", r.Stage))
	}

	if r.FileName != "" {
		sb.WriteString(fmt.Sprintf("File: %s ", r.FileName))
	}

	if r.RowIndex >= 0 {
		sb.WriteString(fmt.Sprintf("Row: %d ", r.RowIndex))
	}

	if r.Err != nil {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Err.Error()))
	} else if r.Message != "" {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Message))
	}

	if r.Attempt > 0 {
		sb.WriteString(fmt.Sprintf(" (Attempt: %d)", r.Attempt))
	}

	return sb.String()
}

// Classify maps an arbitrary error onto the pipeline taxonomy. Typed driver
// errors are inspected first; the message text is the fallback, which also
// covers the SQLite driver's busy and locked conditions.
func Classify(err error) ErrorCategory {
	if err == nil {
		return CategoryNone
	}

	var parseErr *reader.ParseError
	if errors.As(err, &parseErr) {
		return CategoryMalformedFile
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifyPostgres(pqErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryTransient
	}

	return classifyMessage(err.Error())
}

// classifyPostgres sorts a PostgreSQL error by its SQLSTATE class.
func classifyPostgres(err *pq.Error) ErrorCategory {
	switch err.Code.Class() {
	case "08": // connection exception
		return CategoryTransient
	case "40": // transaction rollback: serialization failure, deadlock
		return CategoryTransient
	case "53": // insufficient resources
		return CategoryTransient
	case "57": // operator intervention: shutdown, query cancelled
		return CategoryTransient
	case "58": // system error: io failure
		return CategoryTransient
	case "22": // data exception
		return CategorySchema
	case "23": // integrity constraint violation
		return CategorySchema
	case "42": // syntax error or access rule violation
		return CategorySchema
	default:
		return classifyMessage(err.Message)
	}
}

// transientMarkers identify retryable failures in error text from drivers
// without typed errors.
var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"bad connection",
	"broken pipe",
	"timeout",
	"deadline exceeded",
	"temporar",
	"try again",
	"too many connections",
	"database is locked",
	"table is locked",
	"busy",
	"eof",
}

func classifyMessage(msg string) ErrorCategory {
	msg = strings.ToLower(msg)
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return CategoryTransient
		}
	}
	return CategorySchema
}

// IsTransient reports whether an error should be retried
func IsTransient(err error) bool {
	return Classify(err) == CategoryTransient
}
