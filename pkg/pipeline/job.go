// pkg/pipeline/job.go
package pipeline

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sensorflow/pipeline/pkg/model"
)

// FileJob is one file queued for processing
type FileJob struct {
	ID         string
	Path       string
	FileName   string
	EnqueuedAt time.Time
}

// NewFileJob creates a job for the file at path
func NewFileJob(path string) FileJob {
	return FileJob{
		ID:         uuid.New().String(),
		Path:       path,
		FileName:   filepath.Base(path),
		EnqueuedAt: time.Now(),
	}
}

// FileResult captures the outcome of processing a single file
type FileResult struct {
	JobID          string
	FileName       string
	State          model.FileState
	Skipped        bool // Claimed by another worker, nothing was done
	AcceptedCount  int
	RejectedCount  int
	AggregateCount int
	Attempts       int
	LastError      string
	Errors         []ErrorRecord
	Warnings       []string
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	WorkerID       int
}

// NewFileResult creates a result for a job claimed by a worker
func NewFileResult(job FileJob, workerID int) FileResult {
	return FileResult{
		JobID:     job.ID,
		FileName:  job.FileName,
		StartTime: time.Now(),
		WorkerID:  workerID,
		Errors:    make([]ErrorRecord, 0),
		Warnings:  make([]string, 0),
	}
}

// Complete stamps the terminal state and duration on the result
func (r *FileResult) Complete(state model.FileState) {
	r.State = state
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// AddError appends an error record and tracks the most recent message
func (r *FileResult) AddError(record ErrorRecord) {
	r.Errors = append(r.Errors, record)
	r.LastError = record.Message
}

// AddWarning appends a warning message to the result
func (r *FileResult) AddWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}

// Processed reports whether the file reached the processed state
func (r *FileResult) Processed() bool {
	return r.State == model.StateProcessed
}

// HasErrors returns true if the result contains any errors
func (r *FileResult) HasErrors() bool {
	return len(r.Errors) > 0
}
