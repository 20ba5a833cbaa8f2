// pkg/pipeline/metrics.go
package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sensorflow/pipeline/pkg/model"
)

// PipelineMetrics tracks run-level counters across all workers
type PipelineMetrics struct {
	mu     sync.Mutex
	logger *zap.Logger

	StartTime time.Time
	EndTime   time.Time

	FilesProcessed   int
	FilesQuarantined int
	FilesFailed      int
	FilesSkipped     int

	RowsAccepted      int64
	RowsRejected      int64
	AggregatesWritten int64
	RetriesAttempted  int64

	ErrorCounts       map[ErrorCategory]int
	WorkerUtilization map[int]time.Duration
}

// NewPipelineMetrics creates a metrics collector for one run
func NewPipelineMetrics(logger *zap.Logger) *PipelineMetrics {
	return &PipelineMetrics{
		logger:            logger,
		StartTime:         time.Now(),
		ErrorCounts:       make(map[ErrorCategory]int),
		WorkerUtilization: make(map[int]time.Duration),
	}
}

// RecordFileResult folds one terminal file outcome into the counters.
// Accepted rows and aggregates count toward the totals only once they are
// durably committed.
func (m *PipelineMetrics) RecordFileResult(result FileResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch result.State {
	case model.StateProcessed:
		m.FilesProcessed++
		m.RowsAccepted += int64(result.AcceptedCount)
		m.AggregatesWritten += int64(result.AggregateCount)
	case model.StateQuarantined:
		m.FilesQuarantined++
	case model.StateFailed:
		m.FilesFailed++
	}

	m.RowsRejected += int64(result.RejectedCount)

	for _, record := range result.Errors {
		m.ErrorCounts[record.Category]++
	}

	m.WorkerUtilization[result.WorkerID] += result.Duration
}

// RecordSkippedFile counts a file that was seen but not processed
func (m *PipelineMetrics) RecordSkippedFile(fileName, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FilesSkipped++

	m.logger.Debug("File skipped",
		zap.String("file", fileName),
		zap.String("reason", reason))
}

// RecordRetry counts one persistence retry
func (m *PipelineMetrics) RecordRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RetriesAttempted++
}

// Complete stamps the end of the run and logs the final counters
func (m *PipelineMetrics) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EndTime = time.Now()

	m.logger.Info("Run complete",
		zap.Int("processed", m.FilesProcessed),
		zap.Int("quarantined", m.FilesQuarantined),
		zap.Int("failed", m.FilesFailed),
		zap.Int("skipped", m.FilesSkipped),
		zap.Int64("rowsAccepted", m.RowsAccepted),
		zap.Int64("rowsRejected", m.RowsRejected),
		zap.Duration("duration", m.EndTime.Sub(m.StartTime)))
}

// Duration returns how long the run has been going, or its final length
func (m *PipelineMetrics) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// RunSummary is a serializable snapshot of the run counters
type RunSummary struct {
	StartTime         time.Time      `json:"start_time"`
	EndTime           time.Time      `json:"end_time"`
	Duration          string         `json:"duration"`
	FilesProcessed    int            `json:"files_processed"`
	FilesQuarantined  int            `json:"files_quarantined"`
	FilesFailed       int            `json:"files_failed"`
	FilesSkipped      int            `json:"files_skipped"`
	RowsAccepted      int64          `json:"rows_accepted"`
	RowsRejected      int64          `json:"rows_rejected"`
	AggregatesWritten int64          `json:"aggregates_written"`
	RetriesAttempted  int64          `json:"retries_attempted"`
	ErrorCounts       map[string]int `json:"error_counts,omitempty"`
}

// GenerateRunSummary snapshots the counters for serialization
func (m *PipelineMetrics) GenerateRunSummary() *RunSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := m.EndTime
	if end.IsZero() {
		end = time.Now()
	}

	summary := &RunSummary{
		StartTime:         m.StartTime,
		EndTime:           end,
		Duration:          formatDuration(end.Sub(m.StartTime)),
		FilesProcessed:    m.FilesProcessed,
		FilesQuarantined:  m.FilesQuarantined,
		FilesFailed:       m.FilesFailed,
		FilesSkipped:      m.FilesSkipped,
		RowsAccepted:      m.RowsAccepted,
		RowsRejected:      m.RowsRejected,
		AggregatesWritten: m.AggregatesWritten,
		RetriesAttempted:  m.RetriesAttempted,
	}

	if len(m.ErrorCounts) > 0 {
		summary.ErrorCounts = make(map[string]int, len(m.ErrorCounts))
		for category, count := range m.ErrorCounts {
			summary.ErrorCounts[category.String()] = count
		}
	}

	return summary
}

// GenerateMetricsReport renders the run counters as a text block
func (m *PipelineMetrics) GenerateMetricsReport() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := m.EndTime
	if end.IsZero() {
		end = time.Now()
	}

	var report strings.Builder

	report.WriteString("\n===== INGESTION RUN REPORT =====\n\n")
	report.WriteString(fmt.Sprintf("Duration: %s\n\n", formatDuration(end.Sub(m.StartTime))))

	report.WriteString("--- Files ---\n")
	report.WriteString(fmt.Sprintf("Processed:   %d\n", m.FilesProcessed))
	report.WriteString(fmt.Sprintf("Quarantined: %d\n", m.FilesQuarantined))
	report.WriteString(fmt.Sprintf("Failed:      %d\n", m.FilesFailed))
	report.WriteString(fmt.Sprintf("Skipped:     %d\n\n", m.FilesSkipped))

	report.WriteString("--- Rows ---\n")
	report.WriteString(fmt.Sprintf("Accepted:   %d\n", m.RowsAccepted))
	report.WriteString(fmt.Sprintf("Rejected:   %d\n", m.RowsRejected))
	report.WriteString(fmt.Sprintf("Aggregates: %d\n", m.AggregatesWritten))
	report.WriteString(fmt.Sprintf("Retries:    %d\n", m.RetriesAttempted))

	if len(m.ErrorCounts) > 0 {
		report.WriteString("\n--- Error Distribution ---\n")
		for category, count := range m.ErrorCounts {
			report.WriteString(fmt.Sprintf("%-15s %d\n", category.String()+":", count))
		}
	}

	if len(m.WorkerUtilization) > 0 {
		report.WriteString("\n--- Worker Utilization ---\n")
		for workerID, busy := range m.WorkerUtilization {
			report.WriteString(fmt.Sprintf("Worker %d: %s\n", workerID, formatDuration(busy)))
		}
	}

	report.WriteString("\n================================\n")

	return report.String()
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
