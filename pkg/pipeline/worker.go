// pkg/pipeline/worker.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sensorflow/pipeline/pkg/aggregate"
	"github.com/sensorflow/pipeline/pkg/model"
	"github.com/sensorflow/pipeline/pkg/quarantine"
	"github.com/sensorflow/pipeline/pkg/reader"
	"github.com/sensorflow/pipeline/pkg/report"
	"github.com/sensorflow/pipeline/pkg/store"
	"github.com/sensorflow/pipeline/pkg/validator"
)

// WorkerState represents the current state of a worker
type WorkerState string

const (
	WorkerStateIdle      WorkerState = "idle"
	WorkerStateWorking   WorkerState = "working"
	WorkerStateCompleted WorkerState = "completed"
)

// Worker carries one file at a time from claim through its terminal state
type Worker struct {
	ID         int
	validator  *validator.Validator
	store      *store.Store
	quarantine *quarantine.Writer
	reports    *report.Builder
	tracker    *Tracker
	metrics    *PipelineMetrics
	logger     *zap.Logger

	dataSource string
	maxRetries int
	retryDelay time.Duration

	state      WorkerState
	currentJob *FileJob
	stateLock  sync.RWMutex
}

// NewWorker creates a new worker instance
func NewWorker(
	id int,
	v *validator.Validator,
	st *store.Store,
	q *quarantine.Writer,
	rep *report.Builder,
	tracker *Tracker,
	metrics *PipelineMetrics,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		ID:         id,
		validator:  v,
		store:      st,
		quarantine: q,
		reports:    rep,
		tracker:    tracker,
		metrics:    metrics,
		logger:     logger.With(zap.Int("workerID", id)),
		dataSource: "unknown",
		maxRetries: 3,
		retryDelay: 5 * time.Second,
		state:      WorkerStateIdle,
	}
}

// WithRetryPolicy sets how often and how patiently persistence is retried
func (w *Worker) WithRetryPolicy(maxRetries int, delay time.Duration) *Worker {
	w.maxRetries = maxRetries
	w.retryDelay = delay
	return w
}

// WithDataSource sets the data source label stamped on accepted readings
func (w *Worker) WithDataSource(source string) *Worker {
	w.dataSource = source
	return w
}

// GetState returns the current state of the worker (thread-safe)
func (w *Worker) GetState() WorkerState {
	w.stateLock.RLock()
	defer w.stateLock.RUnlock()
	return w.state
}

// setState updates the worker state (thread-safe)
func (w *Worker) setState(state WorkerState) {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()

	oldState := w.state
	w.state = state

	w.logger.Debug("Worker state changed",
		zap.String("from", string(oldState)),
		zap.String("to", string(state)))
}

// GetCurrentJob returns the job being processed (thread-safe)
func (w *Worker) GetCurrentJob() *FileJob {
	w.stateLock.RLock()
	defer w.stateLock.RUnlock()
	return w.currentJob
}

func (w *Worker) setCurrentJob(job *FileJob) {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()
	w.currentJob = job
}

func (w *Worker) clearCurrentJob() {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()
	w.currentJob = nil
}

// Start begins the worker's processing loop
func (w *Worker) Start(ctx context.Context, jobs <-chan FileJob, results chan<- FileResult) {
	w.logger.Info("Worker started")
	defer w.logger.Info("Worker stopped")
	defer w.setState(WorkerStateCompleted)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker stopping due to context cancellation")
			return

		case job, ok := <-jobs:
			if !ok {
				w.logger.Info("Worker stopping, job channel closed")
				return
			}

			result := w.ProcessFile(ctx, job)

			select {
			case results <- result:
			case <-ctx.Done():
				w.logger.Warn("Failed to send result, context cancelled",
					zap.String("file", job.FileName))
				return
			}
		}
	}
}

// ProcessFile runs one file to a terminal state and returns the outcome.
// The worker has to win the claim on the file before touching it; losing
// the claim yields a skipped result.
func (w *Worker) ProcessFile(ctx context.Context, job FileJob) FileResult {
	w.setState(WorkerStateWorking)
	w.setCurrentJob(&job)
	defer w.clearCurrentJob()
	defer w.setState(WorkerStateIdle)

	result := NewFileResult(job, w.ID)

	if !w.tracker.Transition(job.FileName, model.StateDetected, model.StateClassifying) {
		result.Skipped = true
		w.logger.Warn("File already claimed, skipping",
			zap.String("file", job.FileName))
		return result
	}

	w.logger.Info("Processing file",
		zap.String("file", job.FileName),
		zap.String("jobID", job.ID))

	w.process(ctx, job, &result)

	switch result.State {
	case model.StateProcessed:
		w.logger.Info("File processed",
			zap.String("file", job.FileName),
			zap.Int("accepted", result.AcceptedCount),
			zap.Int("rejected", result.RejectedCount),
			zap.Int("aggregates", result.AggregateCount),
			zap.Int("attempts", result.Attempts),
			zap.Duration("duration", result.Duration))
	case model.StateQuarantined:
		w.logger.Warn("File quarantined",
			zap.String("file", job.FileName),
			zap.Int("rejected", result.RejectedCount),
			zap.String("reason", result.LastError))
	case model.StateFailed:
		w.logger.Error("File failed",
			zap.String("file", job.FileName),
			zap.Int("attempts", result.Attempts),
			zap.String("lastError", result.LastError))
	}

	return result
}

func (w *Worker) process(ctx context.Context, job FileJob, result *FileResult) {
	set, err := reader.ReadFile(job.Path)
	if err != nil {
		w.quarantineMalformed(ctx, job, result, err)
		return
	}

	batch := w.validator.ClassifyBatch(set, w.dataSource)
	result.AcceptedCount = len(batch.Accepted)
	result.RejectedCount = len(batch.Rejected)

	if len(batch.Rejected) > 0 {
		w.writeRejections(job, result, "", batch.Rejected)
	}

	if len(batch.Accepted) == 0 {
		reason := "file contains no data rows"
		if len(batch.Rejected) > 0 {
			reason = fmt.Sprintf("all %d rows rejected", len(batch.Rejected))
		}
		w.disposeQuarantined(ctx, job, result, reason)
		return
	}

	w.advance(job.FileName, model.StateClassifying, model.StateAggregating)

	aggregates := aggregate.BuildAggregates(batch.Accepted, time.Now().UTC())
	result.AggregateCount = len(aggregates)

	w.advance(job.FileName, model.StateAggregating, model.StatePersisting)

	if !w.persistWithRetry(ctx, job, result, batch.Accepted, aggregates) {
		return
	}

	w.verifyCommit(ctx, job, result)
	w.finishProcessed(ctx, job, result, batch.Accepted)
}

// advance moves the file between states, logging if the tracker refuses.
// A refusal here means the lifecycle bookkeeping itself is broken, because
// the file was already claimed by this worker.
func (w *Worker) advance(fileName string, from, to model.FileState) {
	if !w.tracker.Transition(fileName, from, to) {
		w.logger.Error("Refused state transition",
			zap.String("file", fileName),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
	}
}

// persistWithRetry commits the batch, retrying transient storage failures
// up to the retry ceiling. It returns false once the file has reached the
// failed state.
func (w *Worker) persistWithRetry(
	ctx context.Context,
	job FileJob,
	result *FileResult,
	readings []model.RawReading,
	aggregates []model.AggregateMetric,
) bool {
	batch := &store.FileBatch{
		FileName:   job.FileName,
		DataSource: w.dataSource,
		Readings:   readings,
		Aggregates: aggregates,
		Status: &model.FileStatus{
			FileName:       job.FileName,
			State:          model.StateProcessed,
			AcceptedCount:  result.AcceptedCount,
			RejectedCount:  result.RejectedCount,
			AggregateCount: result.AggregateCount,
			FirstSeenAt:    w.tracker.FirstSeen(job.FileName),
		},
	}

	for {
		attempt := w.tracker.Attempts(job.FileName)
		batch.Status.AttemptCount = attempt
		batch.Status.LastTransitionAt = time.Now().UTC()

		err := w.store.CommitFile(ctx, batch)
		if err == nil {
			result.Attempts = attempt
			return true
		}

		record := NewErrorRecord(err, Classify(err)).
			WithStage(StagePersist).
			WithFile(job.FileName).
			WithAttempt(attempt)
		result.AddError(record)

		w.advance(job.FileName, model.StatePersisting, model.StateFailed)

		if !record.Retryable() {
			w.logger.Error("Persistence failed with non-retryable error",
				zap.String("file", job.FileName),
				zap.Int("attempt", attempt),
				zap.String("category", record.Category.String()),
				zap.Error(err))
			w.failFile(ctx, job, result, record)
			return false
		}

		if attempt > w.maxRetries {
			w.logger.Error("Retry ceiling reached, giving up",
				zap.String("file", job.FileName),
				zap.Int("attempts", attempt),
				zap.Error(err))
			w.failFile(ctx, job, result, record)
			return false
		}

		w.logger.Warn("Transient storage failure, will retry",
			zap.String("file", job.FileName),
			zap.Int("attempt", attempt),
			zap.Duration("delay", w.retryDelay),
			zap.Error(err))
		w.metrics.RecordRetry()

		select {
		case <-time.After(w.retryDelay):
		case <-ctx.Done():
			ctxRecord := NewErrorRecord(ctx.Err(), CategoryTransient).
				WithStage(StagePersist).
				WithFile(job.FileName).
				WithAttempt(attempt)
			result.AddError(ctxRecord)
			w.failFile(ctx, job, result, ctxRecord)
			return false
		}

		w.advance(job.FileName, model.StateFailed, model.StatePersisting)
	}
}

// failFile records the terminal failed outcome in the durable log so a
// later run can pick the file up again.
func (w *Worker) failFile(ctx context.Context, job FileJob, result *FileResult, record ErrorRecord) {
	result.Attempts = w.tracker.Attempts(job.FileName)
	result.Complete(model.StateFailed)

	status := &model.FileStatus{
		FileName:         job.FileName,
		State:            model.StateFailed,
		AttemptCount:     result.Attempts,
		AcceptedCount:    result.AcceptedCount,
		RejectedCount:    result.RejectedCount,
		AggregateCount:   result.AggregateCount,
		FailureReason:    record.Message,
		FirstSeenAt:      w.tracker.FirstSeen(job.FileName),
		LastTransitionAt: time.Now().UTC(),
	}
	if err := w.store.RecordFileStatus(ctx, status); err != nil {
		w.logger.Warn("Could not record failed status",
			zap.String("file", job.FileName),
			zap.Error(err))
	}
}

func (w *Worker) quarantineMalformed(ctx context.Context, job FileJob, result *FileResult, err error) {
	record := NewErrorRecord(err, CategoryMalformedFile).
		WithStage(StageRead).
		WithFile(job.FileName)
	result.AddError(record)

	w.logger.Warn("File could not be parsed",
		zap.String("file", job.FileName),
		zap.Error(err))

	w.writeRejections(job, result, err.Error(), nil)
	w.disposeQuarantined(ctx, job, result, err.Error())
}

// writeRejections writes the quarantine artifact. Artifact failures never
// abort the accepted rows, they only surface as warnings.
func (w *Worker) writeRejections(job FileJob, result *FileResult, fileReason string, rejected []model.RejectedRecord) {
	path, err := w.quarantine.WriteArtifact(job.FileName, fileReason, rejected)
	if err != nil {
		result.AddWarning(fmt.Sprintf("quarantine artifact not written: %v", err))
		w.logger.Error("Could not write quarantine artifact",
			zap.String("file", job.FileName),
			zap.Error(err))
		return
	}

	w.logger.Debug("Wrote quarantine artifact",
		zap.String("file", job.FileName),
		zap.String("artifact", path))
}

func (w *Worker) disposeQuarantined(ctx context.Context, job FileJob, result *FileResult, reason string) {
	w.advance(job.FileName, model.StateClassifying, model.StateQuarantined)
	result.Complete(model.StateQuarantined)
	if result.LastError == "" {
		result.LastError = reason
	}

	status := &model.FileStatus{
		FileName:         job.FileName,
		State:            model.StateQuarantined,
		AcceptedCount:    result.AcceptedCount,
		RejectedCount:    result.RejectedCount,
		FailureReason:    reason,
		FirstSeenAt:      w.tracker.FirstSeen(job.FileName),
		LastTransitionAt: time.Now().UTC(),
	}
	if err := w.store.RecordFileStatus(ctx, status); err != nil {
		w.logger.Warn("Could not record quarantined status",
			zap.String("file", job.FileName),
			zap.Error(err))
	}

	if _, err := w.quarantine.MoveToQuarantine(job.Path); err != nil {
		result.AddWarning(fmt.Sprintf("file not moved to quarantine: %v", err))
		w.logger.Warn("Could not move file to quarantine",
			zap.String("file", job.FileName),
			zap.Error(err))
	}
}

// verifyCommit compares committed row counts against expectations. A
// mismatch is reported as a schema defect but does not undo the commit.
func (w *Worker) verifyCommit(ctx context.Context, job FileJob, result *FileResult) {
	err := w.store.VerifyFile(ctx, job.FileName, int64(result.AcceptedCount), int64(result.AggregateCount))
	if err == nil {
		return
	}

	if errors.Is(err, store.ErrVerificationFailed) {
		record := NewErrorRecord(err, CategorySchema).
			WithStage(StageVerify).
			WithFile(job.FileName)
		result.AddError(record)
		w.logger.Error("Post-commit verification failed",
			zap.String("file", job.FileName),
			zap.Error(err))
		return
	}

	result.AddWarning(fmt.Sprintf("verification query failed: %v", err))
	w.logger.Warn("Could not verify committed counts",
		zap.String("file", job.FileName),
		zap.Error(err))
}

func (w *Worker) finishProcessed(ctx context.Context, job FileJob, result *FileResult, accepted []model.RawReading) {
	w.advance(job.FileName, model.StatePersisting, model.StateProcessed)
	result.Complete(model.StateProcessed)

	analysis := w.reports.BuildAnalysis(job.FileName, w.dataSource, accepted, result.RejectedCount)
	if _, err := w.reports.WriteAnalysis(analysis); err != nil {
		result.AddWarning(fmt.Sprintf("analysis report not written: %v", err))
		w.logger.Warn("Could not write analysis report",
			zap.String("file", job.FileName),
			zap.Error(err))
	}

	if _, err := w.quarantine.MoveToProcessed(job.Path); err != nil {
		result.AddWarning(fmt.Sprintf("file not moved to processed directory: %v", err))
		w.logger.Warn("Could not move file to processed directory",
			zap.String("file", job.FileName),
			zap.Error(err))
	}
}
