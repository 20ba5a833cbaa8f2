// pkg/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/sensorflow/pipeline/pkg/config"
	"github.com/sensorflow/pipeline/pkg/model"
	"github.com/sensorflow/pipeline/pkg/quarantine"
	"github.com/sensorflow/pipeline/pkg/report"
	"github.com/sensorflow/pipeline/pkg/store"
	"github.com/sensorflow/pipeline/pkg/validator"
)

// Manager owns the worker pool and the run-level bookkeeping. Files enter
// through Submit, fan out to workers over the job queue, and their outcomes
// flow back through the result queue.
type Manager struct {
	cfg        *config.Config
	validator  *validator.Validator
	store      *store.Store
	quarantine *quarantine.Writer
	reports    *report.Builder
	tracker    *Tracker
	metrics    *PipelineMetrics
	logger     *zap.Logger

	workers     []*Worker
	workerCount int
	jobQueue    chan FileJob
	resultQueue chan FileResult

	mu      sync.Mutex
	results map[string]FileResult

	wg        sync.WaitGroup
	collected chan struct{}
}

// NewManager creates a pipeline manager wired to the given store
func NewManager(cfg *config.Config, st *store.Store, logger *zap.Logger) *Manager {
	workerCount := cfg.WorkerPoolSize
	if workerCount <= 0 {
		workerCount = calculateWorkerCount()
	}

	m := &Manager{
		cfg:         cfg,
		validator:   validator.NewValidator(cfg.Rules),
		store:       st,
		quarantine:  quarantine.NewWriter(cfg.QuarantineDir, cfg.ProcessedDir, logger),
		reports:     report.NewBuilder(cfg.ReportsDir, logger),
		tracker:     NewTracker(),
		metrics:     NewPipelineMetrics(logger),
		logger:      logger,
		workerCount: workerCount,
		jobQueue:    make(chan FileJob, workerCount*10),
		resultQueue: make(chan FileResult, workerCount*10),
		results:     make(map[string]FileResult),
		collected:   make(chan struct{}),
	}

	m.createWorkers()
	return m
}

func (m *Manager) createWorkers() {
	m.workers = make([]*Worker, m.workerCount)
	for i := 0; i < m.workerCount; i++ {
		m.workers[i] = NewWorker(i+1, m.validator, m.store, m.quarantine, m.reports, m.tracker, m.metrics, m.logger).
			WithRetryPolicy(m.cfg.MaxRetries, m.cfg.RetryDelay).
			WithDataSource(m.cfg.DataSource)
	}

	m.logger.Info("Created worker pool", zap.Int("workerCount", m.workerCount))
}

// Start launches the worker pool and the result collector
func (m *Manager) Start(ctx context.Context) {
	go m.collectResults()

	for _, worker := range m.workers {
		m.wg.Add(1)
		go func(w *Worker) {
			defer m.wg.Done()
			w.Start(ctx, m.jobQueue, m.resultQueue)
		}(worker)
	}

	m.logger.Info("Pipeline started",
		zap.Int("workers", m.workerCount),
		zap.String("dataSource", m.cfg.DataSource))
}

// Drain closes intake, waits for in-flight files to reach a terminal state,
// and stops the collector. The manager cannot be reused afterwards.
func (m *Manager) Drain() {
	close(m.jobQueue)
	m.wg.Wait()
	close(m.resultQueue)
	<-m.collected
	m.metrics.Complete()
}

func (m *Manager) collectResults() {
	defer close(m.collected)

	for result := range m.resultQueue {
		if result.Skipped {
			m.metrics.RecordSkippedFile(result.FileName, "claimed by another worker")
			continue
		}

		m.metrics.RecordFileResult(result)

		m.mu.Lock()
		m.results[result.FileName] = result
		m.mu.Unlock()
	}
}

// Submit queues a file for processing. It returns false when the file is
// already tracked this run, was completed by a previous run, or the context
// ended before the job could be queued.
func (m *Manager) Submit(ctx context.Context, path string) bool {
	fileName := filepath.Base(path)

	if m.tracker.Tracked(fileName) {
		m.logger.Debug("File already tracked this run", zap.String("file", fileName))
		return false
	}

	status, err := m.store.GetFileStatus(ctx, fileName)
	if err != nil {
		m.logger.Warn("File log lookup failed, processing anyway",
			zap.String("file", fileName),
			zap.Error(err))
	}
	if status != nil && (status.State == model.StateProcessed || status.State == model.StateQuarantined) {
		// Completed outcomes are durable across restarts. Failed files
		// are deliberately not skipped so a restart retries them.
		if m.tracker.Register(fileName, status.State) {
			m.logger.Info("Skipping file completed in a previous run",
				zap.String("file", fileName),
				zap.String("state", string(status.State)))
			m.metrics.RecordSkippedFile(fileName, "completed in a previous run")
		}
		return false
	}

	if !m.tracker.Register(fileName, model.StateDetected) {
		return false
	}

	job := NewFileJob(path)
	select {
	case m.jobQueue <- job:
		m.logger.Debug("File queued",
			zap.String("file", fileName),
			zap.String("jobID", job.ID))
		return true
	case <-ctx.Done():
		m.logger.Warn("Could not queue file, context cancelled",
			zap.String("file", fileName))
		return false
	}
}

// ProcessOne runs a single file synchronously on a dedicated worker outside
// the pool
func (m *Manager) ProcessOne(ctx context.Context, path string) (*FileResult, error) {
	fileName := filepath.Base(path)

	if !m.tracker.Register(fileName, model.StateDetected) {
		return nil, fmt.Errorf("file %s is already being processed", fileName)
	}

	worker := NewWorker(-1, m.validator, m.store, m.quarantine, m.reports, m.tracker, m.metrics, m.logger).
		WithRetryPolicy(m.cfg.MaxRetries, m.cfg.RetryDelay).
		WithDataSource(m.cfg.DataSource)

	result := worker.ProcessFile(ctx, NewFileJob(path))

	m.metrics.RecordFileResult(result)
	m.mu.Lock()
	m.results[fileName] = result
	m.mu.Unlock()

	return &result, nil
}

// Result returns the recorded outcome of a file, if it has one
func (m *Manager) Result(fileName string) (FileResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result, ok := m.results[fileName]
	return result, ok
}

// Summary returns a snapshot of the run counters
func (m *Manager) Summary() *RunSummary {
	return m.metrics.GenerateRunSummary()
}

// Report renders the human-readable run report
func (m *Manager) Report() string {
	return m.metrics.GenerateMetricsReport()
}

// calculateWorkerCount sizes the pool from the CPU count and the storage
// connection budget
func calculateWorkerCount() int {
	cpuCount := runtime.NumCPU()
	cpuBased := int(math.Ceil(float64(cpuCount) * 0.75))

	// Each worker holds at most two connections during commit and verify
	connectionsPerWorker := 2
	maxConnectionPool := 25
	poolBased := (maxConnectionPool * 75 / 100) / connectionsPerWorker

	optimal := min(cpuBased, poolBased)

	if optimal < 2 {
		optimal = 2
	}
	if optimal > 12 {
		optimal = 12
	}

	return optimal
}

// min returns the minimum of the provided integers
func min(values ...int) int {
	if len(values) == 0 {
		return 0
	}

	result := values[0]
	for _, v := range values[1:] {
		if v < result {
			result = v
		}
	}
	return result
}
