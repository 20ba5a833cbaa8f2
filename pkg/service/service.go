// pkg/service/service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sensorflow/pipeline/pkg/config"
	"github.com/sensorflow/pipeline/pkg/connector"
	"github.com/sensorflow/pipeline/pkg/pipeline"
	"github.com/sensorflow/pipeline/pkg/report"
	"github.com/sensorflow/pipeline/pkg/store"
	"github.com/sensorflow/pipeline/pkg/watcher"
)

// Service ties the watcher, the worker pool, and the summary scheduler into
// one long-running daemon.
type Service struct {
	cfg     *config.Config
	logger  *zap.Logger
	conn    connector.DatabaseConnector
	store   *store.Store
	manager *pipeline.Manager
	watcher *watcher.Watcher
	reports *report.Builder
	cron    *cron.Cron

	cancelWatch   context.CancelFunc
	cancelWorkers context.CancelFunc
	done          chan struct{}
}

// New connects to storage and assembles the daemon
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	factory := connector.NewConnectorFactory(cfg.Storage, logger)
	conn, err := factory.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to storage: %w", err)
	}

	st := store.New(conn, cfg.BatchSize, logger.Named("store"))
	return newService(cfg, conn, st, logger), nil
}

// newService wires the daemon over an existing store, which keeps the
// assembly testable without a live connection
func newService(cfg *config.Config, conn connector.DatabaseConnector, st *store.Store, logger *zap.Logger) *Service {
	return &Service{
		cfg:     cfg,
		logger:  logger,
		conn:    conn,
		store:   st,
		manager: pipeline.NewManager(cfg, st, logger.Named("pipeline")),
		watcher: watcher.New(cfg.DataDir, cfg.FileExtensions, cfg.MonitorInterval, logger.Named("watcher")).
			WithStartupScan(cfg.StartupScan),
		reports: report.NewBuilder(cfg.ReportsDir, logger.Named("report")),
		done:    make(chan struct{}),
	}
}

// Start prepares storage and launches the scheduler, the worker pool, and
// the inbox watcher
func (s *Service) Start(ctx context.Context) error {
	if err := s.store.InitSchema(ctx); err != nil {
		return err
	}
	if err := s.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}

	if s.cfg.SummarySchedule != "" {
		if err := s.scheduleSummary(); err != nil {
			return err
		}
	}

	// Shutdown happens in two phases: intake stops first, and the workers'
	// context is cancelled only after the job queue has drained, so
	// in-flight files still reach a terminal state. Both contexts outlive
	// the startup ctx on purpose.
	runCtx, cancelWorkers := context.WithCancel(context.Background())
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	s.cancelWorkers = cancelWorkers
	s.cancelWatch = cancelWatch

	s.manager.Start(runCtx)

	go func() {
		defer close(s.done)
		s.watcher.Run(watchCtx, func(path string) {
			s.manager.Submit(watchCtx, path)
		})
	}()

	s.logger.Info("Service started",
		zap.String("dataDir", s.cfg.DataDir),
		zap.String("dataSource", s.cfg.DataSource))
	return nil
}

func (s *Service) scheduleSummary() error {
	s.cron = cron.New(
		cron.WithSeconds(),
		cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		),
	)

	if _, err := s.cron.AddFunc(s.cfg.SummarySchedule, s.runSummaryJob); err != nil {
		return fmt.Errorf("invalid summary schedule %q: %w", s.cfg.SummarySchedule, err)
	}

	s.cron.Start()
	s.logger.Info("Summary scheduler started",
		zap.String("schedule", s.cfg.SummarySchedule))
	return nil
}

func (s *Service) runSummaryJob() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	summary, err := s.BuildSummary(ctx)
	if err != nil {
		s.logger.Error("Summary build failed", zap.Error(err))
		return
	}

	path, err := s.reports.WriteSummary(summary)
	if err != nil {
		s.logger.Error("Summary write failed", zap.Error(err))
		return
	}

	s.logger.Info("Wrote summary report", zap.String("path", path))
}

// BuildSummary assembles the cross-run rollup from the durable tables
func (s *Service) BuildSummary(ctx context.Context) (*report.SummaryReport, error) {
	locations, err := s.store.GetLocationStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("location statistics query failed: %w", err)
	}

	metrics, err := s.store.MetricRollups(ctx)
	if err != nil {
		return nil, fmt.Errorf("metric rollup query failed: %w", err)
	}

	recent, err := s.store.RecentOutcomes(ctx, 20)
	if err != nil {
		return nil, fmt.Errorf("recent outcomes query failed: %w", err)
	}

	return &report.SummaryReport{
		GeneratedAt: time.Now().UTC(),
		Locations:   locations,
		Metrics:     metrics,
		RecentFiles: recent,
	}, nil
}

// Stop shuts the daemon down: intake first, then the drain, then the
// scheduler and the storage connection. It is the counterpart of a
// successful Start.
func (s *Service) Stop(ctx context.Context) {
	s.logger.Info("Stopping service")

	s.cancelWatch()
	select {
	case <-s.done:
	case <-ctx.Done():
		s.logger.Warn("Watcher did not stop before the deadline")
	}

	s.manager.Drain()
	s.cancelWorkers()

	if s.cron != nil {
		cronCtx := s.cron.Stop()
		select {
		case <-cronCtx.Done():
		case <-time.After(15 * time.Second):
			s.logger.Warn("Scheduler shutdown timed out")
		}
	}

	if err := s.conn.Close(); err != nil {
		s.logger.Warn("Storage connection close failed", zap.Error(err))
	}

	summary := s.manager.Summary()
	s.logger.Info("Service stopped",
		zap.Int("filesProcessed", summary.FilesProcessed),
		zap.Int("filesQuarantined", summary.FilesQuarantined),
		zap.Int("filesFailed", summary.FilesFailed))
}
