// cmd/sensorflow/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sensorflow/pipeline/pkg/config"
	"github.com/sensorflow/pipeline/pkg/connector"
	"github.com/sensorflow/pipeline/pkg/fetcher"
	"github.com/sensorflow/pipeline/pkg/logging"
	"github.com/sensorflow/pipeline/pkg/model"
	"github.com/sensorflow/pipeline/pkg/pipeline"
	"github.com/sensorflow/pipeline/pkg/service"
	"github.com/sensorflow/pipeline/pkg/store"
	"github.com/sensorflow/pipeline/pkg/watcher"
)

type options struct {
	file   string
	fetch  bool
	status bool
	initDB bool
	once   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.file, "file", "", "Process a single file and exit")
	flag.BoolVar(&opts.fetch, "fetch", false, "Download the configured datasets into the inbox and exit")
	flag.BoolVar(&opts.status, "status", false, "Print recent file outcomes and storage rollups and exit")
	flag.BoolVar(&opts.initDB, "init-db", false, "Create the storage schema and exit")
	flag.BoolVar(&opts.once, "once", false, "Drain the inbox once instead of watching continuously")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, "sensorflow")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	code := run(cfg, logger, opts)
	_ = logger.Sync()
	os.Exit(code)
}

func run(cfg *config.Config, logger *zap.Logger, opts options) int {
	ctx := context.Background()

	switch {
	case opts.fetch:
		return runFetch(ctx, cfg, logger)
	case opts.initDB:
		return runInitDB(ctx, cfg, logger)
	case opts.status:
		return runStatus(ctx, cfg, logger)
	case opts.file != "":
		return runSingleFile(ctx, cfg, logger, opts.file)
	case opts.once:
		return runOnce(ctx, cfg, logger)
	default:
		return runDaemon(cfg, logger)
	}
}

func connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (connector.DatabaseConnector, *store.Store, error) {
	conn, err := connector.NewConnectorFactory(cfg.Storage, logger).Create(ctx)
	if err != nil {
		return nil, nil, err
	}
	return conn, store.New(conn, cfg.BatchSize, logger.Named("store")), nil
}

func runFetch(ctx context.Context, cfg *config.Config, logger *zap.Logger) int {
	if len(cfg.FetchURLs) == 0 {
		fmt.Fprintln(os.Stderr, "No fetch URLs configured; set FETCH_URLS")
		return 1
	}

	f := fetcher.New(cfg.DataDir, cfg.FetchTimeout, logger.Named("fetcher"))
	paths, err := f.FetchAll(ctx, cfg.FetchURLs)
	if err != nil {
		logger.Error("Fetch failed", zap.Error(err))
		return 1
	}

	for _, p := range paths {
		fmt.Println(p)
	}
	return 0
}

func runInitDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) int {
	conn, st, err := connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Storage connection failed", zap.Error(err))
		return 1
	}
	defer conn.Close()

	if err := st.InitSchema(ctx); err != nil {
		logger.Error("Schema initialization failed", zap.Error(err))
		return 1
	}

	fmt.Println("Schema initialized")
	return 0
}

func runStatus(ctx context.Context, cfg *config.Config, logger *zap.Logger) int {
	conn, st, err := connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Storage connection failed", zap.Error(err))
		return 1
	}
	defer conn.Close()

	outcomes, err := st.RecentOutcomes(ctx, 20)
	if err != nil {
		logger.Error("Status query failed", zap.Error(err))
		return 1
	}
	locations, err := st.GetLocationStatistics(ctx)
	if err != nil {
		logger.Error("Status query failed", zap.Error(err))
		return 1
	}
	rollups, err := st.MetricRollups(ctx)
	if err != nil {
		logger.Error("Status query failed", zap.Error(err))
		return 1
	}

	fmt.Println("Recent Files:")
	fmt.Println("File | State | Attempts | Accepted | Rejected | Aggregates | Last Transition")
	fmt.Println("-----|-------|----------|----------|----------|------------|----------------")
	for _, o := range outcomes {
		fmt.Printf("%s | %s | %d | %d | %d | %d | %s\n",
			o.FileName, o.State, o.AttemptCount,
			o.AcceptedCount, o.RejectedCount, o.AggregateCount,
			o.LastTransitionAt.Format("2006-01-02 15:04:05"))
	}
	if len(outcomes) == 0 {
		fmt.Println("(no files processed yet)")
	}

	fmt.Println("\nLocations:")
	fmt.Println("Location | Readings | First | Last")
	fmt.Println("---------|----------|-------|-----")
	for _, l := range locations {
		fmt.Printf("%s | %d | %s | %s\n",
			l.LocationID, l.ReadingCount,
			l.FirstReading.Format("2006-01-02 15:04:05"),
			l.LastReading.Format("2006-01-02 15:04:05"))
	}

	fmt.Println("\nMetrics:")
	fmt.Println("Metric | Files | Samples | Min | Max | Avg")
	fmt.Println("-------|-------|---------|-----|-----|----")
	for _, r := range rollups {
		fmt.Printf("%s | %d | %d | %.2f | %.2f | %.2f\n",
			r.MetricName, r.FileCount, r.SampleCount,
			r.MinValue, r.MaxValue, r.AvgValue)
	}

	return 0
}

func runSingleFile(ctx context.Context, cfg *config.Config, logger *zap.Logger, path string) int {
	conn, st, err := connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Storage connection failed", zap.Error(err))
		return 1
	}
	defer conn.Close()

	if err := st.InitSchema(ctx); err != nil {
		logger.Error("Schema initialization failed", zap.Error(err))
		return 1
	}

	manager := pipeline.NewManager(cfg, st, logger.Named("pipeline"))
	result, err := manager.ProcessOne(ctx, path)
	if err != nil {
		logger.Error("Processing failed", zap.Error(err))
		return 1
	}

	fmt.Print(manager.Report())

	if result.State == model.StateFailed {
		return 1
	}
	return 0
}

func runOnce(ctx context.Context, cfg *config.Config, logger *zap.Logger) int {
	conn, st, err := connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Storage connection failed", zap.Error(err))
		return 1
	}
	defer conn.Close()

	if err := st.InitSchema(ctx); err != nil {
		logger.Error("Schema initialization failed", zap.Error(err))
		return 1
	}

	manager := pipeline.NewManager(cfg, st, logger.Named("pipeline"))
	manager.Start(ctx)

	w := watcher.New(cfg.DataDir, cfg.FileExtensions, cfg.MonitorInterval, logger.Named("watcher"))
	w.RunOnce(func(path string) {
		manager.Submit(ctx, path)
	})

	manager.Drain()
	fmt.Print(manager.Report())

	if manager.Summary().FilesFailed > 0 {
		return 1
	}
	return 0
}

func runDaemon(cfg *config.Config, logger *zap.Logger) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := service.New(ctx, cfg, logger.Named("service"))
	if err != nil {
		logger.Error("Service construction failed", zap.Error(err))
		return 1
	}

	if err := svc.Start(ctx); err != nil {
		logger.Error("Service startup failed", zap.Error(err))
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	svc.Stop(shutdownCtx)

	return 0
}
