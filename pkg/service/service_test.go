// pkg/service/service_test.go
package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sensorflow/pipeline/pkg/config"
	"github.com/sensorflow/pipeline/pkg/model"
	"github.com/sensorflow/pipeline/pkg/store"
)

// stubConnector satisfies connector.DatabaseConnector over a sqlmock handle
type stubConnector struct {
	db *sqlx.DB
}

func (s *stubConnector) DB() *sqlx.DB       { return s.db }
func (s *stubConnector) DriverName() string { return s.db.DriverName() }
func (s *stubConnector) Validate() error    { return nil }
func (s *stubConnector) Close() error       { return s.db.Close() }

func (s *stubConnector) QueryWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

func (s *stubConnector) ExecWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

func setupService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sdb := sqlx.NewDb(db, "postgres")
	conn := &stubConnector{db: sdb}
	st := store.New(conn, 1000, zap.NewNop())

	root := t.TempDir()
	cfg := &config.Config{
		Rules:           config.LoadValidationRules(),
		DataDir:         filepath.Join(root, "inbox"),
		ProcessedDir:    filepath.Join(root, "processed"),
		QuarantineDir:   filepath.Join(root, "quarantine"),
		ReportsDir:      filepath.Join(root, "reports"),
		FileExtensions:  []string{".csv", ".xlsx"},
		MonitorInterval: 10 * time.Millisecond,
		DataSource:      "test_source",
		MaxRetries:      1,
		RetryDelay:      time.Millisecond,
		WorkerPoolSize:  2,
		SummarySchedule: "0 0 9 * * *",
	}

	return newService(cfg, conn, st, zap.NewNop()), mock
}

func TestBuildSummary(t *testing.T) {
	svc, mock := setupService(t)

	first := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	last := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT location_id`).
		WillReturnRows(sqlmock.NewRows([]string{
			"location_id", "reading_count", "first_reading", "last_reading",
		}).
			AddRow("cafe", 120, first, last).
			AddRow("library", 80, first, last))

	mock.ExpectQuery(`SELECT metric_name`).
		WillReturnRows(sqlmock.NewRows([]string{
			"metric_name", "file_count", "sample_count",
			"min_value", "max_value", "avg_value",
		}).AddRow("temperature_celsius", 2, 200, 18.5, 24.0, 21.3))

	mock.ExpectQuery(`SELECT (.+) FROM file_processing_log`).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{
			"file_name", "state", "attempt_count", "accepted_count",
			"rejected_count", "aggregate_count", "failure_reason",
			"first_seen_at", "last_transition_at",
		}).AddRow("sensors.csv", "PROCESSED", 1, 200, 0, 18, "", first, last))

	summary, err := svc.BuildSummary(context.Background())

	require.NoError(t, err)
	require.Len(t, summary.Locations, 2)
	assert.Equal(t, "cafe", summary.Locations[0].LocationID)
	assert.Equal(t, int64(120), summary.Locations[0].ReadingCount)
	require.Len(t, summary.Metrics, 1)
	assert.Equal(t, "temperature_celsius", summary.Metrics[0].MetricName)
	require.Len(t, summary.RecentFiles, 1)
	assert.Equal(t, model.StateProcessed, summary.RecentFiles[0].State)
	assert.False(t, summary.GeneratedAt.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildSummary_QueryFailure(t *testing.T) {
	svc, mock := setupService(t)

	mock.ExpectQuery(`SELECT location_id`).
		WillReturnError(errors.New("connection refused"))

	_, err := svc.BuildSummary(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "location statistics query failed")
}

func TestScheduleSummary_InvalidSpec(t *testing.T) {
	svc, _ := setupService(t)
	svc.cfg.SummarySchedule = "definitely not cron"

	err := svc.scheduleSummary()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid summary schedule")
}

func TestScheduleSummary_ValidSpec(t *testing.T) {
	svc, _ := setupService(t)
	// Six fields: the scheduler runs with a seconds column
	svc.cfg.SummarySchedule = "0 0 9 * * *"

	require.NoError(t, svc.scheduleSummary())

	cronCtx := svc.cron.Stop()
	select {
	case <-cronCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
