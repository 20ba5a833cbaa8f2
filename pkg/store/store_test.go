// pkg/store/store_test.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sensorflow/pipeline/pkg/model"
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

func setupMockStore(t *testing.T, batchSize int) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sdb := sqlx.NewDb(db, "postgres")
	store := New(&stubConnector{db: sdb}, batchSize, zap.NewNop())
	return store, mock
}

func floatPtr(v float64) *float64 { return &v }

func testBatch(readings int) *FileBatch {
	batch := &FileBatch{
		FileName:   "sensors.csv",
		DataSource: "kaggle_iot_dataset",
	}
	for i := 0; i < readings; i++ {
		batch.Readings = append(batch.Readings, model.RawReading{
			LocationID:         "library",
			Timestamp:          time.Date(2024, 3, 1, 12, 0, i, 0, time.UTC),
			TemperatureCelsius: floatPtr(21.5),
			FileName:           "sensors.csv",
			DataSource:         "kaggle_iot_dataset",
		})
	}
	batch.Aggregates = []model.AggregateMetric{{
		LocationID: "library",
		MetricName: "temperature_celsius",
		MinValue:   21.5,
		MaxValue:   21.5,
		AvgValue:   21.5,
		StdValue:   0,
		Count:      int64(readings),
		DataSource: "kaggle_iot_dataset",
		FileName:   "sensors.csv",
		Timestamp:  time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC),
	}}
	batch.Status = &model.FileStatus{
		FileName:         "sensors.csv",
		State:            model.StateProcessed,
		AttemptCount:     1,
		AcceptedCount:    readings,
		AggregateCount:   1,
		FirstSeenAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		LastTransitionAt: time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC),
	}
	return batch
}

func TestCommitFile_Success(t *testing.T) {
	store, mock := setupMockStore(t, 1000)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM raw_sensor_data`).
		WithArgs("sensors.csv").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM aggregated_metrics`).
		WithArgs("sensors.csv").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO raw_sensor_data`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO aggregated_metrics`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO file_processing_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.CommitFile(context.Background(), testBatch(2))

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitFile_SplitsIntoBatches(t *testing.T) {
	// Batch size 2 with 3 readings must produce two raw insert statements
	store, mock := setupMockStore(t, 2)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM raw_sensor_data`).
		WithArgs("sensors.csv").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM aggregated_metrics`).
		WithArgs("sensors.csv").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO raw_sensor_data`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO raw_sensor_data`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO aggregated_metrics`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO file_processing_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.CommitFile(context.Background(), testBatch(3))

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitFile_RollsBackOnInsertFailure(t *testing.T) {
	store, mock := setupMockStore(t, 1000)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM raw_sensor_data`).
		WithArgs("sensors.csv").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM aggregated_metrics`).
		WithArgs("sensors.csv").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO raw_sensor_data`).
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	err := store.CommitFile(context.Background(), testBatch(2))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch insert into raw_sensor_data failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitFile_EmptyReadingsStillWritesStatus(t *testing.T) {
	store, mock := setupMockStore(t, 1000)

	batch := testBatch(0)
	batch.Readings = nil
	batch.Aggregates = nil

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM raw_sensor_data`).
		WithArgs("sensors.csv").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM aggregated_metrics`).
		WithArgs("sensors.csv").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO file_processing_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.CommitFile(context.Background(), batch)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyFile_Match(t *testing.T) {
	store, mock := setupMockStore(t, 1000)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM raw_sensor_data`).
		WithArgs("sensors.csv").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM aggregated_metrics`).
		WithArgs("sensors.csv").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	err := store.VerifyFile(context.Background(), "sensors.csv", 5, 3)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyFile_Mismatch(t *testing.T) {
	store, mock := setupMockStore(t, 1000)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM raw_sensor_data`).
		WithArgs("sensors.csv").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM aggregated_metrics`).
		WithArgs("sensors.csv").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	err := store.VerifyFile(context.Background(), "sensors.csv", 5, 3)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFileStatus_Found(t *testing.T) {
	store, mock := setupMockStore(t, 1000)

	seen := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	done := time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"file_name", "state", "attempt_count", "accepted_count",
		"rejected_count", "aggregate_count", "failure_reason",
		"first_seen_at", "last_transition_at",
	}).AddRow("sensors.csv", "PROCESSED", 1, 40, 2, 9, "", seen, done)

	mock.ExpectQuery(`SELECT (.+) FROM file_processing_log`).
		WithArgs("sensors.csv").
		WillReturnRows(rows)

	status, err := store.GetFileStatus(context.Background(), "sensors.csv")

	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, model.StateProcessed, status.State)
	assert.Equal(t, 40, status.AcceptedCount)
	assert.Equal(t, 2, status.RejectedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFileStatus_NotRecorded(t *testing.T) {
	store, mock := setupMockStore(t, 1000)

	mock.ExpectQuery(`SELECT (.+) FROM file_processing_log`).
		WithArgs("unseen.csv").
		WillReturnError(sql.ErrNoRows)

	status, err := store.GetFileStatus(context.Background(), "unseen.csv")

	require.NoError(t, err)
	assert.Nil(t, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFileStatus(t *testing.T) {
	store, mock := setupMockStore(t, 1000)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO file_processing_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.RecordFileStatus(context.Background(), &model.FileStatus{
		FileName:         "sensors.csv",
		State:            model.StateQuarantined,
		RejectedCount:    3,
		FailureReason:    "",
		FirstSeenAt:      time.Now().UTC(),
		LastTransitionAt: time.Now().UTC(),
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLocationStatistics(t *testing.T) {
	store, mock := setupMockStore(t, 1000)

	first := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"location_id", "reading_count", "first_reading", "last_reading"}).
		AddRow("cafeteria", 120, first, last).
		AddRow("library", 80, first, last)

	mock.ExpectQuery(`SELECT location_id`).
		WillReturnRows(rows)

	stats, err := store.GetLocationStatistics(context.Background())

	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "cafeteria", stats[0].LocationID)
	assert.Equal(t, int64(120), stats[0].ReadingCount)
	assert.Equal(t, "library", stats[1].LocationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck(t *testing.T) {
	store, mock := setupMockStore(t, 1000)

	mock.ExpectQuery(`SELECT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	err := store.HealthCheck(context.Background())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
