// pkg/store/store.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/sensorflow/pipeline/pkg/connector"
	"github.com/sensorflow/pipeline/pkg/model"
)

const (
	defaultBatchSize = 1000
	schemaTimeout    = 30 * time.Second
	healthTimeout    = 5 * time.Second
)

// ErrVerificationFailed indicates persisted row counts do not match the
// counts the commit was expected to produce.
var ErrVerificationFailed = errors.New("persisted row counts do not match expected counts")

// FileBatch is everything one file contributes to storage: its accepted
// readings, their derived aggregates, and the status row written with them.
type FileBatch struct {
	FileName   string
	DataSource string
	Readings   []model.RawReading
	Aggregates []model.AggregateMetric

	// Status, when set, is upserted into file_processing_log inside the
	// same transaction as the data rows.
	Status *model.FileStatus
}

// Store persists pipeline output and reads it back for verification and
// reporting. All writes for one file go through CommitFile.
type Store struct {
	conn      connector.DatabaseConnector
	db        *sqlx.DB
	driver    string
	batchSize int
	logger    *zap.Logger
}

// New creates a Store on top of an established connector
func New(conn connector.DatabaseConnector, batchSize int, logger *zap.Logger) *Store {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Store{
		conn:      conn,
		db:        conn.DB(),
		driver:    conn.DriverName(),
		batchSize: batchSize,
		logger:    logger,
	}
}

// InitSchema creates the tables and indexes for the configured driver.
// Safe to run repeatedly.
func (s *Store) InitSchema(ctx context.Context) error {
	stmts, err := SchemaStatements(s.driver)
	if err != nil {
		return err
	}

	for _, stmt := range stmts {
		if _, err := s.conn.ExecWithTimeout(ctx, stmt, schemaTimeout); err != nil {
			return fmt.Errorf("schema setup failed: %w", err)
		}
	}

	s.logger.Info("Storage schema ready",
		zap.String("driver", s.driver),
		zap.Int("statements", len(stmts)))
	return nil
}

// HealthCheck verifies the storage backend answers a trivial query
func (s *Store) HealthCheck(ctx context.Context) error {
	rows, err := s.conn.QueryWithTimeout(ctx, "SELECT 1", healthTimeout)
	if err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return errors.New("health check returned no rows")
	}
	var one int
	if err := rows.Scan(&one); err != nil {
		return fmt.Errorf("health check scan failed: %w", err)
	}
	return rows.Err()
}

// CommitFile persists a file's readings and aggregates as a single atomic
// unit. Any rows a previous attempt left behind for the same file name are
// deleted first, so re-processing a file can never duplicate data.
// processed_at is assigned here, one timestamp for the whole file.
func (s *Store) CommitFile(ctx context.Context, batch *FileBatch) (err error) {
	processedAt := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.String("file", batch.FileName))
			}
		}
	}()

	// Clear anything a prior attempt may have written for this file
	for _, table := range []string{TableRawSensorData, TableAggregatedMetrics} {
		query := s.db.Rebind("DELETE FROM " + table + " WHERE file_name = ?")
		if _, err = tx.ExecContext(ctx, query, batch.FileName); err != nil {
			return fmt.Errorf("failed to clear previous rows from %s: %w", table, err)
		}
	}

	rawRows := make([][]interface{}, 0, len(batch.Readings))
	for _, r := range batch.Readings {
		rawRows = append(rawRows, []interface{}{
			r.LocationID,
			r.Timestamp,
			r.TemperatureCelsius,
			r.HumidityPercent,
			r.AirQualityIndex,
			r.NoiseLevelDB,
			r.LightingLux,
			r.CrowdDensity,
			r.StressLevel,
			r.SleepHours,
			r.MoodScore,
			r.MentalHealthStatus,
			r.FileName,
			r.DataSource,
			processedAt,
		})
	}

	var insertedRaw int64
	if insertedRaw, err = s.insertBatch(ctx, tx, TableRawSensorData, rawColumns, rawRows); err != nil {
		return err
	}

	aggRows := make([][]interface{}, 0, len(batch.Aggregates))
	for _, a := range batch.Aggregates {
		aggRows = append(aggRows, []interface{}{
			a.LocationID,
			a.MetricName,
			a.MinValue,
			a.MaxValue,
			a.AvgValue,
			a.StdValue,
			a.Count,
			a.DataSource,
			a.FileName,
			a.Timestamp,
		})
	}

	var insertedAgg int64
	if insertedAgg, err = s.insertBatch(ctx, tx, TableAggregatedMetrics, aggregateColumns, aggRows); err != nil {
		return err
	}

	if batch.Status != nil {
		if err = s.upsertStatus(ctx, tx, batch.Status); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Committed file batch",
		zap.String("file", batch.FileName),
		zap.Int64("raw_rows", insertedRaw),
		zap.Int64("aggregate_rows", insertedAgg))
	return nil
}

// insertBatch performs a multi-row insert in batchSize chunks within tx
func (s *Store) insertBatch(
	ctx context.Context,
	tx *sqlx.Tx,
	table string,
	columns []string,
	valueRows [][]interface{},
) (int64, error) {
	if len(valueRows) == 0 {
		return 0, nil
	}

	columnStr := strings.Join(columns, ", ")
	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var totalRowsInserted int64

	for i := 0; i < len(valueRows); i += s.batchSize {
		end := i + s.batchSize
		if end > len(valueRows) {
			end = len(valueRows)
		}
		currentBatch := valueRows[i:end]

		placeholders := make([]string, len(currentBatch))
		args := make([]interface{}, 0, len(currentBatch)*len(columns))
		for j, row := range currentBatch {
			placeholders[j] = rowPlaceholder
			args = append(args, row...)
		}

		query := s.db.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			table, columnStr, strings.Join(placeholders, ", ")))

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return totalRowsInserted, fmt.Errorf("batch insert into %s failed: %w", table, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			s.logger.Warn("Couldn't get rows affected", zap.Error(err))
		} else {
			totalRowsInserted += rowsAffected
		}
	}

	return totalRowsInserted, nil
}

// upsertStatus writes one file_processing_log row inside tx. first_seen_at
// is kept from the original insert; everything else reflects the latest
// transition.
func (s *Store) upsertStatus(ctx context.Context, tx *sqlx.Tx, status *model.FileStatus) error {
	query := s.db.Rebind(`
		INSERT INTO file_processing_log
		(file_name, state, attempt_count, accepted_count, rejected_count,
		 aggregate_count, failure_reason, first_seen_at, last_transition_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (file_name) DO UPDATE SET
			state = excluded.state,
			attempt_count = excluded.attempt_count,
			accepted_count = excluded.accepted_count,
			rejected_count = excluded.rejected_count,
			aggregate_count = excluded.aggregate_count,
			failure_reason = excluded.failure_reason,
			last_transition_at = excluded.last_transition_at
	`)

	_, err := tx.ExecContext(ctx, query,
		status.FileName,
		string(status.State),
		status.AttemptCount,
		status.AcceptedCount,
		status.RejectedCount,
		status.AggregateCount,
		nullIfEmpty(status.FailureReason),
		status.FirstSeenAt,
		status.LastTransitionAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert file status for %s: %w", status.FileName, err)
	}
	return nil
}

// RecordFileStatus upserts a file_processing_log row outside any commit,
// used for terminal states that carry no data rows (QUARANTINED, FAILED)
// and for the initial DETECTED record.
func (s *Store) RecordFileStatus(ctx context.Context, status *model.FileStatus) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	if err = s.upsertStatus(ctx, tx, status); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nullIfEmpty(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
