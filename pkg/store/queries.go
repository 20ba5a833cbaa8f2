// pkg/store/queries.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sensorflow/pipeline/pkg/model"
)

// VerifyFile re-counts the rows persisted for a file and compares them to
// the counts the commit was expected to produce. A mismatch wraps
// ErrVerificationFailed, which callers treat as a non-retryable defect.
func (s *Store) VerifyFile(ctx context.Context, fileName string, wantRaw, wantAggregates int64) error {
	rawCount, err := s.countForFile(ctx, TableRawSensorData, fileName)
	if err != nil {
		return err
	}

	aggCount, err := s.countForFile(ctx, TableAggregatedMetrics, fileName)
	if err != nil {
		return err
	}

	if rawCount != wantRaw || aggCount != wantAggregates {
		s.logger.Warn("Row count mismatch after commit",
			zap.String("file", fileName),
			zap.Int64("raw_have", rawCount),
			zap.Int64("raw_want", wantRaw),
			zap.Int64("aggregate_have", aggCount),
			zap.Int64("aggregate_want", wantAggregates))
		return fmt.Errorf("%w: %s persisted %d/%d raw and %d/%d aggregate rows",
			ErrVerificationFailed, fileName, rawCount, wantRaw, aggCount, wantAggregates)
	}

	s.logger.Debug("Row counts verified",
		zap.String("file", fileName),
		zap.Int64("raw_rows", rawCount),
		zap.Int64("aggregate_rows", aggCount))
	return nil
}

func (s *Store) countForFile(ctx context.Context, table, fileName string) (int64, error) {
	var count int64
	query := s.db.Rebind("SELECT COUNT(*) FROM " + table + " WHERE file_name = ?")
	if err := s.db.GetContext(ctx, &count, query, fileName); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s for %s: %w", table, fileName, err)
	}
	return count, nil
}

// GetFileStatus returns the durable status for one file, or nil when the
// file has never been recorded.
func (s *Store) GetFileStatus(ctx context.Context, fileName string) (*model.FileStatus, error) {
	query := s.db.Rebind(`
		SELECT file_name, state, attempt_count, accepted_count, rejected_count,
		       aggregate_count, COALESCE(failure_reason, '') AS failure_reason,
		       first_seen_at, last_transition_at
		FROM file_processing_log
		WHERE file_name = ?
	`)

	var status model.FileStatus
	err := s.db.GetContext(ctx, &status, query, fileName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load file status for %s: %w", fileName, err)
	}
	return &status, nil
}

// RecentOutcomes lists the most recently transitioned files, newest first
func (s *Store) RecentOutcomes(ctx context.Context, limit int) ([]model.FileStatus, error) {
	if limit <= 0 {
		limit = 20
	}

	query := s.db.Rebind(`
		SELECT file_name, state, attempt_count, accepted_count, rejected_count,
		       aggregate_count, COALESCE(failure_reason, '') AS failure_reason,
		       first_seen_at, last_transition_at
		FROM file_processing_log
		ORDER BY last_transition_at DESC
		LIMIT ?
	`)

	statuses := []model.FileStatus{}
	if err := s.db.SelectContext(ctx, &statuses, query, limit); err != nil {
		return nil, fmt.Errorf("failed to load recent outcomes: %w", err)
	}
	return statuses, nil
}

// GetLocationStatistics summarizes the raw table per location, ordered by
// location_id for stable output.
func (s *Store) GetLocationStatistics(ctx context.Context) ([]model.LocationStats, error) {
	query := `
		SELECT location_id,
		       COUNT(*) AS reading_count,
		       MIN(timestamp) AS first_reading,
		       MAX(timestamp) AS last_reading
		FROM raw_sensor_data
		GROUP BY location_id
		ORDER BY location_id
	`

	stats := []model.LocationStats{}
	if err := s.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to load location statistics: %w", err)
	}
	return stats, nil
}

// MetricRollups condenses aggregated_metrics per metric across all files.
// The mean is weighted by each aggregate's sample count.
func (s *Store) MetricRollups(ctx context.Context) ([]model.MetricRollup, error) {
	query := `
		SELECT metric_name,
		       COUNT(DISTINCT file_name) AS file_count,
		       SUM(count) AS sample_count,
		       MIN(min_value) AS min_value,
		       MAX(max_value) AS max_value,
		       SUM(avg_value * count) / SUM(count) AS avg_value
		FROM aggregated_metrics
		GROUP BY metric_name
		ORDER BY metric_name
	`

	rollups := []model.MetricRollup{}
	if err := s.db.SelectContext(ctx, &rollups, query); err != nil {
		return nil, fmt.Errorf("failed to load metric rollups: %w", err)
	}
	return rollups, nil
}
