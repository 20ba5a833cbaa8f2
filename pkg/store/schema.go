// pkg/store/schema.go
package store

import (
	"fmt"

	"github.com/sensorflow/pipeline/pkg/config"
)

// Table names forming the fixed storage contract
const (
	TableRawSensorData     = "raw_sensor_data"
	TableAggregatedMetrics = "aggregated_metrics"
	TableFileProcessingLog = "file_processing_log"
)

// rawColumns is the insert column order for raw_sensor_data (id is generated)
var rawColumns = []string{
	"location_id",
	"timestamp",
	"temperature_celsius",
	"humidity_percent",
	"air_quality_index",
	"noise_level_db",
	"lighting_lux",
	"crowd_density",
	"stress_level",
	"sleep_hours",
	"mood_score",
	"mental_health_status",
	"file_name",
	"data_source",
	"processed_at",
}

// aggregateColumns is the insert column order for aggregated_metrics
var aggregateColumns = []string{
	"location_id",
	"metric_name",
	"min_value",
	"max_value",
	"avg_value",
	"std_value",
	"count",
	"data_source",
	"file_name",
	"timestamp",
}

// SchemaStatements returns the ordered DDL for the given driver. Every
// statement is idempotent so schema setup can run on each startup.
func SchemaStatements(driver string) ([]string, error) {
	switch driver {
	case config.DriverPostgres:
		return postgresSchema, nil
	case config.DriverSQLite:
		return sqliteSchema, nil
	default:
		return nil, fmt.Errorf("no schema defined for driver: %s", driver)
	}
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS raw_sensor_data (
		id BIGSERIAL PRIMARY KEY,
		location_id TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		temperature_celsius DOUBLE PRECISION,
		humidity_percent DOUBLE PRECISION,
		air_quality_index BIGINT,
		noise_level_db DOUBLE PRECISION,
		lighting_lux DOUBLE PRECISION,
		crowd_density DOUBLE PRECISION,
		stress_level BIGINT,
		sleep_hours DOUBLE PRECISION,
		mood_score DOUBLE PRECISION,
		mental_health_status BIGINT,
		file_name TEXT NOT NULL,
		data_source TEXT NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_raw_sensor_data_location_id ON raw_sensor_data (location_id)`,
	`CREATE INDEX IF NOT EXISTS idx_raw_sensor_data_timestamp ON raw_sensor_data (timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_raw_sensor_data_processed_at ON raw_sensor_data (processed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_raw_sensor_data_mental_health ON raw_sensor_data (mental_health_status)`,
	`CREATE TABLE IF NOT EXISTS aggregated_metrics (
		id BIGSERIAL PRIMARY KEY,
		location_id TEXT NOT NULL,
		metric_name TEXT NOT NULL,
		min_value DOUBLE PRECISION NOT NULL,
		max_value DOUBLE PRECISION NOT NULL,
		avg_value DOUBLE PRECISION NOT NULL,
		std_value DOUBLE PRECISION NOT NULL,
		count BIGINT NOT NULL,
		data_source TEXT NOT NULL,
		file_name TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_aggregated_metrics_location_metric ON aggregated_metrics (location_id, metric_name)`,
	`CREATE INDEX IF NOT EXISTS idx_aggregated_metrics_data_source ON aggregated_metrics (data_source)`,
	`CREATE INDEX IF NOT EXISTS idx_aggregated_metrics_timestamp ON aggregated_metrics (timestamp)`,
	`CREATE TABLE IF NOT EXISTS file_processing_log (
		file_name TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		attempt_count BIGINT NOT NULL DEFAULT 0,
		accepted_count BIGINT NOT NULL DEFAULT 0,
		rejected_count BIGINT NOT NULL DEFAULT 0,
		aggregate_count BIGINT NOT NULL DEFAULT 0,
		failure_reason TEXT,
		first_seen_at TIMESTAMPTZ NOT NULL,
		last_transition_at TIMESTAMPTZ NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS raw_sensor_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		location_id TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		temperature_celsius REAL,
		humidity_percent REAL,
		air_quality_index INTEGER,
		noise_level_db REAL,
		lighting_lux REAL,
		crowd_density REAL,
		stress_level INTEGER,
		sleep_hours REAL,
		mood_score REAL,
		mental_health_status INTEGER,
		file_name TEXT NOT NULL,
		data_source TEXT NOT NULL,
		processed_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_raw_sensor_data_location_id ON raw_sensor_data (location_id)`,
	`CREATE INDEX IF NOT EXISTS idx_raw_sensor_data_timestamp ON raw_sensor_data (timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_raw_sensor_data_processed_at ON raw_sensor_data (processed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_raw_sensor_data_mental_health ON raw_sensor_data (mental_health_status)`,
	`CREATE TABLE IF NOT EXISTS aggregated_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		location_id TEXT NOT NULL,
		metric_name TEXT NOT NULL,
		min_value REAL NOT NULL,
		max_value REAL NOT NULL,
		avg_value REAL NOT NULL,
		std_value REAL NOT NULL,
		count INTEGER NOT NULL,
		data_source TEXT NOT NULL,
		file_name TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_aggregated_metrics_location_metric ON aggregated_metrics (location_id, metric_name)`,
	`CREATE INDEX IF NOT EXISTS idx_aggregated_metrics_data_source ON aggregated_metrics (data_source)`,
	`CREATE INDEX IF NOT EXISTS idx_aggregated_metrics_timestamp ON aggregated_metrics (timestamp)`,
	`CREATE TABLE IF NOT EXISTS file_processing_log (
		file_name TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		accepted_count INTEGER NOT NULL DEFAULT 0,
		rejected_count INTEGER NOT NULL DEFAULT 0,
		aggregate_count INTEGER NOT NULL DEFAULT 0,
		failure_reason TEXT,
		first_seen_at TIMESTAMP NOT NULL,
		last_transition_at TIMESTAMP NOT NULL
	)`,
}
