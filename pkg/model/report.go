// pkg/model/report.go
package model

import "time"

// AnalysisReport is the per-file JSON artifact summarizing what a processed
// file contained beyond the persisted aggregates.
type AnalysisReport struct {
	FileName     string             `json:"file_name"`
	DataSource   string             `json:"data_source"`
	GeneratedAt  time.Time          `json:"generated_at"`
	RowsAccepted int                `json:"rows_accepted"`
	RowsRejected int                `json:"rows_rejected"`
	Completeness map[string]float64 `json:"completeness"`
	Locations    []LocationProfile  `json:"locations"`
	Correlations []MetricPair       `json:"correlations,omitempty"`
	Anomalies    []AnomalySummary   `json:"anomalies,omitempty"`
}

// LocationProfile carries extended descriptive statistics for one location,
// beyond the five figures persisted to aggregated_metrics.
type LocationProfile struct {
	LocationID string          `json:"location_id"`
	Metrics    []MetricProfile `json:"metrics"`
}

// MetricProfile is the extended statistical profile of one metric at one
// location.
type MetricProfile struct {
	MetricName string  `json:"metric_name"`
	Count      int     `json:"count"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"mean"`
	Median     float64 `json:"median"`
	P25        float64 `json:"p25"`
	P75        float64 `json:"p75"`
	StdDev     float64 `json:"std_dev"`
	Skewness   float64 `json:"skewness"`
	Kurtosis   float64 `json:"kurtosis"`
}

// MetricPair is the Pearson correlation between two metrics across rows
// where both are present.
type MetricPair struct {
	MetricA string  `json:"metric_a"`
	MetricB string  `json:"metric_b"`
	Pearson float64 `json:"pearson"`
	Samples int     `json:"samples"`
}

// AnomalySummary counts outlying values for one metric across the whole
// file, by two detectors.
type AnomalySummary struct {
	MetricName     string `json:"metric_name"`
	ZScoreOutliers int    `json:"zscore_outliers"`
	IQROutliers    int    `json:"iqr_outliers"`
}

// LocationStats is one row of the per-location summary read back from
// storage for status reporting and the scheduled summary job.
type LocationStats struct {
	LocationID   string    `db:"location_id" json:"location_id"`
	ReadingCount int64     `db:"reading_count" json:"reading_count"`
	FirstReading time.Time `db:"first_reading" json:"first_reading"`
	LastReading  time.Time `db:"last_reading" json:"last_reading"`
}

// MetricRollup condenses every persisted aggregate for one metric into a
// single line for the scheduled summary. AvgValue is the sample-weighted mean
// of the per-file means.
type MetricRollup struct {
	MetricName  string  `db:"metric_name" json:"metric_name"`
	FileCount   int64   `db:"file_count" json:"file_count"`
	SampleCount int64   `db:"sample_count" json:"sample_count"`
	MinValue    float64 `db:"min_value" json:"min_value"`
	MaxValue    float64 `db:"max_value" json:"max_value"`
	AvgValue    float64 `db:"avg_value" json:"avg_value"`
}
