// pkg/model/aggregate.go
package model

import "time"

// AggregateMetric is one per-(location, metric) statistical summary over the
// accepted rows of a single file, bound for the aggregated_metrics table.
// StdValue is the population standard deviation. A pair with zero
// contributing rows never produces an AggregateMetric.
type AggregateMetric struct {
	LocationID string
	MetricName string
	MinValue   float64
	MaxValue   float64
	AvgValue   float64
	StdValue   float64
	Count      int64
	DataSource string
	FileName   string
	Timestamp  time.Time
}
