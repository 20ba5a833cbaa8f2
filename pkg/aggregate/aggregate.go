// pkg/aggregate/aggregate.go
package aggregate

import (
	"sort"
	"time"

	"github.com/sensorflow/pipeline/pkg/model"
	"github.com/sensorflow/pipeline/pkg/stats"
)

// BuildAggregates computes per-(location, metric) statistics over the
// accepted rows of one file in a single accumulation pass. A pair with no
// present values emits nothing.
//
// Output order is fixed for a given accepted-row sequence: locations
// ascending, then metrics in canonical field order. Accumulation follows
// file order, so the result is reproducible bit for bit across runs.
func BuildAggregates(readings []model.RawReading, computedAt time.Time) []model.AggregateMetric {
	if len(readings) == 0 {
		return nil
	}

	byLocation := make(map[string]map[string]*stats.Accumulator)
	metrics := model.MetricFields()

	for i := range readings {
		r := &readings[i]
		group := byLocation[r.LocationID]
		if group == nil {
			group = make(map[string]*stats.Accumulator, len(metrics))
			byLocation[r.LocationID] = group
		}

		for _, metric := range metrics {
			value, present := r.Metric(metric)
			if !present {
				continue
			}
			acc := group[metric]
			if acc == nil {
				acc = &stats.Accumulator{}
				group[metric] = acc
			}
			acc.Add(value)
		}
	}

	locations := make([]string, 0, len(byLocation))
	for location := range byLocation {
		locations = append(locations, location)
	}
	sort.Strings(locations)

	// Provenance fields are uniform across a file's readings
	fileName, dataSource := readings[0].FileName, readings[0].DataSource

	var out []model.AggregateMetric
	for _, location := range locations {
		group := byLocation[location]
		for _, metric := range metrics {
			acc, ok := group[metric]
			if !ok {
				continue
			}
			out = append(out, model.AggregateMetric{
				LocationID: location,
				MetricName: metric,
				MinValue:   acc.Min(),
				MaxValue:   acc.Max(),
				AvgValue:   acc.Mean(),
				StdValue:   acc.PopulationStdDev(),
				Count:      acc.Count(),
				DataSource: dataSource,
				FileName:   fileName,
				Timestamp:  computedAt,
			})
		}
	}

	return out
}
