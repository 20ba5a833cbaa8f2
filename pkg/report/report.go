// pkg/report/report.go
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sensorflow/pipeline/pkg/model"
	"github.com/sensorflow/pipeline/pkg/stats"
)

// anomalyMinSamples is the minimum series length before outlier counts are
// reported; shorter series make both detectors meaningless
const anomalyMinSamples = 10

// zScoreThreshold marks values more than three standard deviations from the
// mean as outliers
const zScoreThreshold = 3.0

// Builder renders analysis and summary artifacts into the reports directory
type Builder struct {
	reportsDir string
	logger     *zap.Logger
}

// NewBuilder creates a report builder writing under reportsDir
func NewBuilder(reportsDir string, logger *zap.Logger) *Builder {
	return &Builder{
		reportsDir: reportsDir,
		logger:     logger,
	}
}

// BuildAnalysis computes the per-file analysis artifact from a file's
// accepted rows: completeness, per-location extended statistics, pairwise
// correlations, and outlier counts.
func (b *Builder) BuildAnalysis(fileName, dataSource string, accepted []model.RawReading, rejectedCount int) *model.AnalysisReport {
	return &model.AnalysisReport{
		FileName:     fileName,
		DataSource:   dataSource,
		GeneratedAt:  time.Now().UTC(),
		RowsAccepted: len(accepted),
		RowsRejected: rejectedCount,
		Completeness: completeness(accepted),
		Locations:    locationProfiles(accepted),
		Correlations: correlations(accepted),
		Anomalies:    anomalies(accepted),
	}
}

// WriteAnalysis writes the report as indented JSON and returns its path
func (b *Builder) WriteAnalysis(report *model.AnalysisReport) (string, error) {
	if err := os.MkdirAll(b.reportsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	name := fmt.Sprintf("analysis_report_%s_%s.json",
		report.FileName, report.GeneratedAt.Format("20060102_150405"))
	path := filepath.Join(b.reportsDir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode analysis report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write analysis report: %w", err)
	}

	b.logger.Info("Wrote analysis report",
		zap.String("file", report.FileName),
		zap.String("report", path))
	return path, nil
}

// completeness reports, per metric, the fraction of accepted rows carrying a
// value for it
func completeness(accepted []model.RawReading) map[string]float64 {
	result := make(map[string]float64)
	if len(accepted) == 0 {
		return result
	}

	for _, metric := range model.MetricFields() {
		present := 0
		for i := range accepted {
			if _, ok := accepted[i].Metric(metric); ok {
				present++
			}
		}
		result[metric] = float64(present) / float64(len(accepted))
	}
	return result
}

// locationProfiles groups rows by location and computes the extended profile
// for every metric with at least one value. Locations and metrics are emitted
// in sorted/canonical order.
func locationProfiles(accepted []model.RawReading) []model.LocationProfile {
	byLocation := make(map[string][]model.RawReading)
	for i := range accepted {
		byLocation[accepted[i].LocationID] = append(byLocation[accepted[i].LocationID], accepted[i])
	}

	locations := make([]string, 0, len(byLocation))
	for loc := range byLocation {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	profiles := make([]model.LocationProfile, 0, len(locations))
	for _, loc := range locations {
		rows := byLocation[loc]
		var metrics []model.MetricProfile
		for _, metric := range model.MetricFields() {
			values := metricSeries(rows, metric)
			if len(values) == 0 {
				continue
			}
			low, high := minMax(values)
			metrics = append(metrics, model.MetricProfile{
				MetricName: metric,
				Count:      len(values),
				Min:        low,
				Max:        high,
				Mean:       stats.Mean(values),
				Median:     stats.Median(values),
				P25:        stats.Quantile(values, 0.25),
				P75:        stats.Quantile(values, 0.75),
				StdDev:     stats.PopulationStdDev(values),
				Skewness:   stats.Skewness(values),
				Kurtosis:   stats.Kurtosis(values),
			})
		}
		profiles = append(profiles, model.LocationProfile{
			LocationID: loc,
			Metrics:    metrics,
		})
	}
	return profiles
}

// correlations computes Pearson r for every metric pair over rows where both
// values are present, skipping pairs with fewer than two samples
func correlations(accepted []model.RawReading) []model.MetricPair {
	fields := model.MetricFields()
	var pairs []model.MetricPair

	for i := 0; i < len(fields); i++ {
		for j := i + 1; j < len(fields); j++ {
			var xs, ys []float64
			for k := range accepted {
				x, okX := accepted[k].Metric(fields[i])
				y, okY := accepted[k].Metric(fields[j])
				if okX && okY {
					xs = append(xs, x)
					ys = append(ys, y)
				}
			}
			if len(xs) < 2 {
				continue
			}
			pairs = append(pairs, model.MetricPair{
				MetricA: fields[i],
				MetricB: fields[j],
				Pearson: stats.Pearson(xs, ys),
				Samples: len(xs),
			})
		}
	}
	return pairs
}

// anomalies counts z-score and IQR outliers per metric across the whole file
func anomalies(accepted []model.RawReading) []model.AnomalySummary {
	var result []model.AnomalySummary
	for _, metric := range model.MetricFields() {
		values := metricSeries(accepted, metric)
		if len(values) <= anomalyMinSamples {
			continue
		}
		result = append(result, model.AnomalySummary{
			MetricName:     metric,
			ZScoreOutliers: stats.CountZScoreOutliers(values, zScoreThreshold),
			IQROutliers:    stats.CountIQROutliers(values),
		})
	}
	return result
}

func metricSeries(rows []model.RawReading, metric string) []float64 {
	var values []float64
	for i := range rows {
		if v, ok := rows[i].Metric(metric); ok {
			values = append(values, v)
		}
	}
	return values
}

func minMax(values []float64) (low, high float64) {
	low, high = values[0], values[0]
	for _, v := range values[1:] {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	return low, high
}
