// pkg/report/summary.go
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/sensorflow/pipeline/pkg/model"
)

// SummaryReport is the scheduled storage-wide rollup artifact
type SummaryReport struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Locations   []model.LocationStats `json:"locations"`
	Metrics     []model.MetricRollup  `json:"metrics"`
	RecentFiles []model.FileStatus    `json:"recent_files"`
}

// WriteSummary writes the rollup as indented JSON and returns its path
func (b *Builder) WriteSummary(summary *SummaryReport) (string, error) {
	if err := os.MkdirAll(b.reportsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	name := fmt.Sprintf("summary_report_%s.json", summary.GeneratedAt.Format("20060102_150405"))
	path := filepath.Join(b.reportsDir, name)

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode summary report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write summary report: %w", err)
	}

	b.logger.Info("Wrote summary report",
		zap.String("report", path),
		zap.Int("locations", len(summary.Locations)),
		zap.Int("metrics", len(summary.Metrics)))
	return path, nil
}
