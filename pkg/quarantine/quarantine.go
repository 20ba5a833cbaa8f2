// pkg/quarantine/quarantine.go
package quarantine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sensorflow/pipeline/pkg/model"
)

// Artifact is the JSON record written for every file with rejected rows.
// FileReason is set when the whole file was rejected before row
// classification (malformed input).
type Artifact struct {
	FileName      string                 `json:"file_name"`
	QuarantinedAt time.Time              `json:"quarantined_at"`
	FileReason    string                 `json:"file_reason,omitempty"`
	RejectedCount int                    `json:"rejected_count"`
	Rejected      []model.RejectedRecord `json:"rejected"`
}

// Writer durably records rejected rows and relocates source files to their
// terminal directory
type Writer struct {
	quarantineDir string
	processedDir  string
	logger        *zap.Logger
}

// NewWriter creates a quarantine writer for the configured directories
func NewWriter(quarantineDir, processedDir string, logger *zap.Logger) *Writer {
	return &Writer{
		quarantineDir: quarantineDir,
		processedDir:  processedDir,
		logger:        logger,
	}
}

// WriteArtifact writes the rejection artifact for fileName and returns its
// path. The artifact is written even when the accepted path later fails;
// rejection records must survive independently.
func (w *Writer) WriteArtifact(fileName, fileReason string, rejected []model.RejectedRecord) (string, error) {
	if err := os.MkdirAll(w.quarantineDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create quarantine directory: %w", err)
	}

	if rejected == nil {
		rejected = []model.RejectedRecord{}
	}
	artifact := Artifact{
		FileName:      fileName,
		QuarantinedAt: time.Now().UTC(),
		FileReason:    fileReason,
		RejectedCount: len(rejected),
		Rejected:      rejected,
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode rejection artifact: %w", err)
	}

	path := filepath.Join(w.quarantineDir, fileName+".rejections.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write rejection artifact: %w", err)
	}

	w.logger.Info("Wrote rejection artifact",
		zap.String("file", fileName),
		zap.String("artifact", path),
		zap.Int("rejected_rows", len(rejected)))
	return path, nil
}

// MoveToQuarantine relocates a rejected or malformed source file
func (w *Writer) MoveToQuarantine(path string) (string, error) {
	return w.move(path, w.quarantineDir)
}

// MoveToProcessed archives a successfully processed source file
func (w *Writer) MoveToProcessed(path string) (string, error) {
	return w.move(path, w.processedDir)
}

// move relocates path into destDir, appending a timestamp suffix when the
// destination name is already taken
func (w *Writer) move(path, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", destDir, err)
	}

	fileName := filepath.Base(path)
	destPath := filepath.Join(destDir, fileName)

	if _, err := os.Stat(destPath); err == nil {
		ext := filepath.Ext(fileName)
		name := strings.TrimSuffix(fileName, ext)
		timestamp := time.Now().Format("20060102_150405")
		destPath = filepath.Join(destDir, fmt.Sprintf("%s_%s%s", name, timestamp, ext))
	}

	if err := os.Rename(path, destPath); err != nil {
		return "", fmt.Errorf("failed to move %s to %s: %w", fileName, destDir, err)
	}

	w.logger.Info("Moved file",
		zap.String("from", path),
		zap.String("to", destPath))
	return destPath, nil
}
