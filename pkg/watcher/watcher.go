// pkg/watcher/watcher.go
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Watcher polls an inbox directory for new files. A file is emitted once its
// size has held steady across two consecutive scans, so half-written uploads
// are never dispatched.
type Watcher struct {
	dir         string
	extensions  map[string]struct{}
	interval    time.Duration
	startupScan bool
	logger      *zap.Logger

	// Scan bookkeeping, touched only from the Run goroutine.
	pending map[string]int64
	emitted map[string]struct{}
}

// New creates a watcher over dir for the given file extensions. Extensions
// are matched case-insensitively, with or without a leading dot.
func New(dir string, extensions []string, interval time.Duration, logger *zap.Logger) *Watcher {
	normalized := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[ext] = struct{}{}
	}

	return &Watcher{
		dir:         dir,
		extensions:  normalized,
		interval:    interval,
		startupScan: true,
		logger:      logger,
		pending:     make(map[string]int64),
		emitted:     make(map[string]struct{}),
	}
}

// WithStartupScan controls whether files already present at startup are
// dispatched. When disabled, preexisting files are marked as seen and only
// files arriving afterwards are emitted.
func (w *Watcher) WithStartupScan(enabled bool) *Watcher {
	w.startupScan = enabled
	return w
}

// Run polls until the context ends, calling handle with the full path of
// every file that becomes ready
func (w *Watcher) Run(ctx context.Context, handle func(path string)) {
	if !w.startupScan {
		w.suppressExisting()
	}

	w.logger.Info("Watching inbox",
		zap.String("dir", w.dir),
		zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.scan(handle)

		select {
		case <-ctx.Done():
			w.logger.Info("Watcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs the two scans needed for files already present to pass
// the stability check, then returns
func (w *Watcher) RunOnce(handle func(path string)) {
	w.scan(handle)
	w.scan(handle)
}

// suppressExisting marks everything currently in the inbox as handled
// without emitting it
func (w *Watcher) suppressExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("Could not scan inbox",
			zap.String("dir", w.dir),
			zap.Error(err))
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !w.wantedExtension(entry.Name()) {
			continue
		}
		w.emitted[entry.Name()] = struct{}{}
	}
}

func (w *Watcher) scan(handle func(path string)) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("Could not scan inbox",
			zap.String("dir", w.dir),
			zap.Error(err))
		return
	}

	for _, entry := range entries {
		name := entry.Name()

		if entry.IsDir() {
			continue
		}
		if _, done := w.emitted[name]; done {
			continue
		}
		if !w.wantedExtension(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			w.logger.Warn("Could not stat file",
				zap.String("file", name),
				zap.Error(err))
			continue
		}

		size := info.Size()
		previous, seen := w.pending[name]
		if seen && previous == size && size > 0 {
			delete(w.pending, name)
			w.emitted[name] = struct{}{}

			w.logger.Info("File ready",
				zap.String("file", name),
				zap.Int64("size", size))
			handle(filepath.Join(w.dir, name))
			continue
		}

		w.pending[name] = size
	}
}

func (w *Watcher) wantedExtension(name string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
