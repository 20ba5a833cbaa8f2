// pkg/fetcher/fetcher.go
package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Fetcher downloads dataset files into the inbox directory
type Fetcher struct {
	client  *resty.Client
	dataDir string
	logger  *zap.Logger
}

// New creates a fetcher writing into dataDir
func New(dataDir string, timeout time.Duration, logger *zap.Logger) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second)

	return &Fetcher{
		client:  client,
		dataDir: dataDir,
		logger:  logger,
	}
}

// FetchAll downloads every URL into the inbox. Individual failures are
// logged and skipped; an error comes back only when nothing could be
// downloaded.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(f.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create data directory %s: %w", f.dataDir, err)
	}

	var paths []string
	failures := 0

	for i, rawURL := range urls {
		dest, err := f.fetchOne(ctx, rawURL, i)
		if err != nil {
			failures++
			f.logger.Error("Download failed",
				zap.String("url", rawURL),
				zap.Error(err))
			continue
		}
		paths = append(paths, dest)
	}

	if failures == len(urls) {
		return nil, fmt.Errorf("all %d downloads failed", len(urls))
	}

	return paths, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, rawURL string, index int) (string, error) {
	name := fileNameFromURL(rawURL, index)
	dest := filepath.Join(f.dataDir, name)

	f.logger.Info("Downloading dataset file",
		zap.String("url", rawURL),
		zap.String("dest", dest))

	resp, err := f.client.R().
		SetContext(ctx).
		SetOutput(dest).
		Get(rawURL)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		os.Remove(dest)
		return "", fmt.Errorf("server returned %s", resp.Status())
	}

	f.logger.Info("Downloaded dataset file",
		zap.String("file", name),
		zap.Int64("bytes", resp.Size()))

	return dest, nil
}

// fileNameFromURL derives the destination file name from the URL path,
// falling back to a positional name when the path has none
func fileNameFromURL(rawURL string, index int) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		name := path.Base(u.Path)
		if name != "" && name != "." && name != "/" {
			return name
		}
	}
	return fmt.Sprintf("dataset_%d.csv", index+1)
}
