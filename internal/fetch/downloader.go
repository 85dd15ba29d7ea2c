// Package fetch downloads the raw source publications. Sources already on
// disk are skipped, so a re-run only pulls what is missing; ZIP responses
// are unpacked in place because the quarterly outcomes extract ships zipped.
package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"pfastats/internal/config"
	"pfastats/internal/errors"
)

// Downloader fetches raw source files into the raw data directory.
type Downloader struct {
	client *http.Client
	logger *slog.Logger
	cfg    config.DownloadConfig
	rawDir string
}

// NewDownloader creates a downloader for the configured sources.
func NewDownloader(logger *slog.Logger, cfg config.DownloadConfig, rawDir string) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		cfg:    cfg,
		rawDir: rawDir,
	}
}

// FetchAll downloads every configured source concurrently, bounded by the
// configured concurrency. A failed source fails the whole fetch; partial raw
// data is worse than no raw data because the pipeline would silently process
// a stale vintage next to a fresh one.
func (d *Downloader) FetchAll(ctx context.Context, sources []config.SourceConfig) error {
	if err := os.MkdirAll(d.rawDir, 0755); err != nil {
		return errors.NewStorageError(fmt.Sprintf("create raw directory %s", d.rawDir), err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)

	for _, source := range sources {
		g.Go(func() error {
			return d.fetchSource(ctx, source)
		})
	}

	return g.Wait()
}

// fetchSource downloads one source unless its file already exists.
func (d *Downloader) fetchSource(ctx context.Context, source config.SourceConfig) error {
	target := filepath.Join(d.rawDir, source.Filename)
	if _, err := os.Stat(target); err == nil {
		d.logger.InfoContext(ctx, "source already downloaded, skipping",
			slog.String("source", source.Name),
			slog.String("file", source.Filename))
		return nil
	}

	body, err := d.get(ctx, source)
	if err != nil {
		return err
	}

	if isZip(body) {
		return d.extractZip(ctx, source, body)
	}

	if err := os.WriteFile(target, body, 0644); err != nil {
		return errors.NewStorageError(fmt.Sprintf("write %s", target), err)
	}

	d.logger.InfoContext(ctx, "downloaded source",
		slog.String("source", source.Name),
		slog.String("file", source.Filename),
		slog.Int("bytes", len(body)))

	return nil
}

// get fetches the source URL with retries. Transient failures back off
// linearly; a non-2xx status is retried too because the publishing sites
// intermittently return 503 under load.
func (d *Downloader) get(ctx context.Context, source config.SourceConfig) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= d.cfg.Retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
		if err != nil {
			return nil, errors.NewDownloadError(source.Name, "build request", err)
		}

		resp, err := d.client.Do(req)
		if err != nil {
			lastErr = err
			d.logger.WarnContext(ctx, "download attempt failed",
				slog.String("source", source.Name),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("unexpected status %s", resp.Status)
			d.logger.WarnContext(ctx, "download attempt failed",
				slog.String("source", source.Name),
				slog.Int("attempt", attempt),
				slog.Int("status", resp.StatusCode))
			continue
		}

		return body, nil
	}

	return nil, errors.NewDownloadError(source.Name,
		fmt.Sprintf("giving up after %d attempts", d.cfg.Retries), lastErr)
}

// extractZip unpacks the CSV members of a zipped response into the raw
// directory, skipping members already extracted.
func (d *Downloader) extractZip(ctx context.Context, source config.SourceConfig, body []byte) error {
	reader, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return errors.NewDownloadError(source.Name, "open zip response", err)
	}

	extracted := 0
	for _, member := range reader.File {
		name := filepath.Base(member.Name)
		if !strings.HasSuffix(strings.ToLower(name), ".csv") {
			continue
		}

		target := filepath.Join(d.rawDir, name)
		if _, err := os.Stat(target); err == nil {
			d.logger.InfoContext(ctx, "zip member already extracted, skipping",
				slog.String("source", source.Name),
				slog.String("file", name))
			continue
		}

		rc, err := member.Open()
		if err != nil {
			return errors.NewDownloadError(source.Name, fmt.Sprintf("open zip member %s", name), err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return errors.NewDownloadError(source.Name, fmt.Sprintf("read zip member %s", name), err)
		}
		if err := os.WriteFile(target, content, 0644); err != nil {
			return errors.NewStorageError(fmt.Sprintf("write %s", target), err)
		}

		extracted++
		d.logger.InfoContext(ctx, "extracted zip member",
			slog.String("source", source.Name),
			slog.String("file", name))
	}

	if extracted == 0 {
		d.logger.InfoContext(ctx, "zip contained no new CSV members",
			slog.String("source", source.Name))
	}

	return nil
}

func isZip(body []byte) bool {
	return len(body) >= 4 && bytes.Equal(body[:4], []byte{'P', 'K', 0x03, 0x04})
}
