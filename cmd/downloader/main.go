// Command downloader fetches the raw source publications into the raw data
// directory. Sources already present on disk are skipped, so it is safe to
// re-run; use it before the pipeline command.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"pfastats/internal/config"
	"pfastats/internal/fetch"
	"pfastats/internal/infrastructure"
)

func main() {
	rawDir := flag.String("raw", "", "raw data directory (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *rawDir != "" {
		cfg.Paths.RawDir = *rawDir
	}

	if err := cfg.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if len(cfg.Download.Sources) == 0 {
		logger.Error("No download sources configured; add a sources list to config.yaml")
		os.Exit(1)
	}

	downloader := fetch.NewDownloader(logger, cfg.Download, cfg.Paths.RawDir)
	if err := downloader.FetchAll(context.Background(), cfg.Download.Sources); err != nil {
		logger.Error("Download failed", "error", err)
		os.Exit(1)
	}

	logger.Info("All sources downloaded",
		slog.Int("sources", len(cfg.Download.Sources)),
		slog.String("raw_dir", cfg.Paths.RawDir))
}
