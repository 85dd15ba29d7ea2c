// Command pipeline runs the full imprisonment-rate pipeline: it loads the
// raw sentencing and population publications from the data directories,
// produces the custody tables, projects the population where the custody
// data runs ahead of it, and writes the merged rate tables.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"pfastats/internal/config"
	"pfastats/internal/infrastructure"
	"pfastats/internal/operations"
)

func main() {
	rawDir := flag.String("raw", "", "raw data directory (overrides config)")
	processedDir := flag.String("out", "", "processed output directory (overrides config)")
	traceEnabled := flag.Bool("trace", false, "emit trace spans to stderr")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *rawDir != "" {
		cfg.Paths.RawDir = *rawDir
	}
	if *processedDir != "" {
		cfg.Paths.ProcessedDir = *processedDir
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

	tracing, err := infrastructure.InitializeTracing(infrastructure.TracingConfig{Enabled: *traceEnabled}, logger)
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			logger.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	runner := operations.NewRunner(logger, tracing.Tracer, operations.NewPipelineSteps(cfg, logger))

	state, err := runner.Run(context.Background())
	if err != nil {
		logger.Error("Pipeline run failed",
			slog.String("run_id", state.ID),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	for _, file := range state.Artifacts.OutputFiles {
		logger.Info("output written", slog.String("file", file))
	}
	if state.Artifacts.Selection != nil {
		logger.Info("population projection used",
			slog.String("method", string(state.Artifacts.Selection.Method)))
	}
}
