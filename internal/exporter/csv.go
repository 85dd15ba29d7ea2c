package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"pfastats/internal/config"
)

// CSVWriter writes output tables into the configured data directory layout.
// Every file gets a UTF-8 BOM so the published counts open cleanly in Excel.
type CSVWriter struct {
	paths *config.PathsConfig
}

// NewCSVWriter creates a writer over the configured data directories.
func NewCSVWriter(paths *config.PathsConfig) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// WriteSimpleCSV writes one table with a header row, creating the target
// directory when needed and replacing any previous version of the file.
func (w *CSVWriter) WriteSimpleCSV(filePath string, headers []string, records [][]string) error {
	fullPath := w.resolvePath(filePath)

	slog.Info("writing table",
		slog.String("file", filePath),
		slog.Int("rows", len(records)))

	file, err := w.createFile(fullPath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	return writer.Error()
}

// StreamWriter writes a table row by row, so the long observation datasets
// never have to be buffered whole before export.
type StreamWriter struct {
	file   *os.File
	writer *csv.Writer
}

// CreateStreamWriter opens a streaming writer and emits the header row.
func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string) (*StreamWriter, error) {
	fullPath := w.resolvePath(filePath)

	slog.Info("opening table stream",
		slog.String("file", filePath),
		slog.Int("columns", len(headers)))

	file, err := w.createFile(fullPath)
	if err != nil {
		return nil, err
	}

	writer := csv.NewWriter(file)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	return &StreamWriter{file: file, writer: writer}, nil
}

// WriteRecord writes a single row to the stream.
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes the stream and closes the underlying file.
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// createFile creates the target directory and the file with the BOM written.
func (w *CSVWriter) createFile(fullPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write BOM: %w", err)
	}
	return file, nil
}

// resolvePath resolves a path to the appropriate data directory. Relative
// paths default to the processed directory; "raw/" and "interim/" prefixes
// route to the matching stage directory.
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}

	switch {
	case strings.HasPrefix(filePath, "raw/"):
		return filepath.Join(w.paths.RawDir, strings.TrimPrefix(filePath, "raw/"))
	case strings.HasPrefix(filePath, "interim/"):
		return filepath.Join(w.paths.InterimDir, strings.TrimPrefix(filePath, "interim/"))
	default:
		return filepath.Join(w.paths.ProcessedDir, filePath)
	}
}
