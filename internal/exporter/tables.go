package exporter

import (
	"fmt"
	"strconv"

	"pfastats/internal/config"
	"pfastats/internal/dataprocessing"
	"pfastats/internal/dataset"
)

// TableExporter writes the intermediate long and wide tables the pipeline
// produces on the way to the rate table.
type TableExporter struct {
	csvWriter *CSVWriter
}

// NewTableExporter creates an intermediate table exporter.
func NewTableExporter(paths *config.PathsConfig) *TableExporter {
	return &TableExporter{csvWriter: NewCSVWriter(paths)}
}

// ExportWideTable writes a crosstab such as the custody tables.
func (e *TableExporter) ExportWideTable(filePath string, table *dataprocessing.WideTable) error {
	headers := make([]string, 0, len(table.Columns)+1)
	headers = append(headers, table.IndexName)
	headers = append(headers, table.Columns...)

	records := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		record := make([]string, 0, len(row.Cells)+1)
		record = append(record, row.Key)
		record = append(record, row.Cells...)
		records = append(records, record)
	}

	if err := e.csvWriter.WriteSimpleCSV(filePath, headers, records); err != nil {
		return fmt.Errorf("failed to write wide table: %w", err)
	}
	return nil
}

// ExportSeries writes an annual series as long (pfa, year, value) rows.
func (e *TableExporter) ExportSeries(filePath, valueHeader string, series *dataset.AnnualSeries) error {
	points := series.Points()
	records := make([][]string, 0, len(points))
	for _, p := range points {
		records = append(records, []string{
			p.Area,
			strconv.Itoa(p.Year),
			strconv.FormatFloat(p.Value, 'f', -1, 64),
		})
	}

	headers := []string{dataset.KeyArea, dataset.KeyYear, valueHeader}
	if err := e.csvWriter.WriteSimpleCSV(filePath, headers, records); err != nil {
		return fmt.Errorf("failed to write series: %w", err)
	}
	return nil
}

// ExportObservations streams grouped observations with the named attribute
// columns between the year and the count. The observation tables are the
// largest files the pipeline writes, so they go through the stream writer
// row by row.
func (e *TableExporter) ExportObservations(filePath string, obs []dataset.Observation, attrKeys []string) error {
	headers := make([]string, 0, len(attrKeys)+3)
	headers = append(headers, dataset.KeyArea, dataset.KeyYear)
	headers = append(headers, attrKeys...)
	headers = append(headers, "freq")

	stream, err := e.csvWriter.CreateStreamWriter(filePath, headers)
	if err != nil {
		return fmt.Errorf("failed to open observations stream: %w", err)
	}

	record := make([]string, 0, len(headers))
	for _, o := range obs {
		record = append(record[:0], o.Area, strconv.Itoa(o.Year))
		for _, key := range attrKeys {
			v, _ := o.Attr(key)
			record = append(record, v)
		}
		record = append(record, strconv.FormatFloat(o.Freq, 'f', -1, 64))
		if err := stream.WriteRecord(record); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write observation row: %w", err)
		}
	}

	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close observations stream: %w", err)
	}
	return nil
}
