package exporter

import (
	"fmt"
	"math"
	"strconv"

	"pfastats/internal/config"
	"pfastats/internal/errors"
	"pfastats/internal/rates"
)

// RateExporter writes the merged rate table and the pivoted publication
// table. Output filenames carry the year span of the data they hold.
type RateExporter struct {
	csvWriter *CSVWriter
	pipeline  *config.PipelineConfig
}

// NewRateExporter creates a rate table exporter.
func NewRateExporter(paths *config.PathsConfig, pipeline *config.PipelineConfig) *RateExporter {
	return &RateExporter{
		csvWriter: NewCSVWriter(paths),
		pipeline:  pipeline,
	}
}

// ExportRateTable writes the long merged rate table to the processed
// directory and returns the filename used.
func (e *RateExporter) ExportRateTable(rows []rates.MergedRateRow) (string, error) {
	minYear, maxYear, ok := rates.YearRange(rows)
	if !ok {
		return "", errors.NewPreconditionError("rates", "cannot export an empty rate table")
	}

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Area,
			strconv.Itoa(r.Year),
			formatCount(r.Population),
			formatCount(r.Custody),
			formatRate(r.Rate),
		})
	}

	filename := fmt.Sprintf(e.pipeline.RateTableTemplate, minYear, maxYear)
	headers := []string{"pfa", "year", "population", "custody_count", "imprisonment_rate"}
	if err := e.csvWriter.WriteSimpleCSV(filename, headers, records); err != nil {
		return "", fmt.Errorf("failed to write rate table: %w", err)
	}

	return filename, nil
}

// ExportPublicationTable writes the pivoted rate table to the processed
// directory and returns the filename used.
func (e *RateExporter) ExportPublicationTable(table *rates.PublicationTable) (string, error) {
	if len(table.Years) == 0 {
		return "", errors.NewPreconditionError("rates", "cannot export an empty publication table")
	}

	headers := make([]string, 0, len(table.Years)+1)
	headers = append(headers, "pfa")
	for _, y := range table.Years {
		headers = append(headers, strconv.Itoa(y))
	}

	records := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		record := make([]string, 0, len(row.Rates)+1)
		record = append(record, row.Area)
		for _, rate := range row.Rates {
			record = append(record, formatRate(rate))
		}
		records = append(records, record)
	}

	minYear, maxYear := table.Years[0], table.Years[len(table.Years)-1]
	filename := fmt.Sprintf(e.pipeline.PublicationTemplate, minYear, maxYear)
	if err := e.csvWriter.WriteSimpleCSV(filename, headers, records); err != nil {
		return "", fmt.Errorf("failed to write publication table: %w", err)
	}

	return filename, nil
}

// formatCount renders an optional count. Counts are whole people; missing
// values render empty rather than zero so a join gap stays visible.
func formatCount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// formatRate renders a rate to one decimal place, empty when undefined.
func formatRate(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
