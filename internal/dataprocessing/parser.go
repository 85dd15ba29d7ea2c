package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"pfastats/internal/errors"
)

// outcomesColumns are the raw headers of the outcomes-by-offence extract.
// Missing any one of them is a precondition violation, not something to
// default around.
var outcomesColumns = []string{
	"Police Force Area",
	"Year",
	"Sex",
	"Age Group",
	"Offence Group",
	"Sentence Outcome",
	"Custodial Sentence Length",
	"Sentenced",
}

// populationColumns are the raw headers of the ONS v4 population extract.
var populationColumns = []string{
	"administrative-geography",
	"Geography",
	"calendar-years",
	"Sex",
	"Age",
	"v4_0",
}

// Lookup column headers carry the vintage year in their names (LAD24CD,
// PFA24NM), so they are matched by pattern rather than literally.
var (
	ladCodePattern = regexp.MustCompile(`(?i)^LAD\d{2}CD$`)
	pfaNamePattern = regexp.MustCompile(`(?i)^PFA\d{2}NM$`)
)

// LoadOutcomes reads one outcomes-by-offence extract, CSV or Excel. The
// quarterly publication ships as two files (current and earlier years);
// callers load each and concatenate.
func LoadOutcomes(path string) ([]SentencingRecord, error) {
	rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	table := filepath.Base(path)
	cols, err := mapColumns(table, rows[0], outcomesColumns)
	if err != nil {
		return nil, err
	}

	records := make([]SentencingRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		year, err := parseIntCell(row[cols["Year"]])
		if err != nil {
			return nil, errors.NewParseError(table, fmt.Sprintf("row %d: bad year %q", i+2, row[cols["Year"]]), err)
		}
		freq, err := parseFloatCell(row[cols["Sentenced"]])
		if err != nil {
			return nil, errors.NewParseError(table, fmt.Sprintf("row %d: bad sentenced count %q", i+2, row[cols["Sentenced"]]), err)
		}

		records = append(records, SentencingRecord{
			Year:           year,
			PFA:            strings.TrimSpace(row[cols["Police Force Area"]]),
			Sex:            strings.TrimSpace(row[cols["Sex"]]),
			AgeGroup:       strings.TrimSpace(row[cols["Age Group"]]),
			Offence:        strings.TrimSpace(row[cols["Offence Group"]]),
			Outcome:        strings.TrimSpace(row[cols["Sentence Outcome"]]),
			SentenceLength: strings.TrimSpace(row[cols["Custodial Sentence Length"]]),
			Sentenced:      freq,
		})
	}

	slog.Info("loaded outcomes data",
		slog.String("file", table),
		slog.Int("rows", len(records)))

	return records, nil
}

// LoadPopulationCSV reads an ONS mid-year population estimates extract in the
// v4 observation layout.
func LoadPopulationCSV(path string) ([]PopulationRecord, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	table := filepath.Base(path)
	cols, err := mapColumns(table, rows[0], populationColumns)
	if err != nil {
		return nil, err
	}

	records := make([]PopulationRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		year, err := parseIntCell(row[cols["calendar-years"]])
		if err != nil {
			return nil, errors.NewParseError(table, fmt.Sprintf("row %d: bad year %q", i+2, row[cols["calendar-years"]]), err)
		}
		freq, err := parseFloatCell(row[cols["v4_0"]])
		if err != nil {
			return nil, errors.NewParseError(table, fmt.Sprintf("row %d: bad observation %q", i+2, row[cols["v4_0"]]), err)
		}

		records = append(records, PopulationRecord{
			LADCode: strings.TrimSpace(row[cols["administrative-geography"]]),
			LAName:  strings.TrimSpace(row[cols["Geography"]]),
			Year:    year,
			Sex:     strings.TrimSpace(row[cols["Sex"]]),
			Age:     strings.TrimSpace(row[cols["Age"]]),
			Freq:    freq,
		})
	}

	slog.Info("loaded population data",
		slog.String("file", table),
		slog.Int("rows", len(records)))

	return records, nil
}

// LoadAreaLookup reads the local-authority to police-force-area lookup and
// returns a LAD code to PFA name map. The lookup is published as either an
// Excel workbook or a CSV; both are accepted.
func LoadAreaLookup(path string) (map[string]string, error) {
	rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	table := filepath.Base(path)
	codeCol, nameCol := -1, -1
	for i, header := range rows[0] {
		h := strings.TrimSpace(header)
		switch {
		case ladCodePattern.MatchString(h):
			codeCol = i
		case pfaNamePattern.MatchString(h):
			nameCol = i
		}
	}
	if codeCol == -1 || nameCol == -1 {
		return nil, errors.NewPreconditionError(table, "lookup is missing the LAD code or PFA name column")
	}

	lookup := make(map[string]string, len(rows)-1)
	for _, row := range rows[1:] {
		if codeCol >= len(row) || nameCol >= len(row) {
			continue
		}
		code := strings.TrimSpace(row[codeCol])
		if code == "" {
			continue
		}
		lookup[code] = strings.TrimSpace(row[nameCol])
	}

	slog.Info("loaded area lookup",
		slog.String("file", table),
		slog.Int("areas", len(lookup)))

	return lookup, nil
}

// LoadCustodyWideCSV reads a wide custody table: one row per force area, one
// column per year, plus any trailing presentation columns. Cells are kept as
// strings; MeltCustodyTable owns the numeric interpretation.
func LoadCustodyWideCSV(path string) (*WideTable, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	table := filepath.Base(path)
	header := rows[0]
	if len(header) < 2 {
		return nil, errors.NewPreconditionError(table, "custody table needs a key column and at least one data column")
	}

	wide := &WideTable{
		IndexName: strings.TrimSpace(header[0]),
		Columns:   make([]string, 0, len(header)-1),
	}
	for _, h := range header[1:] {
		wide.Columns = append(wide.Columns, strings.TrimSpace(h))
	}

	for _, row := range rows[1:] {
		cells := make([]string, len(row)-1)
		for j, cell := range row[1:] {
			cells[j] = strings.TrimSpace(cell)
		}
		wide.Rows = append(wide.Rows, WideRow{Key: strings.TrimSpace(row[0]), Cells: cells})
	}

	return wide, nil
}

// readTable dispatches on the file extension: Excel workbooks go through
// excelize, everything else is read as CSV.
func readTable(path string) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readWorkbook(path)
	}
	return readCSV(path)
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError(fmt.Sprintf("open %s", path), err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewParseError(filepath.Base(path), "read CSV records", err)
	}
	if len(rows) < 2 {
		return nil, errors.NewParseError(filepath.Base(path), "file has no data rows", nil)
	}
	return rows, nil
}

func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.NewStorageError(fmt.Sprintf("open %s", path), err)
	}
	defer f.Close()

	// Take the first sheet that yields more than a header. Excelize trims
	// trailing empty cells, so rows are padded back to the header width.
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil || len(rows) < 2 {
			continue
		}
		width := len(rows[0])
		for i, row := range rows {
			for len(row) < width {
				row = append(row, "")
			}
			rows[i] = row
		}
		return rows, nil
	}
	return nil, errors.NewParseError(filepath.Base(path), "workbook has no data sheet", nil)
}

// mapColumns resolves required header names to their column indexes,
// case-insensitively. All required columns must be present in every row that
// follows, so the narrowest row bounds the check.
func mapColumns(table string, header []string, required []string) (map[string]int, error) {
	cols := make(map[string]int, len(required))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	out := make(map[string]int, len(required))
	for _, name := range required {
		idx, ok := cols[strings.ToLower(name)]
		if !ok {
			return nil, errors.NewPreconditionError(table, fmt.Sprintf("required column %q is missing", name))
		}
		out[name] = idx
	}
	return out, nil
}

func parseIntCell(cell string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(cell))
}

func parseFloatCell(cell string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(cell), ",", ""), 64)
}
