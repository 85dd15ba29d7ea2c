package dataprocessing

import (
	"fmt"
	"sort"
	"strconv"

	"pfastats/internal/dataset"
	"pfastats/internal/errors"
)

// MeltCustodyTable converts a wide custody table back to long (area, year,
// count) points. The table must carry at least one trailing non-year column
// after the year columns; the upstream table writer always appends one, and
// a table without it has lost its final data column somewhere, so the melt
// refuses it rather than silently dropping a year. Empty cells are skipped.
// Output is sorted by (area, year).
func MeltCustodyTable(table *WideTable) ([]dataset.Point, error) {
	if len(table.Columns) < 2 {
		return nil, errors.NewPreconditionError("custody", "custody table needs at least one year column and one trailing column")
	}

	last := table.Columns[len(table.Columns)-1]
	if _, err := strconv.Atoi(last); err == nil {
		return nil, errors.NewPreconditionError("custody",
			fmt.Sprintf("custody table must end with a non-year column to discard, found year column %q", last))
	}

	yearCols := table.Columns[:len(table.Columns)-1]
	years := make([]int, len(yearCols))
	for i, col := range yearCols {
		year, err := strconv.Atoi(col)
		if err != nil {
			return nil, errors.NewParseError("custody", fmt.Sprintf("column %q is not a year", col), err)
		}
		years[i] = year
	}

	var points []dataset.Point
	for _, row := range table.Rows {
		for i, year := range years {
			if i >= len(row.Cells) || row.Cells[i] == "" {
				continue
			}
			value, err := parseFloatCell(row.Cells[i])
			if err != nil {
				return nil, errors.NewParseError("custody",
					fmt.Sprintf("area %q year %d: bad count %q", row.Key, year, row.Cells[i]), err)
			}
			points = append(points, dataset.Point{Area: row.Key, Year: year, Value: value})
		}
	}

	sort.Slice(points, func(i, j int) bool {
		if points[i].Area != points[j].Area {
			return points[i].Area < points[j].Area
		}
		return points[i].Year < points[j].Year
	})

	return points, nil
}
