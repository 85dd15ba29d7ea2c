package rates

import (
	"math"
	"sort"
)

// PublicationTable is the pivoted presentation of the rate table: one row
// per area, one column per year, values are imprisonment rates. Rows are
// sorted ascending by the most recent year's rate; this ordering is part of
// the publication contract, not incidental.
type PublicationTable struct {
	Years []int
	Rows  []PublicationRow
}

// PublicationRow is one area's rates across all years. A missing or
// undefined rate is NaN.
type PublicationRow struct {
	Area  string
	Rates []float64 // parallel to PublicationTable.Years
}

// Pivot reshapes merged rate rows into the publication table.
func Pivot(rows []MergedRateRow) *PublicationTable {
	yearSet := make(map[int]bool)
	byArea := make(map[string]map[int]float64)
	for _, r := range rows {
		yearSet[r.Year] = true
		if byArea[r.Area] == nil {
			byArea[r.Area] = make(map[int]float64)
		}
		byArea[r.Area][r.Year] = r.Rate
	}

	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	table := &PublicationTable{Years: years}
	for area, rates := range byArea {
		row := PublicationRow{Area: area, Rates: make([]float64, len(years))}
		for i, y := range years {
			if rate, ok := rates[y]; ok {
				row.Rates[i] = rate
			} else {
				row.Rates[i] = math.NaN()
			}
		}
		table.Rows = append(table.Rows, row)
	}

	if len(years) == 0 {
		return table
	}

	// Ascending by the latest year's rate; areas without a defined rate
	// for that year sink to the bottom, alphabetical within ties.
	latest := len(years) - 1
	sort.Slice(table.Rows, func(i, j int) bool {
		ri, rj := table.Rows[i].Rates[latest], table.Rows[j].Rates[latest]
		iNaN, jNaN := math.IsNaN(ri), math.IsNaN(rj)
		switch {
		case iNaN && jNaN:
			return table.Rows[i].Area < table.Rows[j].Area
		case iNaN:
			return false
		case jNaN:
			return true
		case ri != rj:
			return ri < rj
		default:
			return table.Rows[i].Area < table.Rows[j].Area
		}
	})

	return table
}
