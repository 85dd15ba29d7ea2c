package forecast

import "pfastats/internal/dataset"

// ExtendSeries unions a historical series with projection records by
// (area, year). Where a key exists on both sides the historical value is
// kept: a projection must never overwrite observed data. The result is a
// fresh series; the inputs are untouched.
func ExtendSeries(historical *dataset.AnnualSeries, projections []ProjectionRecord) *dataset.AnnualSeries {
	points := historical.Points()
	for _, p := range projections {
		if historical.Has(p.Area, p.Year) {
			continue
		}
		points = append(points, dataset.Point{Area: p.Area, Year: p.Year, Value: p.Value})
	}
	return dataset.NewSeries(points)
}
