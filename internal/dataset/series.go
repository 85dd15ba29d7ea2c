package dataset

import "sort"

// seriesKey identifies one (area, year) cell of an annual series.
type seriesKey struct {
	area string
	year int
}

// AnnualSeries maps (area, year) to an annual observation total. At most one
// value exists per pair; missing years are absent, not zero. The series is
// immutable once constructed: every transformation allocates a new series.
type AnnualSeries struct {
	values map[seriesKey]float64
}

// YearValue is one chronological entry of a single area's series.
type YearValue struct {
	Year  int
	Value float64
}

// AreaSeries is one area's annual totals in ascending year order.
type AreaSeries struct {
	Area   string
	Points []YearValue
}

// NewSeries builds an annual series from points, summing values that share
// an (area, year) key.
func NewSeries(points []Point) *AnnualSeries {
	values := make(map[seriesKey]float64, len(points))
	for _, p := range points {
		values[seriesKey{p.Area, p.Year}] += p.Value
	}
	return &AnnualSeries{values: values}
}

// SeriesFromObservations builds an annual series by summing observation
// frequencies per (area, year).
func SeriesFromObservations(rows []Observation) *AnnualSeries {
	points := make([]Point, 0, len(rows))
	for _, r := range rows {
		points = append(points, Point{Area: r.Area, Year: r.Year, Value: r.Freq})
	}
	return NewSeries(points)
}

// Len returns the number of (area, year) entries.
func (s *AnnualSeries) Len() int {
	return len(s.values)
}

// Value returns the total for (area, year) and whether it is present.
func (s *AnnualSeries) Value(area string, year int) (float64, bool) {
	v, ok := s.values[seriesKey{area, year}]
	return v, ok
}

// Has reports whether the series holds a value for (area, year).
func (s *AnnualSeries) Has(area string, year int) bool {
	_, ok := s.values[seriesKey{area, year}]
	return ok
}

// Areas returns the distinct area identifiers in ascending order.
func (s *AnnualSeries) Areas() []string {
	seen := make(map[string]bool)
	var areas []string
	for k := range s.values {
		if !seen[k.area] {
			seen[k.area] = true
			areas = append(areas, k.area)
		}
	}
	sort.Strings(areas)
	return areas
}

// MinYear returns the earliest year present. ok is false for an empty series.
func (s *AnnualSeries) MinYear() (year int, ok bool) {
	for k := range s.values {
		if !ok || k.year < year {
			year, ok = k.year, true
		}
	}
	return year, ok
}

// MaxYear returns the latest year present. ok is false for an empty series.
func (s *AnnualSeries) MaxYear() (year int, ok bool) {
	for k := range s.values {
		if !ok || k.year > year {
			year, ok = k.year, true
		}
	}
	return year, ok
}

// Points returns all entries sorted by (area, year).
func (s *AnnualSeries) Points() []Point {
	points := make([]Point, 0, len(s.values))
	for k, v := range s.values {
		points = append(points, Point{Area: k.area, Year: k.year, Value: v})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Area != points[j].Area {
			return points[i].Area < points[j].Area
		}
		return points[i].Year < points[j].Year
	})
	return points
}

// ByArea groups the series into per-area chronological slices, ordered by
// area name. This is the shape the projection methods consume.
func (s *AnnualSeries) ByArea() []AreaSeries {
	grouped := make(map[string][]YearValue)
	for k, v := range s.values {
		grouped[k.area] = append(grouped[k.area], YearValue{Year: k.year, Value: v})
	}

	out := make([]AreaSeries, 0, len(grouped))
	for area, points := range grouped {
		sort.Slice(points, func(i, j int) bool { return points[i].Year < points[j].Year })
		out = append(out, AreaSeries{Area: area, Points: points})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Area < out[j].Area })
	return out
}

// TruncateBefore returns a new series holding only years strictly before the
// cut year. Used by the backtesting validator.
func (s *AnnualSeries) TruncateBefore(year int) *AnnualSeries {
	values := make(map[seriesKey]float64)
	for k, v := range s.values {
		if k.year < year {
			values[k] = v
		}
	}
	return &AnnualSeries{values: values}
}

// FromYear returns a new series holding only years >= the given year.
func (s *AnnualSeries) FromYear(year int) *AnnualSeries {
	values := make(map[seriesKey]float64)
	for k, v := range s.values {
		if k.year >= year {
			values[k] = v
		}
	}
	return &AnnualSeries{values: values}
}

// YearTotals returns one area's totals keyed by year.
func (s *AnnualSeries) YearTotals(area string) map[int]float64 {
	totals := make(map[int]float64)
	for k, v := range s.values {
		if k.area == area {
			totals[k.year] = v
		}
	}
	return totals
}

// Equal reports whether two series hold identical (area, year, value)
// entries, independent of construction order.
func (s *AnnualSeries) Equal(other *AnnualSeries) bool {
	if len(s.values) != len(other.values) {
		return false
	}
	for k, v := range s.values {
		ov, ok := other.values[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}
