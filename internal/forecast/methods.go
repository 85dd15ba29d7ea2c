package forecast

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"pfastats/internal/dataset"
)

// Default tuning parameters for the three projection methods.
const (
	DefaultTrendYears          = 5
	DefaultBaseYears           = 5
	DefaultMovingAverageWindow = 3
)

// linear trend needs at least this many points in the trend window.
const minTrendPoints = 3

// LinearTrend returns a method that fits an ordinary least-squares line to
// each area's most recent trendYears of totals and evaluates it at the
// target year. Areas with fewer than three points in the window are skipped.
func LinearTrend(trendYears int) MethodFunc {
	if trendYears <= 0 {
		trendYears = DefaultTrendYears
	}

	return func(series *dataset.AnnualSeries, targetYear int) []ProjectionRecord {
		var projections []ProjectionRecord

		for _, area := range series.ByArea() {
			maxYear := area.Points[len(area.Points)-1].Year
			minTrendYear := maxYear - trendYears + 1

			var years, totals []float64
			for _, p := range area.Points {
				if p.Year >= minTrendYear {
					years = append(years, float64(p.Year))
					totals = append(totals, p.Value)
				}
			}
			if len(years) < minTrendPoints {
				continue
			}

			intercept, slope := stat.LinearRegression(years, totals, nil, false)
			projected := slope*float64(targetYear) + intercept

			projections = append(projections, ProjectionRecord{
				Area:       area.Area,
				Year:       targetYear,
				Value:      clampProjection(projected),
				Method:     MethodLinearTrend,
				Diagnostic: slope,
			})
		}

		return projections
	}
}

// CAGR returns a method that extrapolates each area by its compound annual
// growth rate between the endpoints of a baseYears window. Areas are skipped
// unless both endpoints are observed, the start value is strictly positive,
// and the endpoints are distinct years.
func CAGR(baseYears int) MethodFunc {
	if baseYears <= 0 {
		baseYears = DefaultBaseYears
	}

	return func(series *dataset.AnnualSeries, targetYear int) []ProjectionRecord {
		var projections []ProjectionRecord

		for _, area := range series.ByArea() {
			maxYear := area.Points[len(area.Points)-1].Year
			startYear := maxYear - baseYears + 1

			start, startOK := series.Value(area.Area, startYear)
			end, endOK := series.Value(area.Area, maxYear)
			if !startOK || !endOK {
				continue
			}

			yearsDiff := maxYear - startYear
			if yearsDiff <= 0 || start <= 0 {
				// Nonpositive start values make the growth root
				// undefined; the area is skipped, matching the
				// zero-actual policy in the backtest path.
				continue
			}

			rate := math.Pow(end/start, 1/float64(yearsDiff)) - 1
			projected := end * math.Pow(1+rate, float64(targetYear-maxYear))

			projections = append(projections, ProjectionRecord{
				Area:       area.Area,
				Year:       targetYear,
				Value:      clampProjection(projected),
				Method:     MethodCAGR,
				Diagnostic: rate,
			})
		}

		return projections
	}
}

// MovingAverage returns a method that projects each area by adding the mean
// of its most recent window year-over-year changes to its latest observed
// total. Areas with fewer than window+1 observations are skipped.
func MovingAverage(window int) MethodFunc {
	if window <= 0 {
		window = DefaultMovingAverageWindow
	}

	return func(series *dataset.AnnualSeries, targetYear int) []ProjectionRecord {
		var projections []ProjectionRecord

		for _, area := range series.ByArea() {
			if len(area.Points) < window+1 {
				continue
			}

			changes := make([]float64, 0, len(area.Points)-1)
			for i := 1; i < len(area.Points); i++ {
				changes = append(changes, area.Points[i].Value-area.Points[i-1].Value)
			}

			avgChange := stat.Mean(changes[len(changes)-window:], nil)

			latest := area.Points[len(area.Points)-1]
			projected := latest.Value + avgChange*float64(targetYear-latest.Year)

			projections = append(projections, ProjectionRecord{
				Area:       area.Area,
				Year:       targetYear,
				Value:      clampProjection(projected),
				Method:     MethodMovingAverage,
				Diagnostic: avgChange,
			})
		}

		return projections
	}
}

// clampProjection floors a projected count at zero and rounds it to the
// nearest integer.
func clampProjection(v float64) float64 {
	return math.Round(math.Max(v, 0))
}
