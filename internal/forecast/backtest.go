package forecast

import (
	"math"

	"pfastats/internal/dataset"
)

// Backtest validates a projection method against a known historical year.
// The series is truncated to years strictly before actualYear, the method is
// invoked with that year as its target, and each projection is compared to
// the observed total for the same area. Areas missing from either side are
// dropped from the comparison; areas whose observed total is zero are
// likewise excluded, because a percentage error against zero is undefined.
// The zero-actual exclusion is the same policy the live methods apply to
// degenerate inputs, keeping selection fair across both paths.
func Backtest(series *dataset.AnnualSeries, method MethodFunc, actualYear int) []ValidationResult {
	train := series.TruncateBefore(actualYear)
	projections := method(train, actualYear)

	var results []ValidationResult
	for _, p := range projections {
		actual, ok := series.Value(p.Area, actualYear)
		if !ok || actual == 0 {
			continue
		}

		absErr := math.Abs(p.Value - actual)
		results = append(results, ValidationResult{
			Area:      p.Area,
			Predicted: p.Value,
			Actual:    actual,
			AbsError:  absErr,
			PctError:  absErr / actual * 100,
		})
	}

	return results
}

// meanPctError averages the percentage errors of a validation set. ok is
// false when the set is empty.
func meanPctError(results []ValidationResult) (mape float64, ok bool) {
	if len(results) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range results {
		sum += r.PctError
	}
	return sum / float64(len(results)), true
}
