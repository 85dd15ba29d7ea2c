// Package forecast implements the population projection engine: three
// extrapolation methods, backtesting validation against a known historical
// year, automatic method selection by mean absolute percentage error, and
// extension of a historical series with the winning projection.
package forecast

import "pfastats/internal/dataset"

// Method names a projection method.
type Method string

const (
	MethodLinearTrend   Method = "linear_trend"
	MethodCAGR          Method = "cagr"
	MethodMovingAverage Method = "moving_average"
)

// methodPriority is the fixed tie-break order when two methods score an
// identical mean percentage error: the earlier method wins.
var methodPriority = []Method{MethodLinearTrend, MethodCAGR, MethodMovingAverage}

// ProjectionRecord is the output of a single method for a single area.
type ProjectionRecord struct {
	Area string
	Year int
	// Value is the projected count, floored at zero and rounded to the
	// nearest integer.
	Value float64
	// Method names the producing method.
	Method Method
	// Diagnostic is the method-specific fit value: the trend slope for
	// linear_trend, the growth rate for cagr, the average annual change
	// for moving_average.
	Diagnostic float64
}

// MethodFunc produces one projection per area with sufficient history.
// Areas lacking the method's minimum history are absent from the output,
// never an error.
type MethodFunc func(series *dataset.AnnualSeries, targetYear int) []ProjectionRecord

// ValidationResult compares one area's backtest prediction against the
// observed value for the validation year.
type ValidationResult struct {
	Area      string
	Predicted float64
	Actual    float64
	AbsError  float64
	PctError  float64
}

// MethodScore is one method's aggregate backtest performance.
type MethodScore struct {
	Method Method
	// MAPE is the mean absolute percentage error across validated areas.
	MAPE float64
	// Areas is the number of areas that contributed to the score.
	Areas int
}

// Selection is the outcome of method selection: the winning method, its
// live projection for the target year, and the per-method scores that led
// to the choice.
type Selection struct {
	Method      Method
	Projections []ProjectionRecord
	Scores      []MethodScore
}
