package forecast

import (
	"context"
	"log/slog"

	"pfastats/internal/dataset"
	"pfastats/internal/errors"
)

// Selector runs the backtest for every method and picks the winner.
type Selector struct {
	logger  *slog.Logger
	methods map[Method]MethodFunc
}

// SelectorParams carries the per-method tuning parameters.
type SelectorParams struct {
	TrendYears          int
	BaseYears           int
	MovingAverageWindow int
}

// NewSelector creates a method selector with the given tuning parameters.
func NewSelector(logger *slog.Logger, params SelectorParams) *Selector {
	if logger == nil {
		logger = slog.Default()
	}

	return &Selector{
		logger: logger,
		methods: map[Method]MethodFunc{
			MethodLinearTrend:   LinearTrend(params.TrendYears),
			MethodCAGR:          CAGR(params.BaseYears),
			MethodMovingAverage: MovingAverage(params.MovingAverageWindow),
		},
	}
}

// Select backtests all three methods against the most recent observed year
// of the series, scores each by mean absolute percentage error, and returns
// the strict minimum along with its live projection for targetYear. Ties
// resolve to the earlier method in the fixed order linear_trend, cagr,
// moving_average. targetYear is the year the pipeline actually needs, which
// is generally not the backtest year.
func (s *Selector) Select(ctx context.Context, series *dataset.AnnualSeries, targetYear int) (*Selection, error) {
	lastYear, ok := series.MaxYear()
	if !ok {
		return nil, errors.NewPreconditionError("population", "cannot select a projection method from an empty series")
	}

	s.logger.InfoContext(ctx, "backtesting projection methods",
		slog.Int("validation_year", lastYear),
		slog.Int("target_year", targetYear))

	var (
		scores     []MethodScore
		best       Method
		bestMAPE   float64
		haveWinner bool
	)

	for _, method := range methodPriority {
		results := Backtest(series, s.methods[method], lastYear)
		mape, ok := meanPctError(results)
		if !ok {
			// No area produced a comparable backtest; the method is
			// ineligible for selection this run.
			s.logger.WarnContext(ctx, "projection method produced no comparable backtest rows",
				slog.String("method", string(method)))
			continue
		}

		scores = append(scores, MethodScore{Method: method, MAPE: mape, Areas: len(results)})
		s.logger.InfoContext(ctx, "projection method validated",
			slog.String("method", string(method)),
			slog.Float64("mape_pct", mape),
			slog.Int("areas", len(results)))

		if !haveWinner || mape < bestMAPE {
			best, bestMAPE, haveWinner = method, mape, true
		}
	}

	if !haveWinner {
		return nil, errors.NewPreconditionError("population", "no projection method could be validated against the series")
	}

	s.logger.InfoContext(ctx, "selected projection method",
		slog.String("method", string(best)),
		slog.Float64("mape_pct", bestMAPE))

	return &Selection{
		Method:      best,
		Projections: s.methods[best](series, targetYear),
		Scores:      scores,
	}, nil
}
