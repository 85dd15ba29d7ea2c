package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pfastats/internal/dataset"
)

// linearSeries is five years of perfectly linear growth for one area:
// 100 in 2018 rising by 10 a year to 140 in 2022.
func linearSeries(area string) *dataset.AnnualSeries {
	points := []dataset.Point{
		{Area: area, Year: 2018, Value: 100},
		{Area: area, Year: 2019, Value: 110},
		{Area: area, Year: 2020, Value: 120},
		{Area: area, Year: 2021, Value: 130},
		{Area: area, Year: 2022, Value: 140},
	}
	return dataset.NewSeries(points)
}

func TestLinearTrend(t *testing.T) {
	tests := []struct {
		name       string
		series     *dataset.AnnualSeries
		targetYear int
		want       []ProjectionRecord
	}{
		{
			name:       "perfectly linear growth extrapolates exactly",
			series:     linearSeries("Avon and Somerset"),
			targetYear: 2023,
			want: []ProjectionRecord{
				{Area: "Avon and Somerset", Year: 2023, Value: 150, Method: MethodLinearTrend, Diagnostic: 10},
			},
		},
		{
			name: "fewer than three points in window skips the area",
			series: dataset.NewSeries([]dataset.Point{
				{Area: "Gwent", Year: 2021, Value: 50},
				{Area: "Gwent", Year: 2022, Value: 55},
			}),
			targetYear: 2023,
			want:       nil,
		},
		{
			name: "declining series clamps at zero",
			series: dataset.NewSeries([]dataset.Point{
				{Area: "Cleveland", Year: 2019, Value: 30},
				{Area: "Cleveland", Year: 2020, Value: 20},
				{Area: "Cleveland", Year: 2021, Value: 10},
				{Area: "Cleveland", Year: 2022, Value: 0},
			}),
			targetYear: 2025,
			want: []ProjectionRecord{
				{Area: "Cleveland", Year: 2025, Value: 0, Method: MethodLinearTrend, Diagnostic: -10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LinearTrend(5)(tt.series, tt.targetYear)

			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].Area, got[i].Area)
				assert.Equal(t, tt.want[i].Year, got[i].Year)
				assert.Equal(t, tt.want[i].Value, got[i].Value)
				assert.Equal(t, tt.want[i].Method, got[i].Method)
				assert.InDelta(t, tt.want[i].Diagnostic, got[i].Diagnostic, 1e-9)
			}
		})
	}
}

func TestCAGR(t *testing.T) {
	t.Run("linear growth projects by compound rate", func(t *testing.T) {
		// Endpoints 100 (2018) and 140 (2022) over four years give a rate of
		// 1.4^(1/4)-1; one more year lands on 152 after rounding.
		got := CAGR(5)(linearSeries("Avon and Somerset"), 2023)

		require.Len(t, got, 1)
		assert.Equal(t, float64(152), got[0].Value)
		assert.Equal(t, MethodCAGR, got[0].Method)
	})

	t.Run("zero start value skips the area", func(t *testing.T) {
		series := dataset.NewSeries([]dataset.Point{
			{Area: "Gwent", Year: 2018, Value: 0},
			{Area: "Gwent", Year: 2019, Value: 10},
			{Area: "Gwent", Year: 2020, Value: 20},
			{Area: "Gwent", Year: 2021, Value: 30},
			{Area: "Gwent", Year: 2022, Value: 40},
		})

		got := CAGR(5)(series, 2023)
		assert.Empty(t, got)
	})

	t.Run("missing start year skips the area", func(t *testing.T) {
		series := dataset.NewSeries([]dataset.Point{
			{Area: "Kent", Year: 2020, Value: 100},
			{Area: "Kent", Year: 2021, Value: 110},
			{Area: "Kent", Year: 2022, Value: 120},
		})

		// The five-year window wants a 2018 start that does not exist.
		got := CAGR(5)(series, 2023)
		assert.Empty(t, got)
	})

	t.Run("single year of data skips the area", func(t *testing.T) {
		series := dataset.NewSeries([]dataset.Point{
			{Area: "Kent", Year: 2022, Value: 120},
		})

		got := CAGR(1)(series, 2023)
		assert.Empty(t, got)
	})
}

func TestMovingAverage(t *testing.T) {
	t.Run("constant changes project the same change forward", func(t *testing.T) {
		got := MovingAverage(3)(linearSeries("Avon and Somerset"), 2023)

		require.Len(t, got, 1)
		assert.Equal(t, float64(150), got[0].Value)
		assert.InDelta(t, 10.0, got[0].Diagnostic, 1e-9)
	})

	t.Run("projection scales with the gap to the target year", func(t *testing.T) {
		got := MovingAverage(3)(linearSeries("Avon and Somerset"), 2025)

		require.Len(t, got, 1)
		assert.Equal(t, float64(170), got[0].Value)
	})

	t.Run("too few observations skips the area", func(t *testing.T) {
		series := dataset.NewSeries([]dataset.Point{
			{Area: "Gwent", Year: 2020, Value: 10},
			{Area: "Gwent", Year: 2021, Value: 20},
			{Area: "Gwent", Year: 2022, Value: 30},
		})

		// Window 3 needs four points.
		got := MovingAverage(3)(series, 2023)
		assert.Empty(t, got)
	})

	t.Run("steep decline clamps at zero", func(t *testing.T) {
		series := dataset.NewSeries([]dataset.Point{
			{Area: "Cleveland", Year: 2019, Value: 100},
			{Area: "Cleveland", Year: 2020, Value: 60},
			{Area: "Cleveland", Year: 2021, Value: 30},
			{Area: "Cleveland", Year: 2022, Value: 5},
		})

		got := MovingAverage(3)(series, 2023)
		require.Len(t, got, 1)
		assert.Equal(t, float64(0), got[0].Value)
	})
}
