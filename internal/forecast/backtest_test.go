package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pfastats/internal/dataset"
)

func TestBacktest(t *testing.T) {
	t.Run("trains strictly before the validation year", func(t *testing.T) {
		// Linear through 2021, then a jump in 2022. If the 2022 value leaked
		// into training the prediction would not be exactly 140.
		series := dataset.NewSeries([]dataset.Point{
			{Area: "Kent", Year: 2017, Value: 90},
			{Area: "Kent", Year: 2018, Value: 100},
			{Area: "Kent", Year: 2019, Value: 110},
			{Area: "Kent", Year: 2020, Value: 120},
			{Area: "Kent", Year: 2021, Value: 130},
			{Area: "Kent", Year: 2022, Value: 200},
		})

		results := Backtest(series, LinearTrend(5), 2022)

		require.Len(t, results, 1)
		assert.Equal(t, "Kent", results[0].Area)
		assert.Equal(t, float64(140), results[0].Predicted)
		assert.Equal(t, float64(200), results[0].Actual)
		assert.Equal(t, float64(60), results[0].AbsError)
		assert.InDelta(t, 30.0, results[0].PctError, 1e-9)
	})

	t.Run("area with zero actual is excluded", func(t *testing.T) {
		series := dataset.NewSeries([]dataset.Point{
			{Area: "Gwent", Year: 2017, Value: 10},
			{Area: "Gwent", Year: 2018, Value: 10},
			{Area: "Gwent", Year: 2019, Value: 10},
			{Area: "Gwent", Year: 2020, Value: 10},
			{Area: "Gwent", Year: 2021, Value: 10},
			{Area: "Gwent", Year: 2022, Value: 0},
		})

		results := Backtest(series, LinearTrend(5), 2022)
		assert.Empty(t, results, "a percentage error against zero is undefined")
	})

	t.Run("area missing the validation year is excluded", func(t *testing.T) {
		series := dataset.NewSeries([]dataset.Point{
			{Area: "Kent", Year: 2018, Value: 100},
			{Area: "Kent", Year: 2019, Value: 110},
			{Area: "Kent", Year: 2020, Value: 120},
			{Area: "Kent", Year: 2021, Value: 130},
		})

		results := Backtest(series, LinearTrend(5), 2022)
		assert.Empty(t, results)
	})
}

func TestMeanPctError(t *testing.T) {
	tests := []struct {
		name    string
		results []ValidationResult
		want    float64
		wantOK  bool
	}{
		{
			name:   "empty validation set is not scorable",
			wantOK: false,
		},
		{
			name: "mean across areas",
			results: []ValidationResult{
				{PctError: 10},
				{PctError: 20},
				{PctError: 30},
			},
			want:   20,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := meanPctError(tt.results)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}
