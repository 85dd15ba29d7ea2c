package rates

import (
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pfastats/internal/dataset"
)

func TestCombinerCombine(t *testing.T) {
	ctx := context.Background()

	t.Run("matched rows get a rate rounded to one decimal", func(t *testing.T) {
		population := dataset.NewSeries([]dataset.Point{
			{Area: "Kent", Year: 2022, Value: 700000},
		})
		custody := dataset.NewSeries([]dataset.Point{
			{Area: "Kent", Year: 2022, Value: 123},
		})

		rows, audit := NewCombiner(slog.Default(), 100000).Combine(ctx, population, custody)

		require.Len(t, rows, 1)
		require.NotNil(t, rows[0].Population)
		require.NotNil(t, rows[0].Custody)
		// 123 / 700000 * 100000 = 17.571... rounds to 17.6
		assert.Equal(t, 17.6, rows[0].Rate)
		assert.Zero(t, audit.MissingPopulation.Rows)
		assert.Zero(t, audit.MissingCustody.Rows)
	})

	t.Run("custody row without population keeps its row with an undefined rate", func(t *testing.T) {
		population := dataset.NewSeries([]dataset.Point{
			{Area: "Kent", Year: 2023, Value: 700000},
		})
		custody := dataset.NewSeries([]dataset.Point{
			{Area: "Kent", Year: 2023, Value: 120},
			{Area: "Z", Year: 2023, Value: 15},
		})

		rows, audit := NewCombiner(slog.Default(), 100000).Combine(ctx, population, custody)

		require.Len(t, rows, 2)

		var zRow *MergedRateRow
		for i := range rows {
			if rows[i].Area == "Z" {
				zRow = &rows[i]
			}
		}
		require.NotNil(t, zRow, "every custody row must appear in the output")
		assert.Nil(t, zRow.Population)
		require.NotNil(t, zRow.Custody)
		assert.Equal(t, float64(15), *zRow.Custody)
		assert.True(t, math.IsNaN(zRow.Rate))

		assert.Equal(t, 1, audit.MissingPopulation.Rows)
		assert.Equal(t, []string{"Z"}, audit.MissingPopulation.Areas)
	})

	t.Run("population row without custody is audited on the other side", func(t *testing.T) {
		population := dataset.NewSeries([]dataset.Point{
			{Area: "Kent", Year: 2022, Value: 700000},
			{Area: "Sussex", Year: 2022, Value: 500000},
		})
		custody := dataset.NewSeries([]dataset.Point{
			{Area: "Kent", Year: 2022, Value: 120},
		})

		rows, audit := NewCombiner(slog.Default(), 100000).Combine(ctx, population, custody)

		require.Len(t, rows, 2)
		assert.Equal(t, 1, audit.MissingCustody.Rows)
		assert.Equal(t, []string{"Sussex"}, audit.MissingCustody.Areas)
		assert.Zero(t, audit.MissingPopulation.Rows)
	})

	t.Run("zero population leaves the rate undefined", func(t *testing.T) {
		population := dataset.NewSeries([]dataset.Point{
			{Area: "Kent", Year: 2022, Value: 0},
		})
		custody := dataset.NewSeries([]dataset.Point{
			{Area: "Kent", Year: 2022, Value: 10},
		})

		rows, _ := NewCombiner(slog.Default(), 100000).Combine(ctx, population, custody)

		require.Len(t, rows, 1)
		assert.True(t, math.IsNaN(rows[0].Rate))
	})

	t.Run("rows come out sorted by area then year", func(t *testing.T) {
		population := dataset.NewSeries([]dataset.Point{
			{Area: "Sussex", Year: 2021, Value: 500000},
			{Area: "Kent", Year: 2022, Value: 700000},
			{Area: "Kent", Year: 2021, Value: 690000},
		})
		custody := dataset.NewSeries([]dataset.Point{
			{Area: "Sussex", Year: 2022, Value: 40},
		})

		rows, _ := NewCombiner(slog.Default(), 100000).Combine(ctx, population, custody)

		require.Len(t, rows, 4)
		assert.Equal(t, "Kent", rows[0].Area)
		assert.Equal(t, 2021, rows[0].Year)
		assert.Equal(t, "Kent", rows[1].Area)
		assert.Equal(t, 2022, rows[1].Year)
		assert.Equal(t, "Sussex", rows[2].Area)
		assert.Equal(t, 2021, rows[2].Year)
		assert.Equal(t, "Sussex", rows[3].Area)
		assert.Equal(t, 2022, rows[3].Year)
	})
}

func TestYearRange(t *testing.T) {
	t.Run("empty rows", func(t *testing.T) {
		_, _, ok := YearRange(nil)
		assert.False(t, ok)
	})

	t.Run("span across rows", func(t *testing.T) {
		rows := []MergedRateRow{
			{Area: "Kent", Year: 2019},
			{Area: "Kent", Year: 2023},
			{Area: "Sussex", Year: 2021},
		}
		minYear, maxYear, ok := YearRange(rows)
		require.True(t, ok)
		assert.Equal(t, 2019, minYear)
		assert.Equal(t, 2023, maxYear)
	})
}
