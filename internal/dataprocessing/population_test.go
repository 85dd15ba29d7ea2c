package dataprocessing

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pfastats/internal/dataset"
)

func TestCleanPopulation(t *testing.T) {
	ctx := context.Background()

	records := []PopulationRecord{
		// Aggregate geography: uppercase name marks it, every row with its
		// code goes, whatever the case of the other rows.
		{LADCode: "E12000001", LAName: "NORTH EAST", Year: 2022, Sex: "Female", Age: "30", Freq: 500000},
		// Adult women across two ages, summed.
		{LADCode: "E07000112", LAName: "Folkestone and Hythe", Year: 2022, Sex: "Female", Age: "30", Freq: 700},
		{LADCode: "E07000112", LAName: "Folkestone and Hythe", Year: 2022, Sex: "Female", Age: "90+", Freq: 50},
		// Below the adult threshold.
		{LADCode: "E07000112", LAName: "Folkestone and Hythe", Year: 2022, Sex: "Female", Age: "17", Freq: 400},
		// Wrong sex.
		{LADCode: "E07000112", LAName: "Folkestone and Hythe", Year: 2022, Sex: "Male", Age: "30", Freq: 680},
		// Another year stays separate.
		{LADCode: "E07000112", LAName: "Folkestone and Hythe", Year: 2021, Sex: "Female", Age: "30", Freq: 690},
	}

	cleaned := CleanPopulation(ctx, slog.Default(), records)

	require.Len(t, cleaned, 2)
	assert.Equal(t, PopulationRecord{LADCode: "E07000112", LAName: "Folkestone and Hythe", Year: 2021, Freq: 690}, cleaned[0])
	assert.Equal(t, PopulationRecord{LADCode: "E07000112", LAName: "Folkestone and Hythe", Year: 2022, Freq: 750}, cleaned[1])
}

func TestAssignPFA(t *testing.T) {
	ctx := context.Background()

	lookup := map[string]string{
		"E07000112": "Kent",
		"E06000052": "Devon & Cornwall",
		"E09000001": "London, City of",
	}

	records := []PopulationRecord{
		{LADCode: "E07000112", Year: 2022, Freq: 750},
		{LADCode: "E06000052", Year: 2022, Freq: 300},
		{LADCode: "E09000001", Year: 2022, Freq: 4000},
		// County-level code absent from the lookup.
		{LADCode: "E10000016", Year: 2022, Freq: 900000},
	}

	points := AssignPFA(ctx, slog.Default(), records, lookup)

	require.Len(t, points, 2)
	assert.Equal(t, dataset.Point{Area: "Kent", Year: 2022, Value: 750}, points[0])
	assert.Equal(t, dataset.Point{Area: "Devon and Cornwall", Year: 2022, Value: 300}, points[1])
}

func TestPreparePopulation(t *testing.T) {
	points := []dataset.Point{
		{Area: "Dyfed-Powys", Year: 2022, Value: 100},
		{Area: "Metropolitan Police", Year: 2022, Value: 5000},
		{Area: "Kent", Year: 2013, Value: 700}, // before the custody span
		{Area: "Kent", Year: 2022, Value: 750},
		{Area: "Kent", Year: 2022, Value: 10}, // second LA in the same force
	}

	renames := map[string]string{
		"Dyfed-Powys":         "Dyfed Powys",
		"Metropolitan Police": "London",
	}

	series := PreparePopulation(points, renames, 2014)

	v, ok := series.Value("Dyfed Powys", 2022)
	require.True(t, ok)
	assert.Equal(t, float64(100), v)

	v, ok = series.Value("London", 2022)
	require.True(t, ok)
	assert.Equal(t, float64(5000), v)

	v, ok = series.Value("Kent", 2022)
	require.True(t, ok)
	assert.Equal(t, float64(760), v, "local authorities in one force are summed")

	assert.False(t, series.Has("Kent", 2013))
	assert.False(t, series.Has("Dyfed-Powys", 2022))
}
