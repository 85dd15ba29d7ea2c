package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pfastats/internal/dataset"
)

func TestCleanOutcomes(t *testing.T) {
	records := []SentencingRecord{
		{
			Year:           2022,
			PFA:            "Kent",
			Sex:            "02: Female",
			AgeGroup:       "02: Adults",
			Offence:        "05: Theft Offences",
			Outcome:        "07: Immediate Custody",
			SentenceLength: "03: Custody - Over 6 months and up to and including 9 months",
			Sentenced:      4,
		},
		{
			Year:           2022,
			PFA:            "Kent",
			Sex:            "02: Female",
			AgeGroup:       "02: Adults",
			Offence:        "99: Unknown",
			Outcome:        "07: Immediate Custody",
			SentenceLength: "12: Custody - Life",
			Sentenced:      1,
		},
	}

	cleaned := CleanOutcomes(records)

	assert.Equal(t, "Female", cleaned[0].Sex)
	assert.Equal(t, "Adults", cleaned[0].AgeGroup)
	assert.Equal(t, "Theft Offences", cleaned[0].Offence)
	assert.Equal(t, "Immediate Custody", cleaned[0].Outcome)
	assert.Equal(t, "More than 6 months and up to and including 9 months", cleaned[0].SentenceLength)
	assert.Equal(t, "Life sentence", cleaned[1].SentenceLength)

	// Input untouched.
	assert.Equal(t, "02: Female", records[0].Sex)
}

func TestApplyFilters(t *testing.T) {
	records := []SentencingRecord{
		{PFA: "Kent", Sex: "Female", AgeGroup: "Adults", Outcome: "Immediate Custody", Sentenced: 5},
		{PFA: "Kent", Sex: "Male", AgeGroup: "Adults", Outcome: "Immediate Custody", Sentenced: 20},
		{PFA: "Kent", Sex: "Female", AgeGroup: "Juveniles", Outcome: "Immediate Custody", Sentenced: 1},
		{PFA: "Not known", Sex: "Female", AgeGroup: "Adults", Outcome: "Immediate Custody", Sentenced: 2},
		{PFA: "Kent", Sex: "Female", AgeGroup: "Adults", Outcome: "Absolute Discharge", Sentenced: 3},
		{PFA: "Kent", Sex: "Female", AgeGroup: "Adults", Outcome: "Suspended Sentence", Sentenced: 7},
	}

	filtered := ApplyFilters(context.Background(), slog.Default(), records, DefaultFilterRules())

	require.Len(t, filtered, 2)
	assert.Equal(t, "Immediate Custody", filtered[0].Outcome)
	assert.Equal(t, "Suspended Sentence", filtered[1].Outcome)
}

func TestBandSentenceLengths(t *testing.T) {
	tests := []struct {
		name   string
		length string
		want   string
	}{
		{"one month band", "Up to and including 1 month", BandUnderSixMonths},
		{"three to six months band", "More than 3 months and up to 6 months", BandUnderSixMonths},
		{"exactly six months", "6 months", BandSixToTwelveMonths},
		{"nine to twelve months", "More than 9 months and up to 12 months", BandSixToTwelveMonths},
		{"several years", "More than 4 years and up to 5 years", BandTwelveMonthsPlus},
		{"life", "Life sentence", BandTwelveMonthsPlus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			banded := BandSentenceLengths([]SentencingRecord{{SentenceLength: tt.length}})
			assert.Equal(t, tt.want, banded[0].SentenceLength)
		})
	}
}

func TestCategorySeries(t *testing.T) {
	rows := []dataset.Observation{
		{Area: "Kent", Year: 2022, Freq: 10, Attrs: map[string]string{"sentence_len": BandUnderSixMonths}},
		{Area: "Kent", Year: 2022, Freq: 5, Attrs: map[string]string{"sentence_len": BandSixToTwelveMonths}},
		{Area: "Kent", Year: 2022, Freq: 3, Attrs: map[string]string{"sentence_len": BandTwelveMonthsPlus}},
	}

	tests := []struct {
		name     string
		category SentenceCategory
		want     float64
	}{
		{"all sentences", CategoryAll, 18},
		{"under six months", CategorySixMonths, 10},
		{"under twelve months", CategoryTwelveMonths, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series, err := CategorySeries(rows, tt.category)
			require.NoError(t, err)

			v, ok := series.Value("Kent", 2022)
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
		})
	}

	t.Run("unknown category", func(t *testing.T) {
		_, err := CategorySeries(rows, SentenceCategory("weekends"))
		assert.Error(t, err)
	})
}

func TestGroupByOutcome(t *testing.T) {
	records := []SentencingRecord{
		{PFA: "Kent", Year: 2022, Outcome: "Immediate Custody", Sentenced: 5},
		{PFA: "Kent", Year: 2022, Outcome: "Immediate Custody", Sentenced: 3},
		{PFA: "Kent", Year: 2022, Outcome: "Community Sentence", Sentenced: 7},
	}

	grouped, err := GroupByOutcome(records)
	require.NoError(t, err)

	require.Len(t, grouped, 2)
	byOutcome := make(map[string]float64)
	for _, o := range grouped {
		outcome, _ := o.Attr("outcome")
		byOutcome[outcome] = o.Freq
	}
	assert.Equal(t, float64(8), byOutcome["Immediate Custody"])
	assert.Equal(t, float64(7), byOutcome["Community Sentence"])
}

func TestGroupByOffence(t *testing.T) {
	records := []SentencingRecord{
		{PFA: "Kent", Year: 2022, Offence: "Theft Offences", Sentenced: 5},
		{PFA: "Kent", Year: 2022, Offence: "Theft Offences", Sentenced: 4},
		{PFA: "Kent", Year: 2022, Offence: "Drug Offences", Sentenced: 3},
		{PFA: "Kent", Year: 2021, Offence: "Theft Offences", Sentenced: 2},
	}

	grouped, err := GroupByOffence(records)
	require.NoError(t, err)

	require.Len(t, grouped, 3)
	byKey := make(map[string]float64)
	for _, o := range grouped {
		offence, _ := o.Attr("offence")
		byKey[fmt.Sprintf("%d/%s", o.Year, offence)] = o.Freq
	}
	assert.Equal(t, float64(9), byKey["2022/Theft Offences"])
	assert.Equal(t, float64(3), byKey["2022/Drug Offences"])
	assert.Equal(t, float64(2), byKey["2021/Theft Offences"])
}

func TestOffenceProportions(t *testing.T) {
	rows := []dataset.Observation{
		{Area: "Kent", Year: 2022, Freq: 30, Attrs: map[string]string{"offence": "Theft Offences"}},
		{Area: "Kent", Year: 2022, Freq: 10, Attrs: map[string]string{"offence": "Drug Offences"}},
		{Area: "Sussex", Year: 2022, Freq: 1, Attrs: map[string]string{"offence": "Theft Offences"}},
		{Area: "Sussex", Year: 2022, Freq: 2, Attrs: map[string]string{"offence": "Drug Offences"}},
	}

	table := OffenceProportions(rows)

	assert.Equal(t, "pfa", table.IndexName)
	require.Equal(t, []string{"Drug Offences", "Theft Offences"}, table.Columns,
		"offence columns are sorted")
	require.Len(t, table.Rows, 2)

	assert.Equal(t, "Kent", table.Rows[0].Key)
	assert.Equal(t, []string{"0.25", "0.75"}, table.Rows[0].Cells)

	// Sussex's thirds round to three decimal places, like the published table.
	assert.Equal(t, "Sussex", table.Rows[1].Key)
	assert.Equal(t, []string{"0.667", "0.333"}, table.Rows[1].Cells)
}

func TestOffenceProportionsUnseenCombination(t *testing.T) {
	rows := []dataset.Observation{
		{Area: "Kent", Year: 2022, Freq: 4, Attrs: map[string]string{"offence": "Theft Offences"}},
		{Area: "Sussex", Year: 2022, Freq: 6, Attrs: map[string]string{"offence": "Drug Offences"}},
	}

	table := OffenceProportions(rows)

	require.Equal(t, []string{"Drug Offences", "Theft Offences"}, table.Columns)
	assert.Equal(t, []string{"0", "1"}, table.Rows[0].Cells, "Kent has no drug sentences")
	assert.Equal(t, []string{"1", "0"}, table.Rows[1].Cells, "Sussex has no theft sentences")
}

func TestCrosstab(t *testing.T) {
	series := dataset.NewSeries([]dataset.Point{
		{Area: "Kent", Year: 2021, Value: 100},
		{Area: "Kent", Year: 2022, Value: 120},
		{Area: "Sussex", Year: 2021, Value: 40},
		{Area: "Sussex", Year: 2022, Value: 45},
	})

	table := Crosstab(series)

	require.Equal(t, []string{"2021", "2022", "pct_change"}, table.Columns)
	require.Len(t, table.Rows, 2)

	// Rows carry areas in sorted order with stringified counts.
	assert.Equal(t, "Kent", table.Rows[0].Key)
	assert.Equal(t, []string{"100", "120", "20"}, table.Rows[0].Cells)
	assert.Equal(t, "Sussex", table.Rows[1].Key)
	assert.Equal(t, []string{"40", "45", "12.5"}, table.Rows[1].Cells)
}
