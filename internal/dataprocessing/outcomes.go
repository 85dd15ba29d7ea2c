package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"pfastats/internal/dataset"
	"pfastats/internal/errors"
)

// SentenceCategory selects a custodial sentence-length cut of the data.
type SentenceCategory string

const (
	// CategoryAll counts every immediate custodial sentence.
	CategoryAll SentenceCategory = "all"
	// CategorySixMonths counts sentences of less than six months.
	CategorySixMonths SentenceCategory = "six_months"
	// CategoryTwelveMonths counts sentences of less than twelve months.
	CategoryTwelveMonths SentenceCategory = "12_months"
)

// Categories is the fixed order the custody tables are produced in.
var Categories = []SentenceCategory{CategoryAll, CategorySixMonths, CategoryTwelveMonths}

// categoryBands maps each category to the banded sentence lengths it keeps.
// nil means no length filter.
var categoryBands = map[SentenceCategory][]string{
	CategoryAll:          nil,
	CategorySixMonths:    {BandUnderSixMonths},
	CategoryTwelveMonths: {BandUnderSixMonths, BandSixToTwelveMonths},
}

// Banded sentence lengths. The raw extract carries a dozen fine-grained
// length categories; the publication reports three.
const (
	BandUnderSixMonths    = "Less than 6 months"
	BandSixToTwelveMonths = "6 months to less than 12 months"
	BandTwelveMonthsPlus  = "12 months or more"
)

// OutcomeImmediateCustody is the sentence outcome the custody tables count.
const OutcomeImmediateCustody = "Immediate Custody"

var underSixMonthLengths = map[string]bool{
	"Up to and including 1 month":                         true,
	"More than 1 month and up to and including 2 months":  true,
	"More than 2 months and up to and including 3 months": true,
	"More than 3 months and up to 6 months":               true,
}

var sixToTwelveMonthLengths = map[string]bool{
	"6 months": true,
	"More than 6 months and up to and including 9 months": true,
	"More than 9 months and up to 12 months":              true,
}

// codePrefix matches the "NN: " numbering the extract prefixes onto its
// categorical values ("02: Female", "07: Immediate Custody").
var codePrefix = regexp.MustCompile(`^\d{2}: `)

// FilterRules selects the records the publication covers.
type FilterRules struct {
	IncludeSex       []string
	IncludeOutcomes  []string
	ExcludePFAs      []string
	ExcludeAgeGroups []string
}

// DefaultFilterRules returns the publication's filters: adult women in known
// police force areas, sentenced to one of the three principal outcomes.
func DefaultFilterRules() FilterRules {
	return FilterRules{
		IncludeSex:       []string{"Female"},
		IncludeOutcomes:  []string{"Immediate Custody", "Community Sentence", "Suspended Sentence"},
		ExcludePFAs:      []string{"Not known"},
		ExcludeAgeGroups: []string{"Juveniles"},
	}
}

// CleanOutcomes standardises categorical values across the raw records:
// code prefixes are stripped everywhere and the sentence-length vocabulary
// is normalised. The input slice is not modified.
func CleanOutcomes(records []SentencingRecord) []SentencingRecord {
	out := make([]SentencingRecord, len(records))
	for i, r := range records {
		r.Sex = codePrefix.ReplaceAllString(r.Sex, "")
		r.AgeGroup = codePrefix.ReplaceAllString(r.AgeGroup, "")
		r.Offence = codePrefix.ReplaceAllString(r.Offence, "")
		r.Outcome = codePrefix.ReplaceAllString(r.Outcome, "")
		r.SentenceLength = cleanSentenceLength(r.SentenceLength)
		out[i] = r
	}
	return out
}

func cleanSentenceLength(s string) string {
	s = codePrefix.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "Custody - ", "")
	s = strings.ReplaceAll(s, "Over", "More than")
	if strings.HasSuffix(s, "Life") {
		s += " sentence"
	}
	return s
}

// ApplyFilters keeps only the records the rules cover and logs the reduction.
func ApplyFilters(ctx context.Context, logger *slog.Logger, records []SentencingRecord, rules FilterRules) []SentencingRecord {
	if logger == nil {
		logger = slog.Default()
	}

	includeSex := toSet(rules.IncludeSex)
	includeOutcomes := toSet(rules.IncludeOutcomes)
	excludePFAs := toSet(rules.ExcludePFAs)
	excludeAges := toSet(rules.ExcludeAgeGroups)

	out := make([]SentencingRecord, 0, len(records))
	for _, r := range records {
		if len(includeSex) > 0 && !includeSex[r.Sex] {
			continue
		}
		if len(includeOutcomes) > 0 && !includeOutcomes[r.Outcome] {
			continue
		}
		if excludePFAs[r.PFA] || excludeAges[r.AgeGroup] {
			continue
		}
		out = append(out, r)
	}

	logger.InfoContext(ctx, "applied outcome filters",
		slog.Int("rows_in", len(records)),
		slog.Int("rows_out", len(out)))

	return out
}

// FilterCustodialSentences keeps only immediate custody records.
func FilterCustodialSentences(records []SentencingRecord) []SentencingRecord {
	out := make([]SentencingRecord, 0, len(records))
	for _, r := range records {
		if r.Outcome == OutcomeImmediateCustody {
			out = append(out, r)
		}
	}
	return out
}

// BandSentenceLengths collapses the fine-grained sentence lengths into the
// three published bands. Anything not recognised as under six months or six
// to twelve months is twelve months or more, which also absorbs life and
// indeterminate sentences.
func BandSentenceLengths(records []SentencingRecord) []SentencingRecord {
	out := make([]SentencingRecord, len(records))
	for i, r := range records {
		switch {
		case underSixMonthLengths[r.SentenceLength]:
			r.SentenceLength = BandUnderSixMonths
		case sixToTwelveMonthLengths[r.SentenceLength]:
			r.SentenceLength = BandSixToTwelveMonths
		default:
			r.SentenceLength = BandTwelveMonthsPlus
		}
		out[i] = r
	}
	return out
}

// GroupByOutcome sums sentenced counts by (pfa, year, outcome).
func GroupByOutcome(records []SentencingRecord) ([]dataset.Observation, error) {
	return dataset.GroupSum("sentencing", toObservations(records), []string{dataset.KeyArea, dataset.KeyYear, "outcome"})
}

// GroupBySentenceLength sums sentenced counts by (pfa, year, sentence band).
func GroupBySentenceLength(records []SentencingRecord) ([]dataset.Observation, error) {
	return dataset.GroupSum("sentencing", toObservations(records), []string{dataset.KeyArea, dataset.KeyYear, "sentence_len"})
}

// GroupByOffence sums sentenced counts by (pfa, year, offence group).
func GroupByOffence(records []SentencingRecord) ([]dataset.Observation, error) {
	return dataset.GroupSum("sentencing", toObservations(records), []string{dataset.KeyArea, dataset.KeyYear, "offence"})
}

// CategorySeries reduces grouped sentence-length observations to a per-area
// annual series for one sentence-length category.
func CategorySeries(rows []dataset.Observation, category SentenceCategory) (*dataset.AnnualSeries, error) {
	bands, ok := categoryBands[category]
	if !ok {
		return nil, errors.NewPreconditionError("sentencing", fmt.Sprintf("unknown sentence category %q", category))
	}

	kept := rows
	if bands != nil {
		keep := toSet(bands)
		kept = make([]dataset.Observation, 0, len(rows))
		for _, o := range rows {
			if band, _ := o.Attr("sentence_len"); keep[band] {
				kept = append(kept, o)
			}
		}
	}

	return dataset.SeriesFromObservations(kept), nil
}

// Crosstab pivots an annual series into a wide table with one row per area,
// one column per year, and a trailing percentage-change column comparing the
// last year against the first. The trailing column is presentation only;
// MeltCustodyTable discards it on the way back in.
func Crosstab(series *dataset.AnnualSeries) *WideTable {
	years := seriesYears(series)

	table := &WideTable{IndexName: dataset.KeyArea}
	for _, y := range years {
		table.Columns = append(table.Columns, strconv.Itoa(y))
	}
	table.Columns = append(table.Columns, "pct_change")

	for _, area := range series.Areas() {
		row := WideRow{Key: area, Cells: make([]string, 0, len(years)+1)}
		totals := series.YearTotals(area)
		var first, last float64
		var haveFirst, haveLast bool
		for _, y := range years {
			v, ok := totals[y]
			if !ok {
				row.Cells = append(row.Cells, "")
				continue
			}
			row.Cells = append(row.Cells, strconv.FormatFloat(v, 'f', -1, 64))
			if !haveFirst {
				first, haveFirst = v, true
			}
			last, haveLast = v, true
		}

		pctChange := ""
		if haveFirst && haveLast && first != 0 {
			pctChange = strconv.FormatFloat(math.Round((last-first)/first*1000)/10, 'f', -1, 64)
		}
		row.Cells = append(row.Cells, pctChange)
		table.Rows = append(table.Rows, row)
	}

	return table
}

// OffenceProportions pivots grouped offence counts into a wide table of
// per-area offence shares: one row per area, one column per offence group,
// each cell that offence's share of the area's total, rounded to three
// decimal places. Combinations never observed render as zero.
func OffenceProportions(rows []dataset.Observation) *WideTable {
	counts := make(map[string]map[string]float64)
	totals := make(map[string]float64)
	offenceSet := make(map[string]bool)

	for _, o := range rows {
		offence, _ := o.Attr("offence")
		offenceSet[offence] = true
		if counts[o.Area] == nil {
			counts[o.Area] = make(map[string]float64)
		}
		counts[o.Area][offence] += o.Freq
		totals[o.Area] += o.Freq
	}

	offences := make([]string, 0, len(offenceSet))
	for offence := range offenceSet {
		offences = append(offences, offence)
	}
	sort.Strings(offences)

	areas := make([]string, 0, len(counts))
	for area := range counts {
		areas = append(areas, area)
	}
	sort.Strings(areas)

	table := &WideTable{IndexName: dataset.KeyArea, Columns: offences}
	for _, area := range areas {
		row := WideRow{Key: area, Cells: make([]string, 0, len(offences))}
		for _, offence := range offences {
			cell := ""
			if total := totals[area]; total != 0 {
				share := math.Round(counts[area][offence]/total*1000) / 1000
				cell = strconv.FormatFloat(share, 'f', -1, 64)
			}
			row.Cells = append(row.Cells, cell)
		}
		table.Rows = append(table.Rows, row)
	}

	return table
}

func seriesYears(series *dataset.AnnualSeries) []int {
	yearSet := make(map[int]bool)
	for _, p := range series.Points() {
		yearSet[p.Year] = true
	}
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func toObservations(records []SentencingRecord) []dataset.Observation {
	obs := make([]dataset.Observation, len(records))
	for i, r := range records {
		obs[i] = dataset.Observation{
			Area: r.PFA,
			Year: r.Year,
			Freq: r.Sentenced,
			Attrs: map[string]string{
				"outcome":      r.Outcome,
				"offence":      r.Offence,
				"sentence_len": r.SentenceLength,
			},
		}
	}
	return obs
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
