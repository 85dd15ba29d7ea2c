package dataprocessing

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"pfastats/internal/dataset"
)

// minAdultAge is the youngest age the population denominator covers.
const minAdultAge = 18

// cityOfLondonPFA is excluded from the analysis: the force covers a
// residential population too small for meaningful rates.
const cityOfLondonPFA = "London, City of"

// CleanPopulation reduces the raw ONS estimates to adult women per local
// authority per year. Aggregate geographies (the publication marks them with
// all-uppercase names) are dropped, the open-ended "90+" band counts as 90,
// and ages are summed away.
func CleanPopulation(ctx context.Context, logger *slog.Logger, records []PopulationRecord) []PopulationRecord {
	if logger == nil {
		logger = slog.Default()
	}

	aggregateCodes := make(map[string]bool)
	for _, r := range records {
		if r.LAName != "" && r.LAName == strings.ToUpper(r.LAName) && r.LAName != strings.ToLower(r.LAName) {
			aggregateCodes[r.LADCode] = true
		}
	}
	logger.InfoContext(ctx, "removing aggregate geographies",
		slog.Int("codes", len(aggregateCodes)))

	type laYear struct {
		code string
		name string
		year int
	}
	totals := make(map[laYear]float64)
	for _, r := range records {
		if aggregateCodes[r.LADCode] {
			continue
		}
		age := r.Age
		if age == "90+" {
			age = "90"
		}
		years, err := strconv.Atoi(age)
		if err != nil || years < minAdultAge || r.Sex != "Female" {
			continue
		}
		totals[laYear{r.LADCode, r.LAName, r.Year}] += r.Freq
	}

	keys := make([]laYear, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].code != keys[j].code {
			return keys[i].code < keys[j].code
		}
		return keys[i].year < keys[j].year
	})

	out := make([]PopulationRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, PopulationRecord{
			LADCode: k.code,
			LAName:  k.name,
			Year:    k.year,
			Freq:    totals[k],
		})
	}

	logger.InfoContext(ctx, "cleaned population estimates",
		slog.Int("rows_in", len(records)),
		slog.Int("rows_out", len(out)))

	return out
}

// AssignPFA maps each local authority onto its police force area using the
// lookup and returns per-PFA points. Rows whose LAD code is absent from the
// lookup are dropped; they are county and metropolitan-county codes at a
// higher geographic level than the analysis needs. City of London is dropped
// and Devon & Cornwall is renamed to match the custody vocabulary. Unmatched
// codes are logged loudly because a thinning lookup quietly shrinks the
// population denominator.
func AssignPFA(ctx context.Context, logger *slog.Logger, records []PopulationRecord, lookup map[string]string) []dataset.Point {
	if logger == nil {
		logger = slog.Default()
	}

	var points []dataset.Point
	unmatched := make(map[string]bool)
	for _, r := range records {
		pfa, ok := lookup[r.LADCode]
		if !ok {
			unmatched[r.LADCode] = true
			continue
		}
		if pfa == cityOfLondonPFA {
			continue
		}
		if pfa == "Devon & Cornwall" {
			pfa = "Devon and Cornwall"
		}
		points = append(points, dataset.Point{Area: pfa, Year: r.Year, Value: r.Freq})
	}

	if len(unmatched) > 0 {
		codes := make([]string, 0, len(unmatched))
		for c := range unmatched {
			codes = append(codes, c)
		}
		sort.Strings(codes)
		logger.WarnContext(ctx, "local authority codes missing from the PFA lookup",
			slog.Int("codes", len(codes)),
			slog.String("lad_codes", strings.Join(codes, ", ")))
	}

	logger.InfoContext(ctx, "matched local authorities to police force areas",
		slog.Int("rows", len(points)))

	return points
}

// PreparePopulation standardises PFA names to the custody vocabulary, drops
// years before fromYear and aggregates to a per-area annual series.
func PreparePopulation(points []dataset.Point, renames map[string]string, fromYear int) *dataset.AnnualSeries {
	kept := make([]dataset.Point, 0, len(points))
	for _, p := range points {
		if p.Year < fromYear {
			continue
		}
		if renamed, ok := renames[p.Area]; ok {
			p.Area = renamed
		}
		kept = append(kept, p)
	}
	return dataset.NewSeries(kept)
}
