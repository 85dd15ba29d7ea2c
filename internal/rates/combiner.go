// Package rates joins the (possibly projection-extended) population series
// against the custody series and derives the imprisonment rate per area and
// year, auditing the join for gaps. An unannounced partial join is the most
// dangerous latent defect in this pipeline, so every gap is counted and the
// affected areas are named in the log.
package rates

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"pfastats/internal/dataset"
)

// MergedRateRow is one row of the final rate table. Population and Custody
// are nil when the join found no match on that side; Rate is NaN whenever it
// is undefined (missing custody, missing or zero population).
type MergedRateRow struct {
	Area       string
	Year       int
	Population *float64
	Custody    *float64
	Rate       float64
}

// JoinGap describes one side of an incomplete join.
type JoinGap struct {
	Rows  int
	Areas []string // distinct, sorted
}

// JoinAudit reports the completeness of the population/custody join.
type JoinAudit struct {
	// MissingPopulation counts custody rows with no population match.
	// These corrupt the published rate table if left unannounced.
	MissingPopulation JoinGap
	// MissingCustody counts population rows with no custody match.
	MissingCustody JoinGap
}

// Combiner merges population and custody series into rate rows.
type Combiner struct {
	logger *slog.Logger
	// ratePer is the population denominator scale, typically 100000.
	ratePer float64
}

// NewCombiner creates a rate combiner. ratePer defaults to 100000 when
// nonpositive.
func NewCombiner(logger *slog.Logger, ratePer float64) *Combiner {
	if logger == nil {
		logger = slog.Default()
	}
	if ratePer <= 0 {
		ratePer = 100000
	}
	return &Combiner{logger: logger, ratePer: ratePer}
}

// Combine performs a full outer join of the population series against the
// custody series on (area, year) and computes the rate for each row. Every
// custody row appears in the output exactly once, matched or not. Join gaps
// are returned in the audit and logged loudly; they never abort the run.
func (c *Combiner) Combine(ctx context.Context, population, custody *dataset.AnnualSeries) ([]MergedRateRow, *JoinAudit) {
	type key struct {
		area string
		year int
	}
	keys := make(map[key]bool)
	for _, p := range population.Points() {
		keys[key{p.Area, p.Year}] = true
	}
	for _, p := range custody.Points() {
		keys[key{p.Area, p.Year}] = true
	}

	ordered := make([]key, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].area != ordered[j].area {
			return ordered[i].area < ordered[j].area
		}
		return ordered[i].year < ordered[j].year
	})

	audit := &JoinAudit{}
	missingPopAreas := make(map[string]bool)
	missingCustAreas := make(map[string]bool)

	rows := make([]MergedRateRow, 0, len(ordered))
	for _, k := range ordered {
		row := MergedRateRow{Area: k.area, Year: k.year, Rate: math.NaN()}

		pop, popOK := population.Value(k.area, k.year)
		cust, custOK := custody.Value(k.area, k.year)
		if popOK {
			row.Population = &pop
		}
		if custOK {
			row.Custody = &cust
		}

		switch {
		case custOK && !popOK:
			audit.MissingPopulation.Rows++
			missingPopAreas[k.area] = true
		case popOK && !custOK:
			audit.MissingCustody.Rows++
			missingCustAreas[k.area] = true
		}

		if popOK && custOK && pop > 0 {
			row.Rate = roundTo1(cust / pop * c.ratePer)
		}

		rows = append(rows, row)
	}

	audit.MissingPopulation.Areas = sortedKeys(missingPopAreas)
	audit.MissingCustody.Areas = sortedKeys(missingCustAreas)
	c.logAudit(ctx, audit, len(rows))

	return rows, audit
}

// logAudit surfaces join gaps. Custody rows without population corrupt the
// published rate silently, so they warrant the loudest warning.
func (c *Combiner) logAudit(ctx context.Context, audit *JoinAudit, totalRows int) {
	if audit.MissingPopulation.Rows > 0 {
		c.logger.WarnContext(ctx, "custody rows have no matching population data; their rates are undefined",
			slog.Int("rows", audit.MissingPopulation.Rows),
			slog.String("areas", strings.Join(audit.MissingPopulation.Areas, ", ")))
	}
	if audit.MissingCustody.Rows > 0 {
		c.logger.WarnContext(ctx, "population rows have no matching custody data",
			slog.Int("rows", audit.MissingCustody.Rows),
			slog.String("areas", strings.Join(audit.MissingCustody.Areas, ", ")))
	}

	c.logger.InfoContext(ctx, "merged custody and population data",
		slog.Int("rows", totalRows),
		slog.Int("missing_population_rows", audit.MissingPopulation.Rows),
		slog.Int("missing_custody_rows", audit.MissingCustody.Rows))
}

// YearRange returns the (min, max) year span of the merged rows. ok is false
// when rows is empty.
func YearRange(rows []MergedRateRow) (minYear, maxYear int, ok bool) {
	for _, r := range rows {
		if !ok {
			minYear, maxYear, ok = r.Year, r.Year, true
			continue
		}
		if r.Year < minYear {
			minYear = r.Year
		}
		if r.Year > maxYear {
			maxYear = r.Year
		}
	}
	return minYear, maxYear, ok
}

func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
