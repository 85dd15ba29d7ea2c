package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"pfastats/internal/errors"
)

// Reserved grouping key names that address the fixed observation fields
// rather than the categorical attribute map.
const (
	KeyArea = "pfa"
	KeyYear = "year"
)

// GroupSum aggregates observations by the given key columns, summing Freq
// per unique key combination. Keys may be the fixed columns ("pfa", "year")
// or any categorical attribute name. A row missing a requested field is a
// precondition violation: the whole call fails rather than silently coercing.
// The input is never mutated; output rows carry only the grouped fields and
// are sorted by key for deterministic downstream processing.
func GroupSum(table string, rows []Observation, keys []string) ([]Observation, error) {
	if len(keys) == 0 {
		return nil, errors.NewPreconditionError(table, "at least one grouping key is required")
	}

	type group struct {
		row  Observation
		sort string
	}
	groups := make(map[string]*group)

	for i, row := range rows {
		keyParts := make([]string, 0, len(keys))
		var out Observation
		var attrs map[string]string

		for _, key := range keys {
			switch key {
			case KeyArea:
				if row.Area == "" {
					return nil, errors.NewPreconditionError(table, fmt.Sprintf("row %d has no area value", i))
				}
				out.Area = row.Area
				keyParts = append(keyParts, row.Area)
			case KeyYear:
				if row.Year == 0 {
					return nil, errors.NewPreconditionError(table, fmt.Sprintf("row %d has no year value", i))
				}
				out.Year = row.Year
				keyParts = append(keyParts, strconv.Itoa(row.Year))
			default:
				v, ok := row.Attr(key)
				if !ok {
					return nil, errors.NewPreconditionError(table, fmt.Sprintf("row %d is missing required field %s", i, key))
				}
				if attrs == nil {
					attrs = make(map[string]string, len(keys))
				}
				attrs[key] = v
				keyParts = append(keyParts, v)
			}
		}
		out.Attrs = attrs

		composite := strings.Join(keyParts, "\x1f")
		if g, ok := groups[composite]; ok {
			g.row.Freq += row.Freq
		} else {
			out.Freq = row.Freq
			groups[composite] = &group{row: out, sort: composite}
		}
	}

	result := make([]*group, 0, len(groups))
	for _, g := range groups {
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].sort < result[j].sort })

	rowsOut := make([]Observation, len(result))
	for i, g := range result {
		rowsOut[i] = g.row
	}
	return rowsOut, nil
}

// FilterYears returns the rows whose year is >= from and, when to is
// non-zero, strictly before to.
func FilterYears(rows []Observation, from, to int) []Observation {
	var out []Observation
	for _, row := range rows {
		if row.Year < from {
			continue
		}
		if to != 0 && row.Year >= to {
			continue
		}
		out = append(out, row)
	}
	return out
}
