// Package dataset provides the long-format observation table and the annual
// time series structures shared by every pipeline stage. All operations
// return fresh values; inputs are never mutated.
package dataset

// Observation is one long-format row of a source dataset: a count of events
// for an area and year, optionally carrying categorical attributes such as
// sentence outcome or sentence length.
type Observation struct {
	Area  string
	Year  int
	Freq  float64
	Attrs map[string]string
}

// Attr returns the named categorical attribute and whether it is present.
func (o Observation) Attr(name string) (string, bool) {
	v, ok := o.Attrs[name]
	return v, ok
}

// Point is one (area, year, value) entry of an annual series.
type Point struct {
	Area  string
	Year  int
	Value float64
}
