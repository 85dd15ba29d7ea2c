package dataprocessing

// SentencingRecord is one row of the outcomes-by-offence extract after
// column standardisation. Sentenced is the number of people the row counts.
type SentencingRecord struct {
	Year           int
	PFA            string
	Sex            string
	AgeGroup       string
	Offence        string
	Outcome        string
	SentenceLength string
	Sentenced      float64
}

// PopulationRecord is one row of the ONS mid-year population estimates after
// column standardisation. Age stays a string until filtering because the
// publication uses "90+" for its open-ended band.
type PopulationRecord struct {
	LADCode string
	LAName  string
	Year    int
	Sex     string
	Age     string
	Freq    float64
}

// WideTable is a crosstab: one row per key, one cell per column. Cells stay
// strings because wide tables round-trip through CSV and may carry non-numeric
// trailing columns.
type WideTable struct {
	// IndexName is the header of the key column, "pfa" for custody tables.
	IndexName string
	// Columns are the headers after the key column.
	Columns []string
	Rows    []WideRow
}

// WideRow is one row of a WideTable. Cells is parallel to WideTable.Columns.
type WideRow struct {
	Key   string
	Cells []string
}
