// Package dataprocessing ingests the raw sentencing-outcomes and population
// publications and reduces them to the per-area annual series the rate
// pipeline consumes.
//
// The package covers three concerns:
//
//   - Parsing: reading the quarterly outcomes-by-offence extracts, the ONS
//     mid-year population estimates, and the local-authority to police-force
//     lookup from CSV and Excel files.
//   - Outcome cleaning: stripping code prefixes, applying the publication
//     filters (adult women, known force areas, the three sentence outcomes),
//     and banding custodial sentence lengths.
//   - Population preparation: removing aggregate geographies, filtering to
//     adult women, mapping local authorities onto police force areas and
//     standardising area names to the custody vocabulary.
//
// Everything downstream of this package works on dataset.Observation and
// dataset.AnnualSeries values; no raw publication quirks escape it.
package dataprocessing
