// Package exporter writes pipeline outputs to CSV. It owns the directory
// layout rules (raw, interim, processed) and the Excel-friendly encoding
// details so the processing packages never touch the filesystem directly.
package exporter
