package output

import (
	"encoding/csv"
	"io"
)

// CSVRowWriter writes rows as RFC 4180 CSV.
type CSVRowWriter struct {
	w *csv.Writer
}

// NewCSVRowWriter creates a CSV writer on w.
func NewCSVRowWriter(w io.Writer) *CSVRowWriter {
	return &CSVRowWriter{w: csv.NewWriter(w)}
}

// Begin writes the header row when requested.
func (w *CSVRowWriter) Begin(columns []string, header bool) error {
	if !header {
		return nil
	}
	return w.w.Write(columns)
}

// WriteRow writes one record.
func (w *CSVRowWriter) WriteRow(row []string) error {
	return w.w.Write(row)
}

// Flush writes buffered records.
func (w *CSVRowWriter) Flush() error {
	w.w.Flush()
	return w.w.Error()
}
