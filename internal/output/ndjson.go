package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// NDJSONRowWriter writes one JSON object per row, keyed by column name.
// Keys appear in column order.
type NDJSONRowWriter struct {
	w       io.Writer
	buf     *bufio.Writer
	columns []string
}

// Begin records the column names. NDJSON has no header line.
func (w *NDJSONRowWriter) Begin(columns []string, _ bool) error {
	w.columns = columns
	w.buf = bufio.NewWriter(w.w)
	return nil
}

// WriteRow writes one object.
func (w *NDJSONRowWriter) WriteRow(row []string) error {
	if len(row) != len(w.columns) {
		return fmt.Errorf("row has %d fields, expected %d", len(row), len(w.columns))
	}
	return writeNDJSONLine(w.buf, orderedRow{columns: w.columns, values: row})
}

// Flush writes buffered lines.
func (w *NDJSONRowWriter) Flush() error {
	if w.buf == nil {
		return nil
	}
	return w.buf.Flush()
}

// orderedRow marshals as an object whose keys keep the column order.
type orderedRow struct {
	columns []string
	values  []string
}

func (r orderedRow) MarshalJSON() ([]byte, error) {
	out := []byte{'{'}
	for i, col := range r.columns {
		if i > 0 {
			out = append(out, ',')
		}
		k, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		out = append(out, k...)
		out = append(out, ':')
		out = append(out, v...)
	}
	return append(out, '}'), nil
}

func writeNDJSONLine(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal NDJSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
