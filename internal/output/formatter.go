package output

import (
	"fmt"
	"io"
	"strings"
)

// Compile-time interface conformance checks.
var (
	_ RowWriter = (*CSVRowWriter)(nil)
	_ RowWriter = (*NDJSONRowWriter)(nil)
	_ RowWriter = (*TableRowWriter)(nil)
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	FormatCSV    OutputFormat = "csv"
	FormatNDJSON OutputFormat = "ndjson"
	FormatTable  OutputFormat = "table"
)

// ParseFormat parses a format name. The empty string selects CSV.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatNDJSON, "jsonl":
		return FormatNDJSON, nil
	case FormatTable, "console":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected csv, ndjson or table)", s)
	}
}

// RowWriter serializes emitted rows. Rows must have as many fields as the
// columns passed to Begin.
type RowWriter interface {
	// Begin announces the columns. header controls whether formats with an
	// explicit header line print it.
	Begin(columns []string, header bool) error
	WriteRow(row []string) error
	// Flush writes buffered output.
	Flush() error
}

// NewRowWriter creates a row writer for the specified format.
func NewRowWriter(format OutputFormat, w io.Writer) RowWriter {
	switch format {
	case FormatNDJSON:
		return &NDJSONRowWriter{w: w}
	case FormatTable:
		return &TableRowWriter{w: w}
	default:
		return NewCSVRowWriter(w)
	}
}
