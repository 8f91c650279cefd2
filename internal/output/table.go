package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableRowWriter renders rows as a table for interactive inspection.
// Rows are buffered and rendered on Flush.
type TableRowWriter struct {
	w     io.Writer
	tbl   table.Writer
	rows  int
	Title string
}

// Begin creates the table and its header.
func (w *TableRowWriter) Begin(columns []string, header bool) error {
	w.tbl = table.NewWriter()
	w.tbl.SetStyle(table.StyleLight)
	w.tbl.Style().Options.SeparateRows = false
	w.tbl.Style().Options.DrawBorder = false
	w.tbl.Style().Format.Header = text.FormatDefault

	if header {
		h := make(table.Row, len(columns))
		for i, c := range columns {
			h[i] = c
		}
		w.tbl.AppendHeader(h)
	}
	return nil
}

// WriteRow appends one row.
func (w *TableRowWriter) WriteRow(row []string) error {
	r := make(table.Row, len(row))
	for i, v := range row {
		r[i] = v
	}
	w.tbl.AppendRow(r)
	w.rows++
	return nil
}

// Flush renders the table.
func (w *TableRowWriter) Flush() error {
	if w.tbl == nil {
		return nil
	}
	if w.Title != "" {
		if _, err := color.New(color.FgGreen).Fprintln(w.w, w.Title); err != nil {
			return err
		}
	}
	w.tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d rows", w.rows)})
	_, err := fmt.Fprintln(w.w, w.tbl.Render())
	return err
}
