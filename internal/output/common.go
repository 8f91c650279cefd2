package output

import (
	"io"
	"os"
	"path/filepath"

	"github.com/masmgr/gigawork-go/internal/extract"
)

// openOutputWriter opens outputPath for appending, creating parent
// directories. An empty path selects standard output.
func openOutputWriter(outputPath string) (io.Writer, *os.File, error) {
	if outputPath == "" {
		return os.Stdout, nil, nil
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return file, file, nil
}

// SinkOptions configures a Sink.
type SinkOptions struct {
	Format     OutputFormat
	OutputPath string // empty writes to standard output
	Header     bool
	Title      string // printed above table output
	Emitter    Emitter
}

// Sink writes the events of one output kind. Nothing, not even the header, is
// written until the first event arrives.
type Sink struct {
	opts   SinkOptions
	out    io.Writer
	file   *os.File
	rw     RowWriter
	rows   int
	opened bool
}

// NewSink creates a sink. The output file is opened lazily.
func NewSink(opts SinkOptions) *Sink {
	return &Sink{opts: opts}
}

// newSinkTo creates a sink writing to w.
func newSinkTo(w io.Writer, opts SinkOptions) *Sink {
	return &Sink{opts: opts, out: w}
}

// Write emits one event.
func (s *Sink) Write(ev extract.ChangeEvent) error {
	if !s.opened {
		if err := s.open(); err != nil {
			return err
		}
	}
	s.rows++
	return s.rw.WriteRow(s.opts.Emitter.Row(ev))
}

// Rows returns the number of rows written.
func (s *Sink) Rows() int {
	return s.rows
}

func (s *Sink) open() error {
	if s.out == nil {
		out, file, err := openOutputWriter(s.opts.OutputPath)
		if err != nil {
			return err
		}
		s.out, s.file = out, file
	}
	s.rw = NewRowWriter(s.opts.Format, s.out)
	if tw, ok := s.rw.(*TableRowWriter); ok {
		tw.Title = s.opts.Title
	}
	s.opened = true
	return s.rw.Begin(s.opts.Emitter.Header(), s.opts.Header)
}

// Close flushes buffered rows and closes the output file.
func (s *Sink) Close() error {
	if !s.opened {
		return nil
	}
	err := s.rw.Flush()
	if s.file != nil {
		if cerr := s.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
