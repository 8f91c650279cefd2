package output

import (
	"strconv"

	"github.com/masmgr/gigawork-go/internal/extract"
)

// DateLayout is the sortable ISO-8601 layout used for commit dates.
const DateLayout = "2006-01-02T15:04:05-07:00"

var baseColumns = []string{
	"commit_hash",
	"author_name",
	"author_email",
	"committer_name",
	"committer_email",
	"committed_date",
	"authored_date",
	"file_path",
	"previous_file_path",
	"file_hash",
	"previous_file_hash",
	"change_type",
	"valid_yaml",
	"probably_workflow",
}

// Emitter turns change events into rows with a fixed column order.
// It performs no I/O.
type Emitter struct {
	// Repository, when set, is added as a leading column on every row.
	Repository string
	// Auxiliary rows omit valid_workflow.
	Auxiliary bool
}

// Header returns the column names.
func (e Emitter) Header() []string {
	cols := make([]string, 0, len(baseColumns)+2)
	if e.Repository != "" {
		cols = append(cols, "repository")
	}
	cols = append(cols, baseColumns...)
	if !e.Auxiliary {
		cols = append(cols, "valid_workflow")
	}
	return cols
}

// Row formats one event.
func (e Emitter) Row(ev extract.ChangeEvent) []string {
	row := make([]string, 0, len(baseColumns)+2)
	if e.Repository != "" {
		row = append(row, e.Repository)
	}
	c := ev.Commit
	row = append(row,
		c.Hash,
		c.Author.Name,
		c.Author.Email,
		c.Committer.Name,
		c.Committer.Email,
		c.Committer.When.Format(DateLayout),
		c.Author.When.Format(DateLayout),
		ev.FilePath,
		ev.PreviousFilePath,
		ev.FileHash,
		ev.PreviousFileHash,
		ev.ChangeType.Code(),
		strconv.FormatBool(ev.ValidYAML),
		strconv.FormatBool(ev.ProbablyWorkflow),
	)
	if !e.Auxiliary {
		row = append(row, strconv.FormatBool(ev.ValidWorkflow))
	}
	return row
}
