// Package lineage gives every row of an extraction dataset the identifier of
// the file it belongs to, following the file across renames.
package lineage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

var (
	// ErrInconsistent is returned when two rows of one commit claim the same path.
	ErrInconsistent = errors.New("inconsistent file history")
	// ErrMissingColumn is returned when the input header lacks a required column.
	ErrMissingColumn = errors.New("missing column")
)

// Namespace scopes the generated identifiers.
var Namespace = uuid.MustParse("6f0d3b0e-6c1a-5d8e-9a57-3c2f4b1e7d90")

// Record is the part of a dataset row lineage needs.
type Record struct {
	Repository   string
	Commit       string
	Path         string
	PreviousPath string
	Hash         string
	PreviousHash string
}

type fileKey struct {
	repository string
	path       string
}

// Assigner hands out identifiers for records presented oldest first.
//
// A dataset may hold only part of a file's rows: the primary output omits the
// versions routed to the auxiliary output, and a bounded walk omits the rows
// below the boundary. A row whose previous state is unknown therefore opens a
// new lineage, and a file placed on a path still held by a lineage from an
// earlier commit replaces it. Two rows of one commit claiming the same path
// are inconsistent.
type Assigner struct {
	live map[fileKey]string
}

// NewAssigner creates an empty Assigner.
func NewAssigner() *Assigner {
	return &Assigner{live: make(map[fileKey]string)}
}

// ID returns the identifier of the file created by r.
func ID(r Record) string {
	return uuid.NewSHA1(Namespace, []byte(r.Repository+"/"+r.Path+"/"+r.Commit)).String()
}

// Assign returns the identifier for a record that is alone in its commit.
func (a *Assigner) Assign(r Record) (string, error) {
	ids, err := a.AssignCommit([]Record{r})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AssignCommit returns the identifiers for the records of one commit. Every
// previous path is released before any new path is taken, so renames that
// swap paths keep their lineages.
func (a *Assigner) AssignCommit(records []Record) ([]string, error) {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = ID(r)
		if r.PreviousHash == "" {
			continue
		}
		prev := fileKey{r.Repository, r.PreviousPath}
		if id, ok := a.live[prev]; ok {
			ids[i] = id
			delete(a.live, prev)
		}
	}

	claimed := make(map[fileKey]bool, len(records))
	for i, r := range records {
		if r.Hash == "" { // deleted
			continue
		}
		key := fileKey{r.Repository, r.Path}
		if claimed[key] {
			return nil, inconsistent(r, "path %q claimed twice", r.Path)
		}
		claimed[key] = true
		a.live[key] = ids[i]
	}
	return ids, nil
}

func inconsistent(r Record, format string, args ...any) error {
	return fmt.Errorf("%w: commit %s: %s", ErrInconsistent, r.Commit, fmt.Sprintf(format, args...))
}

func sameCommit(x, y Record) bool {
	return x.Repository == y.Repository && x.Commit == y.Commit
}

var requiredColumns = []string{"commit_hash", "file_path", "previous_file_path", "file_hash", "previous_file_hash"}

// Process reads a dataset with a header row from r, newest rows first as
// produced by an extraction, and writes it to w with a trailing uid column.
// Rows keep their order.
func Process(r io.Reader, w io.Writer) error {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return fmt.Errorf("read dataset: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: empty input has no header", ErrMissingColumn)
	}

	header := rows[0]
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[col] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	repoCol, hasRepo := idx["repository"]

	body := rows[1:]
	records := make([]Record, len(body))
	for i, row := range body {
		records[i] = Record{
			Commit:       row[idx["commit_hash"]],
			Path:         row[idx["file_path"]],
			PreviousPath: row[idx["previous_file_path"]],
			Hash:         row[idx["file_hash"]],
			PreviousHash: row[idx["previous_file_hash"]],
		}
		if hasRepo {
			records[i].Repository = row[repoCol]
		}
	}

	// Rows of one commit are adjacent; commits are walked oldest first.
	uids := make([]string, len(body))
	a := NewAssigner()
	for end := len(records); end > 0; {
		start := end - 1
		for start > 0 && sameCommit(records[start-1], records[end-1]) {
			start--
		}
		ids, err := a.AssignCommit(records[start:end])
		if err != nil {
			return err
		}
		copy(uids[start:end], ids)
		end = start
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string(nil), header...), "uid")); err != nil {
		return err
	}
	for i, row := range body {
		if err := cw.Write(append(row, uids[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
