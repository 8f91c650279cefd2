// Package diff computes path-level changes between two adjacent snapshots of
// a watched subtree and reconciles the renames reported by the backend.
package diff

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/masmgr/gigawork-go/internal/git"
)

// Change is one normalized path-level difference between two snapshots.
// A rename is reported as ChangeKindModified with OldPath != Path.
type Change struct {
	Kind      git.ChangeKind
	Path      string // new path; the deleted path for deletions
	OldPath   string // empty for additions
	BlobID    string // empty for deletions
	OldBlobID string // empty for additions
}

// IsRename reports whether the change moved the file to a new path.
func (c Change) IsRename() bool {
	return c.Kind == git.ChangeKindModified && c.OldPath != "" && c.OldPath != c.Path
}

// Diff compares newer against older by path, then by blob id, and folds the
// given rename pairs into Modified changes. Only a pair whose From is a
// deleted path and whose To is an added path of this step is applied; each
// path takes part in at most one pair. The result is sorted by Path.
func Diff(newer, older git.PathSnapshot, renames []git.RenamePair) []Change {
	var added, deleted []string
	changes := make([]Change, 0)

	for _, p := range newer.Paths() {
		id := newer.Entries[p]
		oldID, ok := older.Entries[p]
		switch {
		case !ok:
			added = append(added, p)
		case oldID != id:
			changes = append(changes, Change{
				Kind:      git.ChangeKindModified,
				Path:      p,
				OldPath:   p,
				BlobID:    id,
				OldBlobID: oldID,
			})
		}
	}
	for _, p := range older.Paths() {
		if _, ok := newer.Entries[p]; !ok {
			deleted = append(deleted, p)
		}
	}

	addedSet := toSet(added)
	deletedSet := toSet(deleted)

	pairs := append([]git.RenamePair(nil), renames...)
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].To != pairs[j].To {
			return pairs[i].To < pairs[j].To
		}
		return pairs[i].From < pairs[j].From
	})
	for _, r := range pairs {
		if !addedSet[r.To] || !deletedSet[r.From] {
			continue
		}
		delete(addedSet, r.To)
		delete(deletedSet, r.From)
		changes = append(changes, Change{
			Kind:      git.ChangeKindModified,
			Path:      r.To,
			OldPath:   r.From,
			BlobID:    newer.Entries[r.To],
			OldBlobID: older.Entries[r.From],
		})
	}

	for _, p := range added {
		if addedSet[p] {
			changes = append(changes, Change{Kind: git.ChangeKindAdded, Path: p, BlobID: newer.Entries[p]})
		}
	}
	for _, p := range deleted {
		if deletedSet[p] {
			changes = append(changes, Change{Kind: git.ChangeKindDeleted, Path: p, OldPath: p, OldBlobID: older.Entries[p]})
		}
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes
}

func toSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}

// Filter keeps changes whose path matches the include globs and none of the
// exclude globs. Patterns use doublestar syntax and match repository-relative
// paths. The zero Filter keeps everything.
type Filter struct {
	Include []string
	Exclude []string
}

// Validate reports the first malformed pattern, if any.
func (f Filter) Validate() error {
	for _, p := range append(append([]string(nil), f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return &PatternError{Pattern: p}
		}
	}
	return nil
}

// PatternError describes a malformed glob pattern.
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return "invalid glob pattern: " + e.Pattern
}

// Match checks a single path against the filter.
func (f Filter) Match(path string) bool {
	path = strings.ReplaceAll(path, "\\", "/")

	for _, pattern := range f.Exclude {
		if matched, _ := doublestar.Match(pattern, path); matched {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if matched, _ := doublestar.Match(pattern, path); matched {
			return true
		}
	}
	return false
}

// Apply returns the changes accepted by the filter, preserving order.
// Deletions are matched on the path they had before the change.
func (f Filter) Apply(changes []Change) []Change {
	if len(f.Include) == 0 && len(f.Exclude) == 0 {
		return changes
	}
	kept := changes[:0:0]
	for _, c := range changes {
		if f.Match(c.Path) {
			kept = append(kept, c)
		}
	}
	return kept
}
