package git

import (
	"sort"
	"strings"
	"time"
)

// CommitRef represents the metadata of a single commit.
// It is immutable once read from an Accessor.
type CommitRef struct {
	Hash       string
	Author     Signature
	Committer  Signature
	ParentHash string // empty for a root commit
}

// Signature represents an author or committer identity with its timestamp.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// IsRoot reports whether the commit has no parent.
func (c CommitRef) IsRoot() bool {
	return c.ParentHash == ""
}

// Short returns an abbreviated commit hash for log messages.
func (c CommitRef) Short() string {
	if len(c.Hash) > 8 {
		return c.Hash[:8]
	}
	return c.Hash
}

// PathSnapshot maps repository-relative paths to blob ids for every file
// under a watched subtree at one commit.
type PathSnapshot struct {
	Commit  string
	Root    string            // watched subtree, e.g. ".github"
	TreeID  string            // id of the subtree's tree object, empty if the subtree is absent
	Entries map[string]string // path -> blob id
}

// EmptySnapshot returns a snapshot with no entries, used as the "before"
// state of a root commit.
func EmptySnapshot(root string) PathSnapshot {
	return PathSnapshot{Root: root, Entries: map[string]string{}}
}

// Len returns the number of files in the snapshot.
func (s PathSnapshot) Len() int {
	return len(s.Entries)
}

// Paths returns the snapshot paths in byte order.
func (s PathSnapshot) Paths() []string {
	paths := make([]string, 0, len(s.Entries))
	for p := range s.Entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// SameTree reports whether both snapshots were taken from the same subtree
// object, in which case they cannot differ.
func (s PathSnapshot) SameTree(other PathSnapshot) bool {
	if s.TreeID == "" && other.TreeID == "" {
		return len(s.Entries) == 0 && len(other.Entries) == 0
	}
	return s.TreeID == other.TreeID
}

// RenamePair is a rename reported by the version-control backend between two
// snapshots.
type RenamePair struct {
	From string
	To   string
}

// ChangeKind represents the type of change.
type ChangeKind int

const (
	ChangeKindAdded ChangeKind = iota
	ChangeKindModified
	ChangeKindDeleted
)

// String returns a string representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeKindAdded:
		return "added"
	case ChangeKindModified:
		return "modified"
	case ChangeKindDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Code returns the single letter used in the dataset (A, M or D).
func (k ChangeKind) Code() string {
	switch k {
	case ChangeKindAdded:
		return "A"
	case ChangeKindModified:
		return "M"
	case ChangeKindDeleted:
		return "D"
	default:
		return "?"
	}
}

// RenameBackend selects how renames between two snapshots are detected.
type RenameBackend string

const (
	RenameBackendGoGit RenameBackend = "go-git"
	RenameBackendCLI   RenameBackend = "git"
	RenameBackendOff   RenameBackend = "off"
)

// ParseRenameBackend parses a rename backend name. The empty string selects go-git.
func ParseRenameBackend(s string) (RenameBackend, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "go-git", "gogit", "auto":
		return RenameBackendGoGit, true
	case "git", "cli":
		return RenameBackendCLI, true
	case "off", "none", "false":
		return RenameBackendOff, true
	default:
		return "", false
	}
}

// JoinPath joins a subtree root and a path relative to it using "/".
func JoinPath(root, rel string) string {
	root = strings.Trim(root, "/")
	if root == "" {
		return rel
	}
	return root + "/" + rel
}
