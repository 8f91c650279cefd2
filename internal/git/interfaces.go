package git

import "context"

// Accessor is a read-only view over a commit graph.
// This abstraction keeps the walker and the extraction engine independent of
// the version-control backend and allows in-memory test doubles.
type Accessor interface {
	// Resolve looks up a commit by reference (branch, tag, hash or revision expression).
	Resolve(ctx context.Context, ref string) (CommitRef, error)
	// FirstParent returns the first parent of c, or nil for a root commit.
	FirstParent(ctx context.Context, c CommitRef) (*CommitRef, error)
	// Snapshot lists every file under subtree at commit c.
	Snapshot(ctx context.Context, c CommitRef, subtree string) (PathSnapshot, error)
	// BlobContent returns the raw bytes of a blob.
	BlobContent(ctx context.Context, blobID string) ([]byte, error)
}

// RenameDetector is implemented by backends able to pair deleted and added
// paths between two snapshots.
type RenameDetector interface {
	Renames(ctx context.Context, older, newer PathSnapshot) ([]RenamePair, error)
}

// Compile-time interface conformance checks.
var (
	_ Accessor       = (*Repository)(nil)
	_ RenameDetector = (*Repository)(nil)
	_ Accessor       = (*MemoryAccessor)(nil)
	_ RenameDetector = (*MemoryAccessor)(nil)
	_ RenameDetector = (*CLIRenameDetector)(nil)
)
