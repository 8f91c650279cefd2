package git

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// MemoryAccessor is an in-memory commit graph used as a test double for
// Repository. It allows tests to describe a history without a real Git
// repository.
type MemoryAccessor struct {
	commits map[string]CommitRef
	files   map[string]map[string]string // commit -> path -> blob id
	blobs   map[string][]byte
	refs    map[string]string
	renames map[string][]RenamePair // newer commit -> pairs
	fail    map[string]error        // commit or blob id -> injected error
	clock   time.Time
}

// NewMemoryAccessor creates an empty MemoryAccessor.
func NewMemoryAccessor() *MemoryAccessor {
	return &MemoryAccessor{
		commits: map[string]CommitRef{},
		files:   map[string]map[string]string{},
		blobs:   map[string][]byte{},
		refs:    map[string]string{},
		renames: map[string][]RenamePair{},
		fail:    map[string]error{},
		clock:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600)),
	}
}

// AddCommit records a commit whose full tree is files (path -> content).
// HEAD is moved to the new commit.
func (m *MemoryAccessor) AddCommit(hash, parent string, files map[string]string) CommitRef {
	m.clock = m.clock.Add(time.Hour)
	c := CommitRef{
		Hash:       hash,
		Author:     Signature{Name: "Author " + hash, Email: hash + "@example.com", When: m.clock.Add(-time.Minute)},
		Committer:  Signature{Name: "Committer", Email: "committer@example.com", When: m.clock},
		ParentHash: parent,
	}
	tree := make(map[string]string, len(files))
	for path, content := range files {
		id := MemoryBlobID([]byte(content))
		m.blobs[id] = []byte(content)
		tree[path] = id
	}
	m.commits[hash] = c
	m.files[hash] = tree
	m.refs["HEAD"] = hash
	return c
}

// AddRename declares that diffing commit's first parent against commit
// reports from -> to as a rename.
func (m *MemoryAccessor) AddRename(commit, from, to string) {
	m.renames[commit] = append(m.renames[commit], RenamePair{From: from, To: to})
}

// SetRef points a named reference at a commit.
func (m *MemoryAccessor) SetRef(name, hash string) {
	m.refs[name] = hash
}

// Fail makes every read of the given commit or blob id return err.
func (m *MemoryAccessor) Fail(id string, err error) {
	m.fail[id] = err
}

// MemoryBlobID returns the id MemoryAccessor assigns to content.
func MemoryBlobID(content []byte) string {
	sum := sha1.Sum(content)
	return hex.EncodeToString(sum[:])
}

// Resolve looks up a reference name or a commit hash.
func (m *MemoryAccessor) Resolve(ctx context.Context, ref string) (CommitRef, error) {
	if err := ctx.Err(); err != nil {
		return CommitRef{}, err
	}
	hash := ref
	if target, ok := m.refs[ref]; ok {
		hash = target
	}
	c, ok := m.commits[hash]
	if !ok {
		return CommitRef{}, referenceNotFound(ref, nil)
	}
	return c, nil
}

// FirstParent returns the first parent of c, or nil for a root commit.
func (m *MemoryAccessor) FirstParent(ctx context.Context, c CommitRef) (*CommitRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.IsRoot() {
		return nil, nil
	}
	if err := m.fail[c.ParentHash]; err != nil {
		return nil, accessorIO("read parent of "+c.Hash, err)
	}
	parent, ok := m.commits[c.ParentHash]
	if !ok {
		return nil, accessorIO("read parent of "+c.Hash, fmt.Errorf("object %s not found", c.ParentHash))
	}
	return &parent, nil
}

// Snapshot lists the files of commit c under subtree.
func (m *MemoryAccessor) Snapshot(ctx context.Context, c CommitRef, subtree string) (PathSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return PathSnapshot{}, err
	}
	if err := m.fail[c.Hash]; err != nil {
		return PathSnapshot{}, accessorIO("read tree of "+c.Hash, err)
	}
	tree, ok := m.files[c.Hash]
	if !ok {
		return PathSnapshot{}, accessorIO("read tree of "+c.Hash, fmt.Errorf("object %s not found", c.Hash))
	}

	snap := EmptySnapshot(subtree)
	snap.Commit = c.Hash
	prefix := strings.Trim(subtree, "/")
	if prefix != "" {
		prefix += "/"
	}
	for path, id := range tree {
		if strings.HasPrefix(path, prefix) {
			snap.Entries[path] = id
		}
	}
	snap.TreeID = memoryTreeID(snap)
	return snap, nil
}

// BlobContent returns the content of a blob.
func (m *MemoryAccessor) BlobContent(ctx context.Context, blobID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.fail[blobID]; err != nil {
		return nil, accessorIO("read blob "+blobID, err)
	}
	data, ok := m.blobs[blobID]
	if !ok {
		return nil, accessorIO("read blob "+blobID, fmt.Errorf("object %s not found", blobID))
	}
	return data, nil
}

// Renames returns the pairs declared with AddRename for newer's commit.
func (m *MemoryAccessor) Renames(ctx context.Context, older, newer PathSnapshot) ([]RenamePair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]RenamePair(nil), m.renames[newer.Commit]...), nil
}

func memoryTreeID(snap PathSnapshot) string {
	if len(snap.Entries) == 0 {
		return ""
	}
	h := sha1.New()
	for _, p := range snap.Paths() {
		fmt.Fprintf(h, "%s\x00%s\n", p, snap.Entries[p])
	}
	return hex.EncodeToString(h.Sum(nil))
}
