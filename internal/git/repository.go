package git

import (
	"context"
	"errors"
	"io"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repository implements Accessor and RenameDetector on top of go-git.
type Repository struct {
	repo    *gogit.Repository
	path    string
	renames RenameBackend
	cli     *CLIRenameDetector
}

// NewRepository wraps an already opened go-git repository.
// path is only needed by the git CLI rename backend.
func NewRepository(repo *gogit.Repository, path string, backend RenameBackend) *Repository {
	r := &Repository{repo: repo, path: path, renames: backend}
	if backend == RenameBackendCLI {
		r.cli = NewCLIRenameDetector(path)
	}
	return r
}

// Resolve resolves a revision to a commit.
func (r *Repository) Resolve(ctx context.Context, ref string) (CommitRef, error) {
	if err := ctx.Err(); err != nil {
		return CommitRef{}, err
	}
	if strings.TrimSpace(ref) == "" {
		return CommitRef{}, referenceNotFound(ref, nil)
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return CommitRef{}, referenceNotFound(ref, err)
	}

	c, err := r.repo.CommitObject(*hash)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return CommitRef{}, referenceNotFound(ref, err)
		}
		return CommitRef{}, accessorIO("read commit "+hash.String(), err)
	}
	return commitRef(c), nil
}

// FirstParent returns the first parent of c, or nil for a root commit.
func (r *Repository) FirstParent(ctx context.Context, c CommitRef) (*CommitRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.IsRoot() {
		return nil, nil
	}

	parent, err := r.repo.CommitObject(plumbing.NewHash(c.ParentHash))
	if err != nil {
		return nil, accessorIO("read parent of "+c.Hash, err)
	}
	ref := commitRef(parent)
	return &ref, nil
}

// Snapshot lists every blob under subtree at commit c.
func (r *Repository) Snapshot(ctx context.Context, c CommitRef, subtree string) (PathSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return PathSnapshot{}, err
	}
	snap := EmptySnapshot(subtree)
	snap.Commit = c.Hash

	commit, err := r.repo.CommitObject(plumbing.NewHash(c.Hash))
	if err != nil {
		return PathSnapshot{}, accessorIO("read commit "+c.Hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return PathSnapshot{}, accessorIO("read tree of "+c.Hash, err)
	}

	if root := strings.Trim(subtree, "/"); root != "" {
		tree, err = tree.Tree(root)
		if errors.Is(err, object.ErrDirectoryNotFound) {
			return snap, nil
		}
		if err != nil {
			return PathSnapshot{}, accessorIO("read subtree "+root+" of "+c.Hash, err)
		}
	}
	snap.TreeID = tree.Hash.String()

	err = tree.Files().ForEach(func(f *object.File) error {
		snap.Entries[JoinPath(subtree, f.Name)] = f.Hash.String()
		return nil
	})
	if err != nil {
		return PathSnapshot{}, accessorIO("list files of "+c.Hash, err)
	}
	return snap, nil
}

// BlobContent returns the raw bytes of a blob.
func (r *Repository) BlobContent(ctx context.Context, blobID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blob, err := r.repo.BlobObject(plumbing.NewHash(blobID))
	if err != nil {
		return nil, accessorIO("read blob "+blobID, err)
	}
	rd, err := blob.Reader()
	if err != nil {
		return nil, accessorIO("open blob "+blobID, err)
	}
	defer rd.Close()

	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, accessorIO("read blob "+blobID, err)
	}
	return data, nil
}

// Renames reports the rename pairs between two snapshots of the same subtree
// using the configured backend.
func (r *Repository) Renames(ctx context.Context, older, newer PathSnapshot) ([]RenamePair, error) {
	switch r.renames {
	case RenameBackendOff:
		return nil, nil
	case RenameBackendCLI:
		return r.cli.Renames(ctx, older, newer)
	}

	from, err := r.treeObject(older.TreeID)
	if err != nil {
		return nil, err
	}
	to, err := r.treeObject(newer.TreeID)
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTreeWithOptions(ctx, from, to, object.DefaultDiffTreeOptions)
	if err != nil {
		if errors.Is(err, object.ErrCanceled) {
			return nil, ctx.Err()
		}
		return nil, accessorIO("diff trees", err)
	}

	var pairs []RenamePair
	for _, change := range changes {
		if change.From.Name == "" || change.To.Name == "" || change.From.Name == change.To.Name {
			continue
		}
		pairs = append(pairs, RenamePair{
			From: JoinPath(older.Root, change.From.Name),
			To:   JoinPath(newer.Root, change.To.Name),
		})
	}
	return pairs, nil
}

func (r *Repository) treeObject(id string) (*object.Tree, error) {
	if id == "" {
		return nil, nil
	}
	tree, err := r.repo.TreeObject(plumbing.NewHash(id))
	if err != nil {
		return nil, accessorIO("read tree "+id, err)
	}
	return tree, nil
}

func commitRef(c *object.Commit) CommitRef {
	ref := CommitRef{
		Hash:      c.Hash.String(),
		Author:    Signature{Name: c.Author.Name, Email: c.Author.Email, When: c.Author.When},
		Committer: Signature{Name: c.Committer.Name, Email: c.Committer.Email, When: c.Committer.When},
	}
	if len(c.ParentHashes) > 0 {
		ref.ParentHash = c.ParentHashes[0].String()
	}
	return ref
}
