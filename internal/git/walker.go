package git

import (
	"context"
	"fmt"
	"iter"
)

// Walker produces the first-parent chain of a start commit, newest first,
// stopping at the root commit or before an exclusive boundary commit.
type Walker struct {
	acc      Accessor
	start    CommitRef
	boundary *CommitRef
}

// NewWalker resolves start and the optional boundary reference.
// When a boundary is given, its presence on the first-parent chain of start is
// verified before the walker is returned, so an unreachable boundary fails
// before any commit is produced.
func NewWalker(ctx context.Context, acc Accessor, start, boundary string) (*Walker, error) {
	startRef, err := acc.Resolve(ctx, start)
	if err != nil {
		return nil, err
	}
	w := &Walker{acc: acc, start: startRef}

	if boundary == "" {
		return w, nil
	}
	boundaryRef, err := acc.Resolve(ctx, boundary)
	if err != nil {
		return nil, err
	}
	w.boundary = &boundaryRef

	if err := w.verifyBoundary(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// Start returns the resolved start commit.
func (w *Walker) Start() CommitRef {
	return w.start
}

// Boundary returns the resolved boundary commit, or nil when the walk goes
// down to the root commit.
func (w *Walker) Boundary() *CommitRef {
	return w.boundary
}

// IsBoundary reports whether hash is the walk's exclusive boundary.
func (w *Walker) IsBoundary(hash string) bool {
	return w.boundary != nil && w.boundary.Hash == hash
}

// Commits returns a lazy sequence of commits, newest first. The sequence
// yields at most one error, after which it stops.
func (w *Walker) Commits(ctx context.Context) iter.Seq2[CommitRef, error] {
	return func(yield func(CommitRef, error) bool) {
		c := w.start
		for {
			if err := ctx.Err(); err != nil {
				yield(CommitRef{}, err)
				return
			}
			if w.IsBoundary(c.Hash) {
				return
			}
			if !yield(c, nil) {
				return
			}

			parent, err := w.acc.FirstParent(ctx, c)
			if err != nil {
				yield(CommitRef{}, err)
				return
			}
			if parent == nil {
				return
			}
			c = *parent
		}
	}
}

func (w *Walker) verifyBoundary(ctx context.Context) error {
	c := w.start
	for {
		if c.Hash == w.boundary.Hash {
			return nil
		}
		parent, err := w.acc.FirstParent(ctx, c)
		if err != nil {
			return err
		}
		if parent == nil {
			return fmt.Errorf("%w: %s is not a first-parent ancestor of %s",
				ErrBoundaryUnreachable, w.boundary.Short(), w.start.Short())
		}
		c = *parent
	}
}

// Walk is a convenience wrapper returning the commits between start and the
// optional boundary as a sequence.
func Walk(ctx context.Context, acc Accessor, start, boundary string) (iter.Seq2[CommitRef, error], error) {
	w, err := NewWalker(ctx, acc, start, boundary)
	if err != nil {
		return nil, err
	}
	return w.Commits(ctx), nil
}
