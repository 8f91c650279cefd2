package git

import (
	"errors"
	"fmt"
)

var (
	// ErrReferenceNotFound is returned when a start or boundary reference cannot be resolved.
	ErrReferenceNotFound = errors.New("reference not found")
	// ErrBoundaryUnreachable is returned when the boundary commit is not on the
	// first-parent chain of the start commit.
	ErrBoundaryUnreachable = errors.New("boundary not reachable from start on the first-parent chain")
	// ErrAccessorIO wraps read failures from the backing object store.
	ErrAccessorIO = errors.New("repository read failed")
)

func referenceNotFound(ref string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrReferenceNotFound, ref, err)
	}
	return fmt.Errorf("%w: %q", ErrReferenceNotFound, ref)
}

func accessorIO(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrAccessorIO, op, err)
}
