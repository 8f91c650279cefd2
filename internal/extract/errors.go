package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/masmgr/gigawork-go/internal/git"
)

// ErrorKind is the terminal failure category of a run.
type ErrorKind int

const (
	ErrorKindAccessorIO ErrorKind = iota
	ErrorKindReferenceNotFound
	ErrorKindBoundaryUnreachable
	ErrorKindCanceled
	ErrorKindStore
)

// errStore marks failures of the content store.
var errStore = errors.New("content store write failed")

// String returns a string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindReferenceNotFound:
		return "ReferenceNotFound"
	case ErrorKindBoundaryUnreachable:
		return "BoundaryUnreachable"
	case ErrorKindCanceled:
		return "Canceled"
	case ErrorKindStore:
		return "StoreError"
	default:
		return "AccessorIOError"
	}
}

// RunError reports why a run stopped and where it may be resumed.
type RunError struct {
	Kind ErrorKind
	// LastCommit is the oldest commit whose events were all produced, empty
	// when no commit completed. A new run started at its first parent covers
	// exactly the remaining history.
	LastCommit string
	Err        error
}

func (e *RunError) Error() string {
	if e.LastCommit == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s after commit %s: %v", e.Kind, e.LastCommit, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func newRunError(err error, lastCommit string) *RunError {
	kind := ErrorKindAccessorIO
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = ErrorKindCanceled
	case errors.Is(err, git.ErrReferenceNotFound):
		kind = ErrorKindReferenceNotFound
	case errors.Is(err, git.ErrBoundaryUnreachable):
		kind = ErrorKindBoundaryUnreachable
	case errors.Is(err, errStore):
		kind = ErrorKindStore
	}
	return &RunError{Kind: kind, LastCommit: lastCommit, Err: err}
}
