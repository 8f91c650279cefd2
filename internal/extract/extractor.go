// Package extract walks the first-parent history of a repository and turns
// every change under a watched subtree into a classified ChangeEvent.
package extract

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/masmgr/gigawork-go/internal/classify"
	"github.com/masmgr/gigawork-go/internal/diff"
	"github.com/masmgr/gigawork-go/internal/git"
	"github.com/masmgr/gigawork-go/internal/store"
)

// DefaultSubtree is the directory watched when none is configured.
const DefaultSubtree = ".github"

// Kind tells which output a ChangeEvent belongs to.
type Kind int

const (
	KindPrimary Kind = iota
	KindAuxiliary
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	if k == KindAuxiliary {
		return "auxiliary"
	}
	return "primary"
}

// ChangeEvent is one classified, path-level change between two adjacent
// commits of the walk.
type ChangeEvent struct {
	Commit           git.CommitRef
	FilePath         string
	PreviousFilePath string // empty for additions
	FileHash         string // empty for deletions
	PreviousFileHash string // empty for additions
	ChangeType       git.ChangeKind
	ValidYAML        bool
	ProbablyWorkflow bool
	ValidWorkflow    bool
	Kind             Kind
}

// Options controls one extraction run.
type Options struct {
	Start    string // defaults to HEAD
	Boundary string // exclusive; empty walks to the root commit
	Subtree  string // defaults to DefaultSubtree
	Filter   diff.Filter

	// Primary and Auxiliary select the kinds of events produced. When both
	// are false only primary events are produced.
	Primary   bool
	Auxiliary bool

	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Summary counts what a run did.
type Summary struct {
	Commits   int // commits visited
	Skipped   int // commits whose subtree was unchanged
	Primary   int
	Auxiliary int
	Store     store.Stats
}

// Extractor runs the walker, differ, classifier and store as one sequential
// pipeline. An Extractor is meant for a single run and is not safe for
// concurrent use.
type Extractor struct {
	acc        git.Accessor
	renames    git.RenameDetector
	store      store.Store
	classifier *classify.Classifier
	opts       Options
	log        *slog.Logger

	hashes  map[string]string // blob id -> content address
	summary Summary
}

// New creates an Extractor. Renames are taken from acc when it implements
// git.RenameDetector. A nil store only computes hashes.
func New(acc git.Accessor, st store.Store, classifier *classify.Classifier, opts Options) *Extractor {
	if opts.Start == "" {
		opts.Start = "HEAD"
	}
	if opts.Subtree == "" {
		opts.Subtree = DefaultSubtree
	}
	if !opts.Primary && !opts.Auxiliary {
		opts.Primary = true
	}
	if st == nil {
		st = store.NewHashOnly()
	}
	e := &Extractor{
		acc:        acc,
		store:      st,
		classifier: classifier,
		opts:       opts,
		log:        opts.logger(),
		hashes:     make(map[string]string),
	}
	if rd, ok := acc.(git.RenameDetector); ok {
		e.renames = rd
	}
	return e
}

// Summary returns the counters of the run so far.
func (e *Extractor) Summary() Summary {
	s := e.summary
	s.Store = e.store.Stats()
	return s
}

// Events returns the lazy sequence of change events, newest commit first and
// in path order within a commit. A failure is yielded once as a *RunError and
// ends the sequence. Stopping the iteration early leaves the store consistent.
func (e *Extractor) Events(ctx context.Context) iter.Seq2[ChangeEvent, error] {
	return func(yield func(ChangeEvent, error) bool) {
		w, err := git.NewWalker(ctx, e.acc, e.opts.Start, e.opts.Boundary)
		if err != nil {
			yield(ChangeEvent{}, newRunError(err, ""))
			return
		}
		e.log.DebugContext(ctx, "walk started", "start", w.Start().Hash, "boundary", e.opts.Boundary, "subtree", e.opts.Subtree)

		var (
			last   string
			cached git.PathSnapshot
		)
		for c, err := range w.Commits(ctx) {
			if err != nil {
				yield(ChangeEvent{}, newRunError(err, last))
				return
			}
			e.summary.Commits++

			newer := cached
			if newer.Commit != c.Hash {
				if newer, err = e.acc.Snapshot(ctx, c, e.opts.Subtree); err != nil {
					yield(ChangeEvent{}, newRunError(err, last))
					return
				}
			}
			older := git.EmptySnapshot(e.opts.Subtree)
			if !c.IsRoot() {
				if older, err = e.acc.Snapshot(ctx, git.CommitRef{Hash: c.ParentHash}, e.opts.Subtree); err != nil {
					yield(ChangeEvent{}, newRunError(err, last))
					return
				}
			}
			cached = older

			if newer.SameTree(older) {
				e.summary.Skipped++
				last = c.Hash
				continue
			}

			events, err := e.step(ctx, c, newer, older)
			if err != nil {
				yield(ChangeEvent{}, newRunError(err, last))
				return
			}
			e.log.DebugContext(ctx, "commit processed", "commit", c.Short(), "events", len(events))
			for _, ev := range events {
				if !yield(ev, nil) {
					return
				}
			}
			last = c.Hash
		}

		s := e.Summary()
		e.log.InfoContext(ctx, "extraction finished",
			"commits", s.Commits,
			"skipped", s.Skipped,
			"primary", s.Primary,
			"auxiliary", s.Auxiliary,
			"blobs_written", s.Store.Written,
		)
	}
}

// step classifies and stores the changes of one commit. Events of a commit
// are built before any is yielded so a failure never splits a commit.
func (e *Extractor) step(ctx context.Context, c git.CommitRef, newer, older git.PathSnapshot) ([]ChangeEvent, error) {
	var pairs []git.RenamePair
	if e.renames != nil && !c.IsRoot() {
		var err error
		if pairs, err = e.renames.Renames(ctx, older, newer); err != nil {
			return nil, err
		}
	}
	changes := e.opts.Filter.Apply(diff.Diff(newer, older, pairs))

	events := make([]ChangeEvent, 0, len(changes))
	for _, ch := range changes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Deleted files are classified from the content they had.
		blobID := ch.BlobID
		if ch.Kind == git.ChangeKindDeleted {
			blobID = ch.OldBlobID
		}
		content, err := e.acc.BlobContent(ctx, blobID)
		if err != nil {
			return nil, err
		}
		res := e.classifier.Classify(ch.Path, content)

		kind := KindAuxiliary
		if res.Primary {
			kind = KindPrimary
		}
		if (kind == KindPrimary && !e.opts.Primary) || (kind == KindAuxiliary && !e.opts.Auxiliary) {
			continue
		}

		ev := ChangeEvent{
			Commit:           c,
			FilePath:         ch.Path,
			PreviousFilePath: ch.OldPath,
			ChangeType:       ch.Kind,
			ValidYAML:        res.ValidYAML,
			ProbablyWorkflow: res.ProbablyWorkflow,
			ValidWorkflow:    res.ValidWorkflow,
			Kind:             kind,
		}
		if ch.Kind != git.ChangeKindDeleted {
			if ev.FileHash, err = e.put(ch.BlobID, content); err != nil {
				return nil, err
			}
		}
		if ch.OldBlobID != "" {
			if ev.PreviousFileHash, err = e.putBlob(ctx, ch.OldBlobID); err != nil {
				return nil, err
			}
		}
		events = append(events, ev)
	}

	for _, ev := range events {
		if ev.Kind == KindPrimary {
			e.summary.Primary++
		} else {
			e.summary.Auxiliary++
		}
	}
	return events, nil
}

// put stores content already read for blobID.
func (e *Extractor) put(blobID string, content []byte) (string, error) {
	if hash, ok := e.hashes[blobID]; ok {
		return hash, nil
	}
	hash, err := e.store.Put(content)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errStore, err)
	}
	e.hashes[blobID] = hash
	return hash, nil
}

// putBlob stores a blob, reading it only the first time it is seen.
func (e *Extractor) putBlob(ctx context.Context, blobID string) (string, error) {
	if hash, ok := e.hashes[blobID]; ok {
		return hash, nil
	}
	content, err := e.acc.BlobContent(ctx, blobID)
	if err != nil {
		return "", err
	}
	return e.put(blobID, content)
}
