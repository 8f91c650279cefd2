// Package gittest builds throwaway Git repositories for tests.
package gittest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Fixture is a non-bare repository in a temporary directory.
type Fixture struct {
	t     testing.TB
	Dir   string
	Repo  *gogit.Repository
	wt    *gogit.Worktree
	clock time.Time
}

// New initializes an empty repository in t.TempDir().
func New(t testing.TB) *Fixture {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	return &Fixture{
		t:     t,
		Dir:   dir,
		Repo:  repo,
		wt:    wt,
		clock: time.Date(2023, 5, 1, 9, 0, 0, 0, time.FixedZone("", 2*3600)),
	}
}

// Write creates or overwrites a file and stages it.
func (f *Fixture) Write(rel, content string) {
	f.t.Helper()
	full := filepath.Join(f.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		f.t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		f.t.Fatalf("WriteFile: %v", err)
	}
	if _, err := f.wt.Add(rel); err != nil {
		f.t.Fatalf("Add(%s): %v", rel, err)
	}
}

// Remove deletes a file and stages the deletion.
func (f *Fixture) Remove(rel string) {
	f.t.Helper()
	if _, err := f.wt.Remove(rel); err != nil {
		f.t.Fatalf("Remove(%s): %v", rel, err)
	}
}

// Move renames a file and stages both sides.
func (f *Fixture) Move(from, to string) {
	f.t.Helper()
	if err := os.MkdirAll(filepath.Dir(filepath.Join(f.Dir, to)), 0o755); err != nil {
		f.t.Fatalf("MkdirAll: %v", err)
	}
	if _, err := f.wt.Move(from, to); err != nil {
		f.t.Fatalf("Move(%s, %s): %v", from, to, err)
	}
}

// Commit records the staged changes and returns the new commit hash.
func (f *Fixture) Commit(msg string) string {
	f.t.Helper()
	return f.commit(msg, nil)
}

// Merge records a commit with HEAD as first parent and other as second parent.
func (f *Fixture) Merge(msg, other string) string {
	f.t.Helper()
	head, err := f.Repo.Head()
	if err != nil {
		f.t.Fatalf("Head: %v", err)
	}
	return f.commit(msg, []plumbing.Hash{head.Hash(), plumbing.NewHash(other)})
}

// Checkout switches to branch, creating it from HEAD when create is set.
func (f *Fixture) Checkout(branch string, create bool) {
	f.t.Helper()
	err := f.wt.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: create,
	})
	if err != nil {
		f.t.Fatalf("Checkout(%s): %v", branch, err)
	}
}

// Branch returns the short name of the current branch.
func (f *Fixture) Branch() string {
	f.t.Helper()
	head, err := f.Repo.Head()
	if err != nil {
		f.t.Fatalf("Head: %v", err)
	}
	return head.Name().Short()
}

// Tag creates a lightweight tag on hash.
func (f *Fixture) Tag(name, hash string) {
	f.t.Helper()
	if _, err := f.Repo.CreateTag(name, plumbing.NewHash(hash), nil); err != nil {
		f.t.Fatalf("CreateTag(%s): %v", name, err)
	}
}

func (f *Fixture) commit(msg string, parents []plumbing.Hash) string {
	f.clock = f.clock.Add(time.Hour)
	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: f.clock}
	hash, err := f.wt.Commit(msg, &gogit.CommitOptions{
		Author:            sig,
		Committer:         sig,
		Parents:           parents,
		AllowEmptyCommits: true,
	})
	if err != nil {
		f.t.Fatalf("Commit(%q): %v", msg, err)
	}
	return hash.String()
}
