package git

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masmgr/gigawork-go/internal/git/gittest"
)

const ciWorkflow = "name: ci\non: push\njobs:\n  build:\n    runs-on: ubuntu-latest\n    steps:\n      - uses: actions/checkout@v4\n      - run: make test\n"

func TestRepository_ResolveBranchTagAndHash(t *testing.T) {
	f := gittest.New(t)
	f.Write("README.md", "hello\n")
	first := f.Commit("first")
	f.Tag("v1", first)
	f.Write("README.md", "hello again\n")
	second := f.Commit("second")

	repo := NewRepository(f.Repo, f.Dir, RenameBackendGoGit)
	ctx := context.Background()

	tests := []struct {
		ref  string
		want string
	}{
		{ref: "HEAD", want: second},
		{ref: f.Branch(), want: second},
		{ref: "v1", want: first},
		{ref: first, want: first},
		{ref: "HEAD~1", want: first},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			c, err := repo.Resolve(ctx, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Hash)
		})
	}

	c, err := repo.Resolve(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, first, c.ParentHash)
	assert.Equal(t, "Test", c.Author.Name)
	assert.Equal(t, "test@example.com", c.Author.Email)
}

func TestRepository_ResolveMissing(t *testing.T) {
	f := gittest.New(t)
	f.Write("README.md", "x")
	f.Commit("init")

	repo := NewRepository(f.Repo, f.Dir, RenameBackendGoGit)
	for _, ref := range []string{"", "does-not-exist"} {
		_, err := repo.Resolve(context.Background(), ref)
		assert.ErrorIs(t, err, ErrReferenceNotFound, "Resolve(%q)", ref)
	}
}

func TestRepository_SnapshotAndBlobContent(t *testing.T) {
	f := gittest.New(t)
	f.Write("README.md", "root file")
	noGithub := f.Commit("no .github yet")
	f.Write(".github/workflows/ci.yml", ciWorkflow)
	f.Write(".github/dependabot.yml", "version: 2\n")
	withGithub := f.Commit("add workflows")

	repo := NewRepository(f.Repo, f.Dir, RenameBackendGoGit)
	ctx := context.Background()

	c, err := repo.Resolve(ctx, noGithub)
	require.NoError(t, err)
	snap, err := repo.Snapshot(ctx, c, ".github")
	require.NoError(t, err)
	assert.Zero(t, snap.Len(), "missing subtree gives an empty snapshot")
	assert.Empty(t, snap.TreeID)

	c, err = repo.Resolve(ctx, withGithub)
	require.NoError(t, err)
	snap, err = repo.Snapshot(ctx, c, ".github")
	require.NoError(t, err)
	require.Equal(t, []string{".github/dependabot.yml", ".github/workflows/ci.yml"}, snap.Paths())
	assert.NotEmpty(t, snap.TreeID)

	data, err := repo.BlobContent(ctx, snap.Entries[".github/workflows/ci.yml"])
	require.NoError(t, err)
	assert.Equal(t, ciWorkflow, string(data))

	_, err = repo.BlobContent(ctx, "0000000000000000000000000000000000000001")
	assert.ErrorIs(t, err, ErrAccessorIO, "missing blob")
}

func TestRepository_FirstParentFollowsMainline(t *testing.T) {
	f := gittest.New(t)
	f.Write("a.txt", "a")
	base := f.Commit("base")
	mainBranch := f.Branch()

	f.Checkout("feature", true)
	f.Write("b.txt", "b")
	feature := f.Commit("feature work")

	f.Checkout(mainBranch, false)
	f.Write("c.txt", "c")
	mainline := f.Commit("main work")
	merge := f.Merge("merge feature", feature)

	repo := NewRepository(f.Repo, f.Dir, RenameBackendGoGit)
	ctx := context.Background()

	seq, err := Walk(ctx, repo, merge, "")
	require.NoError(t, err)
	var got []string
	for c, err := range seq {
		require.NoError(t, err)
		got = append(got, c.Hash)
	}
	assert.Equal(t, []string{merge, mainline, base}, got)

	_, err = NewWalker(ctx, repo, merge, feature)
	assert.ErrorIs(t, err, ErrBoundaryUnreachable, "second-parent boundary")
}

// renamesAtHead returns the renames between HEAD and its first parent.
func renamesAtHead(t *testing.T, repo *Repository) []RenamePair {
	t.Helper()
	ctx := context.Background()
	head, err := repo.Resolve(ctx, "HEAD")
	require.NoError(t, err)
	parent, err := repo.FirstParent(ctx, head)
	require.NoError(t, err)
	require.NotNil(t, parent)
	older, err := repo.Snapshot(ctx, *parent, ".github")
	require.NoError(t, err)
	newer, err := repo.Snapshot(ctx, head, ".github")
	require.NoError(t, err)

	pairs, err := repo.Renames(ctx, older, newer)
	require.NoError(t, err)
	return pairs
}

func TestRepository_RenamesGoGit(t *testing.T) {
	f := gittest.New(t)
	f.Write(".github/workflows/ci.yml", ciWorkflow)
	f.Commit("add ci")
	f.Move(".github/workflows/ci.yml", ".github/workflows/build.yml")
	f.Commit("rename ci")

	t.Run(string(RenameBackendGoGit), func(t *testing.T) {
		pairs := renamesAtHead(t, NewRepository(f.Repo, f.Dir, RenameBackendGoGit))
		assert.Equal(t, []RenamePair{{From: ".github/workflows/ci.yml", To: ".github/workflows/build.yml"}}, pairs)
	})
	t.Run(string(RenameBackendOff), func(t *testing.T) {
		pairs := renamesAtHead(t, NewRepository(f.Repo, f.Dir, RenameBackendOff))
		assert.Empty(t, pairs)
	})
}

func TestRepository_RenamesFromEmptySubtree(t *testing.T) {
	f := gittest.New(t)
	f.Write(".github/workflows/ci.yml", ciWorkflow)
	f.Commit("add ci")

	repo := NewRepository(f.Repo, f.Dir, RenameBackendGoGit)
	ctx := context.Background()
	head, err := repo.Resolve(ctx, "HEAD")
	require.NoError(t, err)
	newer, err := repo.Snapshot(ctx, head, ".github")
	require.NoError(t, err)
	pairs, err := repo.Renames(ctx, EmptySnapshot(".github"), newer)
	require.NoError(t, err)
	assert.Empty(t, pairs, "no renames against an empty tree")
}
