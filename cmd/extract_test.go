package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masmgr/gigawork-go/internal/git/gittest"
	"github.com/masmgr/gigawork-go/internal/store"
)

const (
	ciYAML     = "name: ci\non: push\njobs:\n  build:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make\n"
	ciV2       = "name: ci\non: [push, pull_request]\njobs:\n  build:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make test\n"
	dependabot = "version: 2\nupdates: []\n"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := App()
	var stderr bytes.Buffer
	app.ErrWriter = &stderr
	app.Writer = io.Discard
	err := Execute(context.Background(), app, append([]string{"gigawork"}, args...))
	return stderr.String(), err
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func column(t *testing.T, header []string, name string) int {
	t.Helper()
	for i, h := range header {
		if h == name {
			return i
		}
	}
	t.Fatalf("column %s not found in %v", name, header)
	return -1
}

func fixtureRepo(t *testing.T) *gittest.Fixture {
	t.Helper()
	f := gittest.New(t)
	f.Write(".github/workflows/ci.yml", ciYAML)
	f.Write(".github/dependabot.yml", dependabot)
	f.Commit("add ci")
	f.Move(".github/workflows/ci.yml", ".github/workflows/build.yml")
	f.Commit("rename ci")
	f.Write(".github/workflows/build.yml", ciV2)
	f.Commit("edit build")
	return f
}

func TestExtractCommand(t *testing.T) {
	f := fixtureRepo(t)
	isolateConfig(t)

	stderr, err := runApp(t, "extract",
		"-w", "blobs", "-o", "out/rows.csv", "--auxiliary-output", "out/aux.csv",
		"-n", "octo/repo", f.Dir)
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "3 commits visited")

	rows := readCSV(t, "out/rows.csv")
	require.Len(t, rows, 4)
	header := rows[0]
	assert.Equal(t, "repository", header[0])
	assert.Equal(t, "valid_workflow", header[len(header)-1])

	change := column(t, header, "change_type")
	path := column(t, header, "file_path")
	prev := column(t, header, "previous_file_path")
	hash := column(t, header, "file_hash")
	assert.Equal(t, []string{"M", ".github/workflows/build.yml"}, []string{rows[1][change], rows[1][path]})
	assert.Equal(t, []string{"M", ".github/workflows/build.yml", ".github/workflows/ci.yml"},
		[]string{rows[2][change], rows[2][path], rows[2][prev]})
	assert.Equal(t, []string{"A", ".github/workflows/ci.yml", ""},
		[]string{rows[3][change], rows[3][path], rows[3][prev]})

	// Every referenced version is stored under its content address.
	st, err := store.Open("blobs")
	require.NoError(t, err)
	for _, r := range rows[1:] {
		data, err := st.Get(r[hash])
		require.NoError(t, err)
		assert.Equal(t, r[hash], store.Hash(data))
	}

	aux := readCSV(t, "out/aux.csv")
	require.Len(t, aux, 2)
	assert.NotContains(t, aux[0], "valid_workflow")
	assert.Equal(t, ".github/dependabot.yml", aux[1][column(t, aux[0], "file_path")])
}

func TestExtractCommand_LegacyInvocationAppends(t *testing.T) {
	f := fixtureRepo(t)
	isolateConfig(t)

	for range 2 {
		_, err := runApp(t, "--no-headers", "-w", "", "--after", "HEAD~1", "-o", "rows.csv", f.Dir)
		require.NoError(t, err)
	}
	rows := readCSV(t, "rows.csv")
	require.Len(t, rows, 2)
	assert.Equal(t, rows[0], rows[1])
	_, err := os.Stat("workflows")
	assert.True(t, os.IsNotExist(err), "hash-only run must not create a store")
}

func TestExtractCommand_OptionsAfterRepository(t *testing.T) {
	f := fixtureRepo(t)
	isolateConfig(t)

	_, err := runApp(t, f.Dir, "-n", "octo", "-w", "", "-o", "legacy.csv", "--no-headers")
	require.NoError(t, err)
	_, err = runApp(t, "extract", f.Dir, "--repository-name", "octo", "-w", "", "-o", "sub.csv", "--no-headers")
	require.NoError(t, err)

	legacy := readCSV(t, "legacy.csv")
	require.Len(t, legacy, 3)
	assert.Equal(t, "octo", legacy[0][0])
	assert.Equal(t, legacy, readCSV(t, "sub.csv"))
}

func TestExtractCommand_Failures(t *testing.T) {
	f := fixtureRepo(t)
	isolateConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "MissingArgument", args: []string{"extract"}},
		{name: "UnknownRef", args: []string{"extract", "-w", "", "--ref", "nope", f.Dir}},
		{name: "UnknownBoundary", args: []string{"extract", "-w", "", "--after", "nope", f.Dir}},
		{name: "InvalidFormat", args: []string{"extract", "--format", "xml", f.Dir}},
		{name: "InvalidRenames", args: []string{"extract", "--renames", "fuzzy", f.Dir}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestBatchCommand(t *testing.T) {
	isolateConfig(t)
	root := filepath.Join(t.TempDir(), "repos")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "broken"), 0o755))

	good := fixtureRepo(t)
	require.NoError(t, os.Rename(good.Dir, filepath.Join(root, "good")))

	_, err := runApp(t, "batch", "-d", root, "-e", "errors", "-o", "outputs", "--jobs", "2", "-w", "blobs")
	require.NoError(t, err)

	rows := readCSV(t, filepath.Join("outputs", "good.csv"))
	require.Len(t, rows, 3, "no header row in batch mode")
	for _, r := range rows {
		assert.Equal(t, "good", r[0])
	}
	aux := readCSV(t, filepath.Join("outputs", "good.auxiliary.csv"))
	assert.Len(t, aux, 1)

	errLog, err := os.ReadFile(filepath.Join("errors", "broken.err.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(errLog), "could not read repository")
	_, err = os.Stat(filepath.Join("errors", "good.err.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestLineageCommand(t *testing.T) {
	f := fixtureRepo(t)
	isolateConfig(t)

	_, err := runApp(t, "extract", "-w", "", "-o", "rows.csv", f.Dir)
	require.NoError(t, err)
	_, err = runApp(t, "lineage", "rows.csv", "out/uids.csv")
	require.NoError(t, err)

	rows := readCSV(t, "out/uids.csv")
	require.Len(t, rows, 4)
	uid := column(t, rows[0], "uid")
	assert.Equal(t, rows[3][uid], rows[2][uid], "rename keeps the uid")
	assert.Equal(t, rows[3][uid], rows[1][uid])
	assert.NotEmpty(t, rows[3][uid])
}

func TestShowCommand(t *testing.T) {
	f := fixtureRepo(t)
	isolateConfig(t)

	stderr, err := runApp(t, "extract", "-w", "blobs", "-o", "rows.csv", f.Dir)
	require.NoError(t, err, stderr)
	rows := readCSV(t, "rows.csv")
	require.Len(t, rows, 4)
	hash := column(t, rows[0], "file_hash")

	app := App()
	var stdout bytes.Buffer
	app.Writer = &stdout
	app.ErrWriter = io.Discard
	require.NoError(t, Execute(context.Background(), app,
		[]string{"gigawork", "show", rows[3][hash], rows[1][hash], "-w", "blobs"}))
	assert.Equal(t, ciYAML+ciV2, stdout.String())

	app = App()
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	err = Execute(context.Background(), app, []string{"gigawork", "show", "-w", "blobs", store.Hash([]byte("missing"))})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = runApp(t, "show")
	assert.Error(t, err)
}
