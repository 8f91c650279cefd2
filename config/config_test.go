package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "HEAD", cfg.Extract.Ref)
	assert.Equal(t, ".github", cfg.Extract.Subtree)
	assert.Equal(t, ".github/workflows", cfg.Classify.WorkflowsDir)
	assert.Equal(t, "none", cfg.Store.Compression)
	assert.Equal(t, "go-git", cfg.Renames.Backend)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.True(t, cfg.Output.Headers)
	assert.Equal(t, 4, cfg.Batch.Jobs)
	assert.NoError(t, cfg.Validate(), "default config must validate")
}

func TestLoadConfig_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "HEAD", cfg.Extract.Ref)
	assert.Equal(t, 4, cfg.Batch.Jobs)
}

func TestLoadConfig_ExplicitYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", `
extract:
  ref: main
store:
  compression: lz4
  per_repository: true
filters:
  include: ["**/*.yml"]
  exclude: ["**/templates/**"]
output:
  format: ndjson
  headers: false
batch:
  jobs: 8
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Extract.Ref)
	assert.Equal(t, ".github", cfg.Extract.Subtree, "unset key keeps its default")
	assert.Equal(t, "lz4", cfg.Store.Compression)
	assert.True(t, cfg.Store.PerRepository)
	assert.Len(t, cfg.Filters.Include, 1)
	assert.Len(t, cfg.Filters.Exclude, 1)
	assert.Equal(t, "ndjson", cfg.Output.Format)
	assert.False(t, cfg.Output.Headers)
	assert.Equal(t, 8, cfg.Batch.Jobs)

	f := cfg.PathFilter()
	assert.True(t, f.Match(".github/workflows/ci.yml"))
	assert.False(t, f.Match(".github/templates/x/ci.yml"))
}

func TestLoadConfig_JSONWithoutExtension(t *testing.T) {
	dir := t.TempDir()
	// YAML is a superset of JSON, so an extensionless JSON file still parses.
	path := writeFile(t, dir, "gigaworkrc", `{"renames": {"backend": "off"}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "off", cfg.Renames.Backend)
}

func TestLoadConfig_SearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gigawork.json", `{"log": {"level": "debug"}}`)
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.yaml", "batch:\n  jobs: 2\n")
	t.Setenv("GIGAWORK_BATCH_JOBS", "6")
	t.Setenv("GIGAWORK_STORE_COMPRESSION", "lz4")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Batch.Jobs, "env wins over the file")
	assert.Equal(t, "lz4", cfg.Store.Compression)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		content string
	}{
		{name: "missing explicit file", path: filepath.Join(dir, "nope.yaml")},
		{name: "malformed yaml", path: "bad.yaml", content: "extract: [unclosed\n"},
		{name: "unknown compression", path: "comp.yaml", content: "store:\n  compression: zstd\n"},
		{name: "unknown backend", path: "ren.yaml", content: "renames:\n  backend: similarity\n"},
		{name: "unknown format", path: "fmt.yaml", content: "output:\n  format: xml\n"},
		{name: "zero jobs", path: "jobs.yaml", content: "batch:\n  jobs: 0\n"},
		{name: "bad glob", path: "glob.yaml", content: "filters:\n  include: [\"[\"]\n"},
		{name: "workflows outside subtree", path: "dir.yaml", content: "classify:\n  workflows_dir: ci/workflows\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path
			if tt.content != "" {
				path = writeFile(t, dir, tt.path, tt.content)
			}
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}
