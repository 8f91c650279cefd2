package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRepos(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.Mkdir(filepath.Join(dir, n), 0o755))
	}
	return dir
}

func TestDiscover(t *testing.T) {
	dir := makeRepos(t, "zeta", "alpha")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0o644))

	jobs, skipped, err := Discover(dir, "out")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "alpha", jobs[0].Name)
	assert.Equal(t, filepath.Join(dir, "alpha"), jobs[0].Path)
	assert.Equal(t, filepath.Join("out", "alpha.csv"), jobs[0].Output)
	assert.Equal(t, filepath.Join("out", "alpha.auxiliary.csv"), jobs[0].AuxiliaryOutput)
	assert.Equal(t, "zeta", jobs[1].Name)
	assert.Equal(t, []string{"README"}, skipped)
}

func TestDiscover_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, _, err := Discover(file, "out")
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, _, err = Discover(filepath.Join(t.TempDir(), "missing"), "out")
	assert.Error(t, err)
}

func TestRun_AllSucceed(t *testing.T) {
	dir := makeRepos(t, "a", "b", "c", "d", "e")
	out := filepath.Join(t.TempDir(), "outputs")

	var mu sync.Mutex
	seen := map[string]bool{}
	report, err := Run(context.Background(), Options{Dir: dir, OutputDir: out, Jobs: 2}, func(_ context.Context, job Job) error {
		mu.Lock()
		seen[job.Name] = true
		mu.Unlock()
		return os.WriteFile(job.Output, []byte(job.Name), 0o644)
	})
	require.NoError(t, err)

	assert.Equal(t, 5, report.Processed)
	assert.Equal(t, 5, report.Succeeded())
	assert.Empty(t, report.Failures)
	assert.Len(t, seen, 5)
	for name := range seen {
		data, err := os.ReadFile(filepath.Join(out, name+".csv"))
		require.NoError(t, err)
		assert.Equal(t, name, string(data))
	}
}

func TestRun_FailuresWriteErrorFiles(t *testing.T) {
	dir := makeRepos(t, "good", "bad")
	errDir := filepath.Join(t.TempDir(), "errors")

	report, err := Run(context.Background(), Options{Dir: dir, ErrorDir: errDir, OutputDir: t.TempDir()}, func(_ context.Context, job Job) error {
		fmt.Fprintf(job.Stdout, "out of %s\n", job.Name)
		fmt.Fprintf(job.Stderr, "log of %s\n", job.Name)
		if job.Name == "bad" {
			return errors.New("reference not found")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Succeeded())
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "bad", report.Failures[0].Name)

	stdout, err := os.ReadFile(filepath.Join(errDir, "bad.out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "out of bad\n", string(stdout))

	stderr, err := os.ReadFile(filepath.Join(errDir, "bad.err.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(stderr), "log of bad")
	assert.Contains(t, string(stderr), "reference not found")

	_, err = os.Stat(filepath.Join(errDir, "good.err.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_BoundedWorkers(t *testing.T) {
	dir := makeRepos(t, "r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8")

	var active, peak atomic.Int64
	_, err := Run(context.Background(), Options{Dir: dir, OutputDir: t.TempDir(), Jobs: 3}, func(context.Context, Job) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		active.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int64(3))
}

func TestRun_Cancelled(t *testing.T) {
	dir := makeRepos(t, "a", "b", "c")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, Options{Dir: dir, OutputDir: t.TempDir(), Jobs: 1}, func(ctx context.Context, _ Job) error {
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, report.Processed, 3)
}

func TestRun_EmptyDirectory(t *testing.T) {
	report, err := Run(context.Background(), Options{Dir: t.TempDir(), OutputDir: t.TempDir()}, func(context.Context, Job) error {
		t.Fatal("no job expected")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
}
