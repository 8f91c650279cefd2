// Package batch runs the extraction of every repository found under a directory
// with a bounded pool of in-process workers.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
)

// DefaultJobs is the worker count used when Options.Jobs is not positive.
const DefaultJobs = 4

// ErrNotDirectory is returned when the batch root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Job describes the extraction of one repository.
type Job struct {
	Name            string // sub-directory name, used as the repository label
	Path            string
	Output          string // <outdir>/<name>.csv
	AuxiliaryOutput string // <outdir>/<name>.auxiliary.csv
	Stdout          io.Writer
	Stderr          io.Writer
}

// RunFunc extracts a single repository.
type RunFunc func(ctx context.Context, job Job) error

// Options configures a batch run.
type Options struct {
	Dir       string
	ErrorDir  string // optional; failed jobs leave <name>.out.txt and <name>.err.txt here
	OutputDir string
	Jobs      int
	Logger    *slog.Logger
}

// Failure records a repository that could not be processed.
type Failure struct {
	Name string
	Err  error
}

// Report summarizes a batch run.
type Report struct {
	Processed int
	Skipped   []string // entries of Dir that are not directories
	Failures  []Failure
}

// Succeeded returns the number of repositories processed without error.
func (r Report) Succeeded() int {
	return r.Processed - len(r.Failures)
}

// Discover lists the repositories under dir, in name order. Entries that are not
// directories are returned separately.
func Discover(dir, outputDir string) ([]Job, []string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("batch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("batch directory %s: %w", dir, ErrNotDirectory)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read batch directory: %w", err)
	}

	var jobs []Job
	var skipped []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		// Follow symlinks so linked checkouts are processed too.
		fi, err := os.Stat(path)
		if err != nil || !fi.IsDir() {
			skipped = append(skipped, e.Name())
			continue
		}
		jobs = append(jobs, Job{
			Name:            e.Name(),
			Path:            path,
			Output:          filepath.Join(outputDir, e.Name()+".csv"),
			AuxiliaryOutput: filepath.Join(outputDir, e.Name()+".auxiliary.csv"),
		})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs, skipped, nil
}

// Run extracts every repository under opts.Dir with fn. A failing repository does
// not stop the batch; it is reported in Report.Failures. The returned error is
// non-nil only when the batch itself could not run or ctx was cancelled.
func Run(ctx context.Context, opts Options, fn RunFunc) (Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	for _, dir := range []string{opts.ErrorDir, opts.OutputDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Report{}, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	jobs, skipped, err := Discover(opts.Dir, opts.OutputDir)
	if err != nil {
		return Report{}, err
	}
	report := Report{Skipped: skipped}
	for _, name := range skipped {
		logger.Warn("not a directory, skipping", "entry", name)
	}
	if len(jobs) == 0 {
		return report, nil
	}

	workers := opts.Jobs
	if workers <= 0 {
		workers = DefaultJobs
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	type indexedJob struct {
		index int
		job   Job
	}

	jobCh := make(chan indexedJob, workers)
	results := make([]*Failure, len(jobs))
	var started, failed atomic.Int64
	total := len(jobs)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobCh {
				n := started.Add(1)
				logger.Info("processing repository",
					"index", n, "total", total,
					"progress", fmt.Sprintf("%.2f%%", float64(n-1)/float64(total)*100),
					"errors", failed.Load(),
					"repository", item.job.Path)

				if f := runOne(ctx, item.job, opts.ErrorDir, fn); f != nil {
					failed.Add(1)
					logger.Error("could not process repository", "repository", item.job.Path, "error", f.Err)
					results[item.index] = f
				}
			}
		}()
	}

	dispatched := 0
feed:
	for i, job := range jobs {
		select {
		case <-ctx.Done():
			break feed
		case jobCh <- indexedJob{index: i, job: job}:
			dispatched++
		}
	}
	close(jobCh)
	wg.Wait()

	report.Processed = dispatched
	for _, f := range results {
		if f != nil {
			report.Failures = append(report.Failures, *f)
		}
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func runOne(ctx context.Context, job Job, errorDir string, fn RunFunc) *Failure {
	var stdout, stderr bytes.Buffer
	job.Stdout = &stdout
	job.Stderr = &stderr

	err := fn(ctx, job)
	if err == nil {
		return nil
	}
	fmt.Fprintf(&stderr, "error: %v\n", err)

	if errorDir != "" {
		base := filepath.Join(errorDir, job.Name)
		if werr := os.WriteFile(base+".out.txt", stdout.Bytes(), 0o644); werr != nil {
			err = errors.Join(err, werr)
		}
		if werr := os.WriteFile(base+".err.txt", stderr.Bytes(), 0o644); werr != nil {
			err = errors.Join(err, werr)
		}
	}
	return &Failure{Name: job.Name, Err: err}
}
