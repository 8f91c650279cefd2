package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
)

// ErrDirectoryNotEmpty is returned when a clone target already has content.
var ErrDirectoryNotEmpty = errors.New("directory is not empty")

// Source is a repository opened or cloned for one extraction run.
type Source struct {
	Repo *gogit.Repository
	Path string
	// Cloned is true when the repository was fetched from a remote location.
	Cloned  bool
	cleanup func() error
}

// Close removes the temporary clone, if any.
func (s *Source) Close() error {
	if s.cleanup == nil {
		return nil
	}
	return s.cleanup()
}

// OpenOrClone opens location when it exists on disk, and clones it otherwise.
// Clones skip the checkout since only the object store is read. When saveDir
// is empty the clone goes to a temporary directory removed by Close.
func OpenOrClone(ctx context.Context, location, saveDir string, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(location); err == nil {
		logger.DebugContext(ctx, "reading repository", "path", location)
		repo, err := gogit.PlainOpenWithOptions(location, &gogit.PlainOpenOptions{DetectDotGit: true})
		if err != nil {
			return nil, fmt.Errorf("open repository %q: %w", location, err)
		}
		return &Source{Repo: repo, Path: location}, nil
	}

	src := &Source{Cloned: true}
	if saveDir == "" {
		tmp, err := os.MkdirTemp(".", "gigawork-")
		if err != nil {
			return nil, fmt.Errorf("create temporary directory: %w", err)
		}
		saveDir = tmp
		src.cleanup = func() error { return os.RemoveAll(tmp) }
	} else if err := ensureEmptyDir(saveDir); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "cloning repository", "url", location, "into", saveDir)
	repo, err := gogit.PlainCloneContext(ctx, saveDir, false, &gogit.CloneOptions{
		URL:        location,
		NoCheckout: true,
	})
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("clone repository %q: %w", location, err)
	}
	src.Repo = repo
	src.Path = saveDir
	return src, nil
}

// Update fetches the default remote of repo. An up-to-date repository is not
// an error.
func Update(ctx context.Context, repo *gogit.Repository) error {
	err := repo.FetchContext(ctx, &gogit.FetchOptions{})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

func ensureEmptyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(filepath.Clean(dir), 0o755)
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("%w: %s", ErrDirectoryNotEmpty, dir)
	}
	return nil
}
