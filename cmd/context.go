package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/gigawork-go/config"
	"github.com/masmgr/gigawork-go/internal/classify"
	"github.com/masmgr/gigawork-go/internal/extract"
	"github.com/masmgr/gigawork-go/internal/git"
	"github.com/masmgr/gigawork-go/internal/output"
	"github.com/masmgr/gigawork-go/internal/store"
)

// CommandContext holds common state for command execution.
type CommandContext struct {
	Config *config.Config
	Logger *slog.Logger
	Stderr io.Writer
}

// NewCommandContext loads the configuration and sets up logging from CLI flags.
func NewCommandContext(c *cli.Context) (*CommandContext, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	stderr := c.App.ErrWriter
	if stderr == nil {
		stderr = os.Stderr
	}
	logger, err := newLogger(cfg.Log.Level, stderr)
	if err != nil {
		return nil, err
	}

	return &CommandContext{Config: cfg, Logger: logger, Stderr: stderr}, nil
}

// ExtractJob describes the extraction of one repository.
type ExtractJob struct {
	Repository      string // local path or remote URL
	Name            string // repository label; empty omits the column
	SaveRepository  string // clone target for remote repositories
	Update          bool
	After           string
	Output          string // empty writes to standard output
	AuxiliaryOutput string // empty drops auxiliary rows
	SaveAuxiliaries bool   // store auxiliary file contents
}

// openStore opens the content store configured for the run. An empty store
// directory only computes hashes.
func (cc *CommandContext) openStore(namespace string) (store.Store, error) {
	cfg := cc.Config.Store
	if cfg.Dir == "" {
		return store.NewHashOnly(), nil
	}
	compression, err := store.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	opts := []store.Option{store.WithCompression(compression)}
	if cfg.PerRepository && namespace != "" {
		opts = append(opts, store.WithNamespace(namespace))
	}
	st, err := store.Open(cfg.Dir, opts...)
	if err != nil {
		return nil, fmt.Errorf("open workflows directory: %w", err)
	}
	return st, nil
}

// runExtraction runs one extraction with logger and writes its rows.
// Rows are streamed, so a failing run leaves the rows of the commits it completed.
func (cc *CommandContext) runExtraction(ctx context.Context, job ExtractJob, st store.Store, logger *slog.Logger) (extract.Summary, error) {
	cfg := cc.Config

	src, err := git.OpenOrClone(ctx, job.Repository, job.SaveRepository, logger)
	if err != nil {
		return extract.Summary{}, fmt.Errorf("could not read repository at %q: %w", job.Repository, err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warn("could not remove temporary clone", "path", src.Path, "error", err)
		}
	}()

	if job.Update {
		if err := git.Update(ctx, src.Repo); err != nil {
			logger.Error("could not update repository, keeping the current version",
				"repository", job.Repository, "error", err)
		}
	}

	backend, _ := git.ParseRenameBackend(cfg.Renames.Backend)
	repo := git.NewRepository(src.Repo, src.Path, backend)

	validator, err := classify.LoadSchemaValidator(cfg.Classify.Schema)
	if err != nil {
		return extract.Summary{}, err
	}
	classifier, err := classify.New(cfg.Classify.WorkflowsDir, validator)
	if err != nil {
		return extract.Summary{}, err
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return extract.Summary{}, err
	}
	title := func(kind string) string {
		if job.Name == "" {
			return kind
		}
		return kind + ": " + job.Name
	}
	primary := output.NewSink(output.SinkOptions{
		Format:     format,
		OutputPath: job.Output,
		Header:     cfg.Output.Headers,
		Title:      title("Workflow changes"),
		Emitter:    output.Emitter{Repository: job.Name},
	})
	var auxiliary *output.Sink
	if job.AuxiliaryOutput != "" {
		auxiliary = output.NewSink(output.SinkOptions{
			Format:     format,
			OutputPath: job.AuxiliaryOutput,
			Header:     cfg.Output.Headers,
			Title:      title("Auxiliary changes"),
			Emitter:    output.Emitter{Repository: job.Name, Auxiliary: true},
		})
	}

	ex := extract.New(repo, st, classifier, extract.Options{
		Start:     cfg.Extract.Ref,
		Boundary:  job.After,
		Subtree:   cfg.Extract.Subtree,
		Filter:    cfg.PathFilter(),
		Primary:   true,
		Auxiliary: job.SaveAuxiliaries || auxiliary != nil,
		Logger:    logger,
	})

	var runErr error
	for ev, err := range ex.Events(ctx) {
		if err != nil {
			runErr = err
			break
		}
		if werr := writeEvent(ev, primary, auxiliary); werr != nil {
			runErr = fmt.Errorf("write output: %w", werr)
			break
		}
	}

	closeErr := primary.Close()
	if auxiliary != nil {
		closeErr = errors.Join(closeErr, auxiliary.Close())
	}
	return ex.Summary(), errors.Join(runErr, closeErr)
}

func writeEvent(ev extract.ChangeEvent, primary, auxiliary *output.Sink) error {
	if ev.Kind == extract.KindAuxiliary {
		if auxiliary == nil {
			return nil
		}
		return auxiliary.Write(ev)
	}
	return primary.Write(ev)
}
