package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/gigawork-go/internal/batch"
	"github.com/masmgr/gigawork-go/internal/store"
)

// BatchCmd creates the batch command.
func BatchCmd() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Extract the workflow files of every Git repository under a directory",
		Description: "Runs extract for each sub-directory of --directory with the sub-directory name\n" +
			"as repository name, no header row and auxiliary files saved. Rows go to\n" +
			"<output-directory>/<name>.csv and <output-directory>/<name>.auxiliary.csv.",
		Flags:  append(append(commonFlags(), batchFlags()...), filterFlags()...),
		Action: batchAction,
	}
}

func batchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "directory",
			Aliases:  []string{"d"},
			Usage:    "Directory containing the Git repositories to extract",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "error-directory",
			Aliases: []string{"e"},
			Usage:   "Directory receiving the logs of repositories that could not be processed",
		},
		&cli.StringFlag{
			Name:    "output-directory",
			Aliases: []string{"o"},
			Usage:   "Directory where the extracted rows are stored",
			Value:   "outputs",
		},
		&cli.IntFlag{
			Name:    "jobs",
			Aliases: []string{"j"},
			Usage:   "Number of repositories processed in parallel (default: 4)",
		},
		&cli.StringFlag{
			Name:    "ref",
			Aliases: []string{"r"},
			Usage:   "Most recent commit reference to consider in every repository (default: HEAD)",
		},
		&cli.StringFlag{
			Name:    "workflows",
			Aliases: []string{"w"},
			Usage:   "Directory where the extracted workflow files are stored (default: workflows)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (csv, ndjson, table)",
		},
	}
}

func batchAction(c *cli.Context) error {
	cc, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	// Rows of one repository are appended to its own file, without header.
	cc.Config.Output.Headers = false

	var (
		mu     sync.Mutex
		shared store.Store
	)
	storeFor := func(name string) (store.Store, error) {
		if cc.Config.Store.PerRepository {
			return cc.openStore(name)
		}
		mu.Lock()
		defer mu.Unlock()
		if shared == nil {
			st, err := cc.openStore("")
			if err != nil {
				return nil, err
			}
			shared = st
		}
		return shared, nil
	}

	report, err := batch.Run(c.Context, batch.Options{
		Dir:       c.String("directory"),
		ErrorDir:  c.String("error-directory"),
		OutputDir: c.String("output-directory"),
		Jobs:      cc.Config.Batch.Jobs,
		Logger:    cc.Logger,
	}, func(ctx context.Context, job batch.Job) error {
		logger, err := newLogger(cc.Config.Log.Level, job.Stderr)
		if err != nil {
			return err
		}
		st, err := storeFor(job.Name)
		if err != nil {
			return err
		}
		summary, err := cc.runExtraction(ctx, ExtractJob{
			Repository:      job.Path,
			Name:            job.Name,
			Output:          job.Output,
			AuxiliaryOutput: job.AuxiliaryOutput,
			SaveAuxiliaries: true,
		}, st, logger.With("repository", job.Name))
		fmt.Fprint(job.Stdout, formatSummary(summary))
		return err
	})

	color.New(color.FgGreen).Fprintf(cc.Stderr, "%d repositories processed, %d failed, %d entries skipped\n",
		report.Processed, len(report.Failures), len(report.Skipped))
	// Failed repositories are reported through the error directory and the log.
	return err
}
