package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/gigawork-go/internal/extract"
)

// ExtractCmd creates the extract command.
func ExtractCmd() *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Extract the workflow files of a single Git repository",
		Description: "Walks the first-parent history from --ref back to the root commit (or --after),\n" +
			"stores every version of the workflow files under --workflows and writes one row\n" +
			"per added, modified, renamed or deleted file.",
		ArgsUsage: "<repository path or URL>",
		Flags:     append(commonFlags(), extractFlags()...),
		Action:    extractAction,
	}
}

func extractFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "ref",
			Aliases: []string{"r", "branch"},
			Usage:   "Most recent commit reference (SHA, tag or branch) to consider (default: HEAD)",
		},
		&cli.StringFlag{
			Name:    "after",
			Aliases: []string{"a"},
			Usage:   "Only consider commits after the given commit reference",
		},
		&cli.StringFlag{
			Name:    "workflows",
			Aliases: []string{"w"},
			Usage:   "Directory where the extracted workflow files are stored (default: workflows)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file, appended to (default: stdout)",
		},
		&cli.StringFlag{
			Name:  "auxiliary-output",
			Usage: "Output file for the rows of auxiliary files",
		},
		&cli.BoolFlag{
			Name:    "save-auxiliaries",
			Aliases: []string{"sa"},
			Usage:   "Also store the auxiliary files found next to the workflows",
		},
		&cli.StringFlag{
			Name:    "repository-name",
			Aliases: []string{"n"},
			Usage:   "Add a repository column with the given value",
		},
		&cli.BoolFlag{
			Name:  "no-headers",
			Usage: "Do not write the header row",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (csv, ndjson, table)",
		},
		&cli.StringFlag{
			Name:    "save-repository",
			Aliases: []string{"s"},
			Usage:   "Keep the clone of a remote repository in the given directory",
		},
		&cli.BoolFlag{
			Name:    "update",
			Aliases: []string{"u"},
			Usage:   "Fetch the repository before extracting",
		},
	}
	return append(flags, filterFlags()...)
}

func extractAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one repository argument, got %d", c.NArg())
	}

	cc, err := NewCommandContext(c)
	if err != nil {
		return err
	}

	job := ExtractJob{
		Repository:      c.Args().First(),
		Name:            c.String("repository-name"),
		SaveRepository:  c.String("save-repository"),
		Update:          c.Bool("update"),
		After:           c.String("after"),
		Output:          c.String("output"),
		AuxiliaryOutput: c.String("auxiliary-output"),
		SaveAuxiliaries: c.Bool("save-auxiliaries"),
	}

	st, err := cc.openStore(job.Name)
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(cc.Stderr, "Extracting workflows of %s\n", job.Repository)
	summary, err := cc.runExtraction(c.Context, job, st, cc.Logger)
	printSummary(cc.Stderr, summary)
	return err
}

// formatSummary renders the counters of a run.
func formatSummary(s extract.Summary) string {
	return fmt.Sprintf("%s commits visited (%s unchanged), %s workflow changes, %s auxiliary changes\n"+
		"%s files stored (%s), %s already present\n",
		humanize.Comma(int64(s.Commits)),
		humanize.Comma(int64(s.Skipped)),
		humanize.Comma(int64(s.Primary)),
		humanize.Comma(int64(s.Auxiliary)),
		humanize.Comma(int64(s.Store.Written)),
		humanize.Bytes(uint64(s.Store.Bytes)),
		humanize.Comma(int64(s.Store.Reused)))
}

func printSummary(w io.Writer, s extract.Summary) {
	color.New(color.FgCyan).Fprint(w, formatSummary(s))
}
