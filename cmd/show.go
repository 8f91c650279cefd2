package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/gigawork-go/internal/store"
)

// ShowCmd creates the show command.
func ShowCmd() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print stored workflow file versions by their file_hash",
		Description: "Looks up each hash in the content store written by extract or batch and prints\n" +
			"the file content. Use --repository-name when the store is kept per repository.",
		ArgsUsage: "<hash>...",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:    "workflows",
				Aliases: []string{"w"},
				Usage:   "Directory where the extracted workflow files are stored (default: workflows)",
			},
			&cli.StringFlag{
				Name:    "repository-name",
				Aliases: []string{"n"},
				Usage:   "Repository whose namespace to read when the store is per repository",
			},
		),
		Action: showAction,
	}
}

func showAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("expected at least one hash")
	}
	cc, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	if cc.Config.Store.Dir == "" {
		return errors.New("no store directory configured")
	}
	st, err := cc.openStore(c.String("repository-name"))
	if err != nil {
		return err
	}

	w := c.App.Writer
	if w == nil {
		w = os.Stdout
	}
	for _, hash := range c.Args().Slice() {
		if !st.Has(hash) {
			return fmt.Errorf("%w: %s", store.ErrNotFound, hash)
		}
		data, err := st.Get(hash)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}
