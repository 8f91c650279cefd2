package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/gigawork-go/internal/lineage"
)

// LineageCmd creates the lineage command.
func LineageCmd() *cli.Command {
	return &cli.Command{
		Name:  "lineage",
		Usage: "Add a uid column identifying each workflow file across renames",
		Description: "Reads a CSV produced by extract (with its header row) and writes it back with a\n" +
			"uid column. A file keeps its uid while it is modified or renamed; a file added\n" +
			"again after its deletion gets a new uid. Use - for stdin or stdout.",
		ArgsUsage: "<input.csv> [output.csv]",
		Action:    lineageAction,
	}
}

func lineageAction(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return fmt.Errorf("expected an input file and an optional output file, got %d arguments", c.NArg())
	}

	in, closeIn, err := openInput(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer closeIn()

	outPath := c.Args().Get(1)
	out, closeOut, err := createOutput(outPath)
	if err != nil {
		return err
	}

	if err := lineage.Process(in, out); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}
	if outPath != "" && outPath != "-" {
		color.Green("Lineage written to %s", outPath)
	}
	return nil
}

func openInput(path string) (io.Reader, func() error, error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, f.Close, nil
}

func createOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
