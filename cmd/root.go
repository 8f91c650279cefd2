package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/gigawork-go/config"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:      "gigawork",
		Usage:     "Extract the history of GitHub Actions workflow files from Git repositories",
		Version:   "1.0.0",
		ArgsUsage: "[repository]",
		Commands: []*cli.Command{
			ExtractCmd(),
			BatchCmd(),
			LineageCmd(),
			ShowCmd(),
		},
		Flags:  append(commonFlags(), extractFlags()...),
		Action: legacyAction,
	}
}

// Common flags shared across commands
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file (default: .gigawork.{yaml,json} in the working or home directory)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
		},
	}
}

// filterFlags are the path filter flags of the extracting commands.
func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "include",
			Usage: "Glob patterns of paths to include (can be specified multiple times)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Glob patterns of paths to exclude (can be specified multiple times)",
		},
		&cli.StringFlag{
			Name:  "renames",
			Usage: "Rename detection backend (go-git, git, off)",
		},
		&cli.StringFlag{
			Name:  "compression",
			Usage: "Compression of stored workflow files (none, lz4)",
		},
	}
}

// loadConfig loads configuration from file, environment or defaults and
// applies the flags given on the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if includes := c.StringSlice("include"); len(includes) > 0 {
		cfg.Filters.Include = includes
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Filters.Exclude = excludes
	}
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"log-level", &cfg.Log.Level},
		{"renames", &cfg.Renames.Backend},
		{"compression", &cfg.Store.Compression},
		{"ref", &cfg.Extract.Ref},
		{"workflows", &cfg.Store.Dir},
		{"format", &cfg.Output.Format},
	}
	for _, o := range overrides {
		if c.IsSet(o.flag) {
			*o.dst = c.String(o.flag)
		}
	}
	if c.Bool("no-headers") {
		cfg.Output.Headers = false
	}
	if c.IsSet("jobs") {
		cfg.Batch.Jobs = c.Int("jobs")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the structured logger writing to w.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// legacyAction handles the default command behavior.
// When a repository is provided as an argument, it runs the extract command.
func legacyAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.ShowAppHelp(c)
	}
	return extractAction(c)
}

// Execute runs app with args. Options may follow the positional arguments,
// as in "gigawork REPO -n name -o out.csv".
func Execute(ctx context.Context, app *cli.App, args []string) error {
	return app.RunContext(ctx, hoistFlags(app, args))
}

// hoistFlags moves the options of the invoked command in front of its
// positional arguments, which the flag parser would otherwise stop at.
func hoistFlags(app *cli.App, args []string) []string {
	if len(args) < 2 {
		return args
	}
	valued := valueFlags(app.Flags)
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		tok := rest[i]
		if tok == "--" {
			break
		}
		if isOption(tok) {
			if takesValue(tok, valued) {
				i++
			}
			continue
		}
		if sub := app.Command(tok); sub != nil {
			out := append([]string{}, args[:i+2]...)
			return append(out, reorder(rest[i+1:], valueFlags(sub.Flags))...)
		}
		break
	}
	return append([]string{args[0]}, reorder(rest, valued)...)
}

func reorder(tokens []string, valued map[string]bool) []string {
	opts := make([]string, 0, len(tokens))
	var positional []string
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok == "--" {
			positional = append(positional, tokens[i:]...)
			break
		}
		if !isOption(tok) {
			positional = append(positional, tok)
			continue
		}
		opts = append(opts, tok)
		if takesValue(tok, valued) && i+1 < len(tokens) {
			i++
			opts = append(opts, tokens[i])
		}
	}
	return append(opts, positional...)
}

func isOption(tok string) bool {
	return len(tok) > 1 && tok[0] == '-'
}

// takesValue reports whether tok is an option whose value is the next token.
func takesValue(tok string, valued map[string]bool) bool {
	name := strings.TrimLeft(tok, "-")
	return !strings.Contains(name, "=") && valued[name]
}

// valueFlags maps every name and alias of flags to whether it expects a value.
func valueFlags(flags []cli.Flag) map[string]bool {
	valued := make(map[string]bool)
	for _, f := range flags {
		_, isBool := f.(*cli.BoolFlag)
		for _, name := range f.Names() {
			valued[name] = !isBool
		}
	}
	return valued
}

// Run executes the CLI application. An interrupt cancels the running extraction.
func Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := Execute(ctx, App(), os.Args); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
