package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/masmgr/gigawork-go/internal/diff"
	"github.com/masmgr/gigawork-go/internal/git"
	"github.com/masmgr/gigawork-go/internal/output"
	"github.com/masmgr/gigawork-go/internal/store"
)

const (
	// configName is the config file name without extension.
	configName = ".gigawork"
	// envPrefix is the environment variable prefix, e.g. GIGAWORK_STORE_COMPRESSION.
	envPrefix = "GIGAWORK"
)

// Config is the root configuration structure.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Extract  ExtractConfig  `mapstructure:"extract"`
	Store    StoreConfig    `mapstructure:"store"`
	Classify ClassifyConfig `mapstructure:"classify"`
	Renames  RenamesConfig  `mapstructure:"renames"`
	Filters  FilterConfig   `mapstructure:"filters"`
	Output   OutputConfig   `mapstructure:"output"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Log      LogConfig      `mapstructure:"log"`
}

// ExtractConfig holds history walk options.
type ExtractConfig struct {
	Ref     string `mapstructure:"ref"`     // Default: "HEAD"
	Subtree string `mapstructure:"subtree"` // Default: ".github"
}

// StoreConfig holds content store options.
type StoreConfig struct {
	Dir           string `mapstructure:"dir"`            // Default: "workflows"
	Compression   string `mapstructure:"compression"`    // none | lz4
	PerRepository bool   `mapstructure:"per_repository"` // one sub-directory per repository name
}

// ClassifyConfig holds workflow recognition options.
type ClassifyConfig struct {
	WorkflowsDir string `mapstructure:"workflows_dir"` // Default: ".github/workflows"
	Schema       string `mapstructure:"schema"`        // JSON Schema file; empty uses the embedded baseline
}

// RenamesConfig selects the rename detection backend.
type RenamesConfig struct {
	Backend string `mapstructure:"backend"` // go-git | git | off
}

// FilterConfig holds file path filtering options.
type FilterConfig struct {
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`
}

// OutputConfig holds dataset output options.
type OutputConfig struct {
	Format  string `mapstructure:"format"`  // csv | ndjson | table
	Headers bool   `mapstructure:"headers"` // Default: true
}

// BatchConfig holds batch run options.
type BatchConfig struct {
	Jobs int `mapstructure:"jobs"` // Default: 4
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug | info | warn | error
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Extract: ExtractConfig{
			Ref:     "HEAD",
			Subtree: ".github",
		},
		Store: StoreConfig{
			Dir:         "workflows",
			Compression: string(store.CompressionNone),
		},
		Classify: ClassifyConfig{
			WorkflowsDir: ".github/workflows",
		},
		Renames: RenamesConfig{
			Backend: string(git.RenameBackendGoGit),
		},
		Output: OutputConfig{
			Format:  string(output.FormatCSV),
			Headers: true,
		},
		Batch: BatchConfig{
			Jobs: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from file, env vars, and defaults.
// If path is non-empty, it is used as the explicit config file path.
// Otherwise .gigawork.{yaml,yml,json} is searched in CWD and $HOME.
// A missing config file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v, DefaultConfig())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("yaml")
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("extract.ref", d.Extract.Ref)
	v.SetDefault("extract.subtree", d.Extract.Subtree)

	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.compression", d.Store.Compression)
	v.SetDefault("store.per_repository", d.Store.PerRepository)

	v.SetDefault("classify.workflows_dir", d.Classify.WorkflowsDir)
	v.SetDefault("classify.schema", d.Classify.Schema)

	v.SetDefault("renames.backend", d.Renames.Backend)

	v.SetDefault("filters.include", []string{})
	v.SetDefault("filters.exclude", []string{})

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.headers", d.Output.Headers)

	v.SetDefault("batch.jobs", d.Batch.Jobs)

	v.SetDefault("log.level", d.Log.Level)
}

// Validate checks enumerated values and glob patterns.
func (c *Config) Validate() error {
	if _, err := store.ParseCompression(c.Store.Compression); err != nil {
		return err
	}
	if _, ok := git.ParseRenameBackend(c.Renames.Backend); !ok {
		return fmt.Errorf("unknown rename backend %q (expected go-git, git or off)", c.Renames.Backend)
	}
	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	if c.Batch.Jobs < 1 {
		return fmt.Errorf("batch.jobs must be at least 1, got %d", c.Batch.Jobs)
	}
	if c.Extract.Subtree != "" && !strings.HasPrefix(strings.Trim(c.Classify.WorkflowsDir, "/")+"/", strings.Trim(c.Extract.Subtree, "/")+"/") {
		return fmt.Errorf("classify.workflows_dir %q is outside extract.subtree %q", c.Classify.WorkflowsDir, c.Extract.Subtree)
	}
	return c.PathFilter().Validate()
}

// PathFilter returns the configured include/exclude filter.
func (c *Config) PathFilter() diff.Filter {
	return diff.Filter{Include: c.Filters.Include, Exclude: c.Filters.Exclude}
}
