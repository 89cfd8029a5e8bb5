// Package config holds the run configuration, merged from defaults, an
// optional YAML file, BROWSEOBOT_* environment variables, and bound
// command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/theimaginaryfoundation/browse-o-bot/site"
)

// Labels configure how roles display on the rendered pages.
type Labels struct {
	User      string            `mapstructure:"user"`
	Assistant string            `mapstructure:"assistant"`
	Overrides map[string]string `mapstructure:"overrides"`
}

// Config is everything a build (or watch) run needs.
type Config struct {
	InputPath  string `mapstructure:"input"`
	ArchiveDir string `mapstructure:"archive_dir"`
	OutDir     string `mapstructure:"out_dir"`

	SiteTitle  string `mapstructure:"site_title"`
	ArrayField string `mapstructure:"array_field"`
	Labels     Labels `mapstructure:"labels"`

	Concurrency int           `mapstructure:"concurrency"`
	Strict      bool          `mapstructure:"strict"`
	Debounce    time.Duration `mapstructure:"debounce"`
	Verbose     bool          `mapstructure:"verbose"`
}

// SetDefaults installs the baseline every run starts from. Defaults double as
// key registrations: viper only surfaces env-provided values for keys it
// already knows.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input", "conversations.json")
	v.SetDefault("archive_dir", "archive")
	v.SetDefault("out_dir", "site_out")
	v.SetDefault("site_title", "Conversations")
	v.SetDefault("array_field", "")
	v.SetDefault("labels.user", "User")
	v.SetDefault("labels.assistant", "Assistant")
	v.SetDefault("concurrency", 0)
	v.SetDefault("strict", false)
	v.SetDefault("debounce", 500*time.Millisecond)
	v.SetDefault("verbose", false)
}

// Load materializes a Config from v, merging the config file at path first
// when one is given. Callers bind flags onto v before calling.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("BROWSEOBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("Load: read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("Load: unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the parts a run cannot proceed without.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("input file is required")
	}
	if c.OutDir == "" {
		return errors.New("output directory is required")
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency must be zero or positive")
	}
	if c.Debounce < 0 {
		return errors.New("debounce must be zero or positive")
	}
	return nil
}

// BuildOptions maps the config onto one build's options.
func (c *Config) BuildOptions(logger zerolog.Logger) site.Options {
	return site.Options{
		InputPath:      c.InputPath,
		OutDir:         c.OutDir,
		ArchiveDir:     c.ArchiveDir,
		SiteTitle:      c.SiteTitle,
		UserLabel:      c.Labels.User,
		AssistantLabel: c.Labels.Assistant,
		RoleOverrides:  c.Labels.Overrides,
		ArrayField:     c.ArrayField,
		Concurrency:    c.Concurrency,
		Strict:         c.Strict,
		Logger:         logger,
	}
}
