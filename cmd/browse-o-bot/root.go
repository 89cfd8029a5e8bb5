// Command browse-o-bot renders a conversations.json export as a browsable
// static site.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theimaginaryfoundation/browse-o-bot/config"
	"github.com/theimaginaryfoundation/browse-o-bot/site"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "browse-o-bot",
	Short: "Render a conversations.json export as a browsable static site",
	Long: `browse-o-bot converts an exported conversations.json archive into a static
HTML site: one page per conversation plus a searchable index. Images and
uploaded files referenced by the transcript are copied out of the archive
directory so the site is self-contained.

Examples:
  browse-o-bot -f conversations.json -d archive -o site_out
  browse-o-bot --user-name "Ada" --assistant-name "Chat Friend" -o site_out
  browse-o-bot watch -f conversations.json -o site_out`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runExport,
}

// exportCmd spells out the root command's default action.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Generate the site once and exit",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("file", "f", "conversations.json", "Path to the conversations.json export")
	pf.StringP("archive-dir", "d", "archive", "Directory holding exported attachments and images")
	pf.StringP("out-dir", "o", "site_out", "Output directory for the generated site")
	pf.StringP("user-name", "u", "User", "Display label for user messages")
	pf.StringP("assistant-name", "a", "Assistant", "Display label for assistant messages")
	pf.String("site-title", "Conversations", "Heading for the generated index page")
	pf.String("array-field", "", "Wrapper key holding the conversation array (default: auto-detect)")
	pf.Int("concurrency", 0, "Conversation render workers (0 = number of CPUs)")
	pf.Bool("strict", false, "Abort the whole run on the first malformed conversation")
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.StringVar(&flagConfig, "config", "", "Config file (YAML)")

	rootCmd.AddCommand(exportCmd)
}

// Execute runs the CLI under ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig binds the command's flags into viper and materializes the run
// configuration. Flag values sit on top of env vars, which sit on top of the
// optional config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	flags := cmd.Flags()
	keys := map[string]string{
		"input":            "file",
		"archive_dir":      "archive-dir",
		"out_dir":          "out-dir",
		"labels.user":      "user-name",
		"labels.assistant": "assistant-name",
		"site_title":       "site-title",
		"array_field":      "array-field",
		"concurrency":      "concurrency",
		"strict":           "strict",
		"verbose":          "verbose",
		"debounce":         "debounce",
	}
	for key, name := range keys {
		f := flags.Lookup(name)
		if f == nil {
			// debounce only exists on the watch command
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(v, flagConfig)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes human-readable diagnostics to stderr, keeping stdout free.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Verbose)

	res, err := site.Build(cmd.Context(), cfg.BuildOptions(logger))
	if err != nil {
		return err
	}
	logger.Info().Str("index", res.IndexPath).Msg("open index.html in a browser")
	return nil
}
