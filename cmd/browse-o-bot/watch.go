package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/browse-o-bot/site"
	"github.com/theimaginaryfoundation/browse-o-bot/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the site whenever the export file changes",
	Long: `Watch builds the site once, then keeps rebuilding it each time the export
file is written. Useful while trimming an export or tweaking labels: keep
index.html open in a browser and refresh after each save.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("debounce", 500*time.Millisecond, "Quiet period after a change before rebuilding")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Verbose)
	ctx := cmd.Context()

	rebuild := func(ctx context.Context) error {
		_, err := site.Build(ctx, cfg.BuildOptions(logger))
		return err
	}

	// A bad first build should not end the session; the whole point of
	// watching is to try again on the next save.
	if err := rebuild(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("initial build failed")
	}

	err = watch.Run(ctx, watch.Options{
		Path:       cfg.InputPath,
		ArchiveDir: cfg.ArchiveDir,
		Debounce:   cfg.Debounce,
		Logger:     logger,
	}, rebuild)
	if errors.Is(err, context.Canceled) {
		logger.Info().Msg("watch stopped")
		return nil
	}
	return err
}
