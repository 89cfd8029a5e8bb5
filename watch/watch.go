// Package watch rebuilds the site whenever the export file changes, so a
// browser tab on the index stays one refresh behind the archive.
package watch

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Options configure one watch session.
type Options struct {
	// Path is the export file to watch.
	Path string

	// ArchiveDir, when set, is also watched so freshly unpacked attachments
	// trigger a rebuild. Only the directory's top level is observed.
	ArchiveDir string

	// Debounce is the quiet period after the last write before a rebuild
	// fires; exporters write large files in bursts. Default 500ms.
	Debounce time.Duration

	Logger zerolog.Logger
}

// Rebuilder runs one site rebuild. Errors are logged and the watch
// continues; a half-saved export should not end the session.
type Rebuilder func(ctx context.Context) error

// Run watches the export until ctx is done. It watches the parent directory
// rather than the file itself: editors and exporters replace files by
// rename, which silently drops a watch set directly on the old inode.
func Run(ctx context.Context, opts Options, rebuild Rebuilder) error {
	if ctx == nil {
		return errors.New("Run: ctx is nil")
	}
	if opts.Path == "" {
		return errors.New("Run: path is empty")
	}
	if rebuild == nil {
		return errors.New("Run: rebuild is nil")
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(opts.Path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	if opts.ArchiveDir != "" {
		// The archive may not have been unpacked yet; that only costs the
		// rebuild-on-new-attachment nicety, not the session.
		if err := watcher.Add(opts.ArchiveDir); err != nil {
			opts.Logger.Warn().Str("dir", opts.ArchiveDir).Err(err).Msg("not watching archive dir")
		}
	}
	base := filepath.Base(opts.Path)
	archDir := ""
	if opts.ArchiveDir != "" {
		archDir = filepath.Clean(opts.ArchiveDir)
	}
	opts.Logger.Info().Str("path", opts.Path).Dur("debounce", debounce).Msg("watching export")

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return errors.New("Run: event channel closed")
			}
			if !relevantEvent(ev, base, archDir) {
				continue
			}
			opts.Logger.Debug().Str("op", ev.Op.String()).Msg("export changed")
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("Run: error channel closed")
			}
			opts.Logger.Warn().Err(err).Msg("watch error")

		case <-timerC:
			timer = nil
			timerC = nil
			opts.Logger.Info().Msg("rebuilding after change")
			if err := rebuild(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				opts.Logger.Error().Err(err).Msg("rebuild failed")
			}
		}
	}
}

// relevantEvent reports whether ev concerns the export file or the archive
// directory and is the kind of change that alters contents.
func relevantEvent(ev fsnotify.Event, base, archDir string) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	if filepath.Base(ev.Name) == base {
		return true
	}
	return archDir != "" && filepath.Dir(ev.Name) == archDir
}
