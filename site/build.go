package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/theimaginaryfoundation/browse-o-bot/archive"
	"github.com/theimaginaryfoundation/browse-o-bot/fileutils"
	"github.com/theimaginaryfoundation/browse-o-bot/normalize"
)

// Options configure one site build.
type Options struct {
	InputPath  string // conversations.json export (required)
	OutDir     string // site output directory, created if absent (required)
	ArchiveDir string // attachment archive; empty disables asset lookups

	SiteTitle      string            // index heading, default "Conversations"
	UserLabel      string            // display label for the user role
	AssistantLabel string            // display label for the assistant role
	RoleOverrides  map[string]string // extra role-to-label mappings

	ArrayField  string // wrapper key for the conversation array, empty = auto
	Concurrency int    // parallel conversation workers, <=0 = GOMAXPROCS
	Strict      bool   // abort the whole run on the first bad conversation

	DirMode   fs.FileMode   // default 0o755
	FileMode  fs.FileMode   // default 0o644
	Formatter TextFormatter // default NewMarkdownFormatter()
	Logger    zerolog.Logger
}

// Result summarizes one build.
type Result struct {
	Pages     int
	Units     int // render units across all pages written
	Skipped   int // malformed records plus conversations that failed
	IndexPath string
	Stats     *normalize.Stats
}

type pageJob struct {
	conv     *archive.Conversation
	title    string
	filename string
	date     string
	units    int
	err      error
}

// Build converts one export into a static site: a page per conversation, the
// referenced assets staged alongside, and an index.html over the lot.
//
// Conversations have no data dependency on each other, so they render on a
// bounded worker pool. Page filenames are claimed up front in input order,
// which keeps names deterministic regardless of worker scheduling; within one
// conversation, messages reduce strictly in sequence, so staged files exist
// by the time later messages reference them.
func Build(ctx context.Context, opts Options) (*Result, error) {
	if ctx == nil {
		return nil, errors.New("Build: ctx is nil")
	}
	if opts.InputPath == "" {
		return nil, errors.New("Build: InputPath is empty")
	}
	if opts.OutDir == "" {
		return nil, errors.New("Build: OutDir is empty")
	}
	if opts.SiteTitle == "" {
		opts.SiteTitle = "Conversations"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	if opts.DirMode == 0 {
		opts.DirMode = 0o755
	}
	if opts.FileMode == 0 {
		opts.FileMode = 0o644
	}
	if opts.Formatter == nil {
		opts.Formatter = NewMarkdownFormatter()
	}
	logger := opts.Logger

	if err := os.MkdirAll(opts.OutDir, opts.DirMode); err != nil {
		return nil, fmt.Errorf("Build: create output dir: %w", err)
	}

	loaded, err := archive.Load(ctx, opts.InputPath, archive.LoadOptions{
		ArrayField: opts.ArrayField,
		Strict:     opts.Strict,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	stats := &normalize.Stats{}
	resolver := normalize.NewResolver(opts.ArchiveDir, opts.OutDir, logger, stats)
	seq := normalize.NewSequencer(
		normalize.NewRoleTable(opts.UserLabel, opts.AssistantLabel, opts.RoleOverrides),
		normalize.NewClassifier(resolver),
	)

	// Claim filenames first, in input order, so duplicate titles suffix
	// deterministically no matter how the pool schedules.
	names := newNamer()
	jobs := make([]*pageJob, len(loaded.Conversations))
	for i, conv := range loaded.Conversations {
		title := conv.DisplayTitle()
		if title == "" {
			title = "Untitled"
		}
		jobs[i] = &pageJob{
			conv:     conv,
			title:    title,
			filename: names.claim(Canonicalize(title)),
			date:     FormatDate(conv.When().Time()),
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := buildPage(seq, opts, job); err != nil {
				if opts.Strict {
					return fmt.Errorf("conversation %s: %w", job.conv.Ident(), err)
				}
				job.err = err
				logger.Warn().Str("conversation", job.conv.Ident()).Err(err).Msg("skipping conversation")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	cards := make([]cardData, 0, len(jobs))
	units := 0
	failed := 0
	for _, job := range jobs {
		if job.err != nil {
			failed++
			continue
		}
		units += job.units
		cards = append(cards, cardData{
			Title:   job.title,
			Href:    job.filename,
			Created: job.date,
			Filter:  strings.ToLower(job.title),
		})
	}

	indexPath := filepath.Join(opts.OutDir, "index.html")
	html, err := renderIndex(opts.SiteTitle, cards)
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	if err := fileutils.WriteFileAtomic(indexPath, html, opts.FileMode); err != nil {
		return nil, fmt.Errorf("Build: write index: %w", err)
	}

	res := &Result{
		Pages:     len(cards),
		Units:     units,
		Skipped:   loaded.Skipped + failed,
		IndexPath: indexPath,
		Stats:     stats,
	}
	logger.Info().
		Int("pages", res.Pages).
		Int("units", res.Units).
		Int("skipped", res.Skipped).
		Int64("staged_assets", stats.StagedAssets.Load()).
		Int64("missing_assets", stats.MissingAssets.Load()).
		Str("out_dir", opts.OutDir).
		Msg("wrote site")
	return res, nil
}

// buildPage runs the pipeline for one conversation and writes its page.
func buildPage(seq *normalize.Sequencer, opts Options, job *pageJob) error {
	units, err := seq.Sequence(job.conv)
	if err != nil {
		return err
	}
	html, err := renderPage(opts.Formatter, job.title, job.date, units)
	if err != nil {
		return err
	}
	if err := fileutils.WriteFileAtomic(filepath.Join(opts.OutDir, job.filename), html, opts.FileMode); err != nil {
		return err
	}
	job.units = len(units)
	opts.Logger.Debug().Str("page", job.filename).Int("units", len(units)).Msg("rendered conversation")
	return nil
}
