package normalize

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/theimaginaryfoundation/browse-o-bot/fileutils"
)

// Resolver locates the archive files behind asset pointers and stages them
// into the output directory. The archive directory is optional ancillary
// data: lookups against a missing or empty archive simply find nothing.
type Resolver struct {
	archiveDir string
	outDir     string
	logger     zerolog.Logger
	stats      *Stats
}

// NewResolver returns a Resolver staging into outDir. archiveDir may be
// empty, in which case every lookup misses. stats may be nil.
func NewResolver(archiveDir, outDir string, logger zerolog.Logger, stats *Stats) *Resolver {
	if stats == nil {
		stats = &Stats{}
	}
	return &Resolver{
		archiveDir: archiveDir,
		outDir:     outDir,
		logger:     logger,
		stats:      stats,
	}
}

// assetPattern derives the glob pattern for an asset pointer. file-service
// pointers carry a 15-byte scheme prefix and sediment pointers an 11-byte
// one; the remainder is the on-disk file's stem, matched with a trailing
// wildcard because exports drop the extension. Any other scheme is a format
// error.
func assetPattern(pointer string) (string, error) {
	var strip int
	switch {
	case strings.HasPrefix(pointer, "file-service"):
		strip = 15
	case strings.HasPrefix(pointer, "sediment"):
		strip = 11
	default:
		return "", &FormatError{Reason: fmt.Sprintf("unrecognized asset pointer scheme in %q", pointer)}
	}
	if len(pointer) <= strip {
		return "", &FormatError{Reason: fmt.Sprintf("truncated asset pointer %q", pointer)}
	}
	return pointer[strip:] + "*", nil
}

// Resolve locates the files behind pointer and stages each into the output
// directory, returning the staged basenames in lexical glob order. A nil
// error with an empty result means the asset is simply not in the archive;
// that is logged and counted, never fatal. dalle marks generated images,
// which live in their own archive subfolder.
func (r *Resolver) Resolve(pointer string, dalle bool) ([]string, error) {
	pattern, err := assetPattern(pointer)
	if err != nil {
		return nil, err
	}

	matches := r.findAsset(pattern, dalle)
	if len(matches) == 0 {
		r.stats.MissingAssets.Add(1)
		r.logger.Warn().Str("pointer", pointer).Msg("no archive file matches asset pointer")
		return nil, nil
	}

	staged := make([]string, 0, len(matches))
	for _, match := range matches {
		dst, copied, err := fileutils.CopyFileIfNew(match, r.outDir)
		if err != nil {
			return nil, fmt.Errorf("Resolve: stage %s: %w", match, err)
		}
		if copied {
			r.stats.StagedAssets.Add(1)
		} else {
			r.stats.StageConflicts.Add(1)
		}
		staged = append(staged, filepath.Base(dst))
	}
	return staged, nil
}

// findAsset runs the tiered glob search: generated images under
// dalle-generations/, then user uploads under user-<id> folders, then the
// archive root for everything else and for any miss.
func (r *Resolver) findAsset(pattern string, dalle bool) []string {
	if r.archiveDir == "" {
		return nil
	}
	if dalle {
		for _, sub := range []string{"dalle-generations", "user-*"} {
			if m, _ := filepath.Glob(filepath.Join(r.archiveDir, sub, pattern)); len(m) > 0 {
				return m
			}
		}
	}
	m, _ := filepath.Glob(filepath.Join(r.archiveDir, pattern))
	return m
}

// StageText writes an embedded text upload into the output directory, first
// write wins: an existing file of the same name is left untouched. Returns
// whether this call created the file.
func (r *Resolver) StageText(name string, contents []byte) (bool, error) {
	_, created, err := fileutils.CreateFileIfNew(r.outDir, name, contents)
	if err != nil {
		return false, fmt.Errorf("StageText: %w", err)
	}
	if created {
		r.stats.StagedUploads.Add(1)
	} else {
		r.stats.StageConflicts.Add(1)
	}
	return created, nil
}
