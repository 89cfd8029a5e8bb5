// Package site renders normalized conversations into a static HTML site: one
// page per conversation plus a searchable index, with referenced images and
// uploads staged alongside.
package site

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxStemLen = 120

// Canonicalize turns a conversation title into a safe, stable filename stem.
// Unicode is NFKD-normalized, path separators become dashes, characters
// outside word characters, whitespace, and -.()& are dropped, whitespace runs
// collapse to single underscores, and the result is capped at 120 characters
// with trailing ._- stripped. Anything that reduces to nothing becomes
// "untitled".
func Canonicalize(title string) string {
	s := norm.NFKD.String(title)
	s = strings.NewReplacer("/", "-", "\\", "-").Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case strings.ContainsRune("-.()&", r):
			b.WriteRune(r)
		}
	}

	s = strings.Join(strings.Fields(b.String()), "_")
	if s == "" {
		return "untitled"
	}
	if rs := []rune(s); len(rs) > maxStemLen {
		s = strings.TrimRight(string(rs[:maxStemLen]), "._-")
		if s == "" {
			return "untitled"
		}
	}
	return s
}

// namer hands out collision-free page filenames for one build. Reservation is
// in-memory rather than filesystem-probed, so pages rebuild in place run
// after run instead of accumulating __N copies, and parallel rendering never
// races on names. index.html is reserved up front.
type namer struct {
	seen map[string]bool
}

func newNamer() *namer {
	return &namer{seen: map[string]bool{"index.html": true}}
}

// claim returns a free filename for the given stem, suffixing __2, __3, ...
// on collision.
func (n *namer) claim(stem string) string {
	name := stem + ".html"
	if !n.seen[name] {
		n.seen[name] = true
		return name
	}
	for i := 2; ; i++ {
		cand := fmt.Sprintf("%s__%d.html", stem, i)
		if !n.seen[cand] {
			n.seen[cand] = true
			return cand
		}
	}
}
