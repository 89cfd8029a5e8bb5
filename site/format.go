package site

import (
	"bytes"
	"fmt"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// TextFormatter renders message body text to HTML. Page templates treat its
// output as trusted markup, so implementations own their escaping.
type TextFormatter interface {
	FormatHTML(text string) (string, error)
}

// MarkdownFormatter renders GitHub-flavored markdown. Raw HTML in the source
// text is dropped by the renderer, which is what we want for transcripts of
// untrusted provenance. Safe for concurrent use.
type MarkdownFormatter struct {
	md goldmark.Markdown
}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}
}

func (f *MarkdownFormatter) FormatHTML(text string) (string, error) {
	if text == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := f.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("FormatHTML: %w", err)
	}
	return buf.String(), nil
}

// FormatDate renders a conversation timestamp for page headers and index
// cards, like "January 2, 2006 3:04 PM". The zero time renders empty.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006 3:04 PM")
}
