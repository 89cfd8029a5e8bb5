package site

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSite(t *testing.T, export string, mutate func(*Options)) (*Result, string) {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "conversations.json")
	require.NoError(t, os.WriteFile(input, []byte(export), 0o644))

	opts := Options{
		InputPath: input,
		OutDir:    filepath.Join(dir, "site"),
		Logger:    zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	res, err := Build(context.Background(), opts)
	require.NoError(t, err)
	return res, opts.OutDir
}

func parseHTML(t *testing.T, path string) *goquery.Document {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	require.NoError(t, err)
	return doc
}

const richExport = `[
	{
		"title": "Project Plan",
		"create_time": 1700000000,
		"mapping": {
			"n1": {"message": {"create_time": 1, "author": {"role": "user"},
				"content": {"content_type": "text", "parts": ["Hello **world**"]}}},
			"n2": {"message": {"create_time": 2, "author": {"role": "assistant"}, "recipient": "python",
				"content": {"content_type": "code", "text": "x = 1"}}},
			"n3": {"message": {"create_time": 3, "author": {"role": "assistant"},
				"content": {"content_type": "text", "parts": [
					{"content_type": "image_asset_pointer", "asset_pointer": "file-service://file-IMG1"}
				]}}},
			"n4": {"message": {"create_time": 4, "author": {"role": "user"},
				"content": {"text": "abc", "title": "notes.txt"}}},
			"n5": {"message": {"create_time": 5, "author": {"role": "assistant"},
				"content": {"content_type": "thoughts", "thoughts": [{"summary": "s", "content": "c"}]}}}
		}
	},
	{
		"title": "Project Plan",
		"update_time": 1700000500,
		"mapping": {
			"m1": {"message": {"author": {"role": "user"},
				"content": {"content_type": "text", "parts": ["second conversation"]}}}
		}
	}
]`

func TestBuild_EndToEnd(t *testing.T) {
	t.Parallel()

	archiveDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(archiveDir, "file-IMG1.png"), []byte("png-bytes"), 0o644))

	res, outDir := buildSite(t, richExport, func(o *Options) {
		o.ArchiveDir = archiveDir
		o.UserLabel = "Me"
		o.AssistantLabel = "Bot"
	})

	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 6, res.Units)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, int64(1), res.Stats.StagedAssets.Load())
	assert.Equal(t, int64(1), res.Stats.StagedUploads.Load())

	// Duplicate titles get distinct pages.
	pagePath := filepath.Join(outDir, "Project_Plan.html")
	require.FileExists(t, pagePath)
	require.FileExists(t, filepath.Join(outDir, "Project_Plan__2.html"))

	// Staged side effects land next to the pages.
	staged, err := os.ReadFile(filepath.Join(outDir, "file-IMG1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(staged))
	notes, err := os.ReadFile(filepath.Join(outDir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(notes))

	page := parseHTML(t, pagePath)
	assert.Equal(t, 5, page.Find(".message").Length())
	assert.Equal(t, "Hello world", strings.TrimSpace(page.Find(".msg-body").First().Text()))
	assert.Equal(t, "world", page.Find(".msg-body strong").Text())
	assert.Equal(t, "Me", page.Find(".role").First().Text())
	assert.Equal(t, "python", page.Find(".badge").Text())
	assert.Equal(t, 1, page.Find(".message--r-python").Length())
	assert.Contains(t, page.Find("pre code").Text(), "x = 1")
	assert.Equal(t, 1, page.Find(`img[src="file-IMG1.png"]`).Length())
	assert.Equal(t, 1, page.Find(`a[href="notes.txt"]`).Length())
	assert.Equal(t, "thought:s:c", page.Find(".aside").Text())
	assert.NotEmpty(t, page.Find("h6").Text())

	index := parseHTML(t, res.IndexPath)
	cards := index.Find(".card")
	require.Equal(t, 2, cards.Length())
	hrefs := map[string]bool{}
	cards.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		hrefs[href] = true
	})
	assert.True(t, hrefs["Project_Plan.html"])
	assert.True(t, hrefs["Project_Plan__2.html"])

	filter, _ := cards.First().Attr("data-title")
	assert.Equal(t, "project plan", filter)
}

func TestBuild_SkipsBadConversationAndContinues(t *testing.T) {
	t.Parallel()

	export := `[
		{"title": "Good", "mapping": {
			"n1": {"message": {"content": {"content_type": "text", "parts": ["fine"]}}}
		}},
		{"title": "Broken", "mapping": {
			"n1": {"message": {"content": {"surprise": true}}}
		}}
	]`

	res, outDir := buildSite(t, export, nil)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 1, res.Skipped)
	require.FileExists(t, filepath.Join(outDir, "Good.html"))
	assert.NoFileExists(t, filepath.Join(outDir, "Broken.html"))

	index := parseHTML(t, res.IndexPath)
	assert.Equal(t, 1, index.Find(".card").Length())
}

func TestBuild_StrictAbortsOnBadConversation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "conversations.json")
	require.NoError(t, os.WriteFile(input, []byte(`[
		{"title": "Broken", "mapping": {
			"n1": {"message": {"content": {"surprise": true}}}
		}}
	]`), 0o644))

	_, err := Build(context.Background(), Options{
		InputPath: input,
		OutDir:    filepath.Join(dir, "site"),
		Strict:    true,
		Logger:    zerolog.Nop(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized content block")
}

func TestBuild_UntitledConversation(t *testing.T) {
	t.Parallel()

	export := `[{"mapping": {
		"n1": {"message": {"content": {"content_type": "text", "parts": ["hi"]}}}
	}}]`

	res, outDir := buildSite(t, export, nil)
	assert.Equal(t, 1, res.Pages)
	require.FileExists(t, filepath.Join(outDir, "Untitled.html"))

	index := parseHTML(t, res.IndexPath)
	assert.Equal(t, "Untitled", index.Find(".card h3 a").Text())
	// No usable timestamp, so the card carries no date.
	assert.Equal(t, "", index.Find(".card .small").Text())
}

func TestBuild_EmptyExport(t *testing.T) {
	t.Parallel()

	res, _ := buildSite(t, `[]`, nil)
	assert.Equal(t, 0, res.Pages)

	index := parseHTML(t, res.IndexPath)
	assert.Equal(t, 0, index.Find(".card").Length())
	assert.Equal(t, "Conversations", index.Find("h1").Text())
}

func TestBuild_RebuildsInPlace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "conversations.json")
	require.NoError(t, os.WriteFile(input, []byte(richExport), 0o644))
	outDir := filepath.Join(dir, "site")

	opts := Options{InputPath: input, OutDir: outDir, Logger: zerolog.Nop()}
	_, err := Build(context.Background(), opts)
	require.NoError(t, err)
	_, err = Build(context.Background(), opts)
	require.NoError(t, err)

	// A second run rewrites the same pages instead of minting __N copies.
	pages, err := filepath.Glob(filepath.Join(outDir, "*.html"))
	require.NoError(t, err)
	assert.Len(t, pages, 3) // two conversations plus the index
}

func TestBuild_CustomSiteTitleAndArrayField(t *testing.T) {
	t.Parallel()

	export := `{"threads": [{"title": "Only", "mapping": {
		"n1": {"message": {"content": {"content_type": "text", "parts": ["x"]}}}
	}}]}`

	res, _ := buildSite(t, export, func(o *Options) {
		o.SiteTitle = "My Archive"
		o.ArrayField = "threads"
	})
	assert.Equal(t, 1, res.Pages)

	index := parseHTML(t, res.IndexPath)
	assert.Equal(t, "My Archive", index.Find("h1").Text())
}
