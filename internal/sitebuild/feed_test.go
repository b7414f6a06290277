package sitebuild

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/yorickpeterse/wobsite"
	"github.com/yorickpeterse/wobsite/internal/config"
	"github.com/yorickpeterse/wobsite/internal/gitinfo"
)

func TestFeed_EntriesNewestFirst(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	writeSourceFile(t, source, "old.md", "---\n{ \"title\": \"Old\", \"date\": \"2023-01-01\" }\n---\nOld\n")
	writeSourceFile(t, source, "new.md", "---\n{ \"title\": \"New\", \"date\": \"2024-01-01\" }\n---\nNew\n")

	index, err := wobsite.NewIndex(source, filepath.Join(dir, "public"))
	require.NoError(t, err)

	cfg := &config.Config{
		Title:   "Example",
		BaseURL: "https://example.com",
		Source:  source,
		Feed:    &config.FeedConfig{Path: "feed.xml", Pattern: "*.md"},
	}

	atom, err := Feed(cfg, nil)(index)
	require.NoError(t, err)

	require.Contains(t, atom, `xmlns="http://www.w3.org/2005/Atom"`)
	require.Contains(t, atom, "https://example.com/new/")
	require.Contains(t, atom, "https://example.com/old/")
	require.Less(t, strings.Index(atom, "<title>New</title>"), strings.Index(atom, "<title>Old</title>"))
}

func TestFeed_LimitCapsEntries(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	writeSourceFile(t, source, "a.md", "---\n{ \"title\": \"A\", \"date\": \"2024-03-01\" }\n---\nA\n")
	writeSourceFile(t, source, "b.md", "---\n{ \"title\": \"B\", \"date\": \"2024-02-01\" }\n---\nB\n")
	writeSourceFile(t, source, "c.md", "---\n{ \"title\": \"C\", \"date\": \"2024-01-01\" }\n---\nC\n")

	index, err := wobsite.NewIndex(source, filepath.Join(dir, "public"))
	require.NoError(t, err)

	cfg := &config.Config{
		Title:   "Example",
		BaseURL: "https://example.com",
		Source:  source,
		Feed:    &config.FeedConfig{Path: "feed.xml", Pattern: "*.md", Limit: 2},
	}

	atom, err := Feed(cfg, nil)(index)
	require.NoError(t, err)

	require.Contains(t, atom, "<title>A</title>")
	require.Contains(t, atom, "<title>B</title>")
	require.NotContains(t, atom, "<title>C</title>")
}

func TestFeed_GitDateFillsUndatedDocuments(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	source := filepath.Join(dir, "source")
	writeSourceFile(t, source, "undated.md", "---\n{ \"title\": \"Undated\" }\n---\nBody\n")
	writeSourceFile(t, source, "dated.md", "---\n{ \"title\": \"Dated\", \"date\": \"2024-01-01\" }\n---\nBody\n")

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("source")
	require.NoError(t, err)

	when := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	sig := &object.Signature{Name: "test", Email: "test@example.com", When: when}
	_, err = wt.Commit("add docs", &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)

	dates, err := gitinfo.Open(source)
	require.NoError(t, err)

	index, err := wobsite.NewIndex(source, filepath.Join(dir, "public"))
	require.NoError(t, err)

	cfg := &config.Config{
		Title:   "Example",
		BaseURL: "https://example.com",
		Source:  source,
		Feed:    &config.FeedConfig{Path: "feed.xml", Pattern: "*.md"},
	}

	atom, err := Feed(cfg, dates)(index)
	require.NoError(t, err)

	// The undated document carries its last commit time; the authored date
	// of the other document is untouched.
	require.Contains(t, atom, "2023-06-01T12:00:00Z")
	require.Contains(t, atom, "2024-01-01T00:00:00Z")
}

func TestFeed_BrokenDocumentFails(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	writeSourceFile(t, source, "bad.md", "no front matter here\n")

	index, err := wobsite.NewIndex(source, filepath.Join(dir, "public"))
	require.NoError(t, err)

	cfg := &config.Config{
		Title:   "Example",
		BaseURL: "https://example.com",
		Source:  source,
		Feed:    &config.FeedConfig{Path: "feed.xml", Pattern: "*.md"},
	}

	_, err = Feed(cfg, nil)(index)
	require.ErrorIs(t, err, wobsite.ErrNoFrontMatter)
}

func TestFeed_NoMatchesStillRenders(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	writeSourceFile(t, source, "style.css", "body {}\n")

	index, err := wobsite.NewIndex(source, filepath.Join(dir, "public"))
	require.NoError(t, err)

	cfg := &config.Config{
		Title:   "Example",
		BaseURL: "https://example.com",
		Source:  source,
		Feed:    &config.FeedConfig{Path: "feed.xml", Pattern: "*.md"},
	}

	atom, err := Feed(cfg, nil)(index)
	require.NoError(t, err)
	require.Contains(t, atom, "<title>Example</title>")
	require.NotContains(t, atom, "<entry>")
}
