package wobsite

import (
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPageURL_DerivesSiteAbsoluteURLs(t *testing.T) {
	source := filepath.Join("some", "src")

	cases := []struct {
		rel string
		url string
	}{
		{"index.md", "/"},
		{"a/b.md", "/a/b/"},
		{"a/index.md", "/a/"},
		{"articles/2024/hello.md", "/articles/2024/hello/"},
	}

	for _, tc := range cases {
		file := filepath.Join(source, filepath.FromSlash(tc.rel))
		require.Equalf(t, tc.url, PageURL(source, file), "PageURL for %s", tc.rel)
	}
}

func TestPagePath_MappingTable(t *testing.T) {
	cases := []struct {
		rel          string
		withIndex    string
		withoutIndex string
	}{
		{"index.md", "index.html", "index.html"},
		{"foo.md", "foo/index.html", "foo.html"},
		{"foo/bar.md", "foo/bar/index.html", "foo/bar.html"},
		{"foo/bar/index.md", "foo/bar/index.html", "foo/bar/index.html"},
	}

	for _, tc := range cases {
		require.Equalf(t, tc.withIndex, pagePath(tc.rel, true), "pagePath(%q, true)", tc.rel)
		require.Equalf(t, tc.withoutIndex, pagePath(tc.rel, false), "pagePath(%q, false)", tc.rel)
	}
}

func TestParsePage_PopulatesAllFields(t *testing.T) {
	source := t.TempDir()
	writeTree(t, source, map[string]string{
		"articles/hello.md": "---\n{ \"title\": \"Hello\", \"date\": \"2024-01-15\" }\n---\n# Heading\n\nText.\n",
	})

	file := filepath.Join(source, "articles", "hello.md")
	page, err := ParsePage(source, file)
	require.NoError(t, err)

	require.Equal(t, "Hello", page.FrontMatter.Title)
	require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), page.FrontMatter.Date)
	require.Equal(t, "/articles/hello/", page.URL)
	require.Equal(t, file, page.SourcePath)
	require.Contains(t, page.Body, `<h1 id="heading">Heading</h1>`)
	require.Contains(t, page.Body, "<p>Text.</p>")
}

func TestParsePage_MissingFile(t *testing.T) {
	source := t.TempDir()

	_, err := ParsePage(source, filepath.Join(source, "nope.md"))
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestParsePage_MissingTitle(t *testing.T) {
	source := t.TempDir()
	writeTree(t, source, map[string]string{
		"bad.md": "---\n{ \"date\": \"2024-01-15\" }\n---\nBody\n",
	})

	_, err := ParsePage(source, filepath.Join(source, "bad.md"))

	var keyErr *FrontMatterKeyError
	require.ErrorAs(t, err, &keyErr)
	require.Equal(t, "title", keyErr.Key)
}

func TestParsePage_MissingFrontMatterBlock(t *testing.T) {
	source := t.TempDir()
	writeTree(t, source, map[string]string{"bad.md": "# No front matter\n"})

	_, err := ParsePage(source, filepath.Join(source, "bad.md"))
	require.ErrorIs(t, err, ErrNoFrontMatter)
}

func TestParsePage_UnterminatedFrontMatter(t *testing.T) {
	source := t.TempDir()
	writeTree(t, source, map[string]string{"bad.md": "---\n{ \"title\": \"x\" }\nBody\n"})

	_, err := ParsePage(source, filepath.Join(source, "bad.md"))
	require.ErrorIs(t, err, ErrMissingClosingDelimiter)
}

func TestParsePage_InvalidFrontMatterJSON(t *testing.T) {
	source := t.TempDir()
	writeTree(t, source, map[string]string{"bad.md": "---\ntitle: yaml-style\n---\nBody\n"})

	_, err := ParsePage(source, filepath.Join(source, "bad.md"))
	require.ErrorIs(t, err, ErrInvalidFrontMatter)
}
