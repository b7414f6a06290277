package wobsite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func requireFileContent(t *testing.T, path, want string) {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, want, string(data))
}

// layoutFactory embeds the page body in a minimal document naming the page
// title.
func layoutFactory() PageFactory {
	return func() PageBuilder {
		return func(_ *Index, page *Page) (*html.Node, error) {
			doc := "<html><head><title>" + page.FrontMatter.Title + "</title></head><body>" + page.Body + "</body></html>"
			return ParseHTML([]byte(doc))
		}
	}
}

func TestSiteCopy_CopiesMatchingFilesVerbatim(t *testing.T) {
	source, output := t.TempDir(), t.TempDir()
	writeTree(t, source, map[string]string{
		"css/style.css": "body {}",
		"img/logo.png":  "not really a png",
		"notes.txt":     "never copied",
	})

	site, err := New(source, output)
	require.NoError(t, err)

	site.Copy("*.css")
	site.Copy("/img/logo.png")
	require.NoError(t, site.Wait())

	requireFileContent(t, filepath.Join(output, "css", "style.css"), "body {}")
	requireFileContent(t, filepath.Join(output, "img", "logo.png"), "not really a png")
	require.NoFileExists(t, filepath.Join(output, "notes.txt"))
}

func TestSiteGenerate_InvokesBuilderExactlyOnce(t *testing.T) {
	source, output := t.TempDir(), t.TempDir()

	site, err := New(source, output)
	require.NoError(t, err)

	var calls atomic.Int32
	site.Generate("feed.xml", func(*Index) (string, error) {
		calls.Add(1)
		return "<feed/>", nil
	})
	require.NoError(t, site.Wait())

	require.EqualValues(t, 1, calls.Load())
	requireFileContent(t, filepath.Join(output, "feed.xml"), "<feed/>")
}

func TestSiteGenerate_NestedPathCreatesDirectories(t *testing.T) {
	source, output := t.TempDir(), t.TempDir()

	site, err := New(source, output)
	require.NoError(t, err)

	site.Generate("feeds/atom.xml", func(*Index) (string, error) {
		return "<feed/>", nil
	})
	require.NoError(t, site.Wait())

	requireFileContent(t, filepath.Join(output, "feeds", "atom.xml"), "<feed/>")
}

func TestSiteGenerate_BuilderErrorReportedWithoutWriting(t *testing.T) {
	source, output := t.TempDir(), t.TempDir()

	site, err := New(source, output)
	require.NoError(t, err)

	site.Generate("feed.xml", func(*Index) (string, error) {
		return "", errors.New("feed exploded")
	})

	var errs Errors
	require.ErrorAs(t, site.Wait(), &errs)
	require.Len(t, errs, 1)
	require.Equal(t, filepath.Join(output, "feed.xml"), errs[0].Path)
	require.Equal(t, "feed exploded", errs[0].Message)
	require.NoFileExists(t, filepath.Join(output, "feed.xml"))
}

func TestSitePage_RendersPagesIntoOutput(t *testing.T) {
	source, output := t.TempDir(), t.TempDir()
	writeTree(t, source, map[string]string{
		"index.md": "---\n{ \"title\": \"Home\" }\n---\n# Hello\n",
		"about.md": "---\n{ \"title\": \"About\" }\n---\nAbout me.\n",
	})

	site, err := New(source, output)
	require.NoError(t, err)

	site.Page("*.md", layoutFactory())
	require.NoError(t, site.Wait())

	home, err := os.ReadFile(filepath.Join(output, "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(home), "<title>Home</title>")
	require.Contains(t, string(home), `<h1 id="hello">Hello</h1>`)

	about, err := os.ReadFile(filepath.Join(output, "about", "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(about), "<p>About me.</p>")
}

func TestSitePageWithoutIndex_SkipsDirectoryFolding(t *testing.T) {
	source, output := t.TempDir(), t.TempDir()
	writeTree(t, source, map[string]string{
		"notes.md": "---\n{ \"title\": \"Notes\" }\n---\nSome notes.\n",
	})

	site, err := New(source, output)
	require.NoError(t, err)

	site.PageWithoutIndex("*.md", layoutFactory())
	require.NoError(t, site.Wait())

	require.FileExists(t, filepath.Join(output, "notes.html"))
	require.NoFileExists(t, filepath.Join(output, "notes", "index.html"))
}

func TestSitePage_FactoryInvokedOncePerMatchedFile(t *testing.T) {
	source, output := t.TempDir(), t.TempDir()
	writeTree(t, source, map[string]string{
		"one.md": "---\n{ \"title\": \"One\" }\n---\n1\n",
		"two.md": "---\n{ \"title\": \"Two\" }\n---\n2\n",
	})

	site, err := New(source, output)
	require.NoError(t, err)

	var calls atomic.Int32
	site.Page("*.md", func() PageBuilder {
		calls.Add(1)
		return func(_ *Index, page *Page) (*html.Node, error) {
			return ParseHTML([]byte("<html><body>" + page.Body + "</body></html>"))
		}
	})
	require.NoError(t, site.Wait())

	require.EqualValues(t, 2, calls.Load())
}

func TestSitePage_ParseFailureSkipsBuilder(t *testing.T) {
	source, output := t.TempDir(), t.TempDir()
	writeTree(t, source, map[string]string{
		"bad.md": "---\n{ \"date\": \"2024-01-01\" }\n---\nNo title.\n",
	})

	site, err := New(source, output)
	require.NoError(t, err)

	var factoryCalled atomic.Bool
	site.Page("*.md", func() PageBuilder {
		factoryCalled.Store(true)
		return func(*Index, *Page) (*html.Node, error) {
			return ParseHTML([]byte("<html></html>"))
		}
	})

	var errs Errors
	require.ErrorAs(t, site.Wait(), &errs)
	require.Len(t, errs, 1)
	require.False(t, factoryCalled.Load())
	require.NoFileExists(t, filepath.Join(output, "bad", "index.html"))
}

func TestSitePage_ErrorCarriesOutputPath(t *testing.T) {
	source, output := t.TempDir(), t.TempDir()
	writeTree(t, source, map[string]string{
		"articles/post.md": "---\nnot json\n---\nBody\n",
	})

	site, err := New(source, output)
	require.NoError(t, err)

	site.Page("*.md", layoutFactory())

	var errs Errors
	require.ErrorAs(t, site.Wait(), &errs)
	require.Len(t, errs, 1)
	require.Equal(t, filepath.Join(output, "articles", "post", "index.html"), errs[0].Path)
}

func TestSitePage_BuilderErrorReported(t *testing.T) {
	source, output := t.TempDir(), t.TempDir()
	writeTree(t, source, map[string]string{
		"index.md": "---\n{ \"title\": \"Home\" }\n---\nHi\n",
	})

	site, err := New(source, output)
	require.NoError(t, err)

	site.Page("*.md", func() PageBuilder {
		return func(*Index, *Page) (*html.Node, error) {
			return nil, errors.New("render failed")
		}
	})

	var errs Errors
	require.ErrorAs(t, site.Wait(), &errs)
	require.Len(t, errs, 1)
	require.Equal(t, "render failed", errs[0].Message)
}

func TestSitePage_AssetLinksRewritten(t *testing.T) {
	source, output := t.TempDir(), t.TempDir()
	writeTree(t, source, map[string]string{
		"style.css":  "body {}",
		"foo/bar.md": "---\n{ \"title\": \"Bar\" }\n---\nText\n",
	})

	site, err := New(source, output)
	require.NoError(t, err)

	site.Page("*.md", func() PageBuilder {
		return func(_ *Index, page *Page) (*html.Node, error) {
			doc := `<html><head><link rel="stylesheet" href="../../style.css"></head><body>` + page.Body + "</body></html>"
			return ParseHTML([]byte(doc))
		}
	})
	require.NoError(t, site.Wait())

	hash, ok := site.Index().Hash("/style.css")
	require.True(t, ok)

	rendered, err := os.ReadFile(filepath.Join(output, "foo", "bar", "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(rendered), `href="../../style.css?hash=`+hash+`"`)
}

func TestSiteWait_AggregatesAllFailures(t *testing.T) {
	source, output := t.TempDir(), t.TempDir()
	writeTree(t, source, map[string]string{"kept.css": "x"})

	site, err := New(source, output)
	require.NoError(t, err)

	site.Copy("*.css")
	site.Generate("a.txt", func(*Index) (string, error) { return "", errors.New("a failed") })
	site.Generate("b.txt", func(*Index) (string, error) { return "", errors.New("b failed") })
	site.Generate("c.txt", func(*Index) (string, error) { return "ok", nil })

	var errs Errors
	require.ErrorAs(t, site.Wait(), &errs)
	require.Len(t, errs, 2)

	paths := []string{errs[0].Path, errs[1].Path}
	require.ElementsMatch(t, []string{
		filepath.Join(output, "a.txt"),
		filepath.Join(output, "b.txt"),
	}, paths)
}

func TestSiteWait_NilWhenAllJobsSucceed(t *testing.T) {
	source, output := t.TempDir(), t.TempDir()
	writeTree(t, source, map[string]string{"a.css": "x"})

	site, err := New(source, output)
	require.NoError(t, err)

	site.Copy("*.css")
	require.NoError(t, site.Wait())
}

func TestSiteWait_DrainsJobsBeyondChannelCapacity(t *testing.T) {
	source, output := t.TempDir(), t.TempDir()

	site, err := New(source, output)
	require.NoError(t, err)

	// Register far more jobs than the status channel buffers, so workers
	// must block on the channel until Wait drains them.
	for i := range 3 * statusBufferSize {
		site.Generate(fmt.Sprintf("gen/%d.txt", i), func(*Index) (string, error) {
			return "content", nil
		})
	}
	require.NoError(t, site.Wait())

	entries, err := os.ReadDir(filepath.Join(output, "gen"))
	require.NoError(t, err)
	require.Len(t, entries, 3*statusBufferSize)
}

func TestBuild_RunsDefineAndWaits(t *testing.T) {
	source, output := t.TempDir(), t.TempDir()
	writeTree(t, source, map[string]string{"style.css": "body {}"})

	err := Build(source, output, func(site *Site) {
		site.Copy("*.css")
	})
	require.NoError(t, err)
	requireFileContent(t, filepath.Join(output, "style.css"), "body {}")
}

func TestBuild_IndexFailureIsNotAnAggregate(t *testing.T) {
	err := Build(filepath.Join(t.TempDir(), "missing"), t.TempDir(), func(*Site) {
		t.Fatal("define must not run when the index cannot be built")
	})
	require.Error(t, err)

	var errs Errors
	require.False(t, errors.As(err, &errs))
}
