package wobsite

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yorickpeterse/wobsite/internal/markdown"
)

const indexFile = "index.md"

// Page is a single Markdown document parsed into its addressable parts. A
// Page is created inside a build job and handed to the caller's builder
// exactly once.
type Page struct {
	// FrontMatter is the parsed metadata header of the document.
	FrontMatter FrontMatter

	// URL is the site-absolute URL of the page, always ending in "/".
	URL string

	// SourcePath is the path of the document the page was parsed from.
	SourcePath string

	// Body is the Markdown body rendered to an HTML fragment.
	Body string
}

// ParsePage reads and parses the Markdown document at file, which must
// reside under the source directory. A read failure, an invalid front
// matter block, and a Markdown rendering failure are all terminal for the
// page.
func ParsePage(source, file string) (*Page, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	header, body, err := splitFrontMatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}

	front, err := parseFrontMatter(header)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}

	fragment, err := markdown.Convert(body)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", file, err)
	}

	return &Page{
		FrontMatter: front,
		URL:         PageURL(source, file),
		SourcePath:  file,
		Body:        string(fragment),
	}, nil
}

// PageURL derives the site-absolute URL of the document at file: the path
// relative to source with the extension stripped, with "index" documents
// folded into their directory. URLs always end with a trailing "/":
//
//	index.md   => /
//	a/b.md     => /a/b/
//	a/index.md => /a/
func PageURL(source, file string) string {
	rel := relativePath(source, file)

	if rel == indexFile {
		return "/"
	}
	if path.Base(rel) == indexFile {
		return "/" + path.Dir(rel) + "/"
	}

	return "/" + strings.TrimSuffix(rel, path.Ext(rel)) + "/"
}

// pagePath maps a document path relative to the source directory onto its
// output path. When index is true, documents other than index.md fold into
// a directory containing an index.html:
//
//	index.md    => index.html
//	foo.md      => foo/index.html (index) or foo.html (without index)
//	a/index.md  => a/index.html
func pagePath(rel string, index bool) string {
	stripped := strings.TrimSuffix(rel, path.Ext(rel))

	if path.Base(rel) == indexFile || !index {
		return stripped + ".html"
	}

	return stripped + "/index.html"
}

// relativePath returns file relative to source, in slash form.
func relativePath(source, file string) string {
	rel, err := filepath.Rel(source, file)
	if err != nil {
		rel = file
	}

	return filepath.ToSlash(rel)
}
