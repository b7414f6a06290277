package sitebuild

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/net/html"

	"github.com/yorickpeterse/wobsite"
)

// SiteData is the site-wide template context shared by every page render.
type SiteData struct {
	Title       string
	Description string
	BaseURL     string
}

// PageData is the template context of one rendered page.
type PageData struct {
	Site  SiteData
	Title string
	Date  time.Time
	URL   string
	Body  template.HTML
}

// Layout renders parsed pages into complete HTML documents through an
// html/template file. A parsed Layout is safe for concurrent use.
type Layout struct {
	tmpl *template.Template
}

// LoadLayout parses the template file at path.
func LoadLayout(path string) (*Layout, error) {
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", path, err)
	}

	return &Layout{tmpl: tmpl}, nil
}

// Render executes the layout with the page's data and parses the result
// into a document ready for asset link rewriting.
func (l *Layout) Render(site SiteData, page *wobsite.Page) (*html.Node, error) {
	data := PageData{
		Site:  site,
		Title: page.FrontMatter.Title,
		Date:  page.FrontMatter.Date,
		URL:   page.URL,
		Body:  template.HTML(page.Body),
	}

	var buf bytes.Buffer
	if err := l.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render layout for %s: %w", page.URL, err)
	}

	return wobsite.ParseHTML(buf.Bytes())
}
