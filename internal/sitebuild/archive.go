package sitebuild

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/yorickpeterse/wobsite"
	"github.com/yorickpeterse/wobsite/internal/config"
	"github.com/yorickpeterse/wobsite/internal/gitinfo"
)

var archiveTemplate = template.Must(template.New("archive").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{ .Site.Title }}: archive</title>
</head>
<body>
<h1>Archive</h1>
{{ range .Sections }}<h2>{{ .Title }}</h2>
<ul>
{{ range .Entries }}<li><a href="{{ .URL }}">{{ .Title }}</a> <time datetime="{{ .Date }}">{{ .Date }}</time></li>
{{ end }}</ul>
{{ end }}</body>
</html>
`))

type archiveEntry struct {
	URL   string
	Title string
	Date  string
}

type archiveSection struct {
	Title   string
	Entries []archiveEntry
}

// Archive returns a Generator producing a single HTML page that links every
// document matching the configured pattern, grouped by top-level section.
func Archive(cfg *config.Config, dates *gitinfo.Times) wobsite.Generator {
	return func(index *wobsite.Index) (string, error) {
		pages, err := matchedPages(index, cfg.Archive.Pattern, dates)
		if err != nil {
			return "", err
		}

		grouped := map[string][]*wobsite.Page{}
		for _, page := range pages {
			section := sectionOf(page)
			grouped[section] = append(grouped[section], page)
		}

		names := make([]string, 0, len(grouped))
		for name := range grouped {
			names = append(names, name)
		}
		sort.Strings(names)

		var sections []archiveSection
		for _, name := range names {
			members := grouped[name]
			sort.Slice(members, func(i, j int) bool {
				return members[i].FrontMatter.Date.After(members[j].FrontMatter.Date)
			})

			section := archiveSection{Title: sectionTitle(name)}
			for _, page := range members {
				section.Entries = append(section.Entries, archiveEntry{
					URL:   page.URL,
					Title: page.FrontMatter.Title,
					Date:  page.FrontMatter.Date.Format("2006-01-02"),
				})
			}
			sections = append(sections, section)
		}

		data := struct {
			Site     SiteData
			Sections []archiveSection
		}{
			Site:     SiteData{Title: cfg.Title, Description: cfg.Description, BaseURL: cfg.BaseURL},
			Sections: sections,
		}

		var buf bytes.Buffer
		if err := archiveTemplate.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("render archive: %w", err)
		}

		return buf.String(), nil
	}
}

// sectionOf returns the top-level URL segment a page lives under, or "" for
// pages at the site root.
func sectionOf(page *wobsite.Page) string {
	trimmed := strings.Trim(page.URL, "/")
	if i := strings.Index(trimmed, "/"); i > 0 {
		return trimmed[:i]
	}

	return ""
}

// sectionTitle turns a directory name into a display heading: dashes become
// spaces and each word is title-cased. The root section is called "Pages".
func sectionTitle(name string) string {
	if name == "" {
		return "Pages"
	}

	return cases.Title(language.English).String(strings.ReplaceAll(name, "-", " "))
}
