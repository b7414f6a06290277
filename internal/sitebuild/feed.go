package sitebuild

import (
	"fmt"
	"sort"
	"time"

	"github.com/gorilla/feeds"

	"github.com/yorickpeterse/wobsite"
	"github.com/yorickpeterse/wobsite/internal/config"
	"github.com/yorickpeterse/wobsite/internal/gitinfo"
)

// Feed returns a Generator producing an Atom feed of the documents matching
// the configured pattern, newest first.
func Feed(cfg *config.Config, dates *gitinfo.Times) wobsite.Generator {
	return func(index *wobsite.Index) (string, error) {
		pages, err := matchedPages(index, cfg.Feed.Pattern, dates)
		if err != nil {
			return "", err
		}

		sort.Slice(pages, func(i, j int) bool {
			return pages[i].FrontMatter.Date.After(pages[j].FrontMatter.Date)
		})
		if cfg.Feed.Limit > 0 && len(pages) > cfg.Feed.Limit {
			pages = pages[:cfg.Feed.Limit]
		}

		updated := time.Now().UTC()
		if len(pages) > 0 {
			updated = pages[0].FrontMatter.Date
		}

		feed := &feeds.Feed{
			Title:       cfg.Title,
			Description: cfg.Description,
			Link:        &feeds.Link{Href: cfg.BaseURL + "/"},
			Updated:     updated,
		}

		for _, page := range pages {
			feed.Items = append(feed.Items, &feeds.Item{
				Id:      cfg.BaseURL + page.URL,
				Title:   page.FrontMatter.Title,
				Link:    &feeds.Link{Href: cfg.BaseURL + page.URL},
				Created: page.FrontMatter.Date,
			})
		}

		atom, err := feed.ToAtom()
		if err != nil {
			return "", fmt.Errorf("render feed: %w", err)
		}

		return atom, nil
	}
}

// matchedPages parses every document matching pattern, filling in dates
// from git history for documents without an authored date.
func matchedPages(index *wobsite.Index, pattern string, dates *gitinfo.Times) ([]*wobsite.Page, error) {
	var pages []*wobsite.Page

	for _, file := range index.Match(pattern) {
		page, err := wobsite.ParsePage(index.Source(), file)
		if err != nil {
			return nil, err
		}

		fillDate(page, dates)
		pages = append(pages, page)
	}

	return pages, nil
}

// fillDate applies the date precedence: an authored front matter date wins,
// then the file's last commit time, then the parse-time fallback.
func fillDate(page *wobsite.Page, dates *gitinfo.Times) {
	if page.FrontMatter.HasDate() {
		return
	}

	if when, ok := dates.LastCommit(page.SourcePath); ok {
		page.FrontMatter.Date = when
	}
}
