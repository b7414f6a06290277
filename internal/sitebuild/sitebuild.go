// Package sitebuild turns a site configuration into build rules for a
// wobsite.Site and runs complete builds, producing a BuildReport per run.
package sitebuild

import (
	"log/slog"
	"time"

	"golang.org/x/net/html"

	"github.com/yorickpeterse/wobsite"
	"github.com/yorickpeterse/wobsite/internal/config"
	"github.com/yorickpeterse/wobsite/internal/gitinfo"
	"github.com/yorickpeterse/wobsite/internal/logfields"
	"github.com/yorickpeterse/wobsite/internal/metrics"
)

// Notifier observes the build lifecycle, e.g. to publish events to a broker.
// Returned errors are logged, never failed on.
type Notifier interface {
	BuildStarted(buildID string) error
	BuildFinished(report *BuildReport) error
}

// Builder runs site builds described by a configuration.
type Builder struct {
	cfg      *config.Config
	recorder metrics.Recorder
	dates    *gitinfo.Times
	notify   Notifier
	log      *slog.Logger
}

// NewBuilder returns a Builder using recorder for telemetry and dates for
// git-based page dates. recorder may be nil for no telemetry; dates may be
// nil when no repository is available.
func NewBuilder(cfg *config.Config, recorder metrics.Recorder, dates *gitinfo.Times) *Builder {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	return &Builder{cfg: cfg, recorder: recorder, dates: dates, log: slog.Default()}
}

// SetNotifier injects the build lifecycle observer.
func (b *Builder) SetNotifier(n Notifier) { b.notify = n }

// Run executes one full build. The returned error is the build failure (a
// wobsite.Errors when jobs failed); the report carries the same information
// in aggregate form, whatever the outcome.
func (b *Builder) Run(trigger metrics.Trigger) (*BuildReport, error) {
	report := NewBuildReport(trigger)
	b.recorder.IncBuildTrigger(trigger)

	b.log.Info("build started",
		logfields.BuildID(report.ID),
		logfields.Source(b.cfg.Source),
		logfields.Output(b.cfg.Output))

	if b.notify != nil {
		if nerr := b.notify.BuildStarted(report.ID); nerr != nil {
			b.log.Warn("notify build started", logfields.Error(nerr))
		}
	}

	err := b.run(report)
	report.Finish(err)

	b.recorder.ObserveBuildDuration(report.Duration())
	b.recorder.IncBuildOutcome(report.Outcome)
	b.recorder.AddJobFailures(report.Failures)

	if b.notify != nil {
		if nerr := b.notify.BuildFinished(report); nerr != nil {
			b.log.Warn("notify build finished", logfields.Error(nerr))
		}
	}

	b.log.Info("build finished",
		logfields.BuildID(report.ID),
		logfields.Files(report.Files),
		logfields.Jobs(report.Jobs),
		logfields.Failed(report.Failures),
		logfields.DurationMS(float64(report.Duration())/float64(time.Millisecond)),
		logfields.Outcome(string(report.Outcome)))

	return report, err
}

func (b *Builder) run(report *BuildReport) error {
	// Layouts are parsed before any job is dispatched, so a broken layout
	// never strands spawned workers.
	layouts := make([]*Layout, len(b.cfg.Pages))
	for i, rule := range b.cfg.Pages {
		layout, err := LoadLayout(rule.Layout)
		if err != nil {
			return err
		}
		layouts[i] = layout
	}

	site, err := wobsite.New(b.cfg.Source, b.cfg.Output)
	if err != nil {
		return err
	}

	index := site.Index()
	report.Files = len(index.Files())
	b.recorder.SetIndexedFiles(report.Files)

	siteData := SiteData{
		Title:       b.cfg.Title,
		Description: b.cfg.Description,
		BaseURL:     b.cfg.BaseURL,
	}

	for _, pattern := range b.cfg.Copy {
		report.Jobs += len(index.Match(pattern))
		site.Copy(pattern)
	}

	for i, rule := range b.cfg.Pages {
		factory := b.pageFactory(layouts[i], siteData)
		report.Jobs += len(index.Match(rule.Pattern))

		if rule.Flat {
			site.PageWithoutIndex(rule.Pattern, factory)
		} else {
			site.Page(rule.Pattern, factory)
		}
	}

	if b.cfg.Feed != nil {
		report.Jobs++
		site.Generate(b.cfg.Feed.Path, Feed(b.cfg, b.dates))
	}
	if b.cfg.Archive != nil {
		report.Jobs++
		site.Generate(b.cfg.Archive.Path, Archive(b.cfg, b.dates))
	}

	return site.Wait()
}

// pageFactory returns the PageFactory for one page rule. Every job gets its
// own builder closure; the parsed layout is shared.
func (b *Builder) pageFactory(layout *Layout, site SiteData) wobsite.PageFactory {
	return func() wobsite.PageBuilder {
		return func(_ *wobsite.Index, page *wobsite.Page) (*html.Node, error) {
			fillDate(page, b.dates)
			return layout.Render(site, page)
		}
	}
}
