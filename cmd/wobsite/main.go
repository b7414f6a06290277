package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/yorickpeterse/wobsite"
	"github.com/yorickpeterse/wobsite/internal/config"
	"github.com/yorickpeterse/wobsite/internal/events"
	"github.com/yorickpeterse/wobsite/internal/gitinfo"
	"github.com/yorickpeterse/wobsite/internal/history"
	"github.com/yorickpeterse/wobsite/internal/logfields"
	"github.com/yorickpeterse/wobsite/internal/metrics"
	"github.com/yorickpeterse/wobsite/internal/serve"
	"github.com/yorickpeterse/wobsite/internal/sitebuild"
	"github.com/yorickpeterse/wobsite/internal/version"
	"github.com/yorickpeterse/wobsite/internal/watch"
)

const stopTimeout = 10 * time.Second

var CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"wobsite.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build struct{} `cmd:"" help:"Build the site once"`

	Watch struct{} `cmd:"" help:"Build the site, then rebuild whenever the source changes"`

	Serve struct {
		Addr string `help:"Listen address, overriding the configuration"`
	} `cmd:"" help:"Build and watch the site, serving the output over HTTP"`

	History struct {
		Limit int `short:"n" help:"Number of builds to show" default:"20"`
	} `cmd:"" help:"List recent builds"`

	Init struct {
		Force bool `help:"Overwrite existing files"`
	} `cmd:"" help:"Create a starter site in the current directory"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("wobsite"),
		kong.Description("Builds static sites from Markdown sources."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Exit(func(code int) {
			// kong reports usage errors with code 1; those exit 2 here so
			// build failures keep code 1 to themselves. Help stays 0.
			if code != 0 {
				code = 2
			}
			os.Exit(code)
		}),
	)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch ctx.Command() {
	case "build":
		os.Exit(runBuild(loadConfig()))
	case "watch":
		os.Exit(runWatch(loadConfig()))
	case "serve":
		os.Exit(runServe(loadConfig()))
	case "history":
		os.Exit(runHistory(loadConfig(), CLI.History.Limit))
	case "init":
		os.Exit(runInit(CLI.Config, CLI.Init.Force))
	}
}

// loadConfig loads the configuration file or exits with a usage error.
func loadConfig() *config.Config {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
		os.Exit(2)
	}

	return cfg
}

func runBuild(cfg *config.Config) int {
	rt := newBuildRuntime(cfg, nil)
	defer rt.Close()

	if err := rt.run(metrics.TriggerManual); err != nil {
		printBuildErrors(err)
		return 1
	}

	return 0
}

func runWatch(cfg *config.Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := newBuildRuntime(cfg, nil)
	defer rt.Close()

	// The initial build may fail; watch keeps running so the next save can
	// fix it.
	rt.rebuild(metrics.TriggerManual)

	g, gctx := errgroup.WithContext(ctx)

	watcher, err := watch.New(cfg.Source, cfg.Watch.Debounce.Std(), rt.rebuild)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
		return 1
	}
	if err := watcher.Start(gctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
		return 1
	}
	g.Go(func() error {
		<-gctx.Done()
		return watcher.Stop()
	})

	if cfg.Watch.Interval > 0 {
		schedule, err := watch.NewSchedule(cfg.Watch.Interval.Std(), rt.rebuild)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
			return 1
		}
		schedule.Start()
		g.Go(func() error {
			<-gctx.Done()
			return schedule.Stop()
		})
	}

	<-gctx.Done()
	slog.Info("shutting down")

	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
		return 1
	}

	return 0
}

func runServe(cfg *config.Config) int {
	if CLI.Serve.Addr != "" {
		cfg.Serve.Addr = CLI.Serve.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var recorder metrics.Recorder
	var metricsHandler http.Handler
	if cfg.Serve.Metrics {
		registry := prometheus.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
		metricsHandler = metrics.HTTPHandler(registry)
	}

	rt := newBuildRuntime(cfg, recorder)
	defer rt.Close()

	rt.rebuild(metrics.TriggerManual)

	g, gctx := errgroup.WithContext(ctx)

	watcher, err := watch.New(cfg.Source, cfg.Watch.Debounce.Std(), rt.rebuild)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
		return 1
	}
	if err := watcher.Start(gctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
		return 1
	}
	g.Go(func() error {
		<-gctx.Done()
		return watcher.Stop()
	})

	if cfg.Watch.Interval > 0 {
		schedule, err := watch.NewSchedule(cfg.Watch.Interval.Std(), rt.rebuild)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
			return 1
		}
		schedule.Start()
		g.Go(func() error {
			<-gctx.Done()
			return schedule.Stop()
		})
	}

	server := serve.New(cfg.Serve.Addr, cfg.Output, metricsHandler)
	if err := server.Start(gctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
		return 1
	}
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		return server.Stop(stopCtx)
	})

	<-gctx.Done()
	slog.Info("shutting down")

	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
		return 1
	}

	return 0
}

func runHistory(cfg *config.Config, limit int) int {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
		return 1
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	reports, err := store.List(ctx, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
		return 1
	}

	if len(reports) == 0 {
		fmt.Println("no builds recorded")
		return 0
	}

	for _, report := range reports {
		fmt.Printf("%s %s\n", report.Start.Format(time.RFC3339), report.Summary())
	}

	return 0
}

func runInit(path string, force bool) int {
	if err := config.Init(path, force); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
		return 2
	}
	if err := scaffoldSite(force); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
		return 1
	}

	slog.Info("site initialized", logfields.Path(path))
	return 0
}

// buildRuntime bundles a builder with its optional history store and event
// publisher, and serializes builds: the watcher and the schedule may fire
// concurrently.
type buildRuntime struct {
	mu        sync.Mutex
	builder   *sitebuild.Builder
	store     *history.Store
	publisher *events.Publisher
}

func newBuildRuntime(cfg *config.Config, recorder metrics.Recorder) *buildRuntime {
	rt := &buildRuntime{
		builder: sitebuild.NewBuilder(cfg, recorder, openGitDates(cfg)),
	}

	if !cfg.History.Disabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			slog.Warn("build history disabled", logfields.Error(err))
		} else {
			rt.store = store
		}
	}

	if cfg.Events.URL != "" {
		publisher, err := events.Connect(cfg.Events.URL, cfg.Events.Subject)
		if err != nil {
			slog.Warn("event publishing disabled", logfields.Error(err))
		} else {
			rt.publisher = publisher
			rt.builder.SetNotifier(publisher)
		}
	}

	return rt
}

// run executes one build and records its report.
func (rt *buildRuntime) run(trigger metrics.Trigger) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	report, err := rt.builder.Run(trigger)
	rt.record(report)

	return err
}

// rebuild is the callback handed to the watcher and the schedule. Failures
// are printed, not returned: a broken build must not stop watching.
func (rt *buildRuntime) rebuild(trigger metrics.Trigger) {
	if err := rt.run(trigger); err != nil {
		printBuildErrors(err)
	}
}

func (rt *buildRuntime) record(report *sitebuild.BuildReport) {
	if rt.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := rt.store.Record(ctx, report); err != nil {
		slog.Warn("record build history", logfields.Error(err))
	}
}

func (rt *buildRuntime) Close() {
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			slog.Warn("close history store", logfields.Error(err))
		}
	}

	rt.publisher.Close()
}

// openGitDates opens the git repository containing the source tree, when
// configured. Dates degrade to the parse-time default without one.
func openGitDates(cfg *config.Config) *gitinfo.Times {
	if !cfg.GitDates {
		return nil
	}

	dates, err := gitinfo.Open(cfg.Source)
	if err != nil {
		slog.Warn("git dates unavailable", logfields.Error(err))
		return nil
	}

	return dates
}

// printBuildErrors writes one line per failed job, or the bare error when
// the build failed before dispatching jobs.
func printBuildErrors(err error) {
	var buildErrs wobsite.Errors
	if !errors.As(err, &buildErrs) {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorPrefix(), err)
		return
	}

	for _, buildErr := range buildErrs {
		fmt.Fprintf(os.Stderr, "%s %s: %s\n", errorPrefix(), buildErr.Path, buildErr.Message)
	}
}

// errorPrefix colors "error:" when stderr is a terminal.
func errorPrefix() string {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return "\x1b[1;31merror:\x1b[0m"
	}

	return "error:"
}
