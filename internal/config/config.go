// Package config loads and validates the wobsite.yaml site configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file name looked up in the working
// directory when no explicit path is given.
const DefaultFile = "wobsite.yaml"

// Environment variables overriding file-level settings.
const (
	EnvSource  = "WOBSITE_SOURCE"
	EnvOutput  = "WOBSITE_OUTPUT"
	EnvNATSURL = "WOBSITE_NATS_URL"
)

// Duration decodes YAML strings like "500ms" or "2m" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the site configuration read from wobsite.yaml.
type Config struct {
	// Title of the site, used by layouts and the feed.
	Title string `yaml:"title"`

	// Description of the site, used by the feed.
	Description string `yaml:"description,omitempty"`

	// BaseURL is the absolute URL the site is served from, without a
	// trailing slash (e.g. "https://example.com").
	BaseURL string `yaml:"base_url,omitempty"`

	// Source is the directory scanned for documents and assets.
	Source string `yaml:"source,omitempty"`

	// Output is the directory build results are written to.
	Output string `yaml:"output,omitempty"`

	// Copy lists the glob patterns of files copied verbatim.
	Copy []string `yaml:"copy,omitempty"`

	// Pages lists the Markdown rendering rules.
	Pages []PageRule `yaml:"pages,omitempty"`

	// Feed configures the generated Atom feed. Nil disables the feed.
	Feed *FeedConfig `yaml:"feed,omitempty"`

	// Archive configures the generated archive listing. Nil disables it.
	Archive *ArchiveConfig `yaml:"archive,omitempty"`

	// GitDates enables falling back to a document's last commit time when
	// its front matter carries no date.
	GitDates bool `yaml:"git_dates,omitempty"`

	Watch   WatchConfig   `yaml:"watch,omitempty"`
	Serve   ServeConfig   `yaml:"serve,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`
	Events  EventsConfig  `yaml:"events,omitempty"`
}

// PageRule maps Markdown documents onto a layout template.
type PageRule struct {
	// Pattern selects the documents, anchored when it starts with "/".
	Pattern string `yaml:"pattern"`

	// Layout is the path of the html/template file rendering the page,
	// relative to the configuration file.
	Layout string `yaml:"layout"`

	// Flat writes foo.md to foo.html instead of foo/index.html.
	Flat bool `yaml:"flat,omitempty"`
}

// FeedConfig configures the generated Atom feed.
type FeedConfig struct {
	// Path of the feed below the output directory.
	Path string `yaml:"path,omitempty"`

	// Pattern selects the documents included in the feed.
	Pattern string `yaml:"pattern,omitempty"`

	// Limit caps the number of feed entries; 0 means no cap.
	Limit int `yaml:"limit,omitempty"`
}

// ArchiveConfig configures the generated archive listing, a single HTML
// page linking every matched document grouped by section.
type ArchiveConfig struct {
	// Path of the listing below the output directory.
	Path string `yaml:"path,omitempty"`

	// Pattern selects the documents listed.
	Pattern string `yaml:"pattern,omitempty"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	// Debounce is how long to wait after the last filesystem event before
	// rebuilding.
	Debounce Duration `yaml:"debounce,omitempty"`

	// Interval optionally schedules fixed-interval rebuilds in addition to
	// filesystem-triggered ones.
	Interval Duration `yaml:"interval,omitempty"`
}

// ServeConfig tunes serve mode.
type ServeConfig struct {
	// Addr is the host:port the file server listens on.
	Addr string `yaml:"addr,omitempty"`

	// Metrics exposes Prometheus metrics on /metrics.
	Metrics bool `yaml:"metrics,omitempty"`
}

// HistoryConfig configures the build history store.
type HistoryConfig struct {
	// Path of the SQLite database file.
	Path string `yaml:"path,omitempty"`

	// Disabled turns history recording off.
	Disabled bool `yaml:"disabled,omitempty"`
}

// EventsConfig configures build event publishing. Publishing is off unless a
// NATS URL is configured.
type EventsConfig struct {
	// URL of the NATS server, e.g. "nats://localhost:4222".
	URL string `yaml:"url,omitempty"`

	// Subject build events are published to.
	Subject string `yaml:"subject,omitempty"`
}

// Load reads the configuration file, applies environment overrides and
// defaults, and validates the result. A .env file in the working directory
// is loaded first so it can provide the WOBSITE_* overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvSource); v != "" {
		c.Source = v
	}
	if v := os.Getenv(EnvOutput); v != "" {
		c.Output = v
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		c.Events.URL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Source == "" {
		c.Source = "source"
	}
	if c.Output == "" {
		c.Output = "public"
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = Duration(500 * time.Millisecond)
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = ":8080"
	}
	if c.History.Path == "" {
		c.History.Path = ".wobsite/history.db"
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "wobsite.builds"
	}
	if c.Feed != nil {
		if c.Feed.Path == "" {
			c.Feed.Path = "feed.xml"
		}
		if c.Feed.Pattern == "" {
			c.Feed.Pattern = "*.md"
		}
	}
	if c.Archive != nil {
		if c.Archive.Path == "" {
			c.Archive.Path = "archive/index.html"
		}
		if c.Archive.Pattern == "" {
			c.Archive.Pattern = "*.md"
		}
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Title == "" {
		return errors.New("config: title must not be empty")
	}

	if info, err := os.Stat(c.Source); err != nil {
		return fmt.Errorf("config: source directory %s: %w", c.Source, err)
	} else if !info.IsDir() {
		return fmt.Errorf("config: source %s is not a directory", c.Source)
	}

	for i, rule := range c.Pages {
		if rule.Pattern == "" {
			return fmt.Errorf("config: pages[%d] has no pattern", i)
		}
		if rule.Layout == "" {
			return fmt.Errorf("config: pages[%d] has no layout", i)
		}
		if _, err := os.Stat(rule.Layout); err != nil {
			return fmt.Errorf("config: pages[%d] layout %s: %w", i, rule.Layout, err)
		}
	}

	if c.Feed != nil && c.BaseURL == "" {
		return errors.New("config: feed requires base_url")
	}

	return nil
}
