// Package events publishes build lifecycle events to NATS. Publishing is
// best effort notification; a nil *Publisher drops every event, so callers
// can treat "no NATS configured" as an always-off instance.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yorickpeterse/wobsite/internal/metrics"
	"github.com/yorickpeterse/wobsite/internal/sitebuild"
)

// Event types, one per build lifecycle change.
const (
	TypeStarted   = "started"
	TypeCompleted = "completed"
	TypeFailed    = "failed"
)

// Event is the JSON payload published for each build lifecycle change.
type Event struct {
	Type      string                 `json:"type"`
	BuildID   string                 `json:"build_id"`
	Timestamp time.Time              `json:"timestamp"`
	Report    *sitebuild.BuildReport `json:"report,omitempty"`
}

// Publisher publishes build events on a single NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Connect connects to the NATS server at url. Events are published on
// subject.
func Connect(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("wobsite"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	slog.Info("connected to NATS for build events",
		slog.String("url", url), slog.String("subject", subject))

	return &Publisher{conn: conn, subject: subject}, nil
}

// BuildStarted publishes a started event for the given build.
func (p *Publisher) BuildStarted(buildID string) error {
	return p.publish(startedEvent(buildID))
}

// BuildFinished publishes a completed or failed event carrying the report,
// depending on the report's outcome.
func (p *Publisher) BuildFinished(report *sitebuild.BuildReport) error {
	return p.publish(finishedEvent(report))
}

func (p *Publisher) publish(event Event) error {
	if p == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	slog.Debug("published build event",
		slog.String("type", event.Type), slog.String("build_id", event.BuildID))

	return nil
}

// Close flushes pending events and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}

	_ = p.conn.Flush()
	p.conn.Close()
}

func startedEvent(buildID string) Event {
	return Event{Type: TypeStarted, BuildID: buildID, Timestamp: time.Now().UTC()}
}

func finishedEvent(report *sitebuild.BuildReport) Event {
	eventType := TypeCompleted
	if report.Outcome == metrics.OutcomeFailed {
		eventType = TypeFailed
	}

	return Event{
		Type:      eventType,
		BuildID:   report.ID,
		Timestamp: time.Now().UTC(),
		Report:    report,
	}
}
