package sitebuild

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yorickpeterse/wobsite"
	"github.com/yorickpeterse/wobsite/internal/metrics"
)

// BuildReport captures what happened during one site build.
type BuildReport struct {
	ID       string          `json:"id"`
	Trigger  metrics.Trigger `json:"trigger"`
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Files    int             `json:"files"`
	Jobs     int             `json:"jobs"`
	Failures int             `json:"failures"`
	Outcome  metrics.Outcome `json:"outcome"`
	Errors   []string        `json:"errors,omitempty"`
}

// NewBuildReport starts a report for a build started by trigger.
func NewBuildReport(trigger metrics.Trigger) *BuildReport {
	return &BuildReport{
		ID:      uuid.NewString(),
		Trigger: trigger,
		Start:   time.Now().UTC(),
	}
}

// Finish closes the report and derives its outcome from buildErr. A
// wobsite.Errors aggregate contributes one entry per failed job; any other
// error contributes a single entry.
func (r *BuildReport) Finish(buildErr error) {
	r.End = time.Now().UTC()

	if buildErr == nil {
		r.Outcome = metrics.OutcomeSuccess
		return
	}

	r.Outcome = metrics.OutcomeFailed

	var errs wobsite.Errors
	if errors.As(buildErr, &errs) {
		r.Failures = len(errs)
		for _, e := range errs {
			r.Errors = append(r.Errors, fmt.Sprintf("%s: %s", e.Path, e.Message))
		}
		return
	}

	r.Failures = 1
	r.Errors = []string{buildErr.Error()}
}

// Duration returns how long the build ran.
func (r *BuildReport) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	return fmt.Sprintf("id=%s trigger=%s files=%d jobs=%d failed=%d duration=%s outcome=%s",
		r.ID, r.Trigger, r.Files, r.Jobs, r.Failures,
		r.Duration().Truncate(time.Millisecond), r.Outcome)
}
