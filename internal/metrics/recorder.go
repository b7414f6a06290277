package metrics

import "time"

// Outcome labels a finished build.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// Trigger labels what started a build.
type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerWatch    Trigger = "watch"
	TriggerSchedule Trigger = "schedule"
)

// Recorder defines the observability hooks for site builds. Implementations
// may forward to Prometheus or anything else; the NoopRecorder is the
// default when metrics are not configured.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome Outcome)
	IncBuildTrigger(trigger Trigger)
	SetIndexedFiles(n int)
	AddJobFailures(n int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
func (NoopRecorder) IncBuildOutcome(Outcome)            {}
func (NoopRecorder) IncBuildTrigger(Trigger)            {}
func (NoopRecorder) SetIndexedFiles(int)                {}
func (NoopRecorder) AddJobFailures(int)                 {}
