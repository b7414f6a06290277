package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	buildDuration prom.Histogram
	buildOutcomes *prom.CounterVec
	buildTriggers *prom.CounterVec
	indexedFiles  prom.Gauge
	jobFailures   prom.Counter
}

// NewPrometheusRecorder constructs and registers the build metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "wobsite",
			Name:      "build_duration_seconds",
			Help:      "Total duration of site builds",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wobsite",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		buildTriggers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wobsite",
			Name:      "build_triggers_total",
			Help:      "Builds by what started them",
		}, []string{"trigger"}),
		indexedFiles: prom.NewGauge(prom.GaugeOpts{
			Namespace: "wobsite",
			Name:      "indexed_files",
			Help:      "Number of files in the index of the last build",
		}),
		jobFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: "wobsite",
			Name:      "job_failures_total",
			Help:      "Total failed build jobs",
		}),
	}

	reg.MustRegister(pr.buildDuration, pr.buildOutcomes, pr.buildTriggers, pr.indexedFiles, pr.jobFailures)
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome Outcome) {
	if p == nil {
		return
	}
	p.buildOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncBuildTrigger(trigger Trigger) {
	if p == nil {
		return
	}
	p.buildTriggers.WithLabelValues(string(trigger)).Inc()
}

func (p *PrometheusRecorder) SetIndexedFiles(n int) {
	if p == nil {
		return
	}
	p.indexedFiles.Set(float64(n))
}

func (p *PrometheusRecorder) AddJobFailures(n int) {
	if p == nil {
		return
	}
	p.jobFailures.Add(float64(n))
}
