// Package metrics records build telemetry.
//
// Recorder is the interface the build paths depend on. PrometheusRecorder
// exports the metrics over a registry for the serve mode to publish;
// NoopRecorder is for callers that do not care.
package metrics
