// Package metrics provides observability hooks for dev server sessions.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so nothing needs a nil check. When metrics are enabled the
// command wires a PrometheusRecorder and serves its registry with HTTPHandler.
package metrics
