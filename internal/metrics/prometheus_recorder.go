package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	sessionStarts     *prom.CounterVec
	sessionStops      prom.Counter
	startupDuration   prom.Histogram
	buildDuration     prom.Histogram
	buildOutcome      *prom.CounterVec
	reportErrors      prom.Gauge
	reportWarnings    prom.Gauge
	liveReloadClients prom.Gauge
	broadcasts        prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.sessionStarts = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildwatch",
			Name:      "session_starts_total",
			Help:      "Dev server session starts by outcome",
		}, []string{"outcome"})
		pr.sessionStops = prom.NewCounter(prom.CounterOpts{
			Namespace: "buildwatch",
			Name:      "session_stops_total",
			Help:      "Dev server sessions stopped",
		})
		pr.startupDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "buildwatch",
			Name:      "startup_duration_seconds",
			Help:      "Time from start request until the dev server is listening",
			Buckets:   prom.DefBuckets,
		})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "buildwatch",
			Name:      "build_duration_seconds",
			Help:      "Compiler run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildwatch",
			Name:      "build_outcomes_total",
			Help:      "Compiler runs by outcome",
		}, []string{"outcome"})
		pr.reportErrors = prom.NewGauge(prom.GaugeOpts{
			Namespace: "buildwatch",
			Name:      "report_errors",
			Help:      "Errors in the latest build report",
		})
		pr.reportWarnings = prom.NewGauge(prom.GaugeOpts{
			Namespace: "buildwatch",
			Name:      "report_warnings",
			Help:      "Warnings in the latest build report",
		})
		pr.liveReloadClients = prom.NewGauge(prom.GaugeOpts{
			Namespace: "buildwatch",
			Name:      "livereload_clients",
			Help:      "Connected live reload clients",
		})
		pr.broadcasts = prom.NewCounter(prom.CounterOpts{
			Namespace: "buildwatch",
			Name:      "livereload_broadcasts_total",
			Help:      "Live reload broadcasts sent",
		})
		reg.MustRegister(pr.sessionStarts, pr.sessionStops, pr.startupDuration, pr.buildDuration,
			pr.buildOutcome, pr.reportErrors, pr.reportWarnings, pr.liveReloadClients, pr.broadcasts)
	})
	return pr
}

func (p *PrometheusRecorder) IncSessionStart(outcome SessionOutcomeLabel) {
	if p == nil || p.sessionStarts == nil {
		return
	}
	p.sessionStarts.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncSessionStop() {
	if p == nil || p.sessionStops == nil {
		return
	}
	p.sessionStops.Inc()
}

func (p *PrometheusRecorder) ObserveStartupDuration(d time.Duration) {
	if p == nil || p.startupDuration == nil {
		return
	}
	p.startupDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetReportCounts(errors, warnings int) {
	if p == nil || p.reportErrors == nil {
		return
	}
	p.reportErrors.Set(float64(errors))
	p.reportWarnings.Set(float64(warnings))
}

func (p *PrometheusRecorder) SetLiveReloadClients(n int) {
	if p == nil || p.liveReloadClients == nil {
		return
	}
	p.liveReloadClients.Set(float64(n))
}

func (p *PrometheusRecorder) IncLiveReloadBroadcast() {
	if p == nil || p.broadcasts == nil {
		return
	}
	p.broadcasts.Inc()
}
