package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus instrumentation for pipeline runs.
type Metrics struct {
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	stageDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notelens_pipeline_runs_total",
			Help: "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "notelens_pipeline_run_duration_seconds",
			Help:    "End-to-end duration of successful pipeline runs.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notelens_pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"stage"}),
	}
	reg.MustRegister(m.runs, m.runDuration, m.stageDuration)
	return m
}

func (m *Metrics) observeRun(outcome string, d time.Duration) {
	m.runs.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		m.runDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) observeStage(stage Stage, d time.Duration) {
	m.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}
