package prober

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the credential prober.
type Metrics struct {
	Sweeps        prometheus.Counter
	SweepDuration prometheus.Histogram
	Healthy       *prometheus.GaugeVec
}

// NewMetrics creates and registers prober metrics.
// Returns nil if reg is nil.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		Sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "notelens",
			Subsystem: "prober",
			Name:      "sweeps_total",
			Help:      "Total credential probe sweeps executed.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "notelens",
			Subsystem: "prober",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of each credential probe sweep.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		Healthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "notelens",
			Subsystem: "prober",
			Name:      "credential_healthy",
			Help:      "1 when the named credential passed its last probe, 0 otherwise.",
		}, []string{"name"}),
	}

	reg.MustRegister(
		m.Sweeps,
		m.SweepDuration,
		m.Healthy,
	)

	return m
}
