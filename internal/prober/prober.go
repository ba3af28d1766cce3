// Package prober periodically verifies that the credential the pipeline
// would resolve still authenticates against Google. A credential that was
// valid at add time can be revoked later; the prober surfaces that before
// a user hits it mid-upload.
package prober

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jkaninda/notelens/internal/credential"
)

// Prober runs a scheduled health sweep over the active credential.
type Prober struct {
	store    credential.Store
	probe    credential.Prober
	metrics  *Metrics
	logger   *slog.Logger
	interval time.Duration
	cron     *cron.Cron
}

// New creates a Prober. metrics may be nil.
func New(store credential.Store, probe credential.Prober, metrics *Metrics, logger *slog.Logger, interval time.Duration) *Prober {
	return &Prober{
		store:    store,
		probe:    probe,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
		cron:     cron.New(),
	}
}

// Start schedules the sweep and runs one immediately. Returns a stop
// function that waits for any in-flight sweep to finish.
func (p *Prober) Start(ctx context.Context) func() {
	p.cron.Schedule(cron.Every(p.interval), cron.FuncJob(func() {
		p.sweep(ctx)
	}))
	p.cron.Start()

	p.logger.InfoContext(ctx, "credential prober started",
		slog.String("interval", p.interval.String()),
	)

	go p.sweep(ctx)

	return func() {
		<-p.cron.Stop().Done()
		p.logger.Info("credential prober stopped")
	}
}

// sweep probes the credential the resolver would pick for an unassigned
// user. Assignment-specific credentials are exercised on their own
// requests; the shared active credential is the one worth watching.
func (p *Prober) sweep(ctx context.Context) {
	start := time.Now()

	cred, err := p.store.FirstActive(ctx)
	if err != nil {
		p.logger.DebugContext(ctx, "prober sweep skipped, no active credential")
		return
	}

	probeErr := p.probe.Probe(ctx, cred.Payload)

	if p.metrics != nil {
		p.metrics.Sweeps.Inc()
		p.metrics.SweepDuration.Observe(time.Since(start).Seconds())
		if probeErr != nil {
			p.metrics.Healthy.WithLabelValues(cred.Name).Set(0)
		} else {
			p.metrics.Healthy.WithLabelValues(cred.Name).Set(1)
		}
	}

	if probeErr != nil {
		p.logger.WarnContext(ctx, "active credential failed probe",
			slog.Int64("id", cred.ID),
			slog.String("name", cred.Name),
			slog.String("error", probeErr.Error()),
		)
		return
	}

	p.logger.DebugContext(ctx, "active credential probe ok",
		slog.Int64("id", cred.ID),
		slog.String("name", cred.Name),
	)
}
