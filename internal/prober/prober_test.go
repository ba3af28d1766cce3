package prober

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jkaninda/notelens/internal/credential"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProbe struct {
	err   error
	calls int
}

func (p *fakeProbe) Probe(context.Context, json.RawMessage) error {
	p.calls++
	return p.err
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather error: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetValue() == label {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{name=%q} not found", name, label)
	return 0
}

func TestSweep_HealthyCredential(t *testing.T) {
	store := credential.NewInMemoryStore()
	if _, err := store.Create(context.Background(), "prod", json.RawMessage(`{}`), true); err != nil {
		t.Fatalf("Create: %v", err)
	}

	reg := prometheus.NewRegistry()
	probe := &fakeProbe{}
	p := New(store, probe, NewMetrics(reg), discardLogger(), time.Minute)

	p.sweep(context.Background())

	if probe.calls != 1 {
		t.Fatalf("expected one probe call, got %d", probe.calls)
	}
	if v := gaugeValue(t, reg, "notelens_prober_credential_healthy", "prod"); v != 1 {
		t.Errorf("expected healthy gauge 1, got %v", v)
	}
}

func TestSweep_FailingCredential(t *testing.T) {
	store := credential.NewInMemoryStore()
	if _, err := store.Create(context.Background(), "prod", json.RawMessage(`{}`), true); err != nil {
		t.Fatalf("Create: %v", err)
	}

	reg := prometheus.NewRegistry()
	p := New(store, &fakeProbe{err: errors.New("revoked")}, NewMetrics(reg), discardLogger(), time.Minute)

	p.sweep(context.Background())

	if v := gaugeValue(t, reg, "notelens_prober_credential_healthy", "prod"); v != 0 {
		t.Errorf("expected healthy gauge 0, got %v", v)
	}
}

func TestSweep_NoActiveCredential(t *testing.T) {
	probe := &fakeProbe{}
	p := New(credential.NewInMemoryStore(), probe, nil, discardLogger(), time.Minute)

	p.sweep(context.Background())

	if probe.calls != 0 {
		t.Errorf("expected no probe calls without an active credential, got %d", probe.calls)
	}
}
