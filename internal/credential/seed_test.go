package credential

import (
	"context"
	"errors"
	"testing"
)

func TestSeedEnvironment_Creates(t *testing.T) {
	s := NewInMemoryStore()

	if err := SeedEnvironment(context.Background(), s, []byte(`{"type":"service_account"}`), discardLogger()); err != nil {
		t.Fatalf("SeedEnvironment: %v", err)
	}

	c, err := s.GetByName(context.Background(), EnvironmentName)
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if !c.Active {
		t.Error("seeded credential must start active")
	}
}

func TestSeedEnvironment_EmptyPayloadIsNoop(t *testing.T) {
	s := NewInMemoryStore()

	if err := SeedEnvironment(context.Background(), s, nil, discardLogger()); err != nil {
		t.Fatalf("SeedEnvironment: %v", err)
	}
	if n, _ := s.Count(context.Background()); n != 0 {
		t.Errorf("expected empty store, got %d credentials", n)
	}
}

func TestSeedEnvironment_InvalidPayloadSkipped(t *testing.T) {
	s := NewInMemoryStore()

	if err := SeedEnvironment(context.Background(), s, []byte(`{broken`), discardLogger()); err != nil {
		t.Fatalf("SeedEnvironment: %v", err)
	}
	if _, err := s.GetByName(context.Background(), EnvironmentName); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected no seeded credential, got %v", err)
	}
}

func TestSeedEnvironment_Idempotent(t *testing.T) {
	s := NewInMemoryStore()

	for i := 0; i < 2; i++ {
		if err := SeedEnvironment(context.Background(), s, []byte(`{"a":1}`), discardLogger()); err != nil {
			t.Fatalf("SeedEnvironment (run %d): %v", i, err)
		}
	}
	if n, _ := s.Count(context.Background()); n != 1 {
		t.Errorf("expected 1 credential after repeated seeding, got %d", n)
	}
}

func TestSeedEnvironment_PreservesExisting(t *testing.T) {
	s := NewInMemoryStore()
	orig := mustCreate(t, s, EnvironmentName, false)

	if err := SeedEnvironment(context.Background(), s, []byte(`{"fresh":true}`), discardLogger()); err != nil {
		t.Fatalf("SeedEnvironment: %v", err)
	}

	got, _ := s.GetByID(context.Background(), orig.ID)
	if got.Active {
		t.Error("seeding must not reactivate an existing environment credential")
	}
	if string(got.Payload) != string(orig.Payload) {
		t.Error("seeding must not overwrite an existing payload")
	}
}
