package credential

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type fakeProber struct {
	err      error
	payloads []json.RawMessage
}

func (p *fakeProber) Probe(_ context.Context, payload json.RawMessage) error {
	p.payloads = append(p.payloads, payload)
	return p.err
}

func TestAdd_StartsActive(t *testing.T) {
	r := NewRegistry(NewInMemoryStore(), nil, discardLogger())

	c, err := r.Add(context.Background(), "prod", []byte(`{"type":"service_account"}`))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !c.Active {
		t.Error("new credentials must start active")
	}
}

func TestAdd_RejectsInvalidPayload(t *testing.T) {
	r := NewRegistry(NewInMemoryStore(), nil, discardLogger())

	_, err := r.Add(context.Background(), "bad", []byte(`{not json`))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestAdd_RejectsEmptyName(t *testing.T) {
	r := NewRegistry(NewInMemoryStore(), nil, discardLogger())

	_, err := r.Add(context.Background(), "", []byte(`{}`))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestAdd_DuplicateName(t *testing.T) {
	r := NewRegistry(NewInMemoryStore(), nil, discardLogger())
	if _, err := r.Add(context.Background(), "prod", []byte(`{}`)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := r.Add(context.Background(), "prod", []byte(`{}`)); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}
}

func TestToggle_NotFound(t *testing.T) {
	r := NewRegistry(NewInMemoryStore(), nil, discardLogger())
	if _, err := r.Toggle(context.Background(), 42, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestToggle_ActivateIsExclusive(t *testing.T) {
	s := NewInMemoryStore()
	r := NewRegistry(s, nil, discardLogger())

	a, _ := r.Add(context.Background(), "a", []byte(`{}`))
	b, _ := r.Add(context.Background(), "b", []byte(`{}`))

	if _, err := r.Toggle(context.Background(), a.ID, true); err != nil {
		t.Fatalf("Toggle: %v", err)
	}

	other, _ := s.GetByID(context.Background(), b.ID)
	if other.Active {
		t.Error("toggling one credential active must deactivate the rest")
	}
}

func TestAssign_FailureIsSwallowed(t *testing.T) {
	r := NewRegistry(NewInMemoryStore(), nil, discardLogger())

	// Credential 42 does not exist; the error is logged, not returned.
	if r.Assign(context.Background(), 1, 42) {
		t.Error("expected Assign to report false for an unknown credential")
	}
}

func TestAssign_Success(t *testing.T) {
	s := NewInMemoryStore()
	r := NewRegistry(s, nil, discardLogger())
	c, _ := r.Add(context.Background(), "prod", []byte(`{}`))

	if !r.Assign(context.Background(), 1, c.ID) {
		t.Fatal("expected Assign to succeed")
	}

	got, err := s.AssignedActive(context.Background(), 1)
	if err != nil {
		t.Fatalf("AssignedActive: %v", err)
	}
	if got.ID != c.ID {
		t.Errorf("expected assignment to credential %d, got %d", c.ID, got.ID)
	}
}

func TestTest_InvalidPayload(t *testing.T) {
	r := NewRegistry(NewInMemoryStore(), &fakeProber{}, discardLogger())

	res := r.Test(context.Background(), []byte(`not json`))
	if res.Valid {
		t.Error("expected invalid payload to fail")
	}
	if res.Error == "" {
		t.Error("expected an error message")
	}
}

func TestTest_ProbeFailureNeverPropagates(t *testing.T) {
	prober := &fakeProber{err: errors.New("forbidden")}
	r := NewRegistry(NewInMemoryStore(), prober, discardLogger())

	res := r.Test(context.Background(), []byte(`{"type":"service_account"}`))
	if res.Valid {
		t.Error("expected probe failure to mark the payload invalid")
	}
	if res.Error != "forbidden" {
		t.Errorf("expected probe error message, got %q", res.Error)
	}
}

func TestTest_ProbeSuccess(t *testing.T) {
	prober := &fakeProber{}
	r := NewRegistry(NewInMemoryStore(), prober, discardLogger())

	res := r.Test(context.Background(), []byte(`{"type":"service_account"}`))
	if !res.Valid || res.Error != "" {
		t.Errorf("expected a clean result, got %+v", res)
	}
	if len(prober.payloads) != 1 {
		t.Errorf("expected exactly one probe call, got %d", len(prober.payloads))
	}
}

func TestTest_NoProberValidatesSyntaxOnly(t *testing.T) {
	r := NewRegistry(NewInMemoryStore(), nil, discardLogger())

	if res := r.Test(context.Background(), []byte(`{}`)); !res.Valid {
		t.Errorf("expected syntactically valid payload to pass, got %+v", res)
	}
}
