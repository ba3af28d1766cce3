package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Prober performs a live, low-cost call against the external service to
// confirm a credential payload authenticates.
type Prober interface {
	Probe(ctx context.Context, payload json.RawMessage) error
}

// TestResult is the outcome of a credential probe. Probe failures are
// captured here, never propagated.
type TestResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Registry is the administrative surface over the credential Store.
// Callers are expected to be authenticated; the registry performs no role
// check beyond that.
type Registry struct {
	store  Store
	prober Prober
	logger *slog.Logger
}

// NewRegistry creates a Registry. prober may be nil, in which case Test
// only validates payload syntax.
func NewRegistry(store Store, prober Prober, logger *slog.Logger) *Registry {
	return &Registry{store: store, prober: prober, logger: logger}
}

// Add validates and persists a new credential. New credentials start active.
func (r *Registry) Add(ctx context.Context, name string, payload []byte) (*Credential, error) {
	if name == "" {
		return nil, &ValidationError{Cause: fmt.Errorf("name is required")}
	}
	if !json.Valid(payload) {
		return nil, &ValidationError{Cause: fmt.Errorf("payload is not valid JSON")}
	}

	c, err := r.store.Create(ctx, name, payload, true)
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "credential added",
		slog.Int64("id", c.ID),
		slog.String("name", c.Name),
	)
	return c, nil
}

// List returns all credentials, active first, then newest first.
func (r *Registry) List(ctx context.Context) ([]Credential, error) {
	return r.store.List(ctx)
}

// Toggle sets a credential's active flag. Activating a credential
// deactivates every other one in the same atomic unit, keeping at most one
// credential active.
func (r *Registry) Toggle(ctx context.Context, id int64, active bool) (*Credential, error) {
	c, err := r.store.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "credential toggled",
		slog.Int64("id", c.ID),
		slog.String("name", c.Name),
		slog.Bool("active", c.Active),
	)
	return c, nil
}

// Delete removes a credential and every assignment referencing it.
// Reports false, not an error, when the id is absent.
func (r *Registry) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := r.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		r.logger.InfoContext(ctx, "credential deleted", slog.Int64("id", id))
	}
	return deleted, nil
}

// Assign binds a credential to a user, replacing any prior assignment.
// Store failures are logged and reported as false, never propagated.
func (r *Registry) Assign(ctx context.Context, userID, credentialID int64) bool {
	if err := r.store.Assign(ctx, userID, credentialID); err != nil {
		r.logger.ErrorContext(ctx, "credential assignment failed",
			slog.Int64("user_id", userID),
			slog.Int64("credential_id", credentialID),
			slog.String("error", err.Error()),
		)
		return false
	}

	r.logger.InfoContext(ctx, "credential assigned",
		slog.Int64("user_id", userID),
		slog.Int64("credential_id", credentialID),
	)
	return true
}

// Test checks a payload syntactically and, when a prober is configured,
// against the live external service. Never returns an error.
func (r *Registry) Test(ctx context.Context, payload []byte) TestResult {
	if !json.Valid(payload) {
		return TestResult{Valid: false, Error: "payload is not valid JSON"}
	}
	if r.prober == nil {
		return TestResult{Valid: true}
	}
	if err := r.prober.Probe(ctx, payload); err != nil {
		return TestResult{Valid: false, Error: err.Error()}
	}
	return TestResult{Valid: true}
}
