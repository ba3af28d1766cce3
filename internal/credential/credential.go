// Package credential manages stored external-service credentials: the
// registry of named service-account payloads, per-user assignments, and the
// resolver that picks one usable credential for a request.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors of the credential domain.
var (
	// ErrNotFound is returned when an operation references a credential
	// id that does not exist.
	ErrNotFound = errors.New("credential not found")

	// ErrNameTaken is returned when creating a credential whose name is
	// already in use.
	ErrNameTaken = errors.New("credential name already exists")

	// ErrNoCredential is returned by the resolver when no tier yields a
	// usable credential.
	ErrNoCredential = errors.New("no usable credential configured")
)

// ValidationError reports a credential payload that is not parseable
// structured data. Semantic validity against the remote service is only
// checked by Registry.Test, never implicitly.
type ValidationError struct {
	Cause error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid credential payload: %v", e.Cause)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// Credential is a named, stored external-service identity. Immutable after
// creation except for the Active flag.
type Credential struct {
	ID        int64
	Name      string
	Payload   json.RawMessage // Opaque secret material. Never echoed to non-admin callers.
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Assignment binds a user to exactly one credential.
type Assignment struct {
	UserID       int64
	CredentialID int64
}

// Store is the persistence interface for credentials and assignments.
// Implementations must guarantee:
//   - unique names (Create returns ErrNameTaken on conflict)
//   - SetActive(id, true) deactivates every other credential in the same
//     atomic unit
//   - Delete removes assignments referencing the credential before the
//     credential itself, as one unit
//   - Assign replaces any prior assignment for the user as one unit
type Store interface {
	Create(ctx context.Context, name string, payload json.RawMessage, active bool) (*Credential, error)
	GetByID(ctx context.Context, id int64) (*Credential, error)
	GetByName(ctx context.Context, name string) (*Credential, error)

	// List returns all credentials ordered active first, then newest first.
	List(ctx context.Context) ([]Credential, error)

	// FirstActive returns the active credential with the lowest id, or
	// ErrNotFound when none is active.
	FirstActive(ctx context.Context) (*Credential, error)

	// AssignedActive returns the credential assigned to the user, but only
	// when that credential is active. ErrNotFound otherwise.
	AssignedActive(ctx context.Context, userID int64) (*Credential, error)

	SetActive(ctx context.Context, id int64, active bool) (*Credential, error)

	// Delete reports whether a credential was removed. A missing id is not
	// an error.
	Delete(ctx context.Context, id int64) (bool, error)

	Assign(ctx context.Context, userID, credentialID int64) error

	Count(ctx context.Context) (int64, error)
}
