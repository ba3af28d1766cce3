package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jkaninda/notelens/internal/pipeline"
)

// Source names the resolution tier that produced a ResolvedIdentity.
type Source string

const (
	SourceAssigned Source = "assigned" // user-specific active credential
	SourceActive   Source = "active"   // lowest-id active credential
	SourceFile     Source = "file"     // file-based fallback
)

// ClientFactory builds ready-to-use service clients from raw credential
// material. Implementations wrap whatever SDK talks to the remote services;
// the resolver never inspects the payload itself.
type ClientFactory interface {
	Clients(ctx context.Context, payload json.RawMessage) (pipeline.BlobStore, pipeline.RowAppender, error)
}

// ResolvedIdentity bundles the clients built for one request together with
// the credential that produced them. Never persisted; lives for the duration
// of one pipeline run. Credential is nil for the file-based fallback.
type ResolvedIdentity struct {
	Credential *Credential
	Source     Source
	Blobs      pipeline.BlobStore
	Sheets     pipeline.RowAppender
}

// Resolver deterministically picks one usable credential for an optional
// user identity. Read-only: it never mutates the store.
type Resolver struct {
	store    Store
	factory  ClientFactory
	filePath string // file-based fallback; empty disables the tier
	logger   *slog.Logger
}

// NewResolver creates a Resolver. filePath is the well-known local path of
// the file-based fallback credential; pass "" to disable that tier.
func NewResolver(store Store, factory ClientFactory, filePath string, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, factory: factory, filePath: filePath, logger: logger}
}

// Resolve walks the fallback chain and returns the first usable identity:
//
//  1. the user's assigned credential, if active
//  2. the active credential with the lowest id
//  3. the file-based fallback, only when the store holds no credentials at all
//
// The environment-seeded credential participates via tier 2 once seeded at
// startup. Fails with ErrNoCredential when no tier matches.
func (r *Resolver) Resolve(ctx context.Context, userID *int64) (*ResolvedIdentity, error) {
	if userID != nil {
		c, err := r.store.AssignedActive(ctx, *userID)
		switch {
		case err == nil:
			return r.identity(ctx, c, SourceAssigned)
		case !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("looking up assigned credential: %w", err)
		}
	}

	c, err := r.store.FirstActive(ctx)
	switch {
	case err == nil:
		return r.identity(ctx, c, SourceActive)
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("looking up active credential: %w", err)
	}

	return r.fromFile(ctx)
}

func (r *Resolver) identity(ctx context.Context, c *Credential, source Source) (*ResolvedIdentity, error) {
	blobs, sheets, err := r.factory.Clients(ctx, c.Payload)
	if err != nil {
		return nil, fmt.Errorf("building clients for credential %q: %w", c.Name, err)
	}

	r.logger.DebugContext(ctx, "credential resolved",
		slog.String("source", string(source)),
		slog.String("name", c.Name),
	)
	return &ResolvedIdentity{Credential: c, Source: source, Blobs: blobs, Sheets: sheets}, nil
}

// fromFile is the last tier: a credential file at a well-known path, used
// only when the store is completely empty.
func (r *Resolver) fromFile(ctx context.Context) (*ResolvedIdentity, error) {
	n, err := r.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting credentials: %w", err)
	}
	if n > 0 || r.filePath == "" {
		return nil, ErrNoCredential
	}

	payload, err := os.ReadFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrNoCredential, r.filePath, err)
	}

	blobs, sheets, err := r.factory.Clients(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("building clients from %s: %w", r.filePath, err)
	}

	r.logger.DebugContext(ctx, "credential resolved", slog.String("source", string(SourceFile)))
	return &ResolvedIdentity{Source: SourceFile, Blobs: blobs, Sheets: sheets}, nil
}
