// Package googleauth turns stored service-account JSON into authenticated
// Drive and Sheets clients. It is the concrete ClientFactory and Prober the
// credential resolver and registry are wired with.
package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2/google"

	"github.com/jkaninda/notelens/internal/credential"
	"github.com/jkaninda/notelens/internal/gdrive"
	"github.com/jkaninda/notelens/internal/gsheets"
	"github.com/jkaninda/notelens/internal/pipeline"
)

// OAuth scopes required by the pipeline.
const (
	ScopeSpreadsheets = "https://www.googleapis.com/auth/spreadsheets"
	ScopeDrive        = "https://www.googleapis.com/auth/drive"
)

// Factory builds Drive and Sheets clients from service-account JSON.
type Factory struct {
	folderID   string // Optional Drive destination folder.
	logger     *slog.Logger
	driveOpts  []gdrive.Option
	sheetsOpts []gsheets.Option
}

// Option configures the Factory.
type Option func(*Factory)

// WithDriveOptions forwards options to every Drive client built (tests).
func WithDriveOptions(opts ...gdrive.Option) Option {
	return func(f *Factory) { f.driveOpts = opts }
}

// WithSheetsOptions forwards options to every Sheets client built (tests).
func WithSheetsOptions(opts ...gsheets.Option) Option {
	return func(f *Factory) { f.sheetsOpts = opts }
}

// NewFactory creates a Factory.
func NewFactory(folderID string, logger *slog.Logger, opts ...Option) *Factory {
	f := &Factory{folderID: folderID, logger: logger}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Clients builds authenticated Drive and Sheets clients from the payload.
func (f *Factory) Clients(ctx context.Context, payload json.RawMessage) (pipeline.BlobStore, pipeline.RowAppender, error) {
	hc, err := f.authClient(ctx, payload)
	if err != nil {
		return nil, nil, err
	}
	drive := gdrive.NewClient(hc, f.folderID, f.logger, f.driveOpts...)
	sheets := gsheets.NewClient(hc, f.logger, f.sheetsOpts...)
	return drive, sheets, nil
}

// Probe verifies the payload authenticates by listing a single Drive file.
func (f *Factory) Probe(ctx context.Context, payload json.RawMessage) error {
	hc, err := f.authClient(ctx, payload)
	if err != nil {
		return err
	}
	return gdrive.NewClient(hc, f.folderID, f.logger, f.driveOpts...).List(ctx)
}

// authClient builds an HTTP client whose transport injects OAuth tokens
// minted from the service-account key.
func (f *Factory) authClient(ctx context.Context, payload json.RawMessage) (*http.Client, error) {
	cfg, err := google.JWTConfigFromJSON(payload, ScopeSpreadsheets, ScopeDrive)
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}
	return cfg.Client(ctx), nil
}

// compile-time interface checks
var (
	_ credential.ClientFactory = (*Factory)(nil)
	_ credential.Prober        = (*Factory)(nil)
)
