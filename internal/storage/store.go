// Package storage defines the unified Store interface that abstracts all
// persistence. Two backends are provided: SQLite (default, zero-config) and
// PostgreSQL (production/multi-tenant).
package storage

import (
	"context"

	"github.com/jkaninda/notelens/internal/auth"
	"github.com/jkaninda/notelens/internal/credential"
	"github.com/jkaninda/notelens/internal/pipeline"
)

// Store is the unified persistence interface. Sub-store accessors return
// domain-specific stores sharing the same underlying connection.
type Store interface {
	Credentials() credential.Store
	Users() auth.UserStore
	NoteLogs() pipeline.LogStore

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error

	// Driver returns the storage driver name ("sqlite" or "postgres").
	Driver() string
}

// Config holds storage configuration for driver selection.
type Config struct {
	Driver   string         `json:"driver" yaml:"driver"` // "sqlite" (default) or "postgres"
	SQLite   SQLiteConfig   `json:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `json:"postgres" yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	JournalMode string `json:"journal_mode" yaml:"journal_mode"` // "wal" (default), "delete", "truncate", etc.
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN              string `json:"dsn" yaml:"dsn"`
	MaxOpenConns     int    `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns     int    `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetimeS int    `json:"conn_max_lifetime_s" yaml:"conn_max_lifetime_s"`
}

// Driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DriverName returns the configured driver, defaulting to SQLite.
func (c Config) DriverName() string {
	if c.Driver != "" {
		return c.Driver
	}
	return DriverSQLite
}
