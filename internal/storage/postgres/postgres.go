// Package postgres implements the unified Store interface using PostgreSQL
// via GORM. The repositories defined here are shared with the SQLite backend,
// which operates on the same models through GORM's SQLite dialect.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jkaninda/notelens/internal/auth"
	"github.com/jkaninda/notelens/internal/credential"
	"github.com/jkaninda/notelens/internal/pipeline"
	"github.com/jkaninda/notelens/internal/storage"
)

// Config holds PostgreSQL-specific configuration.
type Config struct {
	DSN              string
	MaxOpenConns     int // Default: 25
	MaxIdleConns     int // Default: 5
	ConnMaxLifetimeS int // Default: 1800
}

// Store implements storage.Store backed by PostgreSQL.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger

	// Sub-store instances (created lazily on first access).
	mu          sync.Mutex
	credentials credential.Store
	users       auth.UserStore
	noteLogs    pipeline.LogStore
}

// Open creates a new PostgreSQL-backed Store.
func Open(cfg Config, slogger *slog.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         NewGormLogger(slogger),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnMaxLifetimeS
	if lifetime <= 0 {
		lifetime = 1800
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(time.Duration(lifetime) * time.Second)

	slogger.Info("postgres store opened", slog.Int("max_open_conns", maxOpen))
	return &Store{db: db, logger: slogger}, nil
}

// Migrate runs GORM AutoMigrate to create/update tables.
func (s *Store) Migrate(_ context.Context) error {
	return s.db.AutoMigrate(
		&CredentialModel{},
		&UserCredentialModel{},
		&UserModel{},
		&NoteLogModel{},
	)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Driver returns "postgres".
func (s *Store) Driver() string { return storage.DriverPostgres }

// GormDB returns the underlying GORM DB for sub-store construction.
func (s *Store) GormDB() *gorm.DB { return s.db }

func (s *Store) Credentials() credential.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credentials == nil {
		s.credentials = NewCredentialRepository(s.db)
	}
	return s.credentials
}

func (s *Store) Users() auth.UserStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = NewUserRepository(s.db)
	}
	return s.users
}

func (s *Store) NoteLogs() pipeline.LogStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.noteLogs == nil {
		s.noteLogs = NewNoteLogRepository(s.db)
	}
	return s.noteLogs
}

// NewGormLogger adapts slog for GORM's logger interface.
// Shared with the SQLite backend.
func NewGormLogger(slogger *slog.Logger) logger.Interface {
	return logger.New(
		slogAdapter{slogger},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// slogAdapter wraps *slog.Logger for GORM's logger.Writer interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (s slogAdapter) Printf(format string, args ...any) {
	s.logger.Info(fmt.Sprintf(format, args...))
}

// compile-time interface check
var _ storage.Store = (*Store)(nil)
