// Package config handles loading and validating NoteLens configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jkaninda/notelens/internal/storage"
)

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()
}

// Config is the root configuration for NoteLens.
type Config struct {
	Server        ServerConfig         `json:"server" yaml:"server"`
	Storage       *storage.Config      `json:"storage,omitempty" yaml:"storage,omitempty"` // nil = SQLite default
	Google        GoogleConfig         `json:"google" yaml:"google"`
	Auth          AuthConfig           `json:"auth" yaml:"auth"`
	RateLimit     RateLimitConfig      `json:"rate_limit" yaml:"rate_limit"`
	Observability *ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"` // nil = disabled
	Prober        *ProberConfig        `json:"prober,omitempty" yaml:"prober,omitempty"`               // nil = disabled
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	ListenAddr     string `json:"listen_addr" yaml:"listen_addr"`           // Default: ":3000"
	EnableDocs     bool   `json:"enable_docs" yaml:"enable_docs"`           // Serve OpenAPI docs.
	MaxRequestSize int64  `json:"max_request_size" yaml:"max_request_size"` // Bytes. 0 = 32 MB default.
}

// GoogleConfig configures Gemini and the Google service-account material.
type GoogleConfig struct {
	GeminiAPIKey string `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty"` // Override: GEMINI_API_KEY.
	GeminiModel  string `json:"gemini_model" yaml:"gemini_model"`                         // Default: gemini-1.5-pro.
	DriveFolder  string `json:"drive_folder" yaml:"drive_folder"`                         // Optional Drive folder ID. Override: DRIVE_FOLDER_ID.

	// ServiceAccountJSON seeds the "environment" credential at startup.
	// Override: GOOGLE_SERVICE_ACCOUNT_JSON.
	ServiceAccountJSON string `json:"service_account_json,omitempty" yaml:"service_account_json,omitempty"`

	// ServiceAccountFile is the file-based fallback credential path.
	// Default: "service-account.json".
	ServiceAccountFile string `json:"service_account_file" yaml:"service_account_file"`
}

// AuthConfig configures login-token issuance.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty"` // Override: JWT_SECRET.
	TokenTTLS int    `json:"token_ttl_s" yaml:"token_ttl_s"`                   // Default: 86400.
}

// RateLimitConfig configures per-user request limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"` // 0 = unlimited.
	BurstSize         int `json:"burst_size" yaml:"burst_size"`
}

// ObservabilityConfig configures metrics and tracing.
// When nil, all observability features are disabled with zero overhead.
type ObservabilityConfig struct {
	Metrics *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing *TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"` // Default: "/metrics"
}

// TracingConfig configures OpenTelemetry distributed tracing.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`         // OTLP endpoint, e.g. "localhost:4317"
	Protocol    string  `json:"protocol" yaml:"protocol"`         // "grpc" or "http". Default: "grpc"
	ServiceName string  `json:"service_name" yaml:"service_name"` // Default: "notelens"
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"`   // 0.0–1.0. Default: 1.0
	Insecure    bool    `json:"insecure" yaml:"insecure"`         // Skip TLS for dev
}

// ProberConfig configures the periodic credential probe.
type ProberConfig struct {
	Enabled   bool `json:"enabled" yaml:"enabled"`
	IntervalS int  `json:"interval_s" yaml:"interval_s"` // Default: 600.
}

// DefaultConfigPath returns the default config file path (~/.notelens/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "configs/notelens.yaml" // fallback for environments without a home dir
	}
	return filepath.Join(home, ".notelens", "config.yaml")
}

// Load reads a JSON or YAML config file and returns a validated Config.
// The format is detected by file extension: .yml/.yaml for YAML, everything
// else for JSON. Secrets can be set in the config file or overridden by
// environment variables; environment variables take precedence. A missing
// config file is not an error; defaults plus environment apply.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yml", ".yaml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing YAML config %s: %w", path, err)
			}
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing JSON config %s: %w", path, err)
			}
		}
	case os.IsNotExist(err):
		// Run on defaults + environment.
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	// Environment variables take precedence over config file values.
	if envKey := os.Getenv("GEMINI_API_KEY"); envKey != "" {
		cfg.Google.GeminiAPIKey = envKey
	}
	if envKey := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"); envKey != "" {
		cfg.Google.ServiceAccountJSON = envKey
	}
	if envKey := os.Getenv("DRIVE_FOLDER_ID"); envKey != "" {
		cfg.Google.DriveFolder = envKey
	}
	if envKey := os.Getenv("JWT_SECRET"); envKey != "" {
		cfg.Auth.JWTSecret = envKey
	}
	if envDSN := os.Getenv("NOTELENS_DB_DSN"); envDSN != "" {
		if cfg.Storage == nil {
			cfg.Storage = &storage.Config{}
		}
		cfg.Storage.Driver = storage.DriverPostgres
		cfg.Storage.Postgres.DSN = envDSN
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":3000"
	}
	if c.Google.GeminiModel == "" {
		c.Google.GeminiModel = "gemini-1.5-pro"
	}
	if c.Google.ServiceAccountFile == "" {
		c.Google.ServiceAccountFile = "service-account.json"
	}
	if c.Auth.TokenTTLS <= 0 {
		c.Auth.TokenTTLS = 86400
	}
	if c.Storage == nil {
		c.Storage = &storage.Config{}
	}
	if c.Storage.DriverName() == storage.DriverSQLite && c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = "notelens.sqlite"
	}
	if c.Prober != nil && c.Prober.IntervalS <= 0 {
		c.Prober.IntervalS = 600
	}
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (or JWT_SECRET) is required")
	}
	if c.Google.GeminiAPIKey == "" {
		return fmt.Errorf("google.gemini_api_key (or GEMINI_API_KEY) is required")
	}
	if c.Storage.DriverName() == storage.DriverPostgres && c.Storage.Postgres.DSN == "" {
		return fmt.Errorf("storage.postgres.dsn is required for the postgres driver")
	}
	return nil
}
