package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jkaninda/notelens/internal/auth"
	"github.com/jkaninda/notelens/internal/config"
	"github.com/jkaninda/notelens/internal/credential"
	"github.com/jkaninda/notelens/internal/gateway/httpapi"
	"github.com/jkaninda/notelens/internal/gemini"
	"github.com/jkaninda/notelens/internal/googleauth"
	"github.com/jkaninda/notelens/internal/observability"
	"github.com/jkaninda/notelens/internal/pipeline"
	"github.com/jkaninda/notelens/internal/prober"
	"github.com/jkaninda/notelens/internal/ratelimit"
	"github.com/jkaninda/notelens/internal/storage"
	pgstore "github.com/jkaninda/notelens/internal/storage/postgres"
	sqlitestore "github.com/jkaninda/notelens/internal/storage/sqlite"
	goutils "github.com/jkaninda/go-utils"
)

var (
	serverConfigPath string
	serverPort       string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	RunE:  runServer,
}

func init() {
	// Register flags on both root and server so that
	// `notelens --config path` and `notelens server --config path` both work.
	for _, cmd := range []*cobra.Command{rootCmd, serverCmd} {
		cmd.Flags().StringVar(&serverConfigPath, "config", config.DefaultConfigPath(), "path to config file")
		cmd.Flags().StringVar(&serverPort, "port", "", "override HTTP listen address (e.g. :8080)")
	}
}

func runServer(_ *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(goutils.Env("NOTELENS_CONFIG", serverConfigPath))
	if err != nil {
		return err
	}

	// Apply CLI overrides.
	if serverPort != "" {
		cfg.Server.ListenAddr = serverPort
	}

	logger.Info("starting notelens server", slog.String("config", serverConfigPath))

	// Storage.
	store, err := initStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	if err := store.Migrate(context.Background()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Debug("storage initialized", slog.String("driver", store.Driver()))

	// Seed the environment credential so tier 2 can pick it up.
	if cfg.Google.ServiceAccountJSON != "" {
		if err := credential.SeedEnvironment(context.Background(), store.Credentials(), []byte(cfg.Google.ServiceAccountJSON), logger); err != nil {
			return fmt.Errorf("seeding environment credential: %w", err)
		}
	}

	// Observability.
	var (
		registry   = observability.NewRegistry()
		metricsOn  bool
		tracer     *observability.TracerSetup
		httpapiCfg = httpapi.Config{
			ListenAddr:     cfg.Server.ListenAddr,
			EnableDocs:     cfg.Server.EnableDocs,
			MaxRequestSize: cfg.Server.MaxRequestSize,
		}
	)
	if cfg.Observability != nil {
		if cfg.Observability.Metrics != nil && cfg.Observability.Metrics.Enabled {
			metricsOn = true
			httpapiCfg.MetricsRegistry = registry
			httpapiCfg.MetricsPath = cfg.Observability.Metrics.Path
			httpapiCfg.HTTPMiddleware = observability.NewMetricsCollector(registry).Middleware
		}
		tracer, err = observability.NewTracerSetup(cfg.Observability.Tracing)
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
		if tracer != nil {
			httpapiCfg.Tracer = tracer.Tracer()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tracer.Shutdown(shutdownCtx); err != nil {
					logger.Error("shutting down tracer", slog.String("error", err.Error()))
				}
			}()
		}
	}

	// External clients and credential machinery.
	factory := googleauth.NewFactory(cfg.Google.DriveFolder, logger)
	registryCreds := credential.NewRegistry(store.Credentials(), factory, logger)
	resolver := credential.NewResolver(store.Credentials(), factory, cfg.Google.ServiceAccountFile, logger)

	analyzer := gemini.NewClient(cfg.Google.GeminiAPIKey, cfg.Google.GeminiModel, logger)

	var pipelineOpts []pipeline.Option
	if metricsOn {
		pipelineOpts = append(pipelineOpts, pipeline.WithMetrics(pipeline.NewMetrics(registry)))
	}
	if tracer != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithTracer(tracer.Tracer()))
	}
	orchestrator := pipeline.New(analyzer, logger, pipelineOpts...)

	tokens := auth.NewManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLS)*time.Second)
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		BurstSize:         cfg.RateLimit.BurstSize,
	})

	gw := httpapi.NewGateway(
		httpapiCfg,
		store.Users(),
		tokens,
		registryCreds,
		resolver,
		orchestrator,
		limiter,
		logger,
	).WithNoteLogs(store.NoteLogs())

	// Signal-aware context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Credential prober (optional).
	if cfg.Prober != nil && cfg.Prober.Enabled {
		var proberMetrics *prober.Metrics
		if metricsOn {
			proberMetrics = prober.NewMetrics(registry)
		}
		p := prober.New(
			store.Credentials(),
			factory,
			proberMetrics,
			logger,
			time.Duration(cfg.Prober.IntervalS)*time.Second,
		)
		stopProber := p.Start(ctx)
		defer stopProber()
	}

	// Run the gateway until signal or server error.
	errs := make(chan error, 1)
	go func() {
		errs <- gw.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errs:
		if err != nil {
			logger.Error("gateway exited with error", slog.String("error", err.Error()))
		}
	}

	// Graceful shutdown with deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return gw.Stop(shutdownCtx)
}

// initStore creates the appropriate storage backend from config.
func initStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch driver := cfg.Storage.DriverName(); driver {
	case storage.DriverPostgres:
		return pgstore.Open(pgstore.Config{
			DSN:              cfg.Storage.Postgres.DSN,
			MaxOpenConns:     cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns:     cfg.Storage.Postgres.MaxIdleConns,
			ConnMaxLifetimeS: cfg.Storage.Postgres.ConnMaxLifetimeS,
		}, logger)
	case storage.DriverSQLite:
		return sqlitestore.Open(sqlitestore.Config{
			Path:        cfg.Storage.SQLite.Path,
			JournalMode: cfg.Storage.SQLite.JournalMode,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", driver)
	}
}
