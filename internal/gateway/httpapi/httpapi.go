// Package httpapi implements the HTTP API gateway for NoteLens.
//
// Security:
//   - Bearer token authentication on every /v1 request
//   - Request body size limits (default 32 MB, images included)
//   - Per-user rate limiting via token bucket
//   - All requests logged with correlation IDs
//   - TLS expected via reverse proxy (not handled here)
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/jkaninda/notelens/internal/auth"
	"github.com/jkaninda/notelens/internal/credential"
	"github.com/jkaninda/notelens/internal/pipeline"
	"github.com/jkaninda/notelens/internal/ratelimit"
	"github.com/jkaninda/okapi"
)

const defaultMaxRequestSize = 32 << 20 // 32 MB

// ErrorBody is the standard error response used in OpenAPI documentation.
type ErrorBody struct {
	Error string `json:"error"`
}

// Config configures the HTTP API gateway.
type Config struct {
	ListenAddr     string // e.g., ":3000"
	EnableDocs     bool
	MaxRequestSize int64 // Maximum request body in bytes. 0 = 32 MB default.

	// Observability
	MetricsRegistry *prometheus.Registry // Custom Prometheus registry for /metrics.
	MetricsPath     string               // Path for metrics endpoint. Default: "/metrics".
	Tracer          trace.Tracer         // OTel tracer for HTTP middleware.
	HTTPMiddleware  func(http.Handler) http.Handler
}

// Gateway is the HTTP API gateway.
type Gateway struct {
	config       Config
	users        auth.UserStore
	tokens       *auth.Manager
	registry     *credential.Registry
	resolver     *credential.Resolver
	orchestrator *pipeline.Orchestrator
	noteLogs     pipeline.LogStore // nil = submissions are not journaled
	limiter      *ratelimit.Limiter
	logger       *slog.Logger
	server       *http.Server
	okapi        *okapi.Okapi
	group        *okapi.Group
}

// NewGateway creates an HTTP API gateway.
func NewGateway(
	cfg Config,
	users auth.UserStore,
	tokens *auth.Manager,
	registry *credential.Registry,
	resolver *credential.Resolver,
	orchestrator *pipeline.Orchestrator,
	rl *ratelimit.Limiter,
	logger *slog.Logger,
) *Gateway {
	maxMem := cfg.MaxRequestSize
	if maxMem <= 0 {
		maxMem = defaultMaxRequestSize
	}
	return &Gateway{
		config:       cfg,
		users:        users,
		tokens:       tokens,
		registry:     registry,
		resolver:     resolver,
		orchestrator: orchestrator,
		limiter:      rl,
		logger:       logger,
		okapi:        okapi.New(okapi.WithMaxMultipartMemory(maxMem)),
	}
}

// WithNoteLogs enables the submission journal.
func (g *Gateway) WithNoteLogs(store pipeline.LogStore) *Gateway {
	g.noteLogs = store
	return g
}

func (g *Gateway) WithOpenAPIDocs() *Gateway {
	g.okapi.WithOpenAPIDocs(
		okapi.OpenAPI{
			Title:   "NoteLens",
			Version: "v0.0.1",
		},
	)
	return g
}

// Start launches the HTTP server and blocks until it exits or ctx is canceled.
func (g *Gateway) Start(ctx context.Context) error {
	if g.config.HTTPMiddleware != nil {
		g.okapi.UseMiddleware(g.config.HTTPMiddleware)
	}

	// Unauthenticated account endpoints.
	g.okapi.Post("/register", g.handleRegister,
		okapi.DocSummary("Register a new account"),
		okapi.DocTags("Auth"),
		okapi.DocRequestBody(RegisterRequest{}),
		okapi.DocResponse(http.StatusCreated, TokenResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.okapi.Post("/login", g.handleLogin,
		okapi.DocSummary("Exchange email and password for a token"),
		okapi.DocTags("Auth"),
		okapi.DocRequestBody(LoginRequest{}),
		okapi.DocResponse(TokenResponse{}),
		okapi.DocResponse(http.StatusUnauthorized, ErrorBody{}),
	)

	// Authenticated /v1 group.
	g.group = g.okapi.Group("/v1", g.authenticate)

	g.group.Post("/analyze", g.handleAnalyze,
		okapi.DocSummary("Analyze a note against one or more images"),
		okapi.DocTags("Analyze"),
		okapi.DocResponse(AnalyzeResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusUnauthorized, ErrorBody{}),
		okapi.DocResponse(http.StatusTooManyRequests, ErrorBody{}),
		okapi.DocResponse(http.StatusBadGateway, ErrorBody{}),
		okapi.DocResponse(http.StatusServiceUnavailable, ErrorBody{}),
	)
	g.group.Get("/healthz", g.handleHealth,
		okapi.DocSummary("Authenticated health check"),
		okapi.DocTags("Health"),
		okapi.DocResponse(HealthResponse{}),
	)

	// Credential administration.
	g.group.Post("/admin/credentials", g.handleCredentialAdd,
		okapi.DocSummary("Add a service credential"),
		okapi.DocTags("Credentials"),
		okapi.DocRequestBody(CredentialRequest{}),
		okapi.DocResponse(http.StatusCreated, CredentialResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
	)
	g.group.Get("/admin/credentials", g.handleCredentialList,
		okapi.DocSummary("List service credentials"),
		okapi.DocTags("Credentials"),
		okapi.DocResponse([]CredentialResponse{}),
	)
	g.group.Put("/admin/credentials/{id}/toggle", g.handleCredentialToggle,
		okapi.DocSummary("Activate or deactivate a credential"),
		okapi.DocTags("Credentials"),
		okapi.DocPathParam("id", "integer", "Credential ID"),
		okapi.DocRequestBody(ToggleRequest{}),
		okapi.DocResponse(CredentialResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Delete("/admin/credentials/{id}", g.handleCredentialDelete,
		okapi.DocSummary("Delete a credential and its assignments"),
		okapi.DocTags("Credentials"),
		okapi.DocPathParam("id", "integer", "Credential ID"),
		okapi.DocResponse(DeleteResponse{}),
	)
	g.group.Post("/admin/credentials/test", g.handleCredentialTest,
		okapi.DocSummary("Probe a credential payload against the live service"),
		okapi.DocTags("Credentials"),
		okapi.DocRequestBody(TestRequest{}),
		okapi.DocResponse(credential.TestResult{}),
	)
	g.group.Post("/admin/credentials/assign", g.handleCredentialAssign,
		okapi.DocSummary("Bind a credential to a user"),
		okapi.DocTags("Credentials"),
		okapi.DocRequestBody(AssignRequest{}),
		okapi.DocResponse(AssignResponse{}),
	)

	// Observability endpoints (unauthenticated).
	g.okapi.Get("/healthz", g.handleHealth)

	if g.config.MetricsRegistry != nil {
		path := g.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		g.okapi.HandleStd("GET", path, promhttp.HandlerFor(g.config.MetricsRegistry, promhttp.HandlerOpts{}).ServeHTTP)
	}
	if g.config.EnableDocs {
		g.WithOpenAPIDocs()
	}

	g.server = &http.Server{
		Addr:              g.config.ListenAddr,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g.logger.Info("http api gateway starting", slog.String("addr", g.config.ListenAddr))

	return g.okapi.StartServer(g.server)
}

// Stop gracefully shuts down the HTTP server.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	g.logger.Info("http api gateway stopping")
	return g.okapi.Shutdown(g.server)
}

// HealthResponse is the JSON response for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func (g *Gateway) handleHealth(c *okapi.Context) error {
	return c.OK(&HealthResponse{Status: "ok"})
}

// --- Authentication ---

// authenticate verifies the bearer token and stores the caller's identity
// on the request context.
func (g *Gateway) authenticate(next okapi.HandlerFunc) okapi.HandlerFunc {
	return func(c *okapi.Context) error {
		authHeader := c.Header("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.AbortUnauthorized("missing or invalid Authorization header")
		}

		claims, err := g.tokens.VerifyToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			return c.AbortUnauthorized("invalid token")
		}

		c.Set("userID", strconv.FormatInt(claims.UserID, 10))
		c.Set("spreadsheetID", claims.SpreadsheetID)
		return next(c)
	}
}

// callerID returns the authenticated user's numeric id, or 0 when absent.
func callerID(c *okapi.Context) int64 {
	id, _ := strconv.ParseInt(c.GetString("userID"), 10, 64)
	return id
}

func newCorrelationID() string {
	return uuid.NewString()
}
