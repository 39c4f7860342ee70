// Package server implements the serving side of the agent protocol: the
// discovery document, the JSON-RPC invoke endpoint with SSE streaming,
// and the health endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/weftworks/weft/pkg/a2a"
	"github.com/weftworks/weft/pkg/auth"
	"github.com/weftworks/weft/pkg/config"
	"github.com/weftworks/weft/pkg/observability"
	"github.com/weftworks/weft/pkg/workflow"
)

// ============================================================================
// SERVER
// ============================================================================

// Server exposes a workflow registry as a protocol-speaking agent.
type Server struct {
	cfg      config.ServerConfig
	agent    config.AgentConfig
	registry *workflow.Registry
	engine   workflow.Engine

	cardMu       sync.Mutex
	card         *a2a.AgentCard
	cardETag     string
	cardModified time.Time

	validator *auth.JWTValidator
	router    chi.Router
	httpSrv   *http.Server

	metricsEnabled bool
	metricsPath    string

	startTime time.Time
	version   string
}

// Option configures a Server.
type Option func(*Server)

// WithEngine overrides the execution engine. The default LocalEngine runs
// func-backed executables in-process.
func WithEngine(engine workflow.Engine) Option {
	return func(s *Server) { s.engine = engine }
}

// WithAuthValidator enables JWT validation on the invoke endpoint.
// Discovery and health stay public.
func WithAuthValidator(v *auth.JWTValidator) Option {
	return func(s *Server) { s.validator = v }
}

// WithMetrics exposes the Prometheus scrape endpoint at the given path.
func WithMetrics(path string) Option {
	return func(s *Server) {
		s.metricsEnabled = true
		s.metricsPath = path
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// New creates a Server. An initial agent card is derived from the
// registry up front; an empty registry is rejected because the card
// invariants require at least one capability. Discovery requests
// re-derive the card, so skills registered later are still advertised.
func New(cfg config.ServerConfig, agent config.AgentConfig, reg *workflow.Registry, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		agent:     agent,
		registry:  reg,
		engine:    workflow.NewLocalEngine(),
		startTime: time.Now(),
		version:   agent.Version,
	}
	for _, opt := range opts {
		opt(s)
	}

	card, err := BuildAgentCard(agent, cfg.BaseURL, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to build agent card: %w", err)
	}
	etag, err := card.ETag()
	if err != nil {
		return nil, fmt.Errorf("failed to compute card etag: %w", err)
	}
	s.card = card
	s.cardETag = etag
	s.cardModified = time.Now().UTC().Truncate(time.Second)

	s.router = s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(metricsMiddleware)

	r.Get("/.well-known/agent.json", s.handleAgentCard)
	r.Get("/health", s.handleHealth)

	// Handle registers for every method: wrong-method requests still reach
	// the handler so it can answer 405 with an Allow header.
	invoke := http.HandlerFunc(s.handleInvoke)
	if s.validator != nil {
		r.Handle("/invoke", s.validator.HTTPMiddleware(invoke))
	} else {
		r.Handle("/invoke", invoke)
	}

	if s.metricsEnabled {
		r.Handle(s.metricsPath, observability.Handler())
	}

	return r
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Card returns the most recently served agent card.
func (s *Server) Card() *a2a.AgentCard {
	s.cardMu.Lock()
	defer s.cardMu.Unlock()
	return s.card
}

// Start begins serving and blocks until the listener fails or Stop is
// called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpSrv = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: s.cfg.ReadTimeout,
		// WriteTimeout stays unset so SSE streams are not cut off.
	}

	slog.Info("Agent server listening",
		"addr", addr,
		"agent", s.agent.Name,
		"skills", len(s.card.Capabilities))

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	slog.Info("Shutting down agent server")
	return s.httpSrv.Shutdown(shutdownCtx)
}
