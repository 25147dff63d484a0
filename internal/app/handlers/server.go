package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/deepsearchstack/deepsearch/internal/app/middleware"
	"github.com/deepsearchstack/deepsearch/internal/router"
	"github.com/deepsearchstack/deepsearch/internal/util"
)

func (a *Application) registerRoutes() {
	r := a.routes

	r.RegisterStreaming("POST /deepsearch", a.handleDeepSearch, "Full pipeline, streamed over SSE", http.MethodPost)
	r.RegisterWithMethod("POST /deepsearch/quick", a.handleQuickSearch, "Full pipeline, single JSON response", http.MethodPost)
	r.RegisterWithMethod("POST /search", a.handleSearch, "Search fan-out only", http.MethodPost)
	r.RegisterStreaming("POST /completion", a.handleCompletion, "Routed LLM completion", http.MethodPost)
	r.RegisterStreaming("POST /v1/chat/completions", a.handleCompletion, "Routed LLM completion (OpenAI-style path)", http.MethodPost)

	r.RegisterWithMethod("POST /sessions", a.handleSessionCreate, "Create a session", http.MethodPost)
	r.Register("GET /sessions", a.handleSessionList, "List sessions")
	r.Register("GET /sessions/{id}", a.handleSessionGet, "Fetch a session")
	r.RegisterWithMethod("DELETE /sessions/{id}", a.handleSessionDelete, "Delete a session", http.MethodDelete)

	r.Register("GET /providers", a.handleProviders, "Search and LLM provider status")
	r.Register("GET /health", a.handleHealth, "Service health")
	r.Register("GET /version", a.handleVersion, "Build metadata")
	r.Register("GET /config", a.handleConfig, "Running configuration (redacted)")
	r.Register("GET /metrics", a.handleMetrics, "Rolling request statistics")
	r.Register("GET /metrics/prometheus", a.handlePrometheus, "Prometheus exposition")
	r.Register("GET /admin/breakers", a.handleBreakerStats, "Circuit breaker snapshots")
	r.RegisterWithMethod("POST /admin/breakers/reset", a.handleBreakerReset, "Reset circuit breakers", http.MethodPost)
	r.Register("GET /admin/providers/{name}/circuit-breaker", a.handleProviderBreaker, "Single breaker snapshot")
	r.RegisterWithMethod("POST /admin/providers/{name}/circuit-breaker/reset", a.handleProviderBreakerReset, "Reset a single breaker", http.MethodPost)
	r.Register("GET /", a.handleRoot, "Service info")
}

// Handler builds the full middleware-wrapped mux. Streaming routes skip the
// request size limiter so nothing buffers in front of SSE responses.
func (a *Application) Handler() http.Handler {
	trustedCIDRs, err := util.ParseTrustedCIDRs(a.cfg.Server.TrustedProxyCIDRs)
	if err != nil {
		a.logger.Warn("ignoring invalid trusted_proxy_cidrs", "error", err)
		trustedCIDRs = nil
	}

	tracking := middleware.RequestTracking(a.logger, trustedCIDRs)
	rateLimit := middleware.RateLimit(a.limiter, a.metrics, a.logger)
	sizeLimiter := middleware.NewRequestSizeLimiter(a.cfg.Server.MaxBodySize, a.cfg.Server.MaxHeaderSize, a.logger)

	common := []router.Middleware{tracking, rateLimit, sizeLimiter.Middleware}
	streaming := []router.Middleware{tracking, rateLimit}

	mux := http.NewServeMux()
	a.routes.WireUpWithMiddleware(mux, common, streaming)
	return mux
}

// Server wraps http.Server with config-driven timeouts and clean shutdown.
type Server struct {
	app    *Application
	server *http.Server
}

func NewServer(app *Application) *Server {
	return &Server{
		app: app,
		server: &http.Server{
			Addr:         app.cfg.Server.GetAddress(),
			Handler:      app.Handler(),
			ReadTimeout:  app.cfg.Server.ReadTimeout,
			WriteTimeout: app.cfg.Server.WriteTimeout,
			IdleTimeout:  app.cfg.Server.IdleTimeout,
		},
	}
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.app.logger.InfoWithEndpoint("server listening", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.app.cfg.Server.ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
