package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/deepsearchstack/deepsearch/internal/adapter/breaker"
	"github.com/deepsearchstack/deepsearch/internal/adapter/metrics"
	"github.com/deepsearchstack/deepsearch/internal/config"
	"github.com/deepsearchstack/deepsearch/internal/core/constants"
	"github.com/deepsearchstack/deepsearch/internal/core/ports"
	"github.com/deepsearchstack/deepsearch/internal/logger"
	"github.com/deepsearchstack/deepsearch/internal/router"
	"github.com/deepsearchstack/deepsearch/internal/version"
)

// Application owns the HTTP surface. Collaborators are injected as ports so
// handlers never reach into adapter internals.
type Application struct {
	cfg    *config.Config
	logger logger.StyledLogger
	routes *router.RouteRegistry

	engine         ports.DeepSearchService
	search         ports.SearchService
	searchRegistry ports.SearchRegistry
	llmRouter      ports.LLMRouter
	llmRegistry    ports.LLMRegistry
	sessions       ports.SessionStore
	limiter        ports.RateLimiter
	metrics        ports.MetricsRecorder
	breakers       *breaker.Set
	promBridge     *metrics.PrometheusBridge

	startTime time.Time
}

// Dependencies carries everything main wires before the server starts.
// Sessions may be nil when storage is disabled; PromBridge may be nil when
// the prometheus endpoint is turned off.
type Dependencies struct {
	Engine         ports.DeepSearchService
	Search         ports.SearchService
	SearchRegistry ports.SearchRegistry
	LLMRouter      ports.LLMRouter
	LLMRegistry    ports.LLMRegistry
	Sessions       ports.SessionStore
	Limiter        ports.RateLimiter
	Metrics        ports.MetricsRecorder
	Breakers       *breaker.Set
	PromBridge     *metrics.PrometheusBridge
}

func New(cfg *config.Config, log logger.StyledLogger, deps Dependencies) *Application {
	app := &Application{
		cfg:            cfg,
		logger:         log,
		routes:         router.NewRouteRegistry(log),
		engine:         deps.Engine,
		search:         deps.Search,
		searchRegistry: deps.SearchRegistry,
		llmRouter:      deps.LLMRouter,
		llmRegistry:    deps.LLMRegistry,
		sessions:       deps.Sessions,
		limiter:        deps.Limiter,
		metrics:        deps.Metrics,
		breakers:       deps.Breakers,
		promBridge:     deps.PromBridge,
		startTime:      time.Now(),
	}
	app.registerRoutes()
	return app
}

func (a *Application) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Debug("failed to encode response", "error", err)
	}
}

func (a *Application) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]string{"error": message})
}

func (a *Application) writeRateLimited(w http.ResponseWriter, decision ports.RateLimitDecision) {
	retryAfter := int(decision.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set(constants.HeaderRateLimitLimit, strconv.Itoa(decision.Limit))
	w.Header().Set(constants.HeaderRateLimitRemaining, strconv.Itoa(decision.Remaining))
	if !decision.ResetTime.IsZero() {
		w.Header().Set(constants.HeaderRateLimitReset, strconv.FormatInt(decision.ResetTime.Unix(), 10))
	}
	w.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(retryAfter))
	a.writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate limit exceeded",
		"scope":       decision.Scope,
		"retry_after": retryAfter,
	})
}

func (a *Application) uptime() float64 {
	return time.Since(a.startTime).Seconds()
}

func (a *Application) serviceVersion() string {
	return version.Version
}
