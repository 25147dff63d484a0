package services

import (
	"context"
	"fmt"
	"time"

	"github.com/deepsearchstack/deepsearch/internal/adapter/ratelimit"
	"github.com/deepsearchstack/deepsearch/internal/app/handlers"
	"github.com/deepsearchstack/deepsearch/internal/config"
	"github.com/deepsearchstack/deepsearch/internal/logger"
)

// HTTPService owns the HTTP server lifecycle. It starts last: by the time
// the listener accepts a request every collaborator is already up.
type HTTPService struct {
	config *config.Config
	logger logger.StyledLogger

	metricsSvc  *MetricsService
	sessionsSvc *SessionService
	llmSvc      *LLMService
	pipelineSvc *PipelineService

	limiter     *ratelimit.Limiter
	application *handlers.Application
	server      *handlers.Server
}

func NewHTTPService(cfg *config.Config, logger logger.StyledLogger) *HTTPService {
	return &HTTPService{
		config: cfg,
		logger: logger,
	}
}

func (s *HTTPService) Name() string {
	return "http"
}

func (s *HTTPService) SetDependencies(metrics *MetricsService, sessions *SessionService, llm *LLMService, pipeline *PipelineService) {
	s.metricsSvc = metrics
	s.sessionsSvc = sessions
	s.llmSvc = llm
	s.pipelineSvc = pipeline
}

func (s *HTTPService) Start(ctx context.Context) error {
	if s.metricsSvc == nil || s.sessionsSvc == nil || s.llmSvc == nil || s.pipelineSvc == nil {
		return fmt.Errorf("http service requires metrics, sessions, llm and pipeline services")
	}

	s.limiter = ratelimit.NewLimiter(ratelimit.Config{
		Tiers:             limiterTiers(s.config.RateLimits.Tiers),
		GlobalPerSecond:   s.config.RateLimits.GlobalPerSecond,
		GlobalPerMinute:   s.config.RateLimits.GlobalPerMinute,
		ProviderPerSecond: s.config.RateLimits.ProviderPerSecond,
		ProviderPerMinute: s.config.RateLimits.ProviderPerMinute,
	})

	s.application = handlers.New(s.config, s.logger, handlers.Dependencies{
		Engine:         s.pipelineSvc.Engine(),
		Search:         s.pipelineSvc.SearchService(),
		SearchRegistry: s.pipelineSvc.SearchRegistry(),
		LLMRouter:      s.llmSvc.Router(),
		LLMRegistry:    s.llmSvc.Registry(),
		Sessions:       s.sessionsSvc.Store(),
		Limiter:        s.limiter,
		Metrics:        s.metricsSvc.Recorder(),
		Breakers:       s.llmSvc.Breakers(),
		PromBridge:     s.metricsSvc.Bridge(),
	})
	s.server = handlers.NewServer(s.application)

	go func() {
		if err := s.server.Start(); err != nil {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	// Brief pause ensures the listener is established before returning.
	time.Sleep(100 * time.Millisecond)

	s.logger.Info("DeepSearch started, waiting for requests...", "bind", s.config.Server.GetAddress())
	return nil
}

func (s *HTTPService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server...")
	defer s.logger.InfoWithStatus("Stopping HTTP server", "OK")

	if s.limiter != nil {
		defer s.limiter.Stop()
	}
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *HTTPService) Dependencies() []string {
	return []string{"metrics", "sessions", "llm", "pipeline"}
}

func limiterTiers(tiers map[string]config.TierConfig) map[string]ratelimit.TierConfig {
	if len(tiers) == 0 {
		return nil
	}
	out := make(map[string]ratelimit.TierConfig, len(tiers))
	for name, tier := range tiers {
		out[name] = ratelimit.TierConfig{Capacity: tier.Capacity, RefillRate: tier.RefillRate}
	}
	return out
}
