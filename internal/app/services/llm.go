package services

import (
	"context"
	"fmt"

	"github.com/deepsearchstack/deepsearch/internal/adapter/breaker"
	"github.com/deepsearchstack/deepsearch/internal/adapter/llm"
	"github.com/deepsearchstack/deepsearch/internal/adapter/llm/providers"
	"github.com/deepsearchstack/deepsearch/internal/config"
	"github.com/deepsearchstack/deepsearch/internal/logger"
	"github.com/deepsearchstack/deepsearch/pkg/eventbus"
)

// LLMService builds the LLM provider registry, the strategy router and the
// background health monitor. Keyed providers with no key configured never
// register; a missing key is a deployment choice, not an error.
type LLMService struct {
	config        *config.Config
	logger        logger.StyledLogger
	metricsSvc    *MetricsService
	breakers      *breaker.Set
	registry      *llm.Registry
	router        *llm.Router
	healthBus     *eventbus.EventBus[llm.HealthEvent]
	healthMonitor *llm.HealthMonitor
}

func NewLLMService(cfg *config.Config, logger logger.StyledLogger) *LLMService {
	return &LLMService{
		config: cfg,
		logger: logger,
	}
}

func (s *LLMService) Name() string {
	return "llm"
}

func (s *LLMService) SetMetricsService(metricsSvc *MetricsService) {
	s.metricsSvc = metricsSvc
}

func (s *LLMService) Start(ctx context.Context) error {
	if s.metricsSvc == nil {
		return fmt.Errorf("llm service requires the metrics service")
	}
	recorder := s.metricsSvc.Recorder()

	s.breakers = breaker.NewSet(breaker.Config{
		FailureThreshold: s.config.Breaker.FailureThreshold,
		RecoveryTimeout:  s.config.Breaker.RecoveryTimeout,
		HalfOpenMaxCalls: s.config.Breaker.HalfOpenMaxCalls,
	})
	s.registry = llm.NewRegistry(s.breakers, recorder)

	s.registerProviders()
	if len(s.registry.Names()) == 0 {
		s.logger.Warn("no LLM providers configured, synthesis will be unavailable")
	}

	s.router = llm.NewRouter(s.registry, s.breakers, recorder, s.logger)

	s.healthBus = eventbus.New[llm.HealthEvent]()
	s.healthMonitor = llm.NewHealthMonitor(s.registry, s.healthBus, s.logger, 0)
	s.healthMonitor.Start(ctx)

	return nil
}

func (s *LLMService) registerProviders() {
	cfg := s.config.LLM

	if cfg.Ollama.Enabled {
		s.registry.Register(providers.NewOllama(cfg.Ollama.BaseURL, cfg.Ollama.Model))
		s.logger.InfoWithProvider("LLM provider registered", "ollama")
	}
	if cfg.Gemini.Enabled && cfg.Gemini.APIKey != "" {
		s.registry.Register(providers.NewGemini(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.Model))
		s.logger.InfoWithProvider("LLM provider registered", "gemini")
	}
	if cfg.Groq.Enabled && cfg.Groq.APIKey != "" {
		s.registry.Register(providers.NewGroq(cfg.Groq.APIKey, cfg.Groq.BaseURL, cfg.Groq.Model))
		s.logger.InfoWithProvider("LLM provider registered", "groq")
	}
	if cfg.GitHubModels.Enabled && cfg.GitHubModels.APIKey != "" {
		s.registry.Register(providers.NewGitHubModels(cfg.GitHubModels.APIKey, cfg.GitHubModels.BaseURL, cfg.GitHubModels.Model))
		s.logger.InfoWithProvider("LLM provider registered", "github_models")
	}
}

func (s *LLMService) Stop(ctx context.Context) error {
	if s.healthMonitor != nil {
		s.healthMonitor.Stop()
	}
	if s.healthBus != nil {
		s.healthBus.Shutdown()
	}
	return nil
}

func (s *LLMService) Dependencies() []string {
	return []string{"metrics"}
}

func (s *LLMService) Registry() *llm.Registry {
	return s.registry
}

func (s *LLMService) Router() *llm.Router {
	return s.router
}

func (s *LLMService) Breakers() *breaker.Set {
	return s.breakers
}

// HealthEvents exposes the monitor's bus for subscribers such as nerd stats.
func (s *LLMService) HealthEvents() *eventbus.EventBus[llm.HealthEvent] {
	return s.healthBus
}
