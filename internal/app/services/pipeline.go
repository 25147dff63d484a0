package services

import (
	"context"
	"fmt"

	"github.com/deepsearchstack/deepsearch/internal/adapter/engine"
	"github.com/deepsearchstack/deepsearch/internal/adapter/scraper"
	"github.com/deepsearchstack/deepsearch/internal/adapter/search"
	"github.com/deepsearchstack/deepsearch/internal/adapter/search/providers"
	"github.com/deepsearchstack/deepsearch/internal/adapter/vectorstore"
	"github.com/deepsearchstack/deepsearch/internal/config"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
	"github.com/deepsearchstack/deepsearch/internal/core/ports"
	"github.com/deepsearchstack/deepsearch/internal/logger"
)

// PipelineService assembles the deepsearch pipeline: search fan-out,
// scraper, vector store and the engine that drives them. Breakers are shared
// with the LLM service so one admin surface covers every back-end.
type PipelineService struct {
	config *config.Config
	logger logger.StyledLogger

	metricsSvc *MetricsService
	llmSvc     *LLMService

	searchRegistry *search.Registry
	searchService  *search.Service
	scraperClient  *scraper.Client
	vectorStore    ports.VectorStore
	engine         *engine.Engine
}

func NewPipelineService(cfg *config.Config, logger logger.StyledLogger) *PipelineService {
	return &PipelineService{
		config: cfg,
		logger: logger,
	}
}

func (s *PipelineService) Name() string {
	return "pipeline"
}

func (s *PipelineService) SetDependencies(metricsSvc *MetricsService, llmSvc *LLMService) {
	s.metricsSvc = metricsSvc
	s.llmSvc = llmSvc
}

func (s *PipelineService) Start(ctx context.Context) error {
	if s.metricsSvc == nil || s.llmSvc == nil {
		return fmt.Errorf("pipeline service requires the metrics and llm services")
	}

	s.searchRegistry = search.NewRegistry()
	s.registerSearchProviders()
	if len(s.searchRegistry.Names()) == 0 {
		return fmt.Errorf("no search providers enabled")
	}

	s.searchService = search.NewService(s.searchRegistry, s.llmSvc.Breakers(), s.metricsSvc.Recorder(), s.logger)

	s.scraperClient = scraper.New(scraper.Config{
		CrawlerURL:         s.config.Scraping.CrawlerURL,
		ExtractionStrategy: s.config.Scraping.ExtractionStrategy,
		Timeout:            s.config.Scraping.Timeout,
		Concurrency:        int64(s.config.Scraping.Concurrency),
		MinContentLength:   s.config.Scraping.MinContentLength,
	}, s.logger)

	s.vectorStore = s.buildVectorStore()

	engineCfg := engine.DefaultConfig()
	engineCfg.DefaultProviders = searchProviderNames(s.config.Search.DefaultProviders)
	engineCfg.MaxResults = s.config.Search.MaxResults
	engineCfg.ScrapingEnabled = s.config.Scraping.Enabled
	engineCfg.MaxScrapeURLs = s.config.Scraping.MaxScrapeURLs
	engineCfg.RAGEnabled = s.config.RAG.Enabled
	engineCfg.StoreScrapedContent = s.config.RAG.StoreScrapedContent
	engineCfg.ChunkSize = s.config.RAG.ChunkSize
	engineCfg.ChunkOverlap = s.config.RAG.ChunkOverlap
	engineCfg.TopK = s.config.RAG.TopK
	engineCfg.DefaultLLMProvider = s.config.Synthesis.DefaultProvider
	engineCfg.SystemPrompt = s.config.Synthesis.SystemPrompt
	engineCfg.Temperature = s.config.Synthesis.Temperature
	engineCfg.SynthesisTimeout = s.config.Synthesis.Timeout
	engineCfg.CacheEnabled = s.config.Cache.Enabled
	engineCfg.CacheTTL = s.config.Cache.TTL

	s.engine = engine.New(engineCfg, s.searchService, s.scraperClient, s.vectorStore, s.llmSvc.Router(), s.metricsSvc.Recorder(), s.logger)

	return nil
}

func (s *PipelineService) registerSearchProviders() {
	for name, cfg := range s.config.Search.Providers {
		if !cfg.Enabled {
			continue
		}
		pcfg := providers.Config{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, CX: cfg.CX}

		var adapter ports.SearchAdapter
		switch domain.SearchProvider(name) {
		case domain.SearchProviderWhoogle:
			adapter = providers.NewWhoogle(pcfg)
		case domain.SearchProviderSearXNG:
			adapter = providers.NewSearXNG(pcfg)
		case domain.SearchProviderYaCy:
			adapter = providers.NewYaCy(pcfg)
		case domain.SearchProviderWikipedia:
			adapter = providers.NewWikipedia(pcfg)
		case domain.SearchProviderDuckDuckGo:
			adapter = providers.NewDuckDuckGo(pcfg)
		case domain.SearchProviderStackExchange:
			adapter = providers.NewStackExchange(pcfg)
		case domain.SearchProviderArxiv:
			adapter = providers.NewArxiv(pcfg)
		case domain.SearchProviderQwant:
			adapter = providers.NewQwant(pcfg)
		case domain.SearchProviderBrave:
			if cfg.APIKey == "" {
				continue
			}
			adapter = providers.NewBrave(pcfg)
		case domain.SearchProviderGoogleCSE:
			if cfg.APIKey == "" || cfg.CX == "" {
				continue
			}
			adapter = providers.NewGoogleCSE(pcfg)
		default:
			s.logger.Warn("unknown search provider in config", "provider", name)
			continue
		}

		s.searchRegistry.Register(adapter)
		s.logger.InfoWithProvider("search provider registered", name)
	}
}

// buildVectorStore picks the sidecar client when a URL is configured, and
// the in-process store otherwise so RAG still works in a single-binary
// deployment.
func (s *PipelineService) buildVectorStore() ports.VectorStore {
	if !s.config.RAG.Enabled {
		return vectorstore.NewMemory()
	}
	if s.config.RAG.VectorStoreURL == "" {
		s.logger.Info("vector store: in-memory")
		return vectorstore.NewMemory()
	}
	s.logger.InfoWithEndpoint("vector store: sidecar", s.config.RAG.VectorStoreURL)
	return vectorstore.NewClient(vectorstore.Config{
		BaseURL:      s.config.RAG.VectorStoreURL,
		EmbedTimeout: s.config.RAG.EmbedTimeout,
		QueryTimeout: s.config.RAG.QueryTimeout,
	}, s.logger)
}

func (s *PipelineService) Stop(ctx context.Context) error {
	return nil
}

func (s *PipelineService) Dependencies() []string {
	return []string{"metrics", "llm"}
}

func (s *PipelineService) Engine() ports.DeepSearchService {
	return s.engine
}

func (s *PipelineService) SearchService() ports.SearchService {
	return s.searchService
}

func (s *PipelineService) SearchRegistry() ports.SearchRegistry {
	return s.searchRegistry
}

func searchProviderNames(names []string) []domain.SearchProvider {
	out := make([]domain.SearchProvider, 0, len(names))
	for _, name := range names {
		out = append(out, domain.SearchProvider(name))
	}
	return out
}
