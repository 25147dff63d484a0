package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/deepsearchstack/deepsearch/internal/core/constants"
)

const (
	DefaultPort = 8001
	DefaultHost = "0.0.0.0"

	DefaultSystemPrompt = "You are a research assistant. Answer the user's query using only the " +
		"numbered sources in the search context. Cite sources inline as [n]. If the sources do " +
		"not contain the answer, say so."
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0, // streaming responses manage their own deadlines
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodySize:     1 << 20,
			MaxHeaderSize:   64 << 10,
			RequestLogging:  true,
		},
		Search: SearchConfig{
			DefaultProviders: []string{"whoogle", "searxng", "duckduckgo", "wikipedia"},
			MaxResults:       constants.DefaultSearchMaxResults,
			Timeout:          constants.DefaultSearchTimeout,
			Providers: map[string]SearchProviderConfig{
				"whoogle":       {Enabled: true},
				"searxng":       {Enabled: true},
				"yacy":          {Enabled: true},
				"wikipedia":     {Enabled: true},
				"duckduckgo":    {Enabled: true},
				"stackexchange": {Enabled: true},
				"arxiv":         {Enabled: true},
				"qwant":         {Enabled: true},
				"brave":         {},
				"google_cse":    {},
			},
		},
		Scraping: ScrapingConfig{
			Enabled:            true,
			CrawlerURL:         "http://crawler:8000",
			ExtractionStrategy: constants.DefaultExtractionStrategy,
			Timeout:            constants.DefaultScrapeTimeout,
			Concurrency:        constants.DefaultScrapeConcurrency,
			MaxScrapeURLs:      constants.DefaultMaxScrapeURLs,
			MinContentLength:   constants.DefaultMinContentLength,
		},
		RAG: RAGConfig{
			Enabled:             true,
			VectorStoreURL:      "http://vector-store:8000",
			StoreScrapedContent: true,
			ChunkSize:           constants.DefaultChunkSize,
			ChunkOverlap:        constants.DefaultChunkOverlap,
			TopK:                constants.DefaultRAGTopK,
		},
		Synthesis: SynthesisConfig{
			DefaultProvider: "ollama",
			Strategy:        "failover",
			Temperature:     constants.DefaultSynthesisTemperature,
			SystemPrompt:    DefaultSystemPrompt,
			Timeout:         constants.DefaultSynthesisTimeout,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     constants.DefaultCacheTTL,
		},
		LLM: LLMConfig{
			Ollama: OllamaConfig{Enabled: true, BaseURL: "http://ollama:11434", Model: "llama3.2"},
		},
		Sessions: SessionsConfig{
			Storage: "memory",
			TTL:     constants.DefaultSessionTTL,
		},
		RateLimits: RateLimitsConfig{
			Tiers: map[string]TierConfig{
				"default":    {Capacity: 100, RefillRate: 1.0},
				"premium":    {Capacity: 500, RefillRate: 5.0},
				"enterprise": {Capacity: 1000, RefillRate: 10.0},
			},
			GlobalPerSecond:   constants.DefaultGlobalRequestsPerSecond,
			GlobalPerMinute:   constants.DefaultGlobalRequestsPerMinute,
			ProviderPerSecond: constants.DefaultProviderRequestsPerSecond,
			ProviderPerMinute: constants.DefaultProviderRequestsPerMinute,
		},
		Breaker: BreakerConfig{
			FailureThreshold: constants.DefaultBreakerFailureThreshold,
			RecoveryTimeout:  constants.DefaultBreakerRecoveryTimeout,
			HalfOpenMaxCalls: constants.DefaultBreakerHalfOpenMaxCalls,
		},
		Metrics: MetricsConfig{
			RetentionHours: constants.DefaultMetricsRetentionHours,
			Prometheus:     true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load loads configuration from file and environment variables. Environment
// variables use the DEEPSEARCH_ prefix with underscores for nesting, e.g.
// DEEPSEARCH_SERVER_PORT=8080.
func Load() (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("DEEPSEARCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if configFile := os.Getenv("DEEPSEARCH_CONFIG_FILE"); configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	if err := viper.Unmarshal(config, yamlTagOption); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.Filename = viper.ConfigFileUsed()
	config.normalise()

	viper.WatchConfig()

	return config, nil
}

// normalise repairs configuration values that would break the pipeline.
func (c *Config) normalise() {
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = constants.DefaultChunkSize
	}
	if c.RAG.ChunkOverlap < 0 {
		c.RAG.ChunkOverlap = constants.DefaultChunkOverlap
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		// Chunking advances by size-overlap; an overlap at or above the
		// chunk size would stall it.
		c.RAG.ChunkOverlap = c.RAG.ChunkSize / 5
	}
}

// yamlTagOption makes viper honour the same yaml tags the file format uses.
func yamlTagOption(dc *mapstructure.DecoderConfig) {
	dc.TagName = "yaml"
}

// Sanitized returns the config as a map safe to expose over HTTP, with
// credentials redacted.
func (c *Config) Sanitized() map[string]any {
	redact := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}

	searchProviders := make(map[string]any, len(c.Search.Providers))
	for name, p := range c.Search.Providers {
		searchProviders[name] = map[string]any{
			"enabled":  p.Enabled,
			"base_url": p.BaseURL,
			"api_key":  redact(p.APIKey),
			"cx":       redact(p.CX),
		}
	}

	keyed := func(k KeyedLLMConfig) map[string]any {
		return map[string]any{
			"enabled":  k.Enabled,
			"api_key":  redact(k.APIKey),
			"base_url": k.BaseURL,
			"model":    k.Model,
		}
	}

	return map[string]any{
		"server": map[string]any{
			"host": c.Server.Host,
			"port": c.Server.Port,
		},
		"search": map[string]any{
			"default_providers": c.Search.DefaultProviders,
			"max_results":       c.Search.MaxResults,
			"timeout":           c.Search.Timeout.String(),
			"providers":         searchProviders,
		},
		"scraping": map[string]any{
			"enabled":             c.Scraping.Enabled,
			"crawler_url":         c.Scraping.CrawlerURL,
			"extraction_strategy": c.Scraping.ExtractionStrategy,
			"concurrency":         c.Scraping.Concurrency,
			"max_scrape_urls":     c.Scraping.MaxScrapeURLs,
		},
		"rag": map[string]any{
			"enabled":          c.RAG.Enabled,
			"vector_store_url": c.RAG.VectorStoreURL,
			"chunk_size":       c.RAG.ChunkSize,
			"chunk_overlap":    c.RAG.ChunkOverlap,
			"top_k":            c.RAG.TopK,
		},
		"synthesis": map[string]any{
			"default_provider": c.Synthesis.DefaultProvider,
			"routing_strategy": c.Synthesis.Strategy,
			"temperature":      c.Synthesis.Temperature,
		},
		"cache": map[string]any{
			"enabled": c.Cache.Enabled,
			"ttl":     c.Cache.TTL.String(),
		},
		"llm": map[string]any{
			"ollama": map[string]any{
				"enabled":  c.LLM.Ollama.Enabled,
				"base_url": c.LLM.Ollama.BaseURL,
				"model":    c.LLM.Ollama.Model,
			},
			"gemini":        keyed(c.LLM.Gemini),
			"groq":          keyed(c.LLM.Groq),
			"github_models": keyed(c.LLM.GitHubModels),
		},
		"sessions": map[string]any{
			"storage": c.Sessions.Storage,
			"ttl":     c.Sessions.TTL.String(),
		},
	}
}
