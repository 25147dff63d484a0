package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the deepsearch stack.
type Config struct {
	Filename    string            `yaml:"-"`
	Server      ServerConfig      `yaml:"server"`
	Search      SearchConfig      `yaml:"search"`
	Scraping    ScrapingConfig    `yaml:"scraping"`
	RAG         RAGConfig         `yaml:"rag"`
	Synthesis   SynthesisConfig   `yaml:"synthesis"`
	Cache       CacheConfig       `yaml:"cache"`
	LLM         LLMConfig         `yaml:"llm"`
	Sessions    SessionsConfig    `yaml:"sessions"`
	RateLimits  RateLimitsConfig  `yaml:"rate_limits"`
	Breaker     BreakerConfig     `yaml:"circuit_breaker"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
	Engineering EngineeringConfig `yaml:"engineering"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxBodySize       int64         `yaml:"max_body_size"`
	MaxHeaderSize     int64         `yaml:"max_header_size"`
	RequestLogging    bool          `yaml:"request_logging"`
	TrustedProxyCIDRs []string      `yaml:"trusted_proxy_cidrs"`
}

// GetAddress returns the server address in host:port format.
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SearchConfig holds the fan-out defaults and per-provider endpoints.
type SearchConfig struct {
	DefaultProviders []string                        `yaml:"default_providers"`
	MaxResults       int                             `yaml:"max_results"`
	Timeout          time.Duration                   `yaml:"timeout"`
	Providers        map[string]SearchProviderConfig `yaml:"providers"`
}

// SearchProviderConfig parameterises one search back-end. Enabled defaults
// to true for keyless providers; keyed providers stay off until a key is set.
type SearchProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	CX      string `yaml:"cx"`
}

// ScrapingConfig holds crawler sidecar settings.
type ScrapingConfig struct {
	Enabled            bool          `yaml:"enabled"`
	CrawlerURL         string        `yaml:"crawler_url"`
	ExtractionStrategy string        `yaml:"extraction_strategy"`
	Timeout            time.Duration `yaml:"timeout"`
	Concurrency        int           `yaml:"concurrency"`
	MaxScrapeURLs      int           `yaml:"max_scrape_urls"`
	MinContentLength   int           `yaml:"min_content_length"`
}

// RAGConfig holds vector store settings.
type RAGConfig struct {
	Enabled             bool          `yaml:"enabled"`
	VectorStoreURL      string        `yaml:"vector_store_url"`
	StoreScrapedContent bool          `yaml:"store_scraped_content"`
	ChunkSize           int           `yaml:"chunk_size"`
	ChunkOverlap        int           `yaml:"chunk_overlap"`
	TopK                int           `yaml:"top_k"`
	EmbedTimeout        time.Duration `yaml:"embed_timeout"`
	QueryTimeout        time.Duration `yaml:"query_timeout"`
}

// SynthesisConfig holds answer generation settings.
type SynthesisConfig struct {
	DefaultProvider string        `yaml:"default_provider"`
	Strategy        string        `yaml:"routing_strategy"`
	Temperature     float64       `yaml:"temperature"`
	SystemPrompt    string        `yaml:"system_prompt"`
	Timeout         time.Duration `yaml:"timeout"`
}

// CacheConfig controls the completed-answer cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// LLMConfig enables and parameterises the LLM back-ends.
type LLMConfig struct {
	Ollama       OllamaConfig   `yaml:"ollama"`
	Gemini       KeyedLLMConfig `yaml:"gemini"`
	Groq         KeyedLLMConfig `yaml:"groq"`
	GitHubModels KeyedLLMConfig `yaml:"github_models"`
}

// OllamaConfig is keyless and on by default.
type OllamaConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// KeyedLLMConfig covers providers that need an API key. A provider with
// Enabled=true but no key never registers.
type KeyedLLMConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// SessionsConfig selects and parameterises the session backend.
type SessionsConfig struct {
	Storage     string        `yaml:"storage"`
	RedisURL    string        `yaml:"redis_url"`
	PostgresDSN string        `yaml:"postgres_dsn"`
	TTL         time.Duration `yaml:"ttl"`
}

// RateLimitsConfig holds the three admission layers.
type RateLimitsConfig struct {
	Tiers             map[string]TierConfig `yaml:"tiers"`
	GlobalPerSecond   int                   `yaml:"global_per_second"`
	GlobalPerMinute   int                   `yaml:"global_per_minute"`
	ProviderPerSecond int                   `yaml:"provider_per_second"`
	ProviderPerMinute int                   `yaml:"provider_per_minute"`
}

// TierConfig is a per-user token bucket shape.
type TierConfig struct {
	Capacity   int     `yaml:"capacity"`
	RefillRate float64 `yaml:"refill_rate"`
}

// BreakerConfig holds circuit breaker tuning shared by all providers.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls"`
}

// MetricsConfig holds observability settings.
type MetricsConfig struct {
	RetentionHours int  `yaml:"retention_hours"`
	Prometheus     bool `yaml:"prometheus"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	Directory string `yaml:"directory"`
}

// EngineeringConfig holds development/debugging configuration.
type EngineeringConfig struct {
	ShowNerdStats   bool   `yaml:"show_nerdstats"`
	Profiler        bool   `yaml:"profiler"`
	ProfilerAddress string `yaml:"profiler_address"`
}
