package constants

import "time"

const (
	DefaultSearchTimeout    = 30 * time.Second
	DefaultSearchMaxResults = 100

	DefaultScrapeConcurrency      = 10
	DefaultScrapeTimeout          = 15 * time.Second
	DefaultMaxScrapeURLs          = 50
	DefaultMinContentLength       = 100
	DefaultExtractionStrategy     = "markdown"
	DefaultScrapedContextBudget   = 2000 // chars per source when building synthesis context

	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultRAGTopK      = 10

	DefaultSynthesisTimeout     = 120 * time.Second
	DefaultSynthesisTemperature = 0.3

	DefaultSessionTTL = 30 * 24 * time.Hour

	DefaultCacheTTL = time.Hour

	DefaultBreakerFailureThreshold = 5
	DefaultBreakerRecoveryTimeout  = 60 * time.Second
	DefaultBreakerHalfOpenMaxCalls = 3

	DefaultGlobalRequestsPerSecond   = 50
	DefaultGlobalRequestsPerMinute   = 1000
	DefaultProviderRequestsPerSecond = 10
	DefaultProviderRequestsPerMinute = 200

	DefaultMetricsRetentionHours = 24

	DefaultHealthMonitorInterval = 30 * time.Second
)
