package ports

import (
	"time"
)

// MetricsRecorder centralises request accounting for search and LLM
// providers. Recording is eventually consistent: readers may observe counts
// updated in any order relative to concurrent writers.
type MetricsRecorder interface {
	RecordRequest(provider string, responseTime time.Duration, success bool, opts ...RequestOption)
	RecordRateLimitHit()
	RecordBreakerTrigger()
	RecordCacheHit(hit bool)

	ProviderStats(provider string, window time.Duration) ProviderWindowStats
	AllProviderStats(window time.Duration) map[string]ProviderWindowStats
	GatewayStats(window time.Duration) GatewayStats
	AverageLatency(provider string) time.Duration
	ErrorStreak(provider string) int
	LastOutcome(provider string) (lastSuccess, lastError time.Time, lastErrorMsg string)
}

// RequestOption attaches optional detail to a recorded request.
type RequestOption func(*RequestRecord)

func WithErrorType(errorType string) RequestOption {
	return func(r *RequestRecord) { r.ErrorType = errorType }
}

func WithTokens(tokens int) RequestOption {
	return func(r *RequestRecord) { r.Tokens = tokens }
}

func WithModel(model string) RequestOption {
	return func(r *RequestRecord) { r.Model = model }
}

// RequestRecord is one entry in the recorder's ring buffer.
type RequestRecord struct {
	Timestamp    time.Time
	Provider     string
	ResponseTime time.Duration
	Success      bool
	ErrorType    string
	Tokens       int
	Model        string
}

type ProviderWindowStats struct {
	Provider           string         `json:"provider"`
	WindowMinutes      int            `json:"window_minutes"`
	TotalRequests      int            `json:"total_requests"`
	SuccessfulRequests int            `json:"successful_requests"`
	FailedRequests     int            `json:"failed_requests"`
	SuccessRate        float64        `json:"success_rate"`
	ErrorRate          float64        `json:"error_rate"`
	AvgResponseTime    float64        `json:"avg_response_time"`
	MinResponseTime    float64        `json:"min_response_time"`
	MaxResponseTime    float64        `json:"max_response_time"`
	P50ResponseTime    float64        `json:"p50_response_time"`
	P95ResponseTime    float64        `json:"p95_response_time"`
	P99ResponseTime    float64        `json:"p99_response_time"`
	RequestsPerMinute  float64        `json:"requests_per_minute"`
	RequestsPerSecond  float64        `json:"requests_per_second"`
	ErrorBreakdown     map[string]int `json:"error_breakdown,omitempty"`
}

type GatewayStats struct {
	UptimeSeconds          float64 `json:"uptime_seconds"`
	TotalRequests          int64   `json:"total_requests"`
	TotalErrors            int64   `json:"total_errors"`
	AvgResponseTime        float64 `json:"avg_response_time"`
	RequestsPerSecond      float64 `json:"requests_per_second"`
	ErrorRate              float64 `json:"error_rate"`
	CacheHitRate           float64 `json:"cache_hit_rate"`
	RateLimitHits          int64   `json:"rate_limit_hits"`
	CircuitBreakerTriggers int64   `json:"circuit_breaker_triggers"`
}
