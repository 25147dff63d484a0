package domain

import (
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (m Message) IsValidRole() bool {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// RoutingStrategy selects how the LLM router picks a provider.
type RoutingStrategy string

const (
	RoutingRandom         RoutingStrategy = "random"
	RoutingRoundRobin     RoutingStrategy = "round_robin"
	RoutingLeastLatency   RoutingStrategy = "least_latency"
	RoutingLowestCost     RoutingStrategy = "lowest_cost"
	RoutingHighestQuality RoutingStrategy = "highest_quality"
	RoutingFailover       RoutingStrategy = "failover"
	RoutingPreferred      RoutingStrategy = "preferred"
)

// CompletionRequest is the uniform request shape for every LLM provider.
type CompletionRequest struct {
	Messages    []Message       `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream"`
	Model       string          `json:"model,omitempty"`

	Provider        string          `json:"provider,omitempty"`
	RoutingStrategy RoutingStrategy `json:"routing_strategy,omitempty"`
	Fallback        bool            `json:"fallback"`

	UserID    string `json:"user_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type CompletionResponse struct {
	Content      string    `json:"content"`
	ProviderName string    `json:"provider_name"`
	Model        string    `json:"model"`
	Usage        Usage     `json:"usage"`
	FinishReason string    `json:"finish_reason,omitempty"`
	ResponseTime float64   `json:"response_time,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// StreamDelta is one token-shaped fragment from a streaming completion.
// Err is set on the terminal delta when the stream failed mid-flight.
type StreamDelta struct {
	Content string
	Err     error
}

// ProviderStatus is the live view of one LLM provider for health reporting.
type ProviderStatus struct {
	Available          bool      `json:"available"`
	Healthy            bool      `json:"healthy"`
	LatencyMs          float64   `json:"latency_ms"`
	ErrorRate          float64   `json:"error_rate"`
	LastSuccess        time.Time `json:"last_success"`
	LastError          string    `json:"last_error,omitempty"`
	CircuitBreakerOpen bool      `json:"circuit_breaker_open"`
	ActiveRequests     int64     `json:"active_requests"`
}
