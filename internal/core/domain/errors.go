package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCircuitOpen          = errors.New("circuit breaker is open")
	ErrNoProvidersAvailable = errors.New("no providers available")
	ErrNoSearchResults      = errors.New("no search results found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionsDisabled     = errors.New("session storage not enabled")
	ErrPipelineCancelled    = errors.New("cancelled")
)

// ProviderError wraps a failure from one search or LLM back-end with enough
// context for metrics and breaker accounting.
type ProviderError struct {
	Err        error
	Provider   string
	Operation  string
	StatusCode int
	Latency    time.Duration
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s %s failed: HTTP %d after %v: %v",
			e.Provider, e.Operation, e.StatusCode, e.Latency, e.Err)
	}
	return fmt.Sprintf("provider %s %s failed: %v after %v", e.Provider, e.Operation, e.Err, e.Latency)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider, operation string, statusCode int, latency time.Duration, err error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Operation:  operation,
		StatusCode: statusCode,
		Latency:    latency,
		Err:        err,
	}
}

// RateLimitError carries the retry guidance surfaced as HTTP 429.
type RateLimitError struct {
	Scope      string
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (%s): retry after %v", e.Scope, e.RetryAfter)
}

// PipelineError records which stage a pipeline run died in.
type PipelineError struct {
	Err   error
	Stage PipelineStage
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request field %s: %s", e.Field, e.Reason)
}
