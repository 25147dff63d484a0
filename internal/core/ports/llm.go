package ports

import (
	"context"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

// LLMProvider is the uniform contract for one LLM back-end. Cost and Quality
// are static ordinals used by the router's lowest-cost and highest-quality
// strategies (lower cost is cheaper, higher quality is better).
type LLMProvider interface {
	Name() string
	Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error)
	Stream(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamDelta, error)
	Available(ctx context.Context) bool
	Cost() int
	Quality() int
}

// LLMRegistry catalogues LLM back-ends and their live status.
type LLMRegistry interface {
	Register(provider LLMProvider)
	Get(name string) (LLMProvider, bool)
	Names() []string
	Status(ctx context.Context, name string) (domain.ProviderStatus, error)
	StatusAll(ctx context.Context) map[string]domain.ProviderStatus
}

// LLMRouter fronts the registry with strategy-driven selection, fallback and
// breaker-aware admission.
type LLMRouter interface {
	Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error)
	// Stream relays fragments in provider order. Once any fragment has been
	// emitted no fallback occurs; partial output is never retried.
	Stream(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamDelta, string, error)
	Select(ctx context.Context, strategy domain.RoutingStrategy, preferred string, exclude []string) (string, error)
}
