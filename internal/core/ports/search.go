package ports

import (
	"context"
	"time"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

// SearchAdapter is the uniform query operation every search back-end
// implements. Implementations must be total: a parse failure surfaces as an
// error here, and the fan-out layer records it as a provider failure rather
// than letting it escape.
type SearchAdapter interface {
	Name() domain.SearchProvider
	Query(ctx context.Context, query string, timeout time.Duration) ([]domain.SearchResult, error)
}

// SearchRegistry catalogues the configured back-ends. Written at startup and
// administrative reconfiguration; readers see a consistent snapshot.
type SearchRegistry interface {
	Register(adapter SearchAdapter)
	Get(name domain.SearchProvider) (SearchAdapter, bool)
	Names() []domain.SearchProvider
	Status() map[string]string
}

// SearchService is the fan-out layer: parallel dispatch, dedupe, rank.
type SearchService interface {
	Search(ctx context.Context, req *domain.SearchRequest) ([]domain.SearchResult, error)
}
