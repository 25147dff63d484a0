package ports

import (
	"context"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

// DeepSearchService drives the staged pipeline for one request. The returned
// channel is a cold producer pulled by the SSE writer; it always terminates
// with exactly one complete or error event and is closed afterwards.
// Cancelling ctx stops the run at the next suspension point and yields an
// error{cancelled} terminal event.
type DeepSearchService interface {
	Run(ctx context.Context, req *domain.DeepSearchRequest) <-chan domain.StreamEvent
}

// Scraper fetches page content through the external crawler with bounded
// concurrency. The returned slice follows completion order and contains only
// successful scrapes above the configured minimum length.
type Scraper interface {
	Scrape(ctx context.Context, results []domain.SearchResult, maxURLs int) []domain.ScrapedContent
}

// VectorStore is the opaque embedding/retrieval collaborator.
type VectorStore interface {
	Embed(ctx context.Context, docs []domain.VectorDocument) error
	Query(ctx context.Context, queryText string, topK int) ([]domain.VectorChunk, error)
}
