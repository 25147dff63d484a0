package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/deepsearchstack/deepsearch/internal/adapter/breaker"
	"github.com/deepsearchstack/deepsearch/internal/core/constants"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
	"github.com/deepsearchstack/deepsearch/internal/core/ports"
	"github.com/deepsearchstack/deepsearch/internal/logger"
)

// Service fans a query out to every requested provider in parallel, merges
// whatever arrives, deduplicates by URL and ranks the survivors. A provider
// failing or its breaker being open never fails the search; it just
// contributes nothing.
type Service struct {
	registry ports.SearchRegistry
	breakers *breaker.Set
	metrics  ports.MetricsRecorder
	logger   logger.StyledLogger
}

func NewService(registry ports.SearchRegistry, breakers *breaker.Set, metrics ports.MetricsRecorder, log logger.StyledLogger) *Service {
	return &Service{
		registry: registry,
		breakers: breakers,
		metrics:  metrics,
		logger:   log,
	}
}

type providerBatch struct {
	results []domain.SearchResult
}

func (s *Service) Search(ctx context.Context, req *domain.SearchRequest) ([]domain.SearchResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultSearchTimeout
	}
	maxResults := req.MaxResults
	if maxResults <= 0 || maxResults > constants.DefaultSearchMaxResults {
		maxResults = constants.DefaultSearchMaxResults
	}

	adapters := s.resolveAdapters(req.Providers)
	if len(adapters) == 0 {
		return nil, domain.ErrNoProvidersAvailable
	}

	batches := make(chan providerBatch, len(adapters))
	var wg sync.WaitGroup

	for _, adapter := range adapters {
		br := s.breakers.Get(adapter.Name().String())
		if br.IsOpen() {
			s.logger.WarnWithProvider("circuit open, skipping", adapter.Name().String())
			continue
		}

		wg.Add(1)
		go func(adapter ports.SearchAdapter, br *breaker.Breaker) {
			defer wg.Done()
			s.queryOne(ctx, adapter, br, req.Query, timeout, batches)
		}(adapter, br)
	}

	go func() {
		wg.Wait()
		close(batches)
	}()

	// merged in arrival order so dedupe keeps the earliest responder's record
	var merged []domain.SearchResult
	for batch := range batches {
		merged = append(merged, batch.results...)
	}

	deduped := dedupeByURL(merged)
	ranked := Rank(req.Query, deduped, req.SortBy)

	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	s.logger.InfoWithCount("search complete", len(ranked),
		"query", req.Query, "providers", len(adapters))
	return ranked, nil
}

func (s *Service) queryOne(ctx context.Context, adapter ports.SearchAdapter, br *breaker.Breaker, query string, timeout time.Duration, out chan<- providerBatch) {
	name := adapter.Name().String()
	start := time.Now()

	var results []domain.SearchResult
	err := br.Call(ctx, func(ctx context.Context) error {
		var qerr error
		results, qerr = adapter.Query(ctx, query, timeout)
		return qerr
	})
	elapsed := time.Since(start)

	if err != nil {
		s.metrics.RecordRequest(name, elapsed, false, ports.WithErrorType(errorType(err)))
		if br.State() == breaker.StateOpen {
			s.metrics.RecordBreakerTrigger()
		}
		s.logger.WarnWithProvider("provider query failed", name,
			"error", err, "took", elapsed)
		return
	}

	s.metrics.RecordRequest(name, elapsed, true)
	s.logger.Debug("provider responded",
		"provider", name, "results", len(results), "took", elapsed)
	out <- providerBatch{results: results}
}

func (s *Service) resolveAdapters(requested []domain.SearchProvider) []ports.SearchAdapter {
	var adapters []ports.SearchAdapter
	if len(requested) == 0 {
		for _, name := range s.registry.Names() {
			if adapter, ok := s.registry.Get(name); ok {
				adapters = append(adapters, adapter)
			}
		}
		return adapters
	}
	for _, name := range requested {
		if adapter, ok := s.registry.Get(name); ok {
			adapters = append(adapters, adapter)
		}
	}
	return adapters
}

// dedupeByURL keeps the first occurrence of every URL and drops results with
// no URL at all.
func dedupeByURL(results []domain.SearchResult) []domain.SearchResult {
	seen := make(map[string]struct{}, len(results))
	deduped := results[:0:0]
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}
		deduped = append(deduped, r)
	}
	return deduped
}

func errorType(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, domain.ErrCircuitOpen) {
		return "circuit_open"
	}
	return "request_error"
}
