package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepsearchstack/deepsearch/internal/adapter/breaker"
	"github.com/deepsearchstack/deepsearch/internal/adapter/metrics"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
	"github.com/deepsearchstack/deepsearch/internal/logger"
)

type fakeAdapter struct {
	name    domain.SearchProvider
	results []domain.SearchResult
	err     error
	delay   time.Duration
}

func (f *fakeAdapter) Name() domain.SearchProvider { return f.name }

func (f *fakeAdapter) Query(ctx context.Context, query string, timeout time.Duration) ([]domain.SearchResult, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.results, f.err
}

func newTestService(t *testing.T, adapters ...*fakeAdapter) (*Service, *metrics.Recorder) {
	t.Helper()
	registry := NewRegistry()
	for _, a := range adapters {
		registry.Register(a)
	}
	recorder := metrics.NewRecorder(1)
	t.Cleanup(recorder.Stop)
	log := logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewService(registry, breaker.NewSet(breaker.DefaultConfig()), recorder, log), recorder
}

func TestService_MergesAndRanksAcrossProviders(t *testing.T) {
	svc, _ := newTestService(t,
		&fakeAdapter{name: domain.SearchProviderWhoogle, results: []domain.SearchResult{
			{Title: "Go spec", URL: "https://go.dev/ref/spec", Description: "the Go language specification"},
		}},
		&fakeAdapter{name: domain.SearchProviderWikipedia, results: []domain.SearchResult{
			{Title: "Go", URL: "https://en.wikipedia.org/wiki/Go", Description: "Go language article"},
		}},
	)

	results, err := svc.Search(context.Background(), &domain.SearchRequest{
		Query:  "Go language",
		SortBy: domain.SortMethodRelevance,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
		assert.NotZero(t, r.DomainAuthority)
	}
}

func TestService_FailingProviderDoesNotFailSearch(t *testing.T) {
	svc, recorder := newTestService(t,
		&fakeAdapter{name: domain.SearchProviderWhoogle, err: errors.New("connection refused")},
		&fakeAdapter{name: domain.SearchProviderSearXNG, results: []domain.SearchResult{
			{Title: "hit", URL: "https://example.com", Description: "d"},
		}},
	)

	results, err := svc.Search(context.Background(), &domain.SearchRequest{Query: "q"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, recorder.ErrorStreak("whoogle"))
}

func TestService_DuplicateURLsCollapseToFirstArrival(t *testing.T) {
	// the slow provider returns the same URL; the fast one must win
	svc, _ := newTestService(t,
		&fakeAdapter{name: domain.SearchProviderWhoogle, results: []domain.SearchResult{
			{Title: "fast", URL: "https://example.com/shared", Description: "d", Source: domain.SearchProviderWhoogle},
		}},
		&fakeAdapter{name: domain.SearchProviderSearXNG, delay: 50 * time.Millisecond, results: []domain.SearchResult{
			{Title: "slow", URL: "https://example.com/shared", Description: "d", Source: domain.SearchProviderSearXNG},
		}},
	)

	results, err := svc.Search(context.Background(), &domain.SearchRequest{Query: "q"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.SearchProviderWhoogle, results[0].Source)
}

func TestService_RequestedSubsetOnly(t *testing.T) {
	svc, _ := newTestService(t,
		&fakeAdapter{name: domain.SearchProviderWhoogle, results: []domain.SearchResult{
			{Title: "w", URL: "https://w.example.com", Description: "d"},
		}},
		&fakeAdapter{name: domain.SearchProviderSearXNG, results: []domain.SearchResult{
			{Title: "s", URL: "https://s.example.com", Description: "d"},
		}},
	)

	results, err := svc.Search(context.Background(), &domain.SearchRequest{
		Query:     "q",
		Providers: []domain.SearchProvider{domain.SearchProviderSearXNG},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://s.example.com", results[0].URL)
}

func TestService_MaxResultsCapAppliedAfterRanking(t *testing.T) {
	var many []domain.SearchResult
	for i := 0; i < 10; i++ {
		many = append(many, domain.SearchResult{
			Title:       "r",
			URL:         "https://example.com/" + string(rune('a'+i)),
			Description: "d",
		})
	}
	svc, _ := newTestService(t, &fakeAdapter{name: domain.SearchProviderWhoogle, results: many})

	results, err := svc.Search(context.Background(), &domain.SearchRequest{Query: "q", MaxResults: 3})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestService_NoProvidersAvailable(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Search(context.Background(), &domain.SearchRequest{Query: "q"})
	assert.ErrorIs(t, err, domain.ErrNoProvidersAvailable)
}
