package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepsearchstack/deepsearch/internal/adapter/vectorstore"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
	"github.com/deepsearchstack/deepsearch/internal/core/ports"
	"github.com/deepsearchstack/deepsearch/internal/logger"
)

type fakeSearch struct {
	results []domain.SearchResult
	err     error
	calls   int
}

func (f *fakeSearch) Search(ctx context.Context, req *domain.SearchRequest) ([]domain.SearchResult, error) {
	f.calls++
	return f.results, f.err
}

type fakeScraper struct {
	scraped []domain.ScrapedContent
	called  bool
}

func (f *fakeScraper) Scrape(ctx context.Context, results []domain.SearchResult, maxURLs int) []domain.ScrapedContent {
	f.called = true
	return f.scraped
}

type fakeStore struct {
	embedErr error
	queryErr error
	chunks   []domain.VectorChunk
	embedded []domain.VectorDocument
}

func (f *fakeStore) Embed(ctx context.Context, docs []domain.VectorDocument) error {
	f.embedded = append(f.embedded, docs...)
	return f.embedErr
}

func (f *fakeStore) Query(ctx context.Context, queryText string, topK int) ([]domain.VectorChunk, error) {
	return f.chunks, f.queryErr
}

type fakeLLM struct {
	fragments []string
	setupErr  error
	streamErr error
	gotReq    *domain.CompletionRequest
}

func (f *fakeLLM) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	return nil, errors.New("not used")
}

func (f *fakeLLM) Stream(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamDelta, string, error) {
	f.gotReq = req
	if f.setupErr != nil {
		return nil, "", f.setupErr
	}
	out := make(chan domain.StreamDelta, len(f.fragments)+1)
	for _, fr := range f.fragments {
		out <- domain.StreamDelta{Content: fr}
	}
	if f.streamErr != nil {
		out <- domain.StreamDelta{Err: f.streamErr}
	}
	close(out)
	return out, "ollama", nil
}

func (f *fakeLLM) Select(ctx context.Context, strategy domain.RoutingStrategy, preferred string, exclude []string) (string, error) {
	return "ollama", nil
}

type fakeMetrics struct {
	cacheHits   int
	cacheMisses int
}

func (f *fakeMetrics) RecordRequest(string, time.Duration, bool, ...ports.RequestOption) {}
func (f *fakeMetrics) RecordRateLimitHit()                                               {}
func (f *fakeMetrics) RecordBreakerTrigger()                                             {}
func (f *fakeMetrics) RecordCacheHit(hit bool) {
	if hit {
		f.cacheHits++
	} else {
		f.cacheMisses++
	}
}
func (f *fakeMetrics) ProviderStats(string, time.Duration) ports.ProviderWindowStats {
	return ports.ProviderWindowStats{}
}
func (f *fakeMetrics) AllProviderStats(time.Duration) map[string]ports.ProviderWindowStats {
	return nil
}
func (f *fakeMetrics) GatewayStats(time.Duration) ports.GatewayStats { return ports.GatewayStats{} }
func (f *fakeMetrics) AverageLatency(string) time.Duration           { return 0 }
func (f *fakeMetrics) ErrorStreak(string) int                        { return 0 }
func (f *fakeMetrics) LastOutcome(string) (time.Time, time.Time, string) {
	return time.Time{}, time.Time{}, ""
}

func testLogger() logger.StyledLogger {
	return logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func collect(t *testing.T, events <-chan domain.StreamEvent) []domain.StreamEvent {
	t.Helper()
	var out []domain.StreamEvent
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatal("timed out draining pipeline events")
		}
	}
}

func someResults() []domain.SearchResult {
	return []domain.SearchResult{
		{URL: "http://a.example", Title: "Alpha", Description: "about alpha"},
		{URL: "http://b.example", Title: "Beta", Description: "about beta"},
	}
}

func newEngine(search *fakeSearch, scraper *fakeScraper, store ports.VectorStore, llm *fakeLLM) *Engine {
	cfg := DefaultConfig()
	cfg.DefaultProviders = []domain.SearchProvider{domain.SearchProviderWhoogle}
	return New(cfg, search, scraper, store, llm, &fakeMetrics{}, testLogger())
}

func TestRunFullPipelineEventOrder(t *testing.T) {
	scraped := []domain.ScrapedContent{
		{URL: "http://a.example", Title: "Alpha", Content: strings.Repeat("alpha text ", 30), Success: true},
	}
	store := &fakeStore{chunks: []domain.VectorChunk{
		{ChunkID: "c1", Content: "alpha text", URL: "http://a.example", Title: "Alpha", SimilarityScore: 0.9},
	}}
	llm := &fakeLLM{fragments: []string{"The ", "answer."}}

	eng := newEngine(&fakeSearch{results: someResults()}, &fakeScraper{scraped: scraped}, store, llm)
	events := collect(t, eng.Run(context.Background(), &domain.DeepSearchRequest{Query: "alpha"}))

	var stages []domain.PipelineStage
	var progress []float64
	var content string
	var sawSources, sawComplete bool
	var complete *domain.DeepSearchResponse

	for _, ev := range events {
		switch ev.Type {
		case domain.EventProgress:
			assert.False(t, sawSources, "progress after sources")
			stages = append(stages, ev.Progress.Stage)
			progress = append(progress, ev.Progress.Progress)
		case domain.EventContent:
			content += ev.Content.Content
		case domain.EventSources:
			sawSources = true
			assert.Len(t, ev.Sources.Sources, 2)
		case domain.EventComplete:
			sawComplete = true
			complete = ev.Complete
		case domain.EventError:
			t.Fatalf("unexpected error event: %s", ev.Error.Message)
		}
	}

	assert.Equal(t, []domain.PipelineStage{
		domain.StageSearching, domain.StageScraping, domain.StageEmbedding,
		domain.StageRetrieving, domain.StageSynthesizing,
	}, stages)
	assert.Equal(t, []float64{0.1, 0.3, 0.5, 0.6, 0.7}, progress)
	assert.Equal(t, "The answer.", content)
	assert.True(t, sawSources)
	require.True(t, sawComplete)

	assert.Equal(t, "alpha", complete.Query)
	assert.Equal(t, "The answer.", complete.Answer)
	assert.Equal(t, 2, complete.TotalResults)
	assert.Equal(t, 1, complete.ResultsScraped)
	assert.Equal(t, 1, complete.ChunksRetrieved)
	assert.Equal(t, "ollama", complete.ProviderUsed)
	assert.Greater(t, complete.ExecutionTime, 0.0)

	require.NotEmpty(t, store.embedded)
	assert.Len(t, store.embedded[0].ID, 32)
	assert.Equal(t, "http://a.example", store.embedded[0].Metadata["url"])

	// Synthesis prompt carries the retrieved chunk, not the raw snippets.
	require.NotNil(t, llm.gotReq)
	assert.Contains(t, llm.gotReq.Messages[1].Content, "Search Context:")
	assert.Contains(t, llm.gotReq.Messages[1].Content, "Source [1]: Alpha")
}

func TestRunNoSearchResultsIsTerminal(t *testing.T) {
	scraper := &fakeScraper{}
	eng := newEngine(&fakeSearch{results: nil}, scraper, &fakeStore{}, &fakeLLM{})

	events := collect(t, eng.Run(context.Background(), &domain.DeepSearchRequest{Query: "nothing"}))
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	require.Equal(t, domain.EventError, last.Type)
	assert.Equal(t, "no search results found", last.Error.Message)
	assert.False(t, scraper.called)
}

func TestRunSynthesisDisabled(t *testing.T) {
	off := false
	llm := &fakeLLM{fragments: []string{"should not appear"}}
	eng := newEngine(&fakeSearch{results: someResults()}, &fakeScraper{}, &fakeStore{}, llm)

	events := collect(t, eng.Run(context.Background(), &domain.DeepSearchRequest{
		Query: "q", EnableSynthesis: &off,
	}))

	for _, ev := range events {
		assert.NotEqual(t, domain.EventContent, ev.Type)
	}
	last := events[len(events)-1]
	require.Equal(t, domain.EventComplete, last.Type)
	assert.Equal(t, "Search completed. Synthesis disabled.", last.Complete.Answer)
	assert.Nil(t, llm.gotReq)
}

func TestRunScrapingDisabledSkipsStages(t *testing.T) {
	off := false
	scraper := &fakeScraper{}
	eng := newEngine(&fakeSearch{results: someResults()}, scraper, &fakeStore{}, &fakeLLM{fragments: []string{"ok"}})

	events := collect(t, eng.Run(context.Background(), &domain.DeepSearchRequest{
		Query: "q", EnableScraping: &off,
	}))

	var stages []domain.PipelineStage
	for _, ev := range events {
		if ev.Type == domain.EventProgress {
			stages = append(stages, ev.Progress.Stage)
		}
	}
	assert.NotContains(t, stages, domain.StageScraping)
	assert.NotContains(t, stages, domain.StageEmbedding)
	assert.Contains(t, stages, domain.StageRetrieving)
	assert.False(t, scraper.called)
}

func TestRunEmbedFailureDegrades(t *testing.T) {
	scraped := []domain.ScrapedContent{
		{URL: "http://a.example", Title: "A", Content: strings.Repeat("x", 500), Success: true},
	}
	store := &fakeStore{embedErr: errors.New("vector store down"), queryErr: errors.New("down")}
	eng := newEngine(&fakeSearch{results: someResults()}, &fakeScraper{scraped: scraped}, store, &fakeLLM{fragments: []string{"answer"}})

	events := collect(t, eng.Run(context.Background(), &domain.DeepSearchRequest{Query: "q"}))
	last := events[len(events)-1]
	require.Equal(t, domain.EventComplete, last.Type)
	assert.Equal(t, 0, last.Complete.ChunksRetrieved)
	assert.Equal(t, "answer", last.Complete.Answer)
}

func TestRunSynthesisSetupFailureReportedInline(t *testing.T) {
	eng := newEngine(&fakeSearch{results: someResults()}, &fakeScraper{}, &fakeStore{},
		&fakeLLM{setupErr: errors.New("all providers down")})

	events := collect(t, eng.Run(context.Background(), &domain.DeepSearchRequest{Query: "q"}))
	last := events[len(events)-1]
	require.Equal(t, domain.EventComplete, last.Type)
	assert.Contains(t, last.Complete.Answer, "Error during synthesis")
	assert.Contains(t, last.Complete.Answer, "all providers down")
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := newEngine(&fakeSearch{results: someResults()}, &fakeScraper{}, &fakeStore{}, &fakeLLM{})
	events := collect(t, eng.Run(ctx, &domain.DeepSearchRequest{Query: "q"}))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, domain.EventError, last.Type)
	assert.Equal(t, "cancelled", last.Error.Message)
}

func TestRunWithMemoryVectorStore(t *testing.T) {
	scraped := []domain.ScrapedContent{
		{URL: "http://a.example", Title: "Go", Content: strings.Repeat("goroutines channels concurrency ", 40), Success: true},
	}
	eng := newEngine(&fakeSearch{results: someResults()}, &fakeScraper{scraped: scraped},
		vectorstore.NewMemory(), &fakeLLM{fragments: []string{"done"}})

	events := collect(t, eng.Run(context.Background(), &domain.DeepSearchRequest{Query: "goroutines concurrency"}))
	last := events[len(events)-1]
	require.Equal(t, domain.EventComplete, last.Type)
	assert.Greater(t, last.Complete.ChunksRetrieved, 0)
}

func TestSplitIntoChunks(t *testing.T) {
	text := strings.Repeat("a", 2500)
	chunks := splitIntoChunks(text, 1000, 200)

	require.Len(t, chunks, 4)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	// Adjacent chunks share the overlap region.
	assert.Equal(t, chunks[0][800:], chunks[1][:200])

	assert.Empty(t, splitIntoChunks("", 1000, 200))
	assert.Equal(t, []string{"short"}, splitIntoChunks("short", 1000, 200))
}

func TestSplitIntoChunksOverlapAtOrAboveSize(t *testing.T) {
	// An overlap >= size must be clamped so the window still advances,
	// even when size is at or below the default overlap.
	for _, tc := range []struct{ size, overlap int }{
		{150, 150},
		{150, 400},
		{100, 99},
		{1, 1},
	} {
		chunks := splitIntoChunks(strings.Repeat("a", 500), tc.size, tc.overlap)
		require.NotEmpty(t, chunks, "size=%d overlap=%d", tc.size, tc.overlap)
		assert.LessOrEqual(t, len(chunks[0]), tc.size)
	}
}

func TestSplitIntoChunksRuneBoundaries(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 40) // multi-byte runes throughout
	for _, chunk := range splitIntoChunks(text, 50, 10) {
		assert.True(t, utf8.ValidString(chunk), "chunk split a rune: %q", chunk)
	}

	// Windows count runes, so a fully multi-byte text still chunks evenly.
	wide := strings.Repeat("日本語テキスト", 30)
	chunks := splitIntoChunks(wide, 60, 12)
	require.NotEmpty(t, chunks)
	assert.Equal(t, 60, len([]rune(chunks[0])))
}

func TestChunkIDsAreDeterministic(t *testing.T) {
	a := chunkID("http://x", 0)
	b := chunkID("http://x", 0)
	c := chunkID("http://x", 1)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}

func TestBuildResultContextPrefersScrapedText(t *testing.T) {
	results := []domain.SearchResult{
		{URL: "http://a", Title: "A", Description: "snippet a"},
		{URL: "http://b", Title: "B", Description: "snippet b"},
	}
	scraped := []domain.ScrapedContent{
		{URL: "http://a", Content: strings.Repeat("z", 3000), Success: true},
		{URL: "http://b", Content: "ignored", Success: false},
	}

	ctx := buildResultContext(results, scraped)

	assert.Contains(t, ctx, "Source [1]: A")
	assert.Contains(t, ctx, "Source [2]: B")
	assert.Contains(t, ctx, "snippet b")
	assert.NotContains(t, ctx, "ignored")
	// Scraped text is capped per source.
	assert.Contains(t, ctx, strings.Repeat("z", 2000))
	assert.NotContains(t, ctx, strings.Repeat("z", 2001))
}

func TestBuildChunkContext(t *testing.T) {
	ctx := buildChunkContext([]domain.VectorChunk{
		{Title: "T1", URL: "http://1", Content: "first"},
		{Title: "T2", URL: "http://2", Content: "second"},
	})
	assert.Contains(t, ctx, "Source [1]: T1\nURL: http://1\nContent: first\n")
	assert.Contains(t, ctx, "Source [2]: T2")
	assert.Contains(t, ctx, "\n\n")
}

func TestRunSecondIdenticalRequestServedFromCache(t *testing.T) {
	search := &fakeSearch{results: someResults()}
	metrics := &fakeMetrics{}
	cfg := DefaultConfig()
	cfg.DefaultProviders = []domain.SearchProvider{domain.SearchProviderWhoogle}
	eng := New(cfg, search, &fakeScraper{}, &fakeStore{}, &fakeLLM{fragments: []string{"answer"}}, metrics, testLogger())

	req := &domain.DeepSearchRequest{Query: "cached query"}
	first := collect(t, eng.Run(context.Background(), req))
	require.Equal(t, domain.EventComplete, first[len(first)-1].Type)
	assert.False(t, first[len(first)-1].Complete.CacheHit)

	second := collect(t, eng.Run(context.Background(), req))
	last := second[len(second)-1]
	require.Equal(t, domain.EventComplete, last.Type)
	assert.True(t, last.Complete.CacheHit)
	assert.Equal(t, "answer", last.Complete.Answer)

	// The replay still carries content and sources before complete.
	assert.Equal(t, domain.EventContent, second[0].Type)
	assert.Equal(t, domain.EventSources, second[1].Type)

	assert.Equal(t, 1, search.calls)
	assert.Equal(t, 1, metrics.cacheHits)
	assert.Equal(t, 1, metrics.cacheMisses)
}

func TestRunCacheBypassedWhenDeclined(t *testing.T) {
	search := &fakeSearch{results: someResults()}
	metrics := &fakeMetrics{}
	cfg := DefaultConfig()
	cfg.DefaultProviders = []domain.SearchProvider{domain.SearchProviderWhoogle}
	eng := New(cfg, search, &fakeScraper{}, &fakeStore{}, &fakeLLM{fragments: []string{"answer"}}, metrics, testLogger())

	no := false
	req := &domain.DeepSearchRequest{Query: "cached query", UseCache: &no}
	collect(t, eng.Run(context.Background(), req))
	collect(t, eng.Run(context.Background(), req))

	assert.Equal(t, 2, search.calls)
	assert.Zero(t, metrics.cacheHits)
	assert.Zero(t, metrics.cacheMisses)
}

func TestResultCacheExpiry(t *testing.T) {
	cache := newResultCache(10 * time.Millisecond)
	key := cache.key(&domain.DeepSearchRequest{Query: "q"})

	cache.put(key, domain.DeepSearchResponse{Answer: "a"}, 0)
	_, ok := cache.get(key)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = cache.get(key)
	assert.False(t, ok)
}

func TestResultCacheKeyDistinguishesOptions(t *testing.T) {
	cache := newResultCache(time.Minute)
	base := &domain.DeepSearchRequest{Query: "Q"}
	sameQuery := &domain.DeepSearchRequest{Query: "  q "}
	differentTopK := &domain.DeepSearchRequest{Query: "Q", RAGTopK: 5}

	assert.Equal(t, cache.key(base), cache.key(sameQuery))
	assert.NotEqual(t, cache.key(base), cache.key(differentTopK))
}
