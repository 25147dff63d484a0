package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/deepsearchstack/deepsearch/internal/core/constants"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
	"github.com/deepsearchstack/deepsearch/internal/core/ports"
	"github.com/deepsearchstack/deepsearch/internal/logger"
)

// Config carries the deployment-level pipeline defaults. Per-request toggles
// narrow these but never widen them: a stage disabled here stays disabled.
type Config struct {
	DefaultProviders []domain.SearchProvider
	MaxResults       int

	ScrapingEnabled bool
	MaxScrapeURLs   int

	RAGEnabled          bool
	StoreScrapedContent bool
	ChunkSize           int
	ChunkOverlap        int
	TopK                int

	DefaultLLMProvider string
	SystemPrompt       string
	Temperature        float64
	SynthesisTimeout   time.Duration

	CacheEnabled bool
	CacheTTL     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxResults:          constants.DefaultSearchMaxResults,
		ScrapingEnabled:     true,
		MaxScrapeURLs:       constants.DefaultMaxScrapeURLs,
		RAGEnabled:          true,
		StoreScrapedContent: true,
		ChunkSize:           constants.DefaultChunkSize,
		ChunkOverlap:        constants.DefaultChunkOverlap,
		TopK:                constants.DefaultRAGTopK,
		DefaultLLMProvider:  "ollama",
		Temperature:         constants.DefaultSynthesisTemperature,
		SynthesisTimeout:    constants.DefaultSynthesisTimeout,
		CacheEnabled:        true,
		CacheTTL:            constants.DefaultCacheTTL,
	}
}

// Engine drives one deepsearch run through its stages: search, scrape,
// embed, retrieve, synthesize. Failures after search degrade the run rather
// than abort it; only an empty search or a cancelled context terminate with
// an error event.
type Engine struct {
	cfg     Config
	search  ports.SearchService
	scraper ports.Scraper
	store   ports.VectorStore
	llm     ports.LLMRouter
	metrics ports.MetricsRecorder
	cache   *resultCache
	logger  logger.StyledLogger
}

func New(cfg Config, search ports.SearchService, scraper ports.Scraper, store ports.VectorStore, llm ports.LLMRouter, metrics ports.MetricsRecorder, log logger.StyledLogger) *Engine {
	e := &Engine{
		cfg:     cfg,
		search:  search,
		scraper: scraper,
		store:   store,
		llm:     llm,
		metrics: metrics,
		logger:  log,
	}
	if cfg.CacheEnabled {
		e.cache = newResultCache(cfg.CacheTTL)
	}
	return e
}

func (e *Engine) Run(ctx context.Context, req *domain.DeepSearchRequest) <-chan domain.StreamEvent {
	// One slot of buffer so the terminal cancellation event lands even when
	// the consumer has already walked away.
	events := make(chan domain.StreamEvent, 1)
	go func() {
		defer close(events)
		e.run(ctx, req, events)
	}()
	return events
}

// emit delivers one event unless the run has been cancelled.
func emit(ctx context.Context, events chan<- domain.StreamEvent, ev domain.StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) run(ctx context.Context, req *domain.DeepSearchRequest, events chan<- domain.StreamEvent) {
	start := time.Now()

	var cacheKey string
	if e.cache != nil && req.CacheAllowed() {
		cacheKey = e.cache.key(req)
		if resp, ok := e.cache.get(cacheKey); ok {
			e.metrics.RecordCacheHit(true)
			e.replayCached(ctx, req, resp, start, events)
			return
		}
		e.metrics.RecordCacheHit(false)
	}

	providers := req.Providers
	if len(providers) == 0 {
		providers = e.cfg.DefaultProviders
	}
	providerCount := len(providers)

	if !emit(ctx, events, domain.NewProgressEvent(domain.StageSearching,
		fmt.Sprintf("Searching across %d providers...", providerCount), 0.1)) {
		emitCancelled(ctx, events)
		return
	}

	results, err := e.runSearch(ctx, req, providers)
	if ctx.Err() != nil {
		emitCancelled(ctx, events)
		return
	}
	if err != nil || len(results) == 0 {
		if err != nil {
			e.logger.Error("search stage failed", "error", err)
		}
		emit(ctx, events, domain.NewErrorEvent(domain.ErrNoSearchResults.Error()))
		return
	}

	var scraped []domain.ScrapedContent
	if req.ScrapingEnabled() && e.cfg.ScrapingEnabled {
		maxURLs := req.MaxScrapeURLs
		if maxURLs <= 0 {
			maxURLs = e.cfg.MaxScrapeURLs
		}
		count := len(results)
		if count > maxURLs {
			count = maxURLs
		}
		if !emit(ctx, events, domain.NewProgressEvent(domain.StageScraping,
			fmt.Sprintf("Scraping content from %d URLs...", count), 0.3)) {
			emitCancelled(ctx, events)
			return
		}
		scraped = e.scraper.Scrape(ctx, results, maxURLs)
	}
	if ctx.Err() != nil {
		emitCancelled(ctx, events)
		return
	}

	ragEnabled := req.RAGEnabled() && e.cfg.RAGEnabled
	if ragEnabled && len(scraped) > 0 && e.cfg.StoreScrapedContent {
		if !emit(ctx, events, domain.NewProgressEvent(domain.StageEmbedding,
			fmt.Sprintf("Embedding %d documents into vector store...", len(scraped)), 0.5)) {
			emitCancelled(ctx, events)
			return
		}
		docs := chunkDocuments(req.Query, scraped, e.cfg.ChunkSize, e.cfg.ChunkOverlap)
		if err := e.store.Embed(ctx, docs); err != nil {
			e.logger.Warn("embedding stage degraded", "error", err)
		}
	}

	var chunks []domain.VectorChunk
	if ragEnabled {
		if !emit(ctx, events, domain.NewProgressEvent(domain.StageRetrieving,
			"Retrieving most relevant content chunks...", 0.6)) {
			emitCancelled(ctx, events)
			return
		}
		topK := req.RAGTopK
		if topK <= 0 {
			topK = e.cfg.TopK
		}
		chunks, err = e.store.Query(ctx, req.Query, topK)
		if err != nil {
			e.logger.Warn("retrieval stage degraded", "error", err)
			chunks = nil
		}
	}
	if ctx.Err() != nil {
		emitCancelled(ctx, events)
		return
	}

	answer := "Search completed. Synthesis disabled."
	providerUsed := req.LLMProvider
	if providerUsed == "" {
		providerUsed = e.cfg.DefaultLLMProvider
	}

	if req.SynthesisEnabled() {
		if !emit(ctx, events, domain.NewProgressEvent(domain.StageSynthesizing,
			"Generating comprehensive answer...", 0.7)) {
			emitCancelled(ctx, events)
			return
		}

		var searchContext string
		if len(chunks) > 0 {
			searchContext = buildChunkContext(chunks)
		} else {
			searchContext = buildResultContext(results, scraped)
		}

		var ok bool
		answer, providerUsed, ok = e.synthesize(ctx, req, searchContext, events)
		if !ok {
			emitCancelled(ctx, events)
			return
		}
	}

	if !emit(ctx, events, domain.NewSourcesEvent(results)) {
		emitCancelled(ctx, events)
		return
	}

	response := domain.DeepSearchResponse{
		Query:           req.Query,
		Answer:          answer,
		Sources:         results,
		ScrapedContent:  scraped,
		RAGChunks:       chunks,
		SessionID:       req.SessionID,
		ExecutionTime:   time.Since(start).Seconds(),
		ProviderUsed:    providerUsed,
		TotalResults:    len(results),
		ResultsScraped:  len(scraped),
		ChunksRetrieved: len(chunks),
	}
	if cacheKey != "" {
		e.cache.put(cacheKey, response, req.CacheTTL)
	}
	emit(ctx, events, domain.NewCompleteEvent(&response))
}

// replayCached re-emits a stored response as the same event shape a live run
// produces, so clients cannot tell a cached answer apart structurally.
func (e *Engine) replayCached(ctx context.Context, req *domain.DeepSearchRequest, resp domain.DeepSearchResponse, start time.Time, events chan<- domain.StreamEvent) {
	if resp.Answer != "" {
		if !emit(ctx, events, domain.NewContentEvent(resp.Answer)) {
			emitCancelled(ctx, events)
			return
		}
	}
	if !emit(ctx, events, domain.NewSourcesEvent(resp.Sources)) {
		emitCancelled(ctx, events)
		return
	}

	resp.SessionID = req.SessionID
	resp.ExecutionTime = time.Since(start).Seconds()
	resp.CacheHit = true
	emit(ctx, events, domain.NewCompleteEvent(&resp))
}

func (e *Engine) runSearch(ctx context.Context, req *domain.DeepSearchRequest, providers []domain.SearchProvider) ([]domain.SearchResult, error) {
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = e.cfg.MaxResults
	}
	sortBy := req.SortBy
	if !sortBy.IsValid() {
		sortBy = domain.SortMethodRelevance
	}
	var timeout time.Duration
	if req.Timeout > 0 {
		timeout = time.Duration(req.Timeout * float64(time.Second))
	}

	return e.search.Search(ctx, &domain.SearchRequest{
		Query:      req.Query,
		Providers:  providers,
		MaxResults: maxResults,
		SortBy:     sortBy,
		Timeout:    timeout,
	})
}

// synthesize streams the LLM answer, forwarding each fragment as a content
// event. A mid-stream failure is reported inline rather than aborting the
// run; the sources gathered so far are still worth delivering.
func (e *Engine) synthesize(ctx context.Context, req *domain.DeepSearchRequest, searchContext string, events chan<- domain.StreamEvent) (answer, providerUsed string, ok bool) {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = e.cfg.Temperature
	}

	completion := &domain.CompletionRequest{
		Messages: []domain.Message{
			{Role: "system", Content: e.cfg.SystemPrompt},
			{Role: "user", Content: fmt.Sprintf("User Query: %s\n\nSearch Context:\n%s", req.Query, searchContext)},
		},
		Temperature: temperature,
		Stream:      true,
		Provider:    req.LLMProvider,
		Fallback:    true,
	}

	synthCtx := ctx
	if e.cfg.SynthesisTimeout > 0 {
		var cancel context.CancelFunc
		synthCtx, cancel = context.WithTimeout(ctx, e.cfg.SynthesisTimeout)
		defer cancel()
	}

	providerUsed = req.LLMProvider
	if providerUsed == "" {
		providerUsed = e.cfg.DefaultLLMProvider
	}

	deltas, name, err := e.llm.Stream(synthCtx, completion)
	if err != nil {
		e.logger.Error("synthesis failed to start", "error", err)
		msg := fmt.Sprintf("\n\n**Error during synthesis:** %s", err)
		if !emit(ctx, events, domain.NewContentEvent(msg)) {
			return "", providerUsed, false
		}
		return msg, providerUsed, true
	}
	if name != "" {
		providerUsed = name
	}

	var parts []byte
	for delta := range deltas {
		if delta.Err != nil {
			e.logger.Error("synthesis stream broke", "error", delta.Err)
			msg := fmt.Sprintf("\n\n**Error during synthesis:** %s", delta.Err)
			parts = append(parts, msg...)
			if !emit(ctx, events, domain.NewContentEvent(msg)) {
				return "", providerUsed, false
			}
			continue
		}
		if delta.Content == "" {
			continue
		}
		parts = append(parts, delta.Content...)
		if !emit(ctx, events, domain.NewContentEvent(delta.Content)) {
			return "", providerUsed, false
		}
	}
	return string(parts), providerUsed, true
}

func emitCancelled(ctx context.Context, events chan<- domain.StreamEvent) {
	// The run context is already dead, so bypass emit's cancellation check.
	// Give the consumer a moment to drain before dropping the event.
	select {
	case events <- domain.NewErrorEvent(domain.ErrPipelineCancelled.Error()):
	case <-time.After(time.Second):
	}
}
