package handlers

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepsearchstack/deepsearch/internal/adapter/breaker"
	"github.com/deepsearchstack/deepsearch/internal/adapter/llm"
	"github.com/deepsearchstack/deepsearch/internal/adapter/metrics"
	"github.com/deepsearchstack/deepsearch/internal/adapter/search"
	"github.com/deepsearchstack/deepsearch/internal/adapter/session"
	"github.com/deepsearchstack/deepsearch/internal/config"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
	"github.com/deepsearchstack/deepsearch/internal/core/ports"
	"github.com/deepsearchstack/deepsearch/internal/logger"
)

type fakeEngine struct {
	events []domain.StreamEvent
}

func (f *fakeEngine) Run(ctx context.Context, req *domain.DeepSearchRequest) <-chan domain.StreamEvent {
	out := make(chan domain.StreamEvent, len(f.events))
	for _, ev := range f.events {
		out <- ev
	}
	close(out)
	return out
}

type fakeSearch struct {
	results []domain.SearchResult
	err     error
}

func (f *fakeSearch) Search(ctx context.Context, req *domain.SearchRequest) ([]domain.SearchResult, error) {
	return f.results, f.err
}

type fakeRouter struct {
	resp *domain.CompletionResponse
	err  error
}

func (f *fakeRouter) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	return f.resp, f.err
}

func (f *fakeRouter) Stream(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamDelta, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	out := make(chan domain.StreamDelta, 2)
	out <- domain.StreamDelta{Content: f.resp.Content}
	close(out)
	return out, f.resp.ProviderName, nil
}

func (f *fakeRouter) Select(ctx context.Context, strategy domain.RoutingStrategy, preferred string, exclude []string) (string, error) {
	return f.resp.ProviderName, nil
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(userID, tier, provider string) ports.RateLimitDecision {
	return ports.RateLimitDecision{Allowed: true, Limit: 100, Remaining: 99}
}
func (allowAllLimiter) Stop() {}

// providerDenyLimiter refuses one named provider and admits everything else.
type providerDenyLimiter struct{ provider string }

func (l providerDenyLimiter) Allow(_, _, provider string) ports.RateLimitDecision {
	if provider == l.provider {
		return ports.RateLimitDecision{
			Scope:      "provider",
			Limit:      10,
			RetryAfter: 2 * time.Second,
			ResetTime:  time.Now().Add(2 * time.Second),
		}
	}
	return ports.RateLimitDecision{Allowed: true, Limit: 100, Remaining: 99}
}

func (providerDenyLimiter) Stop() {}

type fakeSearchAdapter struct{ name domain.SearchProvider }

func (f *fakeSearchAdapter) Name() domain.SearchProvider { return f.name }
func (f *fakeSearchAdapter) Query(ctx context.Context, query string, timeout time.Duration) ([]domain.SearchResult, error) {
	return nil, nil
}

type appOptions struct {
	engine   ports.DeepSearchService
	search   ports.SearchService
	router   ports.LLMRouter
	sessions ports.SessionStore
	limiter  ports.RateLimiter
}

func newTestApplication(t *testing.T, opts appOptions) *Application {
	t.Helper()

	log := logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	recorder := metrics.NewRecorder(1)
	t.Cleanup(recorder.Stop)

	breakers := breaker.NewSet(breaker.DefaultConfig())
	llmRegistry := llm.NewRegistry(breakers, recorder)

	searchRegistry := search.NewRegistry()
	searchRegistry.Register(&fakeSearchAdapter{name: domain.SearchProviderWikipedia})

	cfg := config.DefaultConfig()

	if opts.engine == nil {
		opts.engine = &fakeEngine{}
	}
	if opts.search == nil {
		opts.search = &fakeSearch{}
	}
	if opts.router == nil {
		opts.router = &fakeRouter{resp: &domain.CompletionResponse{Content: "ok", ProviderName: "ollama"}}
	}
	if opts.limiter == nil {
		opts.limiter = allowAllLimiter{}
	}

	return New(cfg, log, Dependencies{
		Engine:         opts.engine,
		Search:         opts.search,
		SearchRegistry: searchRegistry,
		LLMRouter:      opts.router,
		LLMRegistry:    llmRegistry,
		Sessions:       opts.sessions,
		Limiter:        opts.limiter,
		Metrics:        recorder,
		Breakers:       breakers,
	})
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// parseSSE splits an SSE body into its decoded data frames.
func parseSSE(t *testing.T, body string) []map[string]any {
	t.Helper()
	var frames []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			continue
		}
		var frame map[string]any
		require.NoError(t, json.Unmarshal([]byte(payload), &frame))
		frames = append(frames, frame)
	}
	return frames
}

func TestHandleDeepSearch_StreamsEvents(t *testing.T) {
	complete := &domain.DeepSearchResponse{Query: "go routines", Answer: "final answer", TotalResults: 2}
	engine := &fakeEngine{events: []domain.StreamEvent{
		domain.NewProgressEvent(domain.StageSearching, "Searching across 2 providers...", 0.1),
		domain.NewContentEvent("final "),
		domain.NewContentEvent("answer"),
		domain.NewCompleteEvent(complete),
	}}
	app := newTestApplication(t, appOptions{engine: engine})

	rec := postJSON(t, app.Handler(), "/deepsearch", `{"query":"go routines"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))

	frames := parseSSE(t, rec.Body.String())
	require.Len(t, frames, 4)
	assert.Equal(t, "progress", frames[0]["type"])
	assert.Equal(t, "content", frames[1]["type"])
	assert.Equal(t, "complete", frames[3]["type"])
}

func TestHandleDeepSearch_AppendsSessionMessages(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	created, err := store.Create(context.Background(), &domain.SessionCreate{})
	require.NoError(t, err)

	complete := &domain.DeepSearchResponse{Query: "q", Answer: "the answer", ProviderUsed: "ollama"}
	engine := &fakeEngine{events: []domain.StreamEvent{domain.NewCompleteEvent(complete)}}
	app := newTestApplication(t, appOptions{engine: engine, sessions: store})

	rec := postJSON(t, app.Handler(), "/deepsearch", `{"query":"q","session_id":"`+created.SessionID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	loaded, err := store.Get(context.Background(), created.SessionID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, domain.RoleUser, loaded.Messages[0].Role)
	assert.Equal(t, "q", loaded.Messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, loaded.Messages[1].Role)
	assert.Equal(t, "the answer", loaded.Messages[1].Content)
	assert.Equal(t, "ollama", loaded.Messages[1].Metadata["provider_used"])
}

func TestHandleDeepSearch_RejectsEmptyQuery(t *testing.T) {
	app := newTestApplication(t, appOptions{})
	rec := postJSON(t, app.Handler(), "/deepsearch", `{"query":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuickSearch_CollectsContent(t *testing.T) {
	complete := &domain.DeepSearchResponse{Query: "q", Answer: "fallback", TotalResults: 1}
	engine := &fakeEngine{events: []domain.StreamEvent{
		domain.NewContentEvent("streamed "),
		domain.NewContentEvent("answer"),
		domain.NewCompleteEvent(complete),
	}}
	app := newTestApplication(t, appOptions{engine: engine})

	rec := postJSON(t, app.Handler(), "/deepsearch/quick", `{"query":"q"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.DeepSearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "streamed answer", resp.Answer)
	assert.Equal(t, 1, resp.TotalResults)
}

func TestHandleQuickSearch_FailsWithoutComplete(t *testing.T) {
	engine := &fakeEngine{events: []domain.StreamEvent{
		domain.NewErrorEvent("no search results found"),
	}}
	app := newTestApplication(t, appOptions{engine: engine})

	rec := postJSON(t, app.Handler(), "/deepsearch/quick", `{"query":"q"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "no search results found")
}

func TestHandleSearch_ReturnsResults(t *testing.T) {
	svc := &fakeSearch{results: []domain.SearchResult{
		{Title: "Alpha", URL: "https://a.example", Source: domain.SearchProviderWikipedia},
	}}
	app := newTestApplication(t, appOptions{search: svc})

	rec := postJSON(t, app.Handler(), "/search", `{"query":"alpha"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp["total_results"])
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	app := newTestApplication(t, appOptions{sessions: store})
	handler := app.Handler()

	rec := postJSON(t, handler, "/sessions", `{"metadata":{"topic":"testing"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var created domain.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, "testing", created.Metadata["topic"])

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+created.SessionID, nil)
	getRec := httptest.NewRecorder()
	handler.ServeHTTP(getRec, req)
	require.Equal(t, http.StatusOK, getRec.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/sessions?limit=10", nil)
	listRec := httptest.NewRecorder()
	handler.ServeHTTP(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)

	var listing domain.SessionListResponse
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listing))
	assert.Equal(t, 1, listing.Total)

	delReq := httptest.NewRequest(http.MethodDelete, "/sessions/"+created.SessionID, nil)
	delRec := httptest.NewRecorder()
	handler.ServeHTTP(delRec, delReq)
	require.Equal(t, http.StatusOK, delRec.Code)
	assert.Contains(t, delRec.Body.String(), "Session deleted")

	missingReq := httptest.NewRequest(http.MethodGet, "/sessions/"+created.SessionID, nil)
	missingRec := httptest.NewRecorder()
	handler.ServeHTTP(missingRec, missingReq)
	assert.Equal(t, http.StatusNotFound, missingRec.Code)
}

func TestSessionEndpoints_DisabledStorage(t *testing.T) {
	app := newTestApplication(t, appOptions{sessions: nil})
	rec := postJSON(t, app.Handler(), "/sessions", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleCompletion_JSON(t *testing.T) {
	router := &fakeRouter{resp: &domain.CompletionResponse{Content: "hello", ProviderName: "groq"}}
	app := newTestApplication(t, appOptions{router: router})

	rec := postJSON(t, app.Handler(), "/completion", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.CompletionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "groq", resp.ProviderName)
}

func TestHandleCompletion_Stream(t *testing.T) {
	router := &fakeRouter{resp: &domain.CompletionResponse{Content: "streamed", ProviderName: "ollama"}}
	app := newTestApplication(t, appOptions{router: router})

	rec := postJSON(t, app.Handler(), "/v1/chat/completions", `{"stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "streamed")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(rec.Body.String()), "data: [DONE]"))
}

func TestHandleCompletion_ProviderRateLimited(t *testing.T) {
	app := newTestApplication(t, appOptions{limiter: providerDenyLimiter{provider: "groq"}})
	handler := app.Handler()

	rec := postJSON(t, handler, "/completion", `{"provider":"groq","messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	assert.Contains(t, rec.Body.String(), `"scope":"provider"`)

	// Without a named provider only the middleware layers apply.
	rec = postJSON(t, handler, "/completion", `{"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleCompletion_RejectsBadRole(t *testing.T) {
	app := newTestApplication(t, appOptions{})
	rec := postJSON(t, app.Handler(), "/completion", `{"messages":[{"role":"robot","content":"hi"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	app := newTestApplication(t, appOptions{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["status"])
	assert.NotNil(t, resp["dependencies"])
}

func TestHandleRoot_ServiceInfo(t *testing.T) {
	app := newTestApplication(t, appOptions{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "deepsearch", resp["service"])
	assert.NotNil(t, resp["endpoints"])
}

func TestHandleConfig_RedactsSecrets(t *testing.T) {
	app := newTestApplication(t, appOptions{})
	app.cfg.Search.Providers["brave"] = config.SearchProviderConfig{Enabled: true, APIKey: "super-secret"}

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "super-secret")
}

func TestHandleMetrics(t *testing.T) {
	app := newTestApplication(t, appOptions{})
	req := httptest.NewRequest(http.MethodGet, "/metrics?window=1", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "gateway")
	assert.Contains(t, resp, "providers")
}

func TestBreakerAdminEndpoints(t *testing.T) {
	app := newTestApplication(t, appOptions{})
	app.breakers.Get("ollama").RecordFailure()
	handler := app.Handler()

	req := httptest.NewRequest(http.MethodGet, "/admin/breakers", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ollama")

	resetRec := postJSON(t, handler, "/admin/breakers/reset?provider=ollama", ``)
	require.Equal(t, http.StatusOK, resetRec.Code)

	missingRec := postJSON(t, handler, "/admin/breakers/reset?provider=nope", ``)
	assert.Equal(t, http.StatusNotFound, missingRec.Code)

	singleReq := httptest.NewRequest(http.MethodGet, "/admin/providers/ollama/circuit-breaker", nil)
	singleRec := httptest.NewRecorder()
	handler.ServeHTTP(singleRec, singleReq)
	require.Equal(t, http.StatusOK, singleRec.Code)
	assert.Contains(t, singleRec.Body.String(), "state")

	singleReset := postJSON(t, handler, "/admin/providers/ollama/circuit-breaker/reset", ``)
	require.Equal(t, http.StatusOK, singleReset.Code)

	unknownSingle := postJSON(t, handler, "/admin/providers/nope/circuit-breaker/reset", ``)
	assert.Equal(t, http.StatusNotFound, unknownSingle.Code)
}

func TestRequestTracking_SetsRequestID(t *testing.T) {
	app := newTestApplication(t, appOptions{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))
}
