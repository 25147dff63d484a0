package vectorstore

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
	"github.com/deepsearchstack/deepsearch/internal/logger"
)

func testLogger() logger.StyledLogger {
	return logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClientEmbedPostsDocuments(t *testing.T) {
	var got map[string][]domain.VectorDocument
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testLogger())
	err := c.Embed(context.Background(), []domain.VectorDocument{
		{ID: "abc", Text: "hello world", Metadata: map[string]string{"url": "http://x", "chunk_index": "0"}},
	})
	require.NoError(t, err)
	require.Len(t, got["documents"], 1)
	assert.Equal(t, "abc", got["documents"][0].ID)
	assert.Equal(t, "http://x", got["documents"][0].Metadata["url"])
}

func TestClientEmbedNoDocumentsIsNoop(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, testLogger())
	assert.NoError(t, c.Embed(context.Background(), nil))
}

func TestClientQueryParsesBatchShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/query", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "rust memory safety", req["query_text"])
		assert.EqualValues(t, 2, req["n_results"])

		w.Write([]byte(`{
			"ids": [["c1", "c2"]],
			"documents": [["first chunk", "second chunk"]],
			"metadatas": [[{"url": "http://a", "title": "A"}, {"url": "http://b", "title": "B"}]],
			"distances": [[0.2, 1.4]]
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testLogger())
	chunks, err := c.Query(context.Background(), "rust memory safety", 2)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "c1", chunks[0].ChunkID)
	assert.Equal(t, "first chunk", chunks[0].Content)
	assert.Equal(t, "http://a", chunks[0].URL)
	assert.Equal(t, "A", chunks[0].Title)
	assert.InDelta(t, 0.8, chunks[0].SimilarityScore, 1e-9)

	// distance above 1 clamps to zero similarity
	assert.Equal(t, 0.0, chunks[1].SimilarityScore)
}

func TestClientQueryEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ids": [[]], "documents": [[]]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testLogger())
	chunks, err := c.Query(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestClientQueryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, testLogger())
	_, err := c.Query(context.Background(), "anything", 5)
	assert.Error(t, err)
}

func TestMemoryStoreRanksBySimilarity(t *testing.T) {
	m := NewMemory()
	err := m.Embed(context.Background(), []domain.VectorDocument{
		{ID: "on-topic", Text: "goroutines and channels make concurrency simple",
			Metadata: map[string]string{"url": "http://a", "title": "Concurrency"}},
		{ID: "off-topic", Text: "baking sourdough bread requires patience",
			Metadata: map[string]string{"url": "http://b", "title": "Bread"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	chunks, err := m.Query(context.Background(), "concurrency with goroutines", 10)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "on-topic", chunks[0].ChunkID)
	assert.Equal(t, "http://a", chunks[0].URL)
	for _, c := range chunks {
		assert.NotEqual(t, "off-topic", c.ChunkID)
	}
}

func TestMemoryStoreTopK(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Embed(context.Background(), []domain.VectorDocument{
		{ID: "a", Text: "search engines index documents"},
		{ID: "b", Text: "search engines crawl pages"},
		{ID: "c", Text: "search engines rank results"},
	}))

	chunks, err := m.Query(context.Background(), "search engines", 2)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}
