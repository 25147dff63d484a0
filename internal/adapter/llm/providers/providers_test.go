package providers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

func completionRequest() *domain.CompletionRequest {
	return &domain.CompletionRequest{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "You are terse."},
			{Role: domain.RoleUser, Content: "Say hi."},
		},
		Temperature: 0.3,
	}
}

func TestGroq_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"model":"llama-3.3-70b-versatile",
			"choices":[{"message":{"content":"hi"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}
		}`))
	}))
	defer srv.Close()

	p := NewGroq("test-key", srv.URL, "")
	resp, err := p.Complete(context.Background(), completionRequest())
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
	assert.Equal(t, "groq", resp.ProviderName)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
}

func TestGroq_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"content\":\"he\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"llo\"}}]}\n\n" +
				"data: [DONE]\n\n"))
	}))
	defer srv.Close()

	p := NewGroq("test-key", srv.URL, "")
	deltas, err := p.Stream(context.Background(), completionRequest())
	require.NoError(t, err)

	var got string
	for delta := range deltas {
		require.NoError(t, delta.Err)
		got += delta.Content
	}
	assert.Equal(t, "hello", got)
}

func TestOllama_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"model":"llama3.2",
			"message":{"role":"assistant","content":"hi there"},
			"done":true,"done_reason":"stop",
			"prompt_eval_count":8,"eval_count":3
		}`))
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, "")
	resp, err := p.Complete(context.Background(), completionRequest())
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, 11, resp.Usage.TotalTokens)
}

func TestOllama_StreamNDJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(
			`{"message":{"content":"one "},"done":false}` + "\n" +
				`{"message":{"content":"two"},"done":false}` + "\n" +
				`{"message":{"content":""},"done":true}` + "\n"))
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, "")
	deltas, err := p.Stream(context.Background(), completionRequest())
	require.NoError(t, err)

	var got string
	for delta := range deltas {
		require.NoError(t, delta.Err)
		got += delta.Content
	}
	assert.Equal(t, "one two", got)
}

func TestGemini_CompleteMapsRoles(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{
			"candidates":[{"content":{"parts":[{"text":"bonjour"}]},"finishReason":"STOP"}],
			"usageMetadata":{"promptTokenCount":5,"candidatesTokenCount":1,"totalTokenCount":6}
		}`))
	}))
	defer srv.Close()

	p := NewGemini("k", srv.URL, "gemini-2.0-flash")
	req := &domain.CompletionRequest{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "sys"},
			{Role: domain.RoleUser, Content: "hello"},
			{Role: domain.RoleAssistant, Content: "prev"},
		},
	}
	resp, err := p.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "bonjour", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)

	payload := string(body)
	assert.Contains(t, payload, `"systemInstruction"`)
	assert.Contains(t, payload, `"role":"model"`)
	assert.NotContains(t, payload, `"role":"assistant"`)
}

func TestGemini_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(
			"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"a\"}]}}]}\n\n" +
				"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"b\"}]}}]}\n\n"))
	}))
	defer srv.Close()

	p := NewGemini("k", srv.URL, "m")
	deltas, err := p.Stream(context.Background(), completionRequest())
	require.NoError(t, err)

	var got string
	for delta := range deltas {
		require.NoError(t, delta.Err)
		got += delta.Content
	}
	assert.Equal(t, "ab", got)
}

func TestProvider_HTTPErrorSurfacesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewGroq("k", srv.URL, "")
	_, err := p.Complete(context.Background(), completionRequest())
	require.Error(t, err)

	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "groq", perr.Provider)
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
}

func TestAvailable_CachesProbe(t *testing.T) {
	var probes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, "")
	ctx := context.Background()

	assert.True(t, p.Available(ctx))
	assert.True(t, p.Available(ctx))
	assert.Equal(t, 1, probes)
}

func TestAvailable_NoKeyMeansUnavailable(t *testing.T) {
	p := NewGroq("", "http://unused", "")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.False(t, p.Available(ctx))
}
