package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

func serveJSON(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
}

func TestWhoogle_ParsesResults(t *testing.T) {
	srv := serveJSON(t, `{"results":[
		{"title":"Go","url":"https://go.dev","snippet":"The Go language"},
		{"title":"no url","snippet":"dropped"},
		{"title":"Docs","url":"https://go.dev/doc","snippet":"Documentation"}
	]}`)
	defer srv.Close()

	p := NewWhoogle(Config{BaseURL: srv.URL})
	results, err := p.Query(context.Background(), "golang", time.Second)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Go", results[0].Title)
	assert.Equal(t, "https://go.dev", results[0].URL)
	assert.Equal(t, "The Go language", results[0].Description)
	assert.Equal(t, domain.SearchProviderWhoogle, results[0].Source)
	assert.Equal(t, 1.0, results[0].Confidence)
}

func TestSearXNG_ParsesResults(t *testing.T) {
	srv := serveJSON(t, `{"results":[{"title":"Go","url":"https://go.dev","content":"language"}]}`)
	defer srv.Close()

	p := NewSearXNG(Config{BaseURL: srv.URL})
	results, err := p.Query(context.Background(), "golang", time.Second)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "language", results[0].Description)
}

func TestYaCy_ParsesChannelItems(t *testing.T) {
	srv := serveJSON(t, `{"channels":[{"items":[
		{"title":"Go","link":"https://go.dev","description":"p2p result"},
		{"title":"no link","description":"dropped"}
	]}]}`)
	defer srv.Close()

	p := NewYaCy(Config{BaseURL: srv.URL})
	results, err := p.Query(context.Background(), "golang", time.Second)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://go.dev", results[0].URL)
	assert.InDelta(t, 0.64, results[0].Confidence, 1e-9)
}

func TestWikipedia_BuildsArticleURLsAndStripsTags(t *testing.T) {
	srv := serveJSON(t, `{"query":{"search":[
		{"title":"Go (programming language)","snippet":"<span>Go</span> is a language"}
	]}}`)
	defer srv.Close()

	p := NewWikipedia(Config{BaseURL: srv.URL})
	results, err := p.Query(context.Background(), "golang", time.Second)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Go_(programming_language)", results[0].URL)
	assert.Equal(t, "Go is a language", results[0].Description)
	assert.InDelta(t, 1.44, results[0].Confidence, 1e-9)
}

func TestDuckDuckGo_NestedTopicsAndAbstract(t *testing.T) {
	srv := serveJSON(t, `{
		"Heading":"Golang",
		"AbstractURL":"https://go.dev",
		"AbstractText":"Go is a statically typed language.",
		"RelatedTopics":[
			{"FirstURL":"https://example.com/a","Text":"Topic A - details"},
			{"Name":"Group","Topics":[
				{"FirstURL":"https://example.com/b","Text":"Topic B - more"}
			]}
		]
	}`)
	defer srv.Close()

	p := NewDuckDuckGo(Config{BaseURL: srv.URL})
	results, err := p.Query(context.Background(), "golang", time.Second)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "Topic A", results[0].Title)
	assert.Equal(t, "Topic B", results[1].Title)

	abstract := results[2]
	assert.Equal(t, "Golang", abstract.Title)
	assert.Equal(t, "https://go.dev", abstract.URL)
	assert.InDelta(t, 1.1*1.1, abstract.Confidence, 1e-9)
}

func TestStackExchange_FormatsDescription(t *testing.T) {
	srv := serveJSON(t, `{"items":[
		{"title":"How to use &lt;channels&gt;?","link":"https://stackoverflow.com/q/1","score":42,"answer_count":3,"owner":{"display_name":"gopher"}},
		{"title":"Anonymous question","link":"https://stackoverflow.com/q/2","score":0,"answer_count":0,"owner":{}}
	]}`)
	defer srv.Close()

	p := NewStackExchange(Config{BaseURL: srv.URL})
	results, err := p.Query(context.Background(), "channels", time.Second)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "How to use <channels>?", results[0].Title)
	assert.Equal(t, "Score: 42, Answers: 3. By: gopher", results[0].Description)
	assert.Equal(t, "Score: 0, Answers: 0. By: N/A", results[1].Description)
}

func TestArxiv_ParsesAtomFeed(t *testing.T) {
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1234.5678</id>
    <title>Deep   Retrieval
 Systems</title>
    <summary>A study of
retrieval.</summary>
  </entry>
</feed>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	p := NewArxiv(Config{BaseURL: srv.URL})
	results, err := p.Query(context.Background(), "retrieval", time.Second)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Deep Retrieval Systems", results[0].Title)
	assert.Equal(t, "http://arxiv.org/abs/1234.5678", results[0].URL)
	assert.Equal(t, "A study of retrieval.", results[0].Description)
	assert.InDelta(t, 1.2*1.3, results[0].Confidence, 1e-9)
}

func TestArxiv_NonXMLBodyYieldsNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("service unavailable"))
	}))
	defer srv.Close()

	p := NewArxiv(Config{BaseURL: srv.URL})
	results, err := p.Query(context.Background(), "retrieval", time.Second)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBrave_SendsSubscriptionToken(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Subscription-Token")
		_, _ = w.Write([]byte(`{"web":{"results":[{"title":"Go","url":"https://go.dev","description":"d"}]}}`))
	}))
	defer srv.Close()

	p := NewBrave(Config{BaseURL: srv.URL, APIKey: "secret"})
	results, err := p.Query(context.Background(), "golang", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "secret", gotToken)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.2*1.1, results[0].Confidence, 1e-9)
}

func TestGoogleCSE_SendsKeyAndCX(t *testing.T) {
	var gotKey, gotCX string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		gotCX = r.URL.Query().Get("cx")
		_, _ = w.Write([]byte(`{"items":[{"title":"Go","link":"https://go.dev","snippet":"s"}]}`))
	}))
	defer srv.Close()

	p := NewGoogleCSE(Config{BaseURL: srv.URL, APIKey: "k", CX: "cx123"})
	results, err := p.Query(context.Background(), "golang", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, "cx123", gotCX)
	require.Len(t, results, 1)
}

func TestProvider_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewWhoogle(Config{BaseURL: srv.URL})
	_, err := p.Query(context.Background(), "golang", time.Second)
	assert.Error(t, err)
}

func TestProvider_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	p := NewSearXNG(Config{BaseURL: srv.URL})
	_, err := p.Query(context.Background(), "golang", 20*time.Millisecond)
	assert.Error(t, err)
}
