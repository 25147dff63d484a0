package providers

import (
	"context"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const searxngWeight = 1.0

// SearXNG queries a self-hosted SearXNG metasearch instance.
type SearXNG struct {
	baseURL string
	http    *httpClient
}

func NewSearXNG(cfg Config) *SearXNG {
	base := cfg.BaseURL
	if base == "" {
		base = "http://searxng:8080"
	}
	return &SearXNG{baseURL: base, http: newHTTPClient()}
}

func (s *SearXNG) Name() domain.SearchProvider {
	return domain.SearchProviderSearXNG
}

func (s *SearXNG) Query(ctx context.Context, query string, timeout time.Duration) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	body, err := s.http.get(ctx, s.baseURL+"/search", params, nil, timeout)
	if err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	gjson.GetBytes(body, "results").ForEach(func(_, item gjson.Result) bool {
		u := item.Get("url").String()
		if u == "" {
			return true
		}
		results = append(results, result(
			domain.SearchProviderSearXNG,
			item.Get("title").String(),
			u,
			item.Get("content").String(),
			searxngWeight,
		))
		return true
	})
	return results, nil
}
