package providers

import (
	"context"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const qwantWeight = 0.9

// Qwant hits the v3 web search API. The API rejects unknown user agents, so
// the adapter masquerades as SearxNG the way other metasearch front-ends do.
type Qwant struct {
	baseURL string
	apiKey  string
	http    *httpClient
}

func NewQwant(cfg Config) *Qwant {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.qwant.com/v3/search/web"
	}
	return &Qwant{baseURL: base, apiKey: cfg.APIKey, http: newHTTPClient()}
}

func (q *Qwant) Name() domain.SearchProvider {
	return domain.SearchProviderQwant
}

func (q *Qwant) Query(ctx context.Context, query string, timeout time.Duration) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", "20")
	params.Set("offset", "0")
	headers := map[string]string{"User-Agent": "SearxNG"}

	body, err := q.http.get(ctx, q.baseURL, params, headers, timeout)
	if err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	gjson.GetBytes(body, "data.result.items").ForEach(func(_, item gjson.Result) bool {
		u := item.Get("url").String()
		if u == "" {
			return true
		}
		results = append(results, result(
			domain.SearchProviderQwant,
			item.Get("title").String(),
			u,
			item.Get("description").String(),
			qwantWeight,
		))
		return true
	})
	return results, nil
}
