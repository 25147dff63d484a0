package providers

import (
	"context"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const braveWeight = 1.2

// Brave uses the paid Brave Search API. The adapter is only registered when a
// subscription token is configured.
type Brave struct {
	baseURL string
	apiKey  string
	http    *httpClient
}

func NewBrave(cfg Config) *Brave {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.search.brave.com/res/v1/web/search"
	}
	return &Brave{baseURL: base, apiKey: cfg.APIKey, http: newHTTPClient()}
}

func (b *Brave) Name() domain.SearchProvider {
	return domain.SearchProviderBrave
}

func (b *Brave) Query(ctx context.Context, query string, timeout time.Duration) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	headers := map[string]string{"X-Subscription-Token": b.apiKey}

	body, err := b.http.get(ctx, b.baseURL, params, headers, timeout)
	if err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	gjson.GetBytes(body, "web.results").ForEach(func(_, item gjson.Result) bool {
		u := item.Get("url").String()
		if u == "" {
			return true
		}
		results = append(results, result(
			domain.SearchProviderBrave,
			item.Get("title").String(),
			u,
			item.Get("description").String(),
			braveWeight*1.1,
		))
		return true
	})
	return results, nil
}
