package providers

import (
	"context"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const googleCSEWeight = 1.3

// GoogleCSE searches a Google Programmable Search Engine. Both the API key
// and the engine ID (cx) must be configured.
type GoogleCSE struct {
	baseURL string
	apiKey  string
	cx      string
	http    *httpClient
}

func NewGoogleCSE(cfg Config) *GoogleCSE {
	base := cfg.BaseURL
	if base == "" {
		base = "https://www.googleapis.com/customsearch/v1"
	}
	return &GoogleCSE{baseURL: base, apiKey: cfg.APIKey, cx: cfg.CX, http: newHTTPClient()}
}

func (g *GoogleCSE) Name() domain.SearchProvider {
	return domain.SearchProviderGoogleCSE
}

func (g *GoogleCSE) Query(ctx context.Context, query string, timeout time.Duration) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("key", g.apiKey)
	params.Set("cx", g.cx)

	body, err := g.http.get(ctx, g.baseURL, params, nil, timeout)
	if err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	gjson.GetBytes(body, "items").ForEach(func(_, item gjson.Result) bool {
		link := item.Get("link").String()
		if link == "" {
			return true
		}
		results = append(results, result(
			domain.SearchProviderGoogleCSE,
			item.Get("title").String(),
			link,
			item.Get("snippet").String(),
			googleCSEWeight*1.2,
		))
		return true
	})
	return results, nil
}
