package providers

import (
	"context"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const whoogleWeight = 1.0

// Whoogle queries a self-hosted whoogle instance's JSON search endpoint.
type Whoogle struct {
	baseURL string
	http    *httpClient
}

func NewWhoogle(cfg Config) *Whoogle {
	base := cfg.BaseURL
	if base == "" {
		base = "http://whoogle:5000"
	}
	return &Whoogle{baseURL: base, http: newHTTPClient()}
}

func (w *Whoogle) Name() domain.SearchProvider {
	return domain.SearchProviderWhoogle
}

func (w *Whoogle) Query(ctx context.Context, query string, timeout time.Duration) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	body, err := w.http.get(ctx, w.baseURL+"/search", params, nil, timeout)
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
			domain.SearchProviderWhoogle,
			item.Get("title").String(),
			u,
			item.Get("snippet").String(),
			whoogleWeight,
		))
		return true
	})
	return results, nil
}
