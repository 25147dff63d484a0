package providers

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const stackexchangeWeight = 1.2

// StackExchange searches Stack Overflow via the public 2.3 API. The
// description summarises score and answer counts since the API does not
// return question bodies on this endpoint.
type StackExchange struct {
	baseURL string
	site    string
	http    *httpClient
}

func NewStackExchange(cfg Config) *StackExchange {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.stackexchange.com/2.3/search/advanced"
	}
	return &StackExchange{baseURL: base, site: "stackoverflow", http: newHTTPClient()}
}

func (s *StackExchange) Name() domain.SearchProvider {
	return domain.SearchProviderStackExchange
}

func (s *StackExchange) Query(ctx context.Context, query string, timeout time.Duration) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("order", "desc")
	params.Set("sort", "relevance")
	params.Set("q", query)
	params.Set("site", s.site)

	body, err := s.http.get(ctx, s.baseURL, params, nil, timeout)
	if err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	gjson.GetBytes(body, "items").ForEach(func(_, item gjson.Result) bool {
		owner := item.Get("owner.display_name").String()
		if owner == "" {
			owner = "N/A"
		}
		desc := fmt.Sprintf("Score: %d, Answers: %d. By: %s",
			item.Get("score").Int(), item.Get("answer_count").Int(), owner)
		results = append(results, result(
			domain.SearchProviderStackExchange,
			html.UnescapeString(item.Get("title").String()),
			item.Get("link").String(),
			desc,
			stackexchangeWeight*1.2,
		))
		return true
	})
	return results, nil
}
