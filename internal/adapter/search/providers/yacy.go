package providers

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const (
	yacyWeight     = 0.8
	yacyMaxRecords = 20
)

// YaCy queries a self-hosted peer-to-peer YaCy node. Result quality varies,
// so its confidence is discounted twice: once via the base weight and once in
// the parser, matching the gateway's historical scoring.
type YaCy struct {
	baseURL string
	http    *httpClient
}

func NewYaCy(cfg Config) *YaCy {
	base := cfg.BaseURL
	if base == "" {
		base = "http://yacy:8090"
	}
	return &YaCy{baseURL: base, http: newHTTPClient()}
}

func (y *YaCy) Name() domain.SearchProvider {
	return domain.SearchProviderYaCy
}

func (y *YaCy) Query(ctx context.Context, query string, timeout time.Duration) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("maximumRecords", strconv.Itoa(yacyMaxRecords))

	body, err := y.http.get(ctx, y.baseURL+"/yacysearch.json", params, nil, timeout)
	if err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	gjson.GetBytes(body, "channels.0.items").ForEach(func(_, item gjson.Result) bool {
		link := item.Get("link").String()
		if link == "" {
			return true
		}
		results = append(results, result(
			domain.SearchProviderYaCy,
			item.Get("title").String(),
			link,
			item.Get("description").String(),
			yacyWeight*0.8,
		))
		return true
	})
	return results, nil
}
