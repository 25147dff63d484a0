package providers

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const wikipediaWeight = 1.2

var wikipediaTagRe = regexp.MustCompile(`<.*?>`)

// Wikipedia uses the MediaWiki search API. Article URLs are reconstructed
// from titles since the API does not return them.
type Wikipedia struct {
	baseURL string
	http    *httpClient
}

func NewWikipedia(cfg Config) *Wikipedia {
	base := cfg.BaseURL
	if base == "" {
		base = "https://en.wikipedia.org/w/api.php"
	}
	return &Wikipedia{baseURL: base, http: newHTTPClient()}
}

func (w *Wikipedia) Name() domain.SearchProvider {
	return domain.SearchProviderWikipedia
}

func (w *Wikipedia) Query(ctx context.Context, query string, timeout time.Duration) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("format", "json")

	body, err := w.http.get(ctx, w.baseURL, params, nil, timeout)
	if err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	gjson.GetBytes(body, "query.search").ForEach(func(_, item gjson.Result) bool {
		title := item.Get("title").String()
		articleURL := "https://en.wikipedia.org/wiki/" + strings.ReplaceAll(title, " ", "_")
		snippet := wikipediaTagRe.ReplaceAllString(item.Get("snippet").String(), "")
		results = append(results, result(
			domain.SearchProviderWikipedia,
			title,
			articleURL,
			snippet,
			wikipediaWeight*1.2,
		))
		return true
	})
	return results, nil
}
