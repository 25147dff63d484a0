package providers

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const duckduckgoWeight = 1.1

// DuckDuckGo queries the instant answer API. It returns related topics plus
// the abstract when one exists; the abstract gets a confidence boost since it
// is DDG's own primary answer.
type DuckDuckGo struct {
	baseURL string
	http    *httpClient
}

func NewDuckDuckGo(cfg Config) *DuckDuckGo {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.duckduckgo.com/"
	}
	return &DuckDuckGo{baseURL: base, http: newHTTPClient()}
}

func (d *DuckDuckGo) Name() domain.SearchProvider {
	return domain.SearchProviderDuckDuckGo
}

func (d *DuckDuckGo) Query(ctx context.Context, query string, timeout time.Duration) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")

	body, err := d.http.get(ctx, d.baseURL, params, nil, timeout)
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(body)

	var results []domain.SearchResult
	collectTopics(root.Get("RelatedTopics"), &results)

	abstractURL := root.Get("AbstractURL").String()
	abstractText := root.Get("AbstractText").String()
	if abstractURL != "" && abstractText != "" {
		heading := root.Get("Heading").String()
		if heading == "" {
			heading = "Abstract"
		}
		results = append(results, result(
			domain.SearchProviderDuckDuckGo,
			heading,
			abstractURL,
			abstractText,
			duckduckgoWeight*1.1,
		))
	}
	return results, nil
}

// collectTopics walks the RelatedTopics array, descending into nested topic
// groups, which DDG uses for disambiguation pages.
func collectTopics(topics gjson.Result, out *[]domain.SearchResult) {
	topics.ForEach(func(_, topic gjson.Result) bool {
		if nested := topic.Get("Topics"); nested.Exists() {
			collectTopics(nested, out)
		}
		firstURL := topic.Get("FirstURL").String()
		text := topic.Get("Text").String()
		if firstURL != "" && text != "" {
			title, _, _ := strings.Cut(text, " - ")
			*out = append(*out, result(
				domain.SearchProviderDuckDuckGo,
				title,
				firstURL,
				text,
				duckduckgoWeight,
			))
		}
		return true
	})
}
