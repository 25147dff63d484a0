package providers

import (
	"context"
	"encoding/xml"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const (
	arxivWeight     = 1.2
	arxivMaxResults = 10
)

// arXiv returns an Atom feed. The default namespace is stripped before
// decoding so entry elements can be addressed without qualifiers.
var arxivXMLNSRe = regexp.MustCompile(` xmlns="[^"]+"`)

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID      string `xml:"id"`
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
}

type Arxiv struct {
	baseURL string
	http    *httpClient
}

func NewArxiv(cfg Config) *Arxiv {
	base := cfg.BaseURL
	if base == "" {
		base = "http://export.arxiv.org/api/query"
	}
	return &Arxiv{baseURL: base, http: newHTTPClient()}
}

func (a *Arxiv) Name() domain.SearchProvider {
	return domain.SearchProviderArxiv
}

func (a *Arxiv) Query(ctx context.Context, query string, timeout time.Duration) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(arxivMaxResults))

	body, err := a.http.get(ctx, a.baseURL, params, nil, timeout)
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(strings.TrimSpace(string(body)), "<?xml") {
		return nil, nil
	}

	cleaned := arxivXMLNSRe.ReplaceAllString(string(body), "")
	var feed arxivFeed
	if err := xml.Unmarshal([]byte(cleaned), &feed); err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	for _, entry := range feed.Entries {
		results = append(results, result(
			domain.SearchProviderArxiv,
			collapseWhitespace(entry.Title),
			strings.TrimSpace(entry.ID),
			collapseWhitespace(entry.Summary),
			arxivWeight*1.3,
		))
	}
	return results, nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
