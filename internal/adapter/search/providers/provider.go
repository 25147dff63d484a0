package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const userAgent = "DeepSearchStack/1.0"

// Config carries per-provider connection settings. BaseURL overrides the
// provider's default endpoint; APIKey and CX only matter for the key-gated
// providers.
type Config struct {
	BaseURL string
	APIKey  string
	CX      string
}

type httpClient struct {
	client *http.Client
}

func newHTTPClient() *httpClient {
	return &httpClient{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// get issues a GET with the shared User-Agent and returns the response body.
// Non-2xx statuses are errors so the caller's breaker sees them.
func (c *httpClient) get(ctx context.Context, rawURL string, params url.Values, headers map[string]string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	u := rawURL
	if len(params) > 0 {
		u = rawURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

func result(provider domain.SearchProvider, title, resultURL, description string, confidence float64) domain.SearchResult {
	return domain.SearchResult{
		Title:       title,
		URL:         resultURL,
		Description: description,
		Source:      provider,
		Confidence:  confidence,
	}
}
