package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/semaphore"

	"github.com/deepsearchstack/deepsearch/internal/core/constants"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
	"github.com/deepsearchstack/deepsearch/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxCrawlResponseBytes = 20 << 20

// Config tunes the crawler client. Zero values take the package defaults.
type Config struct {
	CrawlerURL         string
	ExtractionStrategy string
	Timeout            time.Duration
	Concurrency        int64
	MinContentLength   int
}

// Client fans scrape requests out to the crawler sidecar with a semaphore
// bound on in-flight fetches. Failed or thin pages are filtered out; the
// survivors come back in completion order.
type Client struct {
	cfg    Config
	http   *http.Client
	sem    *semaphore.Weighted
	logger logger.StyledLogger
}

func New(cfg Config, log logger.StyledLogger) *Client {
	if cfg.CrawlerURL == "" {
		cfg.CrawlerURL = "http://crawler:8000"
	}
	if cfg.ExtractionStrategy == "" {
		cfg.ExtractionStrategy = "markdown"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultScrapeTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = constants.DefaultScrapeConcurrency
	}
	if cfg.MinContentLength <= 0 {
		cfg.MinContentLength = constants.DefaultMinContentLength
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		sem:    semaphore.NewWeighted(cfg.Concurrency),
		logger: log,
	}
}

func (c *Client) Scrape(ctx context.Context, results []domain.SearchResult, maxURLs int) []domain.ScrapedContent {
	if maxURLs <= 0 || maxURLs > len(results) {
		maxURLs = len(results)
	}
	if maxURLs > constants.DefaultMaxScrapeURLs {
		maxURLs = constants.DefaultMaxScrapeURLs
	}

	scraped := make(chan domain.ScrapedContent, maxURLs)
	launched := 0
	for _, result := range results[:maxURLs] {
		if result.URL == "" {
			continue
		}
		launched++
		go func(url, title string) {
			scraped <- c.scrapeOne(ctx, url, title)
		}(result.URL, result.Title)
	}

	out := make([]domain.ScrapedContent, 0, launched)
	for i := 0; i < launched; i++ {
		content := <-scraped
		if content.Success && len(content.Content) >= c.cfg.MinContentLength {
			out = append(out, content)
		}
	}
	return out
}

func (c *Client) scrapeOne(ctx context.Context, url, title string) domain.ScrapedContent {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return failed(url, title, err)
	}
	defer c.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{
		"url":                 url,
		"extraction_strategy": c.cfg.ExtractionStrategy,
	})
	if err != nil {
		return failed(url, title, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.CrawlerURL+"/crawl", bytes.NewReader(payload))
	if err != nil {
		return failed(url, title, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("scrape failed", "url", url, "error", err)
		return failed(url, title, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCrawlResponseBytes))
	if err != nil {
		return failed(url, title, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("crawler returned status %d", resp.StatusCode)
		c.logger.Warn("scrape failed", "url", url, "error", err)
		return failed(url, title, err)
	}

	var crawled struct {
		Content      string `json:"content"`
		Success      bool   `json:"success"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(body, &crawled); err != nil {
		return failed(url, title, err)
	}

	return domain.ScrapedContent{
		URL:          url,
		Title:        title,
		Content:      crawled.Content,
		Markdown:     crawled.Content,
		WordCount:    len(strings.Fields(crawled.Content)),
		Success:      crawled.Success,
		ErrorMessage: crawled.ErrorMessage,
	}
}

func failed(url, title string, err error) domain.ScrapedContent {
	return domain.ScrapedContent{URL: url, Title: title, Success: false, ErrorMessage: err.Error()}
}
