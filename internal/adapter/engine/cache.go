package engine

import (
	"crypto/md5"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

// resultCache holds completed pipeline responses keyed by the request shape.
// Entries expire lazily on lookup; a run that tweaks any knob that changes
// the answer gets its own slot.
type resultCache struct {
	entries    *xsync.Map[string, cacheEntry]
	defaultTTL time.Duration
}

type cacheEntry struct {
	response domain.DeepSearchResponse
	expires  time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		entries:    xsync.NewMap[string, cacheEntry](),
		defaultTTL: ttl,
	}
}

// key folds every answer-affecting request field into one digest.
func (c *resultCache) key(req *domain.DeepSearchRequest) string {
	providers := make([]string, 0, len(req.Providers))
	for _, p := range req.Providers {
		providers = append(providers, string(p))
	}
	sort.Strings(providers)

	raw := fmt.Sprintf("%s|%s|%d|%s|%t|%t|%t|%d|%d|%s|%g",
		strings.ToLower(strings.TrimSpace(req.Query)),
		strings.Join(providers, ","),
		req.MaxResults,
		req.SortBy,
		req.ScrapingEnabled(),
		req.RAGEnabled(),
		req.SynthesisEnabled(),
		req.MaxScrapeURLs,
		req.RAGTopK,
		req.LLMProvider,
		req.Temperature,
	)
	return fmt.Sprintf("%x", md5.Sum([]byte(raw)))
}

func (c *resultCache) get(key string) (domain.DeepSearchResponse, bool) {
	entry, ok := c.entries.Load(key)
	if !ok {
		return domain.DeepSearchResponse{}, false
	}
	if time.Now().After(entry.expires) {
		c.entries.Delete(key)
		return domain.DeepSearchResponse{}, false
	}
	return entry.response, true
}

func (c *resultCache) put(key string, resp domain.DeepSearchResponse, ttlSeconds int) {
	ttl := c.defaultTTL
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	if ttl <= 0 {
		return
	}
	c.entries.Store(key, cacheEntry{response: resp, expires: time.Now().Add(ttl)})
}
