package domain

import (
	"time"
)

const (
	SortMethodRelevance     SortMethod = "relevance"
	SortMethodDate          SortMethod = "date"
	SortMethodSourceQuality SortMethod = "source_quality"
)

type SortMethod string

func (s SortMethod) IsValid() bool {
	switch s {
	case SortMethodRelevance, SortMethodDate, SortMethodSourceQuality:
		return true
	default:
		return false
	}
}

// SearchProvider identifies a search back-end in the registry.
type SearchProvider string

const (
	SearchProviderWhoogle       SearchProvider = "whoogle"
	SearchProviderSearXNG       SearchProvider = "searxng"
	SearchProviderYaCy          SearchProvider = "yacy"
	SearchProviderWikipedia     SearchProvider = "wikipedia"
	SearchProviderDuckDuckGo    SearchProvider = "duckduckgo"
	SearchProviderStackExchange SearchProvider = "stackexchange"
	SearchProviderArxiv         SearchProvider = "arxiv"
	SearchProviderBrave         SearchProvider = "brave"
	SearchProviderQwant         SearchProvider = "qwant"
	SearchProviderGoogleCSE     SearchProvider = "google_cse"
)

func (p SearchProvider) String() string {
	return string(p)
}

// SearchResult is the single normalised record every adapter projects into.
// URL is the identity key for deduplication; results with an empty URL never
// participate.
type SearchResult struct {
	Title           string         `json:"title"`
	URL             string         `json:"url"`
	Description     string         `json:"description"`
	Source          SearchProvider `json:"source"`
	Confidence      float64        `json:"confidence"`
	Rank            int            `json:"rank,omitempty"`
	DomainAuthority float64        `json:"domain_authority,omitempty"`
	PublishedDate   string         `json:"published_date,omitempty"`
}

// SearchRequest is the normalised query handed to the fan-out layer.
type SearchRequest struct {
	Query      string           `json:"query"`
	Providers  []SearchProvider `json:"providers,omitempty"`
	MaxResults int              `json:"max_results"`
	SortBy     SortMethod       `json:"sort_by"`
	Timeout    time.Duration    `json:"-"`
}
