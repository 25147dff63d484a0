package domain

import (
	"time"
)

// PipelineStage names the strictly-forward states of one deepsearch run.
type PipelineStage string

const (
	StageSearching    PipelineStage = "searching"
	StageScraping     PipelineStage = "scraping"
	StageEmbedding    PipelineStage = "embedding"
	StageRetrieving   PipelineStage = "retrieving"
	StageSynthesizing PipelineStage = "synthesizing"
)

const (
	EventProgress EventType = "progress"
	EventContent  EventType = "content"
	EventSources  EventType = "sources"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

type EventType string

// StreamEvent is the tagged union carried over the SSE transport. Exactly one
// of the payload fields is populated, selected by Type.
type StreamEvent struct {
	Type      EventType           `json:"type"`
	Progress  *ProgressPayload    `json:"-"`
	Content   *ContentPayload     `json:"-"`
	Sources   *SourcesPayload     `json:"-"`
	Complete  *DeepSearchResponse `json:"-"`
	Error     *ErrorPayload       `json:"-"`
	Timestamp time.Time           `json:"timestamp"`
}

type ProgressPayload struct {
	Stage    PipelineStage     `json:"stage"`
	Message  string            `json:"message"`
	Progress float64           `json:"progress"`
	Details  map[string]string `json:"details,omitempty"`
}

type ContentPayload struct {
	Content string `json:"content"`
}

type SourcesPayload struct {
	Sources []SearchResult `json:"sources"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Data returns the variant payload for serialisation.
func (e StreamEvent) Data() any {
	switch e.Type {
	case EventProgress:
		return e.Progress
	case EventContent:
		return e.Content
	case EventSources:
		return e.Sources
	case EventComplete:
		return e.Complete
	case EventError:
		return e.Error
	default:
		return nil
	}
}

func NewProgressEvent(stage PipelineStage, message string, progress float64) StreamEvent {
	return StreamEvent{
		Type:      EventProgress,
		Progress:  &ProgressPayload{Stage: stage, Message: message, Progress: progress},
		Timestamp: time.Now().UTC(),
	}
}

func NewContentEvent(fragment string) StreamEvent {
	return StreamEvent{
		Type:      EventContent,
		Content:   &ContentPayload{Content: fragment},
		Timestamp: time.Now().UTC(),
	}
}

func NewSourcesEvent(sources []SearchResult) StreamEvent {
	return StreamEvent{
		Type:      EventSources,
		Sources:   &SourcesPayload{Sources: sources},
		Timestamp: time.Now().UTC(),
	}
}

func NewCompleteEvent(response *DeepSearchResponse) StreamEvent {
	return StreamEvent{
		Type:      EventComplete,
		Complete:  response,
		Timestamp: time.Now().UTC(),
	}
}

func NewErrorEvent(message string) StreamEvent {
	return StreamEvent{
		Type:      EventError,
		Error:     &ErrorPayload{Message: message},
		Timestamp: time.Now().UTC(),
	}
}

// DeepSearchRequest is immutable once accepted by the boundary API.
type DeepSearchRequest struct {
	Query      string           `json:"query"`
	Providers  []SearchProvider `json:"providers,omitempty"`
	MaxResults int              `json:"max_results,omitempty"`
	SortBy     SortMethod       `json:"sort_by,omitempty"`
	Timeout    float64          `json:"timeout,omitempty"`
	SessionID  string           `json:"session_id,omitempty"`
	Stream     bool             `json:"stream"`

	EnableScraping  *bool `json:"enable_scraping,omitempty"`
	EnableRAG       *bool `json:"enable_rag,omitempty"`
	EnableSynthesis *bool `json:"enable_synthesis,omitempty"`

	UseCache *bool `json:"use_cache,omitempty"`
	CacheTTL int   `json:"cache_ttl,omitempty"`

	MaxScrapeURLs int     `json:"max_scrape_urls,omitempty"`
	RAGTopK       int     `json:"rag_top_k,omitempty"`
	LLMProvider   string  `json:"llm_provider,omitempty"`
	Temperature   float64 `json:"temperature,omitempty"`
}

// ScrapingEnabled reports the request toggle, defaulting to enabled.
func (r *DeepSearchRequest) ScrapingEnabled() bool {
	return r.EnableScraping == nil || *r.EnableScraping
}

func (r *DeepSearchRequest) RAGEnabled() bool {
	return r.EnableRAG == nil || *r.EnableRAG
}

func (r *DeepSearchRequest) SynthesisEnabled() bool {
	return r.EnableSynthesis == nil || *r.EnableSynthesis
}

// CacheAllowed reports whether the caller accepts a cached answer.
func (r *DeepSearchRequest) CacheAllowed() bool {
	return r.UseCache == nil || *r.UseCache
}

// QuickSearchRequest is the simplified non-streaming request shape.
type QuickSearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

// DeepSearchResponse is the terminal payload of a successful pipeline run.
type DeepSearchResponse struct {
	Query           string           `json:"query"`
	Answer          string           `json:"answer"`
	Sources         []SearchResult   `json:"sources"`
	ScrapedContent  []ScrapedContent `json:"scraped_content,omitempty"`
	RAGChunks       []VectorChunk    `json:"rag_chunks,omitempty"`
	SessionID       string           `json:"session_id,omitempty"`
	ExecutionTime   float64          `json:"execution_time"`
	ProviderUsed    string           `json:"provider_used"`
	TotalResults    int              `json:"total_results"`
	ResultsScraped  int              `json:"results_scraped"`
	ChunksRetrieved int              `json:"chunks_retrieved"`
	CacheHit        bool             `json:"cache_hit"`
}
