package vectorstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"

	"github.com/deepsearchstack/deepsearch/internal/logger"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxResponseBytes = 20 << 20

// Config tunes the vector store HTTP client.
type Config struct {
	BaseURL      string
	EmbedTimeout time.Duration
	QueryTimeout time.Duration
}

// Client talks to the external embedding service. The query response uses the
// Chroma batch shape, where documents, metadatas, distances and ids are
// nested one level under a single-query batch.
type Client struct {
	cfg    Config
	http   *http.Client
	logger logger.StyledLogger
}

func NewClient(cfg Config, log logger.StyledLogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://vector-store:8000"
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = 30 * time.Second
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 10 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{}, logger: log}
}

func (c *Client) Embed(ctx context.Context, docs []domain.VectorDocument) error {
	if len(docs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.EmbedTimeout)
	defer cancel()

	if _, err := c.post(ctx, "/embed", map[string]any{"documents": docs}); err != nil {
		return fmt.Errorf("embedding %d documents: %w", len(docs), err)
	}
	c.logger.InfoWithCount("embedded documents", len(docs))
	return nil
}

func (c *Client) Query(ctx context.Context, queryText string, topK int) ([]domain.VectorChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	body, err := c.post(ctx, "/query", map[string]any{
		"query_text": queryText,
		"n_results":  topK,
	})
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}
	return parseQueryResponse(body), nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("vector store returned status %d", resp.StatusCode)
	}
	return body, nil
}

func parseQueryResponse(body []byte) []domain.VectorChunk {
	docs := gjson.GetBytes(body, "documents.0").Array()
	if len(docs) == 0 {
		return nil
	}

	metadatas := gjson.GetBytes(body, "metadatas.0").Array()
	distances := gjson.GetBytes(body, "distances.0").Array()
	ids := gjson.GetBytes(body, "ids.0").Array()

	chunks := make([]domain.VectorChunk, 0, len(docs))
	for i, doc := range docs {
		chunk := domain.VectorChunk{Content: doc.String()}
		if i < len(ids) {
			chunk.ChunkID = ids[i].String()
		}
		if i < len(metadatas) {
			meta := make(map[string]string)
			metadatas[i].ForEach(func(key, value gjson.Result) bool {
				meta[key.String()] = value.String()
				return true
			})
			chunk.Metadata = meta
			chunk.URL = meta["url"]
			chunk.Title = meta["title"]
		}
		if i < len(distances) {
			chunk.SimilarityScore = clampSimilarity(1 - distances[i].Float())
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

func clampSimilarity(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
