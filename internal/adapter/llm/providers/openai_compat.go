package providers

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const availabilityCacheTTL = 10 * time.Second

// openAICompat is the shared base for providers speaking the OpenAI chat
// completions dialect. Groq and GitHub Models differ only in endpoint,
// credentials and default model.
type openAICompat struct {
	name         string
	baseURL      string
	apiKey       string
	defaultModel string
	cost         int
	quality      int

	client *http.Client

	availMu      sync.Mutex
	availCached  bool
	availChecked time.Time
}

type chatPayload struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
}

func (p *openAICompat) Name() string { return p.name }
func (p *openAICompat) Cost() int    { return p.cost }
func (p *openAICompat) Quality() int { return p.quality }

func (p *openAICompat) model(req *domain.CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.defaultModel
}

func (p *openAICompat) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	start := time.Now()
	body, err := p.post(ctx, chatPayload{
		Model:       p.model(req),
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	return &domain.CompletionResponse{
		Content:      parsed.Get("choices.0.message.content").String(),
		ProviderName: p.name,
		Model:        parsed.Get("model").String(),
		FinishReason: parsed.Get("choices.0.finish_reason").String(),
		Usage: domain.Usage{
			PromptTokens:     int(parsed.Get("usage.prompt_tokens").Int()),
			CompletionTokens: int(parsed.Get("usage.completion_tokens").Int()),
			TotalTokens:      int(parsed.Get("usage.total_tokens").Int()),
		},
		ResponseTime: time.Since(start).Seconds(),
		RequestID:    req.RequestID,
		Timestamp:    time.Now().UTC(),
	}, nil
}

func (p *openAICompat) Stream(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamDelta, error) {
	payload := chatPayload{
		Model:       p.model(req),
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	}

	resp, err := p.request(ctx, payload)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.StreamDelta)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" || data == "[DONE]" {
				continue
			}
			content := gjson.Get(data, "choices.0.delta.content").String()
			if content == "" {
				continue
			}
			select {
			case out <- domain.StreamDelta{Content: content}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case out <- domain.StreamDelta{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

// Available checks the models listing endpoint, caching the answer briefly so
// routing does not hammer the upstream.
func (p *openAICompat) Available(ctx context.Context) bool {
	p.availMu.Lock()
	if time.Since(p.availChecked) < availabilityCacheTTL {
		cached := p.availCached
		p.availMu.Unlock()
		return cached
	}
	p.availMu.Unlock()

	available := p.probe(ctx)

	p.availMu.Lock()
	p.availCached = available
	p.availChecked = time.Now()
	p.availMu.Unlock()
	return available
}

func (p *openAICompat) probe(ctx context.Context) bool {
	if p.apiKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(p.baseURL, "/chat/completions")+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (p *openAICompat) post(ctx context.Context, payload chatPayload) ([]byte, error) {
	resp, err := p.request(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *openAICompat) request(ctx context.Context, payload chatPayload) (*http.Response, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, domain.NewProviderError(p.name, "completion", 0, 0, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, domain.NewProviderError(p.name, "completion", resp.StatusCode, 0,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return resp, nil
}
