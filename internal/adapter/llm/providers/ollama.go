package providers

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const (
	ollamaDefaultBaseURL = "http://ollama:11434"
	ollamaDefaultModel   = "llama3.2"
)

// Ollama talks to a local or self-hosted Ollama daemon over its native chat
// API. It is the cheapest provider (free, local) and the quality floor.
type Ollama struct {
	baseURL      string
	defaultModel string
	client       *http.Client

	availMu      sync.Mutex
	availCached  bool
	availChecked time.Time
}

func NewOllama(baseURL, model string) *Ollama {
	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
	}
	if model == "" {
		model = ollamaDefaultModel
	}
	return &Ollama{
		baseURL:      baseURL,
		defaultModel: model,
		client:       &http.Client{Timeout: 10 * time.Minute},
	}
}

func (o *Ollama) Name() string { return "ollama" }
func (o *Ollama) Cost() int    { return 1 }
func (o *Ollama) Quality() int { return 1 }

type ollamaChatPayload struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
	Stream   bool             `json:"stream"`
	Options  ollamaOptions    `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

func (o *Ollama) model(req *domain.CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return o.defaultModel
}

func (o *Ollama) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	start := time.Now()
	resp, err := o.chat(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	parsed := gjson.ParseBytes(buf.Bytes())

	return &domain.CompletionResponse{
		Content:      parsed.Get("message.content").String(),
		ProviderName: o.Name(),
		Model:        parsed.Get("model").String(),
		FinishReason: parsed.Get("done_reason").String(),
		Usage: domain.Usage{
			PromptTokens:     int(parsed.Get("prompt_eval_count").Int()),
			CompletionTokens: int(parsed.Get("eval_count").Int()),
			TotalTokens:      int(parsed.Get("prompt_eval_count").Int() + parsed.Get("eval_count").Int()),
		},
		ResponseTime: time.Since(start).Seconds(),
		RequestID:    req.RequestID,
		Timestamp:    time.Now().UTC(),
	}, nil
}

// Stream relays Ollama's newline-delimited JSON chunks as deltas.
func (o *Ollama) Stream(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamDelta, error) {
	resp, err := o.chat(ctx, req, true)
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
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			parsed := gjson.ParseBytes(line)
			if content := parsed.Get("message.content").String(); content != "" {
				select {
				case out <- domain.StreamDelta{Content: content}:
				case <-ctx.Done():
					return
				}
			}
			if parsed.Get("done").Bool() {
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

func (o *Ollama) Available(ctx context.Context) bool {
	o.availMu.Lock()
	if time.Since(o.availChecked) < availabilityCacheTTL {
		cached := o.availCached
		o.availMu.Unlock()
		return cached
	}
	o.availMu.Unlock()

	available := o.probe(ctx)

	o.availMu.Lock()
	o.availCached = available
	o.availChecked = time.Now()
	o.availMu.Unlock()
	return available
}

func (o *Ollama) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (o *Ollama) chat(ctx context.Context, req *domain.CompletionRequest, stream bool) (*http.Response, error) {
	payload := ollamaChatPayload{
		Model:    o.model(req),
		Messages: req.Messages,
		Stream:   stream,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewProviderError(o.Name(), "completion", 0, 0, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, domain.NewProviderError(o.Name(), "completion", resp.StatusCode, 0,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return resp, nil
}
