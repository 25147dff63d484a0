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

	"github.com/tidwall/gjson"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const (
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel   = "gemini-2.0-flash"
)

// Gemini speaks the generateContent API. System messages become the
// systemInstruction block and assistant turns map to the "model" role.
type Gemini struct {
	baseURL      string
	apiKey       string
	defaultModel string
	client       *http.Client

	availMu      sync.Mutex
	availCached  bool
	availChecked time.Time
}

func NewGemini(apiKey, baseURL, model string) *Gemini {
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	if model == "" {
		model = geminiDefaultModel
	}
	return &Gemini{
		baseURL:      baseURL,
		apiKey:       apiKey,
		defaultModel: model,
		client:       &http.Client{Timeout: 5 * time.Minute},
	}
}

func (g *Gemini) Name() string { return "gemini" }
func (g *Gemini) Cost() int    { return 3 }
func (g *Gemini) Quality() int { return 3 }

type geminiPayload struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerconfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerconfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

func (g *Gemini) model(req *domain.CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return g.defaultModel
}

func buildGeminiPayload(req *domain.CompletionRequest) geminiPayload {
	payload := geminiPayload{
		GenerationConfig: geminiGenerconfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleSystem:
			payload.SystemInstruction = &geminiContent{
				Parts: []geminiPart{{Text: msg.Content}},
			}
		case domain.RoleAssistant:
			payload.Contents = append(payload.Contents, geminiContent{
				Role:  "model",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		default:
			payload.Contents = append(payload.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		}
	}
	return payload
}

func (g *Gemini) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	start := time.Now()
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model(req), g.apiKey)

	resp, err := g.post(ctx, endpoint, buildGeminiPayload(req))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	parsed := gjson.ParseBytes(buf.Bytes())

	var content strings.Builder
	parsed.Get("candidates.0.content.parts").ForEach(func(_, part gjson.Result) bool {
		content.WriteString(part.Get("text").String())
		return true
	})

	return &domain.CompletionResponse{
		Content:      content.String(),
		ProviderName: g.Name(),
		Model:        g.model(req),
		FinishReason: strings.ToLower(parsed.Get("candidates.0.finishReason").String()),
		Usage: domain.Usage{
			PromptTokens:     int(parsed.Get("usageMetadata.promptTokenCount").Int()),
			CompletionTokens: int(parsed.Get("usageMetadata.candidatesTokenCount").Int()),
			TotalTokens:      int(parsed.Get("usageMetadata.totalTokenCount").Int()),
		},
		ResponseTime: time.Since(start).Seconds(),
		RequestID:    req.RequestID,
		Timestamp:    time.Now().UTC(),
	}, nil
}

// Stream uses streamGenerateContent with SSE framing.
func (g *Gemini) Stream(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamDelta, error) {
	endpoint := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", g.baseURL, g.model(req), g.apiKey)

	resp, err := g.post(ctx, endpoint, buildGeminiPayload(req))
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
			if data == "" {
				continue
			}
			var content strings.Builder
			gjson.Get(data, "candidates.0.content.parts").ForEach(func(_, part gjson.Result) bool {
				content.WriteString(part.Get("text").String())
				return true
			})
			if content.Len() == 0 {
				continue
			}
			select {
			case out <- domain.StreamDelta{Content: content.String()}:
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

func (g *Gemini) Available(ctx context.Context) bool {
	g.availMu.Lock()
	if time.Since(g.availChecked) < availabilityCacheTTL {
		cached := g.availCached
		g.availMu.Unlock()
		return cached
	}
	g.availMu.Unlock()

	available := g.probe(ctx)

	g.availMu.Lock()
	g.availCached = available
	g.availChecked = time.Now()
	g.availMu.Unlock()
	return available
}

func (g *Gemini) probe(ctx context.Context) bool {
	if g.apiKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/models?key=%s&pageSize=1", g.baseURL, g.apiKey), nil)
	if err != nil {
		return false
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (g *Gemini) post(ctx context.Context, endpoint string, payload geminiPayload) (*http.Response, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewProviderError(g.Name(), "completion", 0, 0, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, domain.NewProviderError(g.Name(), "completion", resp.StatusCode, 0,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return resp, nil
}
