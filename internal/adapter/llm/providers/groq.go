package providers

import (
	"net/http"
	"time"
)

const (
	groqDefaultBaseURL = "https://api.groq.com/openai/v1/chat/completions"
	groqDefaultModel   = "llama-3.3-70b-versatile"
)

// Groq rides the OpenAI-compatible dialect. Fast inference at mid-tier cost,
// so it sits between ollama and gemini in both cost and quality ordering.
type Groq struct {
	openAICompat
}

func NewGroq(apiKey, baseURL, model string) *Groq {
	if baseURL == "" {
		baseURL = groqDefaultBaseURL
	}
	if model == "" {
		model = groqDefaultModel
	}
	return &Groq{openAICompat{
		name:         "groq",
		baseURL:      baseURL,
		apiKey:       apiKey,
		defaultModel: model,
		cost:         2,
		quality:      2,
		client:       &http.Client{Timeout: 5 * time.Minute},
	}}
}
