package providers

import (
	"net/http"
	"time"
)

const (
	githubModelsDefaultBaseURL = "https://models.inference.ai.azure.com/chat/completions"
	githubModelsDefaultModel   = "gpt-4o-mini"
)

// GitHubModels fronts the GitHub Models inference endpoint, which also speaks
// the OpenAI dialect and authenticates with a GitHub token.
type GitHubModels struct {
	openAICompat
}

func NewGitHubModels(token, baseURL, model string) *GitHubModels {
	if baseURL == "" {
		baseURL = githubModelsDefaultBaseURL
	}
	if model == "" {
		model = githubModelsDefaultModel
	}
	return &GitHubModels{openAICompat{
		name:         "github_models",
		baseURL:      baseURL,
		apiKey:       token,
		defaultModel: model,
		cost:         3,
		quality:      2,
		client:       &http.Client{Timeout: 5 * time.Minute},
	}}
}
