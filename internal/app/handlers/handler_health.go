package handlers

import (
	"net/http"

	"github.com/deepsearchstack/deepsearch/internal/version"
)

// handleHealth reports overall service state. The service is degraded, not
// down, when no LLM back-end is currently healthy: search still works,
// synthesis does not.
func (a *Application) handleHealth(w http.ResponseWriter, r *http.Request) {
	llmStatus := a.llmRegistry.StatusAll(r.Context())
	healthyLLMs := 0
	llmSummary := make(map[string]string, len(llmStatus))
	for name, status := range llmStatus {
		switch {
		case !status.Available:
			llmSummary[name] = "unavailable"
		case status.CircuitBreakerOpen:
			llmSummary[name] = "circuit_open"
		case !status.Healthy:
			llmSummary[name] = "unhealthy"
		default:
			llmSummary[name] = "healthy"
			healthyLLMs++
		}
	}

	searchStatus := a.searchRegistry.Status()

	status := "healthy"
	if len(searchStatus) == 0 || (len(llmStatus) > 0 && healthyLLMs == 0) {
		status = "degraded"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	a.writeJSON(w, code, map[string]any{
		"status":  status,
		"version": a.serviceVersion(),
		"uptime":  a.uptime(),
		"dependencies": map[string]any{
			"search_providers": searchStatus,
			"llm_providers":    llmSummary,
		},
		"scraping_enabled": a.cfg.Scraping.Enabled,
		"rag_enabled":      a.cfg.RAG.Enabled,
		"cache_enabled":    a.cfg.Cache.Enabled,
		"sessions_enabled": a.sessions != nil,
	})
}

// handleRoot returns service identity and the endpoint map.
func (a *Application) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		a.writeError(w, http.StatusNotFound, "not found")
		return
	}

	endpoints := make(map[string]string)
	for route, info := range a.routes.GetRoutes() {
		endpoints[route] = info.Description
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"service":     version.Name,
		"description": version.Description,
		"version":     a.serviceVersion(),
		"endpoints":   endpoints,
	})
}

// handleVersion returns build metadata.
func (a *Application) handleVersion(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{
		"version": version.Version,
		"commit":  version.Commit,
		"date":    version.Date,
	})
}

// handleConfig returns the running configuration with secrets redacted.
func (a *Application) handleConfig(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.cfg.Sanitized())
}

// handleProviders lists every registered back-end, search and LLM, with
// live status.
func (a *Application) handleProviders(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{
		"search": a.searchRegistry.Status(),
		"llm":    a.llmRegistry.StatusAll(r.Context()),
	})
}
