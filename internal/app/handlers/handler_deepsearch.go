package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/deepsearchstack/deepsearch/internal/app/middleware"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

// handleDeepSearch streams the full pipeline over SSE. The response is a
// sequence of data frames, one per pipeline event, terminated by a complete
// or error event.
func (a *Application) handleDeepSearch(w http.ResponseWriter, r *http.Request) {
	var req domain.DeepSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		a.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	log := middleware.GetLogger(r.Context())

	a.appendUserMessage(r, req.SessionID, req.Query)

	sse, err := newSSEWriter(w)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	for ev := range a.engine.Run(r.Context(), &req) {
		if ev.Type == domain.EventComplete && ev.Complete != nil {
			a.appendAssistantMessage(r, req.SessionID, ev.Complete)
		}
		if err := sse.WriteEvent(ev); err != nil {
			log.Debug("client disconnected mid-stream", "error", err)
			return
		}
	}
}

// handleQuickSearch runs the pipeline to completion and returns a single
// JSON response, for callers that cannot consume SSE.
func (a *Application) handleQuickSearch(w http.ResponseWriter, r *http.Request) {
	var quick domain.QuickSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&quick); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(quick.Query) == "" {
		a.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	req := &domain.DeepSearchRequest{
		Query:      quick.Query,
		MaxResults: quick.MaxResults,
		SessionID:  quick.SessionID,
	}
	a.appendUserMessage(r, req.SessionID, req.Query)

	var (
		content  strings.Builder
		complete *domain.DeepSearchResponse
		failure  string
	)
	for ev := range a.engine.Run(r.Context(), req) {
		switch ev.Type {
		case domain.EventContent:
			if ev.Content != nil {
				content.WriteString(ev.Content.Content)
			}
		case domain.EventComplete:
			complete = ev.Complete
		case domain.EventError:
			if ev.Error != nil {
				failure = ev.Error.Message
			}
		}
	}

	if complete == nil {
		msg := "Search failed"
		if failure != "" {
			msg = fmt.Sprintf("Search failed: %s", failure)
		}
		a.writeError(w, http.StatusInternalServerError, msg)
		return
	}

	if content.Len() > 0 {
		complete.Answer = content.String()
	}
	a.appendAssistantMessage(r, req.SessionID, complete)
	a.writeJSON(w, http.StatusOK, complete)
}

// handleSearch runs only the fan-out stage and returns ranked results.
func (a *Application) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		a.writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = a.cfg.Search.MaxResults
	}
	if req.Timeout <= 0 {
		req.Timeout = a.cfg.Search.Timeout
	}

	started := time.Now()
	results, err := a.search.Search(r.Context(), &req)
	if err != nil {
		a.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"query":          req.Query,
		"results":        results,
		"total_results":  len(results),
		"execution_time": time.Since(started).Seconds(),
	})
}

// appendUserMessage records the query against the session before the
// pipeline starts so the turn survives even if the run fails. Session
// failures never abort the search.
func (a *Application) appendUserMessage(r *http.Request, sessionID, query string) {
	if a.sessions == nil || sessionID == "" {
		return
	}
	msg := domain.SessionMessage{Role: domain.RoleUser, Content: query}
	if err := a.sessions.AppendMessage(r.Context(), sessionID, msg); err != nil {
		a.logger.Debug("failed to append user message", "session_id", sessionID, "error", err)
	}
}

func (a *Application) appendAssistantMessage(r *http.Request, sessionID string, resp *domain.DeepSearchResponse) {
	if a.sessions == nil || sessionID == "" {
		return
	}
	msg := domain.SessionMessage{
		Role:    domain.RoleAssistant,
		Content: resp.Answer,
		Metadata: map[string]string{
			"provider_used":    resp.ProviderUsed,
			"total_results":    fmt.Sprintf("%d", resp.TotalResults),
			"results_scraped":  fmt.Sprintf("%d", resp.ResultsScraped),
			"chunks_retrieved": fmt.Sprintf("%d", resp.ChunksRetrieved),
			"execution_time":   fmt.Sprintf("%.3f", resp.ExecutionTime),
		},
	}
	if err := a.sessions.AppendMessage(r.Context(), sessionID, msg); err != nil {
		a.logger.Debug("failed to append assistant message", "session_id", sessionID, "error", err)
	}
}
