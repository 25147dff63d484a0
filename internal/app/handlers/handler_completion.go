package handlers

import (
	"net/http"

	"github.com/deepsearchstack/deepsearch/internal/app/middleware"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

// handleCompletion exposes the routed LLM layer directly. Streaming requests
// get one SSE data frame per fragment and a [DONE] marker; otherwise the
// full completion is returned as JSON.
func (a *Application) handleCompletion(w http.ResponseWriter, r *http.Request) {
	var req domain.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		a.writeError(w, http.StatusBadRequest, "messages are required")
		return
	}
	for _, msg := range req.Messages {
		if !msg.IsValidRole() {
			a.writeError(w, http.StatusBadRequest, "invalid message role: "+msg.Role)
			return
		}
	}

	if req.RoutingStrategy == "" {
		req.RoutingStrategy = domain.RoutingStrategy(a.cfg.Synthesis.Strategy)
	}
	req.RequestID = middleware.GetRequestID(r.Context())
	req.UserID = middleware.GetUserID(r.Context())

	// The middleware already admitted the request globally and per user;
	// once a specific back-end is named its own window applies too.
	if req.Provider != "" {
		decision := a.limiter.Allow(req.UserID, middleware.GetTier(r), req.Provider)
		if !decision.Allowed {
			a.metrics.RecordRateLimitHit()
			a.writeRateLimited(w, decision)
			return
		}
	}

	if req.Stream {
		a.streamCompletion(w, r, &req)
		return
	}

	resp, err := a.llmRouter.Complete(r.Context(), &req)
	if err != nil {
		a.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *Application) streamCompletion(w http.ResponseWriter, r *http.Request, req *domain.CompletionRequest) {
	deltas, provider, err := a.llmRouter.Stream(r.Context(), req)
	if err != nil {
		a.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	sse, sseErr := newSSEWriter(w)
	if sseErr != nil {
		a.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	log := middleware.GetLogger(r.Context())
	for delta := range deltas {
		if delta.Err != nil {
			_ = sse.WriteData(map[string]string{"error": delta.Err.Error(), "provider": provider})
			break
		}
		if err := sse.WriteData(map[string]string{"content": delta.Content, "provider": provider}); err != nil {
			log.Debug("client disconnected mid-completion", "error", err)
			return
		}
	}
	sse.WriteDone()
}
