package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

func (a *Application) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	if a.sessions == nil {
		a.writeError(w, http.StatusServiceUnavailable, domain.ErrSessionsDisabled.Error())
		return
	}

	var req domain.SessionCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := a.sessions.Create(r.Context(), &req)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	a.writeJSON(w, http.StatusOK, session)
}

func (a *Application) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	if a.sessions == nil {
		a.writeError(w, http.StatusServiceUnavailable, domain.ErrSessionsDisabled.Error())
		return
	}

	session, err := a.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			a.writeError(w, http.StatusNotFound, "session not found")
			return
		}
		a.writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	a.writeJSON(w, http.StatusOK, session)
}

func (a *Application) handleSessionList(w http.ResponseWriter, r *http.Request) {
	if a.sessions == nil {
		a.writeError(w, http.StatusServiceUnavailable, domain.ErrSessionsDisabled.Error())
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	sessions, err := a.sessions.List(r.Context(), limit, offset)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	a.writeJSON(w, http.StatusOK, domain.SessionListResponse{
		Sessions: sessions,
		Total:    len(sessions),
	})
}

func (a *Application) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if a.sessions == nil {
		a.writeError(w, http.StatusServiceUnavailable, domain.ErrSessionsDisabled.Error())
		return
	}

	if err := a.sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			a.writeError(w, http.StatusNotFound, "session not found")
			return
		}
		a.writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
