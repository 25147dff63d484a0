package handlers

import (
	"net/http"
	"time"

	"github.com/deepsearchstack/deepsearch/internal/adapter/breaker"
)

const defaultStatsWindow = 5 * time.Minute

// handleMetrics returns the gateway and per-provider rolling statistics.
// window is taken from the query string in minutes, defaulting to five.
func (a *Application) handleMetrics(w http.ResponseWriter, r *http.Request) {
	window := defaultStatsWindow
	if minutes := queryInt(r, "window", 0); minutes > 0 {
		window = time.Duration(minutes) * time.Minute
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"gateway":   a.metrics.GatewayStats(window),
		"providers": a.metrics.AllProviderStats(window),
	})
}

// handlePrometheus serves the text exposition format.
func (a *Application) handlePrometheus(w http.ResponseWriter, r *http.Request) {
	if a.promBridge == nil {
		a.writeError(w, http.StatusNotFound, "prometheus metrics disabled")
		return
	}
	a.promBridge.Handler().ServeHTTP(w, r)
}

// handleBreakerStats returns a snapshot of every circuit breaker.
func (a *Application) handleBreakerStats(w http.ResponseWriter, r *http.Request) {
	snapshots := make(map[string]breaker.Stats)
	for _, name := range a.breakers.Names() {
		if br, ok := a.breakers.Lookup(name); ok {
			snapshots[name] = br.Snapshot()
		}
	}
	a.writeJSON(w, http.StatusOK, snapshots)
}

// handleProviderBreaker returns the snapshot for a single provider.
func (a *Application) handleProviderBreaker(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	br, ok := a.breakers.Lookup(name)
	if !ok {
		a.writeError(w, http.StatusNotFound, "unknown provider: "+name)
		return
	}
	a.writeJSON(w, http.StatusOK, br.Snapshot())
}

// handleProviderBreakerReset force-closes a single provider's breaker.
func (a *Application) handleProviderBreakerReset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	br, ok := a.breakers.Lookup(name)
	if !ok {
		a.writeError(w, http.StatusNotFound, "unknown provider: "+name)
		return
	}
	br.Reset()
	a.logger.InfoWithProvider("circuit breaker reset", name)
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "breaker reset", "provider": name})
}

// handleBreakerReset force-closes one breaker, or all of them when no name
// is given.
func (a *Application) handleBreakerReset(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("provider")
	if name != "" {
		br, ok := a.breakers.Lookup(name)
		if !ok {
			a.writeError(w, http.StatusNotFound, "unknown provider: "+name)
			return
		}
		br.Reset()
		a.logger.InfoWithProvider("circuit breaker reset", name)
		a.writeJSON(w, http.StatusOK, map[string]string{"message": "breaker reset", "provider": name})
		return
	}

	for _, n := range a.breakers.Names() {
		if br, ok := a.breakers.Lookup(n); ok {
			br.Reset()
		}
	}
	a.logger.Info("all circuit breakers reset")
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "all breakers reset"})
}
