package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusBridge mirrors recorder events into a dedicated prometheus
// registry so the text exposition endpoint needs no ring buffer scans.
type PrometheusBridge struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rateLimitHits   prometheus.Counter
	breakerTriggers prometheus.Counter
	cacheEvents     *prometheus.CounterVec
	activeRequests  *prometheus.GaugeVec
}

func NewPrometheusBridge() *PrometheusBridge {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PrometheusBridge{
		registry: registry,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deepsearch",
			Name:      "provider_requests_total",
			Help:      "Provider requests by outcome.",
		}, []string{"provider", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deepsearch",
			Name:      "provider_request_duration_seconds",
			Help:      "Provider request latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"provider"}),
		rateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "deepsearch",
			Name:      "rate_limit_hits_total",
			Help:      "Requests denied by the rate limiter.",
		}),
		breakerTriggers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "deepsearch",
			Name:      "circuit_breaker_triggers_total",
			Help:      "Circuit breaker open transitions.",
		}),
		cacheEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deepsearch",
			Name:      "cache_events_total",
			Help:      "Cache lookups by result.",
		}, []string{"result"}),
		activeRequests: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "deepsearch",
			Name:      "provider_active_requests",
			Help:      "In-flight requests per provider.",
		}, []string{"provider"}),
	}
}

func (p *PrometheusBridge) ObserveRequest(provider string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	p.requestsTotal.WithLabelValues(provider, status).Inc()
	p.requestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (p *PrometheusBridge) ObserveRateLimitHit() {
	p.rateLimitHits.Inc()
}

func (p *PrometheusBridge) ObserveBreakerTrigger() {
	p.breakerTriggers.Inc()
}

func (p *PrometheusBridge) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheEvents.WithLabelValues(result).Inc()
}

func (p *PrometheusBridge) SetActiveRequests(provider string, count int) {
	p.activeRequests.WithLabelValues(provider).Set(float64(count))
}

func (p *PrometheusBridge) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
