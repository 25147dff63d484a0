package llm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/deepsearchstack/deepsearch/internal/adapter/breaker"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
	"github.com/deepsearchstack/deepsearch/internal/core/ports"
)

// unhealthyStreakThreshold marks a provider unhealthy once this many
// consecutive errors accumulate.
const unhealthyStreakThreshold = 3

type registration struct {
	provider ports.LLMProvider
	inflight atomic.Int64
}

// Registry tracks LLM providers plus the live counters that feed status
// reporting and the least-latency strategy.
type Registry struct {
	providers *xsync.Map[string, *registration]
	breakers  *breaker.Set
	metrics   ports.MetricsRecorder
}

func NewRegistry(breakers *breaker.Set, metrics ports.MetricsRecorder) *Registry {
	return &Registry{
		providers: xsync.NewMap[string, *registration](),
		breakers:  breakers,
		metrics:   metrics,
	}
}

func (r *Registry) Register(provider ports.LLMProvider) {
	r.providers.Store(provider.Name(), &registration{provider: provider})
}

func (r *Registry) Get(name string) (ports.LLMProvider, bool) {
	reg, ok := r.providers.Load(name)
	if !ok {
		return nil, false
	}
	return reg.provider, true
}

func (r *Registry) Names() []string {
	var names []string
	r.providers.Range(func(key string, _ *registration) bool {
		names = append(names, key)
		return true
	})
	return names
}

func (r *Registry) Status(ctx context.Context, name string) (domain.ProviderStatus, error) {
	reg, ok := r.providers.Load(name)
	if !ok {
		return domain.ProviderStatus{}, fmt.Errorf("provider %s not found", name)
	}
	return r.statusOf(ctx, name, reg), nil
}

func (r *Registry) StatusAll(ctx context.Context) map[string]domain.ProviderStatus {
	out := make(map[string]domain.ProviderStatus)
	r.providers.Range(func(name string, reg *registration) bool {
		out[name] = r.statusOf(ctx, name, reg)
		return true
	})
	return out
}

func (r *Registry) statusOf(ctx context.Context, name string, reg *registration) domain.ProviderStatus {
	streak := r.metrics.ErrorStreak(name)
	lastSuccess, _, lastErrorMsg := r.metrics.LastOutcome(name)
	stats := r.metrics.ProviderStats(name, time.Hour)

	return domain.ProviderStatus{
		Available:          reg.provider.Available(ctx),
		Healthy:            streak < unhealthyStreakThreshold,
		LatencyMs:          float64(r.metrics.AverageLatency(name)) / float64(time.Millisecond),
		ErrorRate:          stats.ErrorRate,
		LastSuccess:        lastSuccess,
		LastError:          lastErrorMsg,
		CircuitBreakerOpen: r.breakers.Get(name).IsOpen(),
		ActiveRequests:     reg.inflight.Load(),
	}
}

// available returns providers that probe healthy and whose breaker admits
// traffic right now.
func (r *Registry) available(ctx context.Context) []string {
	var names []string
	r.providers.Range(func(name string, reg *registration) bool {
		if reg.provider.Available(ctx) && !r.breakers.Get(name).IsOpen() {
			names = append(names, name)
		}
		return true
	})
	return names
}

func (r *Registry) trackInflight(name string) func() {
	reg, ok := r.providers.Load(name)
	if !ok {
		return func() {}
	}
	reg.inflight.Add(1)
	return func() { reg.inflight.Add(-1) }
}
