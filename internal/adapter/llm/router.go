package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"github.com/deepsearchstack/deepsearch/internal/adapter/breaker"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
	"github.com/deepsearchstack/deepsearch/internal/core/ports"
	"github.com/deepsearchstack/deepsearch/internal/logger"
)

// Router picks a provider per request using the requested strategy and
// executes through that provider's circuit breaker. When the primary attempt
// fails and the request allows fallback, one alternative provider is tried;
// a provider on a losing streak gets no fallback so a dead upstream cannot
// double every request's latency.
type Router struct {
	registry *Registry
	breakers *breaker.Set
	metrics  ports.MetricsRecorder
	logger   logger.StyledLogger

	roundRobin atomic.Uint64
}

// failoverPreference fixes the order the failover strategy walks, independent
// of provider quality scores.
var failoverPreference = []string{"gemini", "groq", "ollama"}

func NewRouter(registry *Registry, breakers *breaker.Set, metrics ports.MetricsRecorder, log logger.StyledLogger) *Router {
	return &Router{
		registry: registry,
		breakers: breakers,
		metrics:  metrics,
		logger:   log,
	}
}

func (r *Router) Select(ctx context.Context, strategy domain.RoutingStrategy, preferred string, exclude []string) (string, error) {
	available := r.registry.available(ctx)
	if len(exclude) > 0 {
		excluded := make(map[string]struct{}, len(exclude))
		for _, name := range exclude {
			excluded[name] = struct{}{}
		}
		filtered := available[:0]
		for _, name := range available {
			if _, skip := excluded[name]; !skip {
				filtered = append(filtered, name)
			}
		}
		available = filtered
	}
	if len(available) == 0 {
		return "", domain.ErrNoProvidersAvailable
	}
	sort.Strings(available)

	if preferred != "" {
		for _, name := range available {
			if name == preferred {
				return name, nil
			}
		}
	}

	switch strategy {
	case domain.RoutingRoundRobin:
		// Add(1)-1 so the first request lands on index 0.
		idx := (r.roundRobin.Add(1) - 1) % uint64(len(available))
		return available[idx], nil

	case domain.RoutingLeastLatency:
		best := available[0]
		bestLatency := r.metrics.AverageLatency(best)
		for _, name := range available[1:] {
			if latency := r.metrics.AverageLatency(name); latency < bestLatency {
				best, bestLatency = name, latency
			}
		}
		return best, nil

	case domain.RoutingLowestCost:
		return r.byOrdinal(available, func(p ports.LLMProvider) int { return -p.Cost() }), nil

	case domain.RoutingHighestQuality:
		return r.byOrdinal(available, func(p ports.LLMProvider) int { return p.Quality() }), nil

	case domain.RoutingFailover:
		for _, name := range failoverPreference {
			for _, avail := range available {
				if avail == name {
					return name, nil
				}
			}
		}
		// A provider outside the preference list is still better than none.
		return available[0], nil

	default:
		return available[rand.Intn(len(available))], nil
	}
}

// byOrdinal picks the available provider with the highest score.
func (r *Router) byOrdinal(available []string, score func(ports.LLMProvider) int) string {
	best := available[0]
	bestScore := 0
	first := true
	for _, name := range available {
		provider, ok := r.registry.Get(name)
		if !ok {
			continue
		}
		if s := score(provider); first || s > bestScore {
			best, bestScore, first = name, s, false
		}
	}
	return best
}

func (r *Router) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	name, err := r.Select(ctx, req.RoutingStrategy, req.Provider, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.completeOn(ctx, name, req)
	if err == nil {
		return resp, nil
	}

	if req.Fallback && r.metrics.ErrorStreak(name) < unhealthyStreakThreshold {
		fallback, selErr := r.Select(ctx, req.RoutingStrategy, "", []string{name})
		if selErr == nil {
			r.logger.InfoWithProvider("falling back to", fallback, "failed_provider", name)
			return r.completeOn(ctx, fallback, req)
		}
	}
	return nil, err
}

func (r *Router) completeOn(ctx context.Context, name string, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	provider, ok := r.registry.Get(name)
	if !ok {
		return nil, domain.ErrNoProvidersAvailable
	}

	done := r.registry.trackInflight(name)
	defer done()

	start := time.Now()
	var resp *domain.CompletionResponse
	err := r.breakers.Get(name).Call(ctx, func(ctx context.Context) error {
		var cerr error
		resp, cerr = provider.Complete(ctx, req)
		return cerr
	})
	elapsed := time.Since(start)

	if err != nil {
		r.metrics.RecordRequest(name, elapsed, false, ports.WithErrorType(completionErrorType(err)), ports.WithModel(req.Model))
		if r.breakers.Get(name).State() == breaker.StateOpen {
			r.metrics.RecordBreakerTrigger()
		}
		r.logger.ErrorWithProvider("completion failed", name, "error", err, "took", elapsed)
		return nil, err
	}

	r.metrics.RecordRequest(name, elapsed, true,
		ports.WithTokens(resp.Usage.TotalTokens), ports.WithModel(resp.Model))
	return resp, nil
}

// Stream selects a provider and relays its fragments. Fallback happens only
// when the stream cannot be opened at all; once the first fragment is out the
// response is partially committed and a retry would duplicate output.
func (r *Router) Stream(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamDelta, string, error) {
	name, err := r.Select(ctx, req.RoutingStrategy, req.Provider, nil)
	if err != nil {
		return nil, "", err
	}

	deltas, err := r.streamOn(ctx, name, req)
	if err == nil {
		return deltas, name, nil
	}

	if req.Fallback && r.metrics.ErrorStreak(name) < unhealthyStreakThreshold {
		fallback, selErr := r.Select(ctx, req.RoutingStrategy, "", []string{name})
		if selErr == nil {
			r.logger.InfoWithProvider("falling back to", fallback, "failed_provider", name)
			deltas, ferr := r.streamOn(ctx, fallback, req)
			return deltas, fallback, ferr
		}
	}
	return nil, name, err
}

func (r *Router) streamOn(ctx context.Context, name string, req *domain.CompletionRequest) (<-chan domain.StreamDelta, error) {
	provider, ok := r.registry.Get(name)
	if !ok {
		return nil, domain.ErrNoProvidersAvailable
	}

	br := r.breakers.Get(name)
	if br.IsOpen() {
		return nil, domain.ErrCircuitOpen
	}

	done := r.registry.trackInflight(name)
	start := time.Now()

	upstream, err := provider.Stream(ctx, req)
	if err != nil {
		done()
		br.RecordFailure()
		r.metrics.RecordRequest(name, time.Since(start), false, ports.WithErrorType(completionErrorType(err)))
		return nil, err
	}

	out := make(chan domain.StreamDelta)
	go func() {
		defer close(out)
		defer done()

		failed := false
		for delta := range upstream {
			if delta.Err != nil {
				failed = true
			}
			select {
			case out <- delta:
			case <-ctx.Done():
				r.finishStream(name, start, false)
				return
			}
		}
		r.finishStream(name, start, !failed)
	}()
	return out, nil
}

func (r *Router) finishStream(name string, start time.Time, success bool) {
	elapsed := time.Since(start)
	br := r.breakers.Get(name)
	if success {
		br.RecordSuccess()
	} else {
		br.RecordFailure()
	}
	r.metrics.RecordRequest(name, elapsed, success)
}

func completionErrorType(err error) string {
	var perr *domain.ProviderError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrCircuitOpen):
		return "circuit_open"
	case errors.As(err, &perr) && perr.StatusCode > 0:
		return fmt.Sprintf("http_%d", perr.StatusCode)
	default:
		return "request_error"
	}
}
