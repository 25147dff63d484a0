package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/deepsearchstack/deepsearch/internal/core/constants"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

type State string

var (
	// ErrHalfOpenLimit is returned when the half-open probe budget is spent.
	ErrHalfOpenLimit = errors.New("circuit breaker half-open call limit reached")
)

// untrackedError marks failures that should not count toward the breaker's
// failure tally. They still count as one total call for statistics.
type untrackedError struct {
	err error
}

func (e *untrackedError) Error() string { return e.err.Error() }
func (e *untrackedError) Unwrap() error { return e.err }

// Untracked wraps err so the breaker re-raises it without counting it as a
// tracked failure.
func Untracked(err error) error {
	if err == nil {
		return nil
	}
	return &untrackedError{err: err}
}

type Config struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	HalfOpenMaxCalls int
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: constants.DefaultBreakerFailureThreshold,
		RecoveryTimeout:  constants.DefaultBreakerRecoveryTimeout,
		HalfOpenMaxCalls: constants.DefaultBreakerHalfOpenMaxCalls,
	}
}

// Breaker is a three-state circuit breaker guarding one provider. State
// transitions happen under a short per-breaker critical section; there is no
// global lock across breakers.
type Breaker struct {
	name string
	cfg  Config

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	halfOpenCalls   int
	lastFailureTime time.Time
	lastSuccessTime time.Time

	totalCalls     int64
	totalSuccesses int64
	totalFailures  int64
}

func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = constants.DefaultBreakerFailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = constants.DefaultBreakerRecoveryTimeout
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = constants.DefaultBreakerHalfOpenMaxCalls
	}
	return &Breaker{
		name:  name,
		cfg:   cfg,
		state: StateClosed,
	}
}

func (b *Breaker) Name() string {
	return b.name
}

// Call executes fn iff the breaker admits it. A failure wrapped with
// Untracked is re-raised without counting toward the failure tally.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	if err == nil {
		b.recordSuccess()
		return nil
	}

	var untracked *untrackedError
	if errors.As(err, &untracked) {
		b.mu.Lock()
		b.totalCalls++
		b.mu.Unlock()
		return untracked.err
	}

	b.recordFailure()
	return err
}

// admit applies the admission rules: open blocks until the recovery timeout
// has elapsed since the last failure, at which point the next call moves the
// breaker to half-open; half-open admits at most HalfOpenMaxCalls probes.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.lastFailureTime) < b.cfg.RecoveryTimeout {
			return domain.ErrCircuitOpen
		}
		b.transitionToHalfOpen()
		b.halfOpenCalls++
		return nil
	case StateHalfOpen:
		if b.halfOpenCalls >= b.cfg.HalfOpenMaxCalls {
			return ErrHalfOpenLimit
		}
		b.halfOpenCalls++
		return nil
	default:
		return nil
	}
}

// IsOpen reports whether a call right now would be rejected outright. It does
// not consume a half-open probe.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateOpen && time.Since(b.lastFailureTime) < b.cfg.RecoveryTimeout
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RecordSuccess updates counters for a call executed outside Call.
func (b *Breaker) RecordSuccess() {
	b.recordSuccess()
}

func (b *Breaker) RecordFailure() {
	b.recordFailure()
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalCalls++
	b.totalSuccesses++
	b.lastSuccessTime = time.Now()

	switch b.state {
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.cfg.HalfOpenMaxCalls {
			b.reset()
		}
	case StateClosed:
		b.failureCount = 0
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalCalls++
	b.totalFailures++
	b.failureCount++
	b.lastFailureTime = time.Now()

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.cfg.FailureThreshold {
			b.open()
		}
	case StateHalfOpen:
		// any failure while probing reopens immediately
		b.open()
	}
}

func (b *Breaker) open() {
	b.state = StateOpen
	b.successCount = 0
	b.halfOpenCalls = 0
}

func (b *Breaker) reset() {
	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
	b.halfOpenCalls = 0
}

func (b *Breaker) transitionToHalfOpen() {
	b.state = StateHalfOpen
	b.successCount = 0
	b.halfOpenCalls = 0
}

// Reset forces the breaker closed. Exposed for the admin surface.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

// Stats is a consistent snapshot for diagnostics.
type Stats struct {
	State           State     `json:"state"`
	TotalCalls      int64     `json:"total_calls"`
	TotalSuccesses  int64     `json:"total_successes"`
	TotalFailures   int64     `json:"total_failures"`
	FailureCount    int       `json:"failure_count"`
	SuccessCount    int       `json:"success_count"`
	FailureRate     float64   `json:"failure_rate"`
	LastFailureTime time.Time `json:"last_failure_time"`
	LastSuccessTime time.Time `json:"last_success_time"`
}

func (b *Breaker) Snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	failureRate := 0.0
	if b.totalCalls > 0 {
		failureRate = float64(b.totalFailures) / float64(b.totalCalls)
	}

	return Stats{
		State:           b.state,
		TotalCalls:      b.totalCalls,
		TotalSuccesses:  b.totalSuccesses,
		TotalFailures:   b.totalFailures,
		FailureCount:    b.failureCount,
		SuccessCount:    b.successCount,
		FailureRate:     failureRate,
		LastFailureTime: b.lastFailureTime,
		LastSuccessTime: b.lastSuccessTime,
	}
}
