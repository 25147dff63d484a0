package ratelimit

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/time/rate"

	"github.com/deepsearchstack/deepsearch/internal/core/constants"
	"github.com/deepsearchstack/deepsearch/internal/core/ports"
)

const (
	ScopeGlobal   = "global"
	ScopeUser     = "user"
	ScopeProvider = "provider"

	bucketIdleTTL   = time.Hour
	reaperInterval  = 5 * time.Minute
	defaultTierName = "default"
)

// TierConfig defines a user token bucket: Capacity is the burst size and
// RefillRate the steady-state tokens per second.
type TierConfig struct {
	Capacity   int
	RefillRate float64
}

type Config struct {
	Tiers map[string]TierConfig

	GlobalPerSecond   int
	GlobalPerMinute   int
	ProviderPerSecond int
	ProviderPerMinute int
}

func DefaultConfig() Config {
	return Config{
		Tiers: map[string]TierConfig{
			"default":    {Capacity: 100, RefillRate: 1.0},
			"premium":    {Capacity: 500, RefillRate: 5.0},
			"enterprise": {Capacity: 1000, RefillRate: 10.0},
		},
		GlobalPerSecond:   constants.DefaultGlobalRequestsPerSecond,
		GlobalPerMinute:   constants.DefaultGlobalRequestsPerMinute,
		ProviderPerSecond: constants.DefaultProviderRequestsPerSecond,
		ProviderPerMinute: constants.DefaultProviderRequestsPerMinute,
	}
}

type userBucket struct {
	limiter  *rate.Limiter
	capacity int
	lastSeen atomic.Int64
}

type providerWindows struct {
	second *slidingWindow
	minute *slidingWindow
}

// Limiter layers three independent checks: the caller's token bucket, the
// gateway-wide sliding windows, and the target provider's sliding windows.
// A request is admitted only when all three admit it; the first denial wins
// and nothing recorded before it is rolled back (windows record only on
// admission).
type Limiter struct {
	cfg Config

	globalSecond *slidingWindow
	globalMinute *slidingWindow

	users     *xsync.Map[string, *userBucket]
	providers *xsync.Map[string, *providerWindows]

	done chan struct{}
}

func NewLimiter(cfg Config) *Limiter {
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = DefaultConfig().Tiers
	}
	if cfg.GlobalPerSecond <= 0 {
		cfg.GlobalPerSecond = constants.DefaultGlobalRequestsPerSecond
	}
	if cfg.GlobalPerMinute <= 0 {
		cfg.GlobalPerMinute = constants.DefaultGlobalRequestsPerMinute
	}
	if cfg.ProviderPerSecond <= 0 {
		cfg.ProviderPerSecond = constants.DefaultProviderRequestsPerSecond
	}
	if cfg.ProviderPerMinute <= 0 {
		cfg.ProviderPerMinute = constants.DefaultProviderRequestsPerMinute
	}

	l := &Limiter{
		cfg:          cfg,
		globalSecond: newSlidingWindow(cfg.GlobalPerSecond, time.Second),
		globalMinute: newSlidingWindow(cfg.GlobalPerMinute, time.Minute),
		users:        xsync.NewMap[string, *userBucket](),
		providers:    xsync.NewMap[string, *providerWindows](),
		done:         make(chan struct{}),
	}
	go l.reapIdleBuckets()
	return l
}

func (l *Limiter) Allow(userID, tier, provider string) ports.RateLimitDecision {
	now := time.Now()

	if decision, ok := l.checkUser(userID, tier, now); !ok {
		return decision
	}
	if decision, ok := l.checkGlobal(now); !ok {
		return decision
	}
	if provider != "" {
		if decision, ok := l.checkProvider(provider, now); !ok {
			return decision
		}
	}

	return ports.RateLimitDecision{Allowed: true}
}

func (l *Limiter) checkUser(userID, tier string, now time.Time) (ports.RateLimitDecision, bool) {
	bucket := l.bucketFor(userID, tier)
	bucket.lastSeen.Store(now.UnixNano())

	if bucket.limiter.Allow() {
		return ports.RateLimitDecision{
			Allowed:   true,
			Scope:     ScopeUser,
			Limit:     bucket.capacity,
			Remaining: int(bucket.limiter.Tokens()),
		}, true
	}

	retryAfter := bucket.limiter.Reserve()
	delay := retryAfter.Delay()
	retryAfter.Cancel()

	return ports.RateLimitDecision{
		Allowed:    false,
		Scope:      ScopeUser,
		Limit:      bucket.capacity,
		Remaining:  0,
		RetryAfter: delay,
		ResetTime:  now.Add(delay),
	}, false
}

func (l *Limiter) checkGlobal(now time.Time) (ports.RateLimitDecision, bool) {
	if ok, _ := l.globalSecond.Allow(now); !ok {
		retry := l.globalSecond.RetryAfter(now)
		return ports.RateLimitDecision{
			Allowed:    false,
			Scope:      ScopeGlobal,
			Limit:      l.cfg.GlobalPerSecond,
			RetryAfter: retry,
			ResetTime:  now.Add(retry),
		}, false
	}
	if ok, _ := l.globalMinute.Allow(now); !ok {
		retry := l.globalMinute.RetryAfter(now)
		return ports.RateLimitDecision{
			Allowed:    false,
			Scope:      ScopeGlobal,
			Limit:      l.cfg.GlobalPerMinute,
			RetryAfter: retry,
			ResetTime:  now.Add(retry),
		}, false
	}
	return ports.RateLimitDecision{Allowed: true, Scope: ScopeGlobal}, true
}

func (l *Limiter) checkProvider(provider string, now time.Time) (ports.RateLimitDecision, bool) {
	windows := l.windowsFor(provider)

	if ok, _ := windows.second.Allow(now); !ok {
		retry := windows.second.RetryAfter(now)
		return ports.RateLimitDecision{
			Allowed:    false,
			Scope:      ScopeProvider,
			Limit:      l.cfg.ProviderPerSecond,
			RetryAfter: retry,
			ResetTime:  now.Add(retry),
		}, false
	}
	if ok, _ := windows.minute.Allow(now); !ok {
		retry := windows.minute.RetryAfter(now)
		return ports.RateLimitDecision{
			Allowed:    false,
			Scope:      ScopeProvider,
			Limit:      l.cfg.ProviderPerMinute,
			RetryAfter: retry,
			ResetTime:  now.Add(retry),
		}, false
	}
	return ports.RateLimitDecision{Allowed: true, Scope: ScopeProvider}, true
}

func (l *Limiter) bucketFor(userID, tier string) *userBucket {
	key := tier + ":" + userID
	if b, ok := l.users.Load(key); ok {
		return b
	}

	tierCfg, ok := l.cfg.Tiers[tier]
	if !ok {
		tierCfg = l.cfg.Tiers[defaultTierName]
	}
	if tierCfg.Capacity <= 0 {
		tierCfg = TierConfig{Capacity: 100, RefillRate: 1.0}
	}

	fresh := &userBucket{
		limiter:  rate.NewLimiter(rate.Limit(tierCfg.RefillRate), tierCfg.Capacity),
		capacity: tierCfg.Capacity,
	}
	fresh.lastSeen.Store(time.Now().UnixNano())
	b, _ := l.users.LoadOrStore(key, fresh)
	return b
}

func (l *Limiter) windowsFor(provider string) *providerWindows {
	if w, ok := l.providers.Load(provider); ok {
		return w
	}
	fresh := &providerWindows{
		second: newSlidingWindow(l.cfg.ProviderPerSecond, time.Second),
		minute: newSlidingWindow(l.cfg.ProviderPerMinute, time.Minute),
	}
	w, _ := l.providers.LoadOrStore(provider, fresh)
	return w
}

// reapIdleBuckets drops user buckets that have been idle for over an hour and
// are fully refilled, so abandoned users do not accumulate.
func (l *Limiter) reapIdleBuckets() {
	ticker := time.NewTicker(reaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-bucketIdleTTL).UnixNano()
			l.users.Range(func(key string, b *userBucket) bool {
				if b.lastSeen.Load() < cutoff && b.limiter.Tokens() >= float64(b.capacity) {
					l.users.Delete(key)
				}
				return true
			})
		}
	}
}

func (l *Limiter) Stop() {
	close(l.done)
}

// UserCount reports tracked user buckets, for diagnostics.
func (l *Limiter) UserCount() int {
	return l.users.Size()
}
