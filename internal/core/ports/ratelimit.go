package ports

import (
	"time"
)

// RateLimiter is the two-layer admission control: global and per-provider
// sliding windows plus per-user token buckets selected by tier.
type RateLimiter interface {
	// Allow checks every applicable layer. provider may be empty when the
	// call does not target a specific back-end.
	Allow(userID, tier, provider string) RateLimitDecision
	Stop()
}

type RateLimitDecision struct {
	Allowed    bool
	Scope      string // which layer denied: "global", "provider", "user"
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetTime  time.Time
}
