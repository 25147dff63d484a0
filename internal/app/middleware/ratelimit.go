package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/deepsearchstack/deepsearch/internal/core/constants"
	"github.com/deepsearchstack/deepsearch/internal/core/ports"
	"github.com/deepsearchstack/deepsearch/internal/logger"
)

const tierHeader = "X-API-Tier"

// GetTier reads the caller's declared rate-limit tier off the request.
func GetTier(r *http.Request) string {
	return r.Header.Get(tierHeader)
}

// RateLimit enforces per-user and global admission before the handler runs.
// Denials answer 429 with Retry-After and the X-RateLimit-* trio so clients
// can back off without guessing.
func RateLimit(limiter ports.RateLimiter, metrics ports.MetricsRecorder, styledLogger logger.StyledLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			tier := GetTier(r)

			decision := limiter.Allow(userID, tier, "")
			w.Header().Set(constants.HeaderRateLimitLimit, strconv.Itoa(decision.Limit))
			w.Header().Set(constants.HeaderRateLimitRemaining, strconv.Itoa(decision.Remaining))
			if !decision.ResetTime.IsZero() {
				w.Header().Set(constants.HeaderRateLimitReset, strconv.FormatInt(decision.ResetTime.Unix(), 10))
			}

			if !decision.Allowed {
				metrics.RecordRateLimitHit()
				styledLogger.Warn("rate limit exceeded",
					"user", userID,
					"scope", decision.Scope,
					"path", r.URL.Path)

				retryAfter := int(decision.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(retryAfter))
				w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error":"rate limit exceeded","scope":%q,"retry_after":%d}`+"\n",
					decision.Scope, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
