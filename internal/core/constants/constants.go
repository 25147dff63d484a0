package constants

const (
	ContentTypeJSON   = "application/json"
	ContentTypeSSE    = "text/event-stream"
	ContentTypeHeader = "Content-Type"

	HeaderRequestID   = "X-Request-ID"
	HeaderProcessTime = "X-Process-Time"
	HeaderRetryAfter  = "Retry-After"

	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

const (
	ContextRequestIdKey   = "request_id"   // generated per request for tracking
	ContextRequestTimeKey = "request_time" // request arrival, used for X-Process-Time
	ContextUserIdKey      = "user_id"      // opaque bearer token, used for per-user quotas
)
