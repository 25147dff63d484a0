package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/deepsearchstack/deepsearch/internal/core/constants"
	"github.com/deepsearchstack/deepsearch/internal/logger"
	"github.com/deepsearchstack/deepsearch/internal/util"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	LoggerKey    contextKey = "logger"
	UserIDKey    contextKey = "user_id"
)

// IsStreamingRequest reports whether the path produces a long-lived SSE
// response. Streaming requests log at debug to avoid doubling up with the
// pipeline's own progress logging.
func IsStreamingRequest(path string) bool {
	return path == "/deepsearch" || strings.HasPrefix(path, "/completion") ||
		strings.HasPrefix(path, "/v1/chat/completions")
}

// responseWriter wraps http.ResponseWriter to capture response size and
// status, and stamps X-Process-Time just before headers go out.
type responseWriter struct {
	http.ResponseWriter
	start       time.Time
	status      int
	size        int64
	wroteHeader bool
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	size, err := rw.ResponseWriter.Write(b)
	rw.size += int64(size)
	return size, err
}

func (rw *responseWriter) WriteHeader(s int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.status = s
	rw.Header().Set(constants.HeaderProcessTime,
		fmt.Sprintf("%.6f", time.Since(rw.start).Seconds()))
	rw.ResponseWriter.WriteHeader(s)
}

// Flush forwards to the underlying writer so SSE fragments leave
// immediately instead of sitting in a buffer.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// GetLogger retrieves a logger with request ID from context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves the caller identity placed by RequestTracking.
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// RequestTracking assigns each request an id, stamps it on the response, and
// logs start/completion. The caller identity is the bearer token when one is
// presented, otherwise the client IP.
func RequestTracking(styledLogger logger.StyledLogger, trustedCIDRs []*net.IPNet) func(http.Handler) http.Handler {
	trustProxyHeaders := len(trustedCIDRs) > 0
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(constants.HeaderRequestID)
			if requestID == "" {
				requestID = util.GenerateRequestID()
			}

			userID := bearerToken(r)
			if userID == "" {
				userID = util.GetClientIP(r, trustProxyHeaders, trustedCIDRs)
			}

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			ctx = context.WithValue(ctx, UserIDKey, userID)

			baseLogger := styledLogger.Underlying().With(constants.ContextRequestIdKey, requestID)
			ctx = context.WithValue(ctx, LoggerKey, baseLogger)

			w.Header().Set(constants.HeaderRequestID, requestID)

			wrapped := &responseWriter{ResponseWriter: w, start: start, status: http.StatusOK}

			requestSize := r.ContentLength
			if requestSize < 0 {
				requestSize = 0
			}

			logFields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"request_bytes", requestSize,
			}
			if IsStreamingRequest(r.URL.Path) {
				baseLogger.Debug("Request started", logFields...)
			} else {
				baseLogger.Info("Request started", logFields...)
			}

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			duration := time.Since(start)
			completionFields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration_ms", duration.Milliseconds(),
				"response_bytes", wrapped.size,
			}
			if IsStreamingRequest(r.URL.Path) {
				baseLogger.Debug("Request completed", completionFields...)
			} else {
				baseLogger.Info("Request completed", completionFields...)
			}
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
