package logger

import (
	"log/slog"
)

// StyledLogger wraps slog with theme-aware helpers for the messages that end
// up on an operator's terminal. The pretty flavour colours counts, endpoints
// and provider names; the plain flavour passes everything straight through.
type StyledLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	InfoWithStatus(msg string, status string, args ...any)
	InfoWithCount(msg string, count int, args ...any)
	InfoWithEndpoint(msg string, endpoint string, args ...any)
	InfoWithProvider(msg string, provider string, args ...any)
	WarnWithProvider(msg string, provider string, args ...any)
	ErrorWithProvider(msg string, provider string, args ...any)

	InfoProviderHealthy(msg string, provider string, args ...any)
	WarnProviderUnhealthy(msg string, provider string, args ...any)

	InfoWithContext(msg string, endpoint string, ctx LogContext)
	WarnWithContext(msg string, endpoint string, ctx LogContext)
	ErrorWithContext(msg string, endpoint string, ctx LogContext)

	With(args ...any) StyledLogger
	Underlying() *slog.Logger
}

// LogContext separates user-facing from detailed logging context. The
// terminal gets the clean message; the log file additionally receives the
// detailed attributes.
type LogContext struct {
	UserArgs     []any
	DetailedArgs []any
}
