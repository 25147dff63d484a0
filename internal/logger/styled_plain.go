package logger

import (
	"context"
	"fmt"
	"log/slog"
)

// PlainStyledLogger implements StyledLogger without formatting
type PlainStyledLogger struct {
	logger *slog.Logger
}

func NewPlainStyledLogger(logger *slog.Logger) *PlainStyledLogger {
	return &PlainStyledLogger{
		logger: logger,
	}
}

func (sl *PlainStyledLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, args...)
}

func (sl *PlainStyledLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, args...)
}

func (sl *PlainStyledLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, args...)
}

func (sl *PlainStyledLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, args...)
}

func (sl *PlainStyledLogger) InfoWithStatus(msg string, status string, args ...any) {
	sl.logger.Info(fmt.Sprintf("[ %s ] %s", status, msg), args...)
}

func (sl *PlainStyledLogger) InfoWithCount(msg string, count int, args ...any) {
	sl.logger.Info(fmt.Sprintf("%s (%d)", msg, count), args...)
}

func (sl *PlainStyledLogger) InfoWithEndpoint(msg string, endpoint string, args ...any) {
	sl.logger.Info(fmt.Sprintf("%s %s", msg, endpoint), args...)
}

func (sl *PlainStyledLogger) InfoWithProvider(msg string, provider string, args ...any) {
	sl.logger.Info(fmt.Sprintf("%s %s", msg, provider), args...)
}

func (sl *PlainStyledLogger) WarnWithProvider(msg string, provider string, args ...any) {
	sl.logger.Warn(fmt.Sprintf("%s %s", msg, provider), args...)
}

func (sl *PlainStyledLogger) ErrorWithProvider(msg string, provider string, args ...any) {
	sl.logger.Error(fmt.Sprintf("%s %s", msg, provider), args...)
}

func (sl *PlainStyledLogger) InfoProviderHealthy(msg string, provider string, args ...any) {
	sl.logger.Info(fmt.Sprintf("%s %s", msg, provider), args...)
}

func (sl *PlainStyledLogger) WarnProviderUnhealthy(msg string, provider string, args ...any) {
	sl.logger.Warn(fmt.Sprintf("%s %s", msg, provider), args...)
}

func (sl *PlainStyledLogger) InfoWithContext(msg string, endpoint string, ctx LogContext) {
	sl.logWithContext("info", msg, endpoint, ctx)
}

func (sl *PlainStyledLogger) WarnWithContext(msg string, endpoint string, ctx LogContext) {
	sl.logWithContext("warn", msg, endpoint, ctx)
}

func (sl *PlainStyledLogger) ErrorWithContext(msg string, endpoint string, ctx LogContext) {
	sl.logWithContext("error", msg, endpoint, ctx)
}

func (sl *PlainStyledLogger) logWithContext(level string, msg string, endpoint string, ctx LogContext) {
	plainMsg := fmt.Sprintf("%s %s", msg, endpoint)

	switch level {
	case "info":
		sl.logger.Info(plainMsg, ctx.UserArgs...)
	case "warn":
		sl.logger.Warn(plainMsg, ctx.UserArgs...)
	case "error":
		sl.logger.Error(plainMsg, ctx.UserArgs...)
	}

	if len(ctx.DetailedArgs) > 0 {
		allArgs := make([]any, 0, len(ctx.UserArgs)+len(ctx.DetailedArgs)+2)
		allArgs = append(allArgs, "endpoint", endpoint)
		allArgs = append(allArgs, ctx.UserArgs...)
		allArgs = append(allArgs, ctx.DetailedArgs...)

		detailedCtx := context.WithValue(context.Background(), DefaultDetailedCookie, true)

		switch level {
		case "info":
			sl.logger.InfoContext(detailedCtx, msg, allArgs...)
		case "warn":
			sl.logger.WarnContext(detailedCtx, msg, allArgs...)
		case "error":
			sl.logger.ErrorContext(detailedCtx, msg, allArgs...)
		}
	}
}

func (sl *PlainStyledLogger) With(args ...any) StyledLogger {
	return &PlainStyledLogger{logger: sl.logger.With(args...)}
}

func (sl *PlainStyledLogger) Underlying() *slog.Logger {
	return sl.logger
}
