package observability

import (
	"context"
	"log/slog"
	"time"
)

// SlogHooks returns Hooks that forward every callback to a slog.Logger.
// Passing nil uses slog.Default().
func SlogHooks(logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{
		Logf: func(ctx context.Context, level string, msg string, fields map[string]any) {
			attrs := make([]any, 0, len(fields)*2)
			for k, v := range fields {
				attrs = append(attrs, k, v)
			}
			logger.Log(ctx, slogLevel(level), msg, attrs...)
		},
		OnAttemptStart: func(ctx context.Context, requestID string, attempt int) {
			logger.DebugContext(ctx, "attempt started", "request_id", requestID, "attempt", attempt)
		},
		OnRetryScheduled: func(ctx context.Context, requestID string, attempt int, wait time.Duration, reason string) {
			logger.WarnContext(ctx, "retry scheduled", "request_id", requestID, "attempt", attempt,
				"wait", wait, "reason", reason)
		},
		OnSuccess: func(ctx context.Context, requestID string, attempts int, latency time.Duration) {
			logger.InfoContext(ctx, "request succeeded", "request_id", requestID, "attempts", attempts,
				"latency", latency)
		},
		OnExhausted: func(ctx context.Context, requestID string, attempts int, err error) {
			logger.ErrorContext(ctx, "retries exhausted", "request_id", requestID, "attempts", attempts,
				"error", err)
		},
		OnCanceled: func(ctx context.Context, requestID string, attempt int) {
			logger.InfoContext(ctx, "request canceled", "request_id", requestID, "attempt", attempt)
		},
	}
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
