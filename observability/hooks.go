package observability

import (
	"context"
	"time"
)

// Hooks provides optional callbacks for logging, metrics, and tracing without
// introducing dependencies in the core library. All functions are optional.
type Hooks struct {
	// Logf logs a structured message with a severity level and key-value fields.
	Logf func(ctx context.Context, level string, msg string, fields map[string]any)

	// OnAttemptStart is called before each network attempt is issued.
	OnAttemptStart func(ctx context.Context, requestID string, attempt int)
	// OnRetryScheduled is called when a retry has been scheduled after a retryable failure.
	OnRetryScheduled func(ctx context.Context, requestID string, attempt int, wait time.Duration, reason string)
	// OnSuccess is called when a request resolves successfully.
	OnSuccess func(ctx context.Context, requestID string, attempts int, latency time.Duration)
	// OnExhausted is called when all retry attempts have been used.
	OnExhausted func(ctx context.Context, requestID string, attempts int, err error)
	// OnCanceled is called when a request is canceled by its caller or owner.
	OnCanceled func(ctx context.Context, requestID string, attempt int)
}

// SafeLog logs if Logf is configured.
func (h *Hooks) SafeLog(ctx context.Context, level string, msg string, fields map[string]any) {
	if h != nil && h.Logf != nil {
		h.Logf(ctx, level, msg, fields)
	}
}

// SafeAttemptStart invokes OnAttemptStart if configured.
func (h *Hooks) SafeAttemptStart(ctx context.Context, requestID string, attempt int) {
	if h != nil && h.OnAttemptStart != nil {
		h.OnAttemptStart(ctx, requestID, attempt)
	}
}

// SafeRetryScheduled invokes OnRetryScheduled if configured.
func (h *Hooks) SafeRetryScheduled(ctx context.Context, requestID string, attempt int, wait time.Duration, reason string) {
	if h != nil && h.OnRetryScheduled != nil {
		h.OnRetryScheduled(ctx, requestID, attempt, wait, reason)
	}
}

// SafeSuccess invokes OnSuccess if configured.
func (h *Hooks) SafeSuccess(ctx context.Context, requestID string, attempts int, latency time.Duration) {
	if h != nil && h.OnSuccess != nil {
		h.OnSuccess(ctx, requestID, attempts, latency)
	}
}

// SafeExhausted invokes OnExhausted if configured.
func (h *Hooks) SafeExhausted(ctx context.Context, requestID string, attempts int, err error) {
	if h != nil && h.OnExhausted != nil {
		h.OnExhausted(ctx, requestID, attempts, err)
	}
}

// SafeCanceled invokes OnCanceled if configured.
func (h *Hooks) SafeCanceled(ctx context.Context, requestID string, attempt int) {
	if h != nil && h.OnCanceled != nil {
		h.OnCanceled(ctx, requestID, attempt)
	}
}
