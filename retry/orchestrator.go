package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/inkwell-ai/inkwell/cancel"
	"github.com/inkwell-ai/inkwell/observability"
)

// Call performs one network attempt and classifies its result. The context is
// canceled when the request or its owner is canceled; implementations should
// pass it through to the underlying HTTP call.
type Call func(ctx context.Context) Outcome

// Orchestrator executes calls with bounded linear-backoff retries and
// owner-scoped cancellation. Construct one per process and share it; it owns
// no per-request state beyond the registry entries it creates.
type Orchestrator struct {
	registry *cancel.Registry
	policy   Policy
	hooks    *observability.Hooks
}

// Config holds orchestrator configuration.
type Config struct {
	Registry *cancel.Registry
	Policy   Policy
	Hooks    *observability.Hooks
}

// New creates an orchestrator. A nil Registry gets a private one; zero policy
// fields fall back to DefaultPolicy.
func New(cfg Config) *Orchestrator {
	if cfg.Registry == nil {
		cfg.Registry = cancel.NewRegistry()
	}
	return &Orchestrator{
		registry: cfg.Registry,
		policy:   cfg.Policy.withDefaults(),
		hooks:    cfg.Hooks,
	}
}

// Registry exposes the cancellation registry so callers can cancel requests
// by ID or owner.
func (o *Orchestrator) Registry() *cancel.Registry {
	return o.registry
}

// Policy returns the orchestrator's backoff policy.
func (o *Orchestrator) Policy() Policy {
	return o.policy
}

// Execute runs call until it succeeds, fails non-retryably, exhausts its
// retries, or is canceled. requestID must be unique among active requests;
// ownerID may be empty. The cancellation handle is registered before the
// first attempt and deregistered on every exit path.
//
// The returned error is nil for KindSuccess and KindNonRetryable outcomes
// (the caller decides how to surface a definitive rejection), ErrCanceled
// for cancellation, and *ExhaustedError when all attempts are used.
func (o *Orchestrator) Execute(ctx context.Context, requestID, ownerID string, call Call) (Outcome, error) {
	if call == nil {
		return Outcome{}, fmt.Errorf("call is required")
	}

	attemptCtx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	if err := o.registry.Register(requestID, cancelFn, ownerID); err != nil {
		return Outcome{}, err
	}
	defer o.registry.Deregister(requestID)

	start := time.Now()
	for attempt := 0; ; attempt++ {
		if attemptCtx.Err() != nil {
			o.hooks.SafeCanceled(ctx, requestID, attempt)
			return Canceled(), ErrCanceled
		}

		o.hooks.SafeAttemptStart(ctx, requestID, attempt)
		out := call(attemptCtx)

		// An attempt that failed because the context died counts as canceled
		// even if the call classified it as a transport error.
		if attemptCtx.Err() != nil {
			o.hooks.SafeCanceled(ctx, requestID, attempt)
			return Canceled(), ErrCanceled
		}

		switch out.Kind {
		case KindSuccess:
			o.hooks.SafeSuccess(ctx, requestID, attempt+1, time.Since(start))
			return out, nil
		case KindNonRetryable:
			o.hooks.SafeLog(ctx, "warn", "non-retryable failure", map[string]any{
				"request_id": requestID,
				"attempt":    attempt,
				"status":     out.Status,
			})
			return out, nil
		case KindCanceled:
			o.hooks.SafeCanceled(ctx, requestID, attempt)
			return out, ErrCanceled
		case KindUnknown:
			return out, fmt.Errorf("attempt returned an unclassified outcome")
		}

		decision := o.policy.Next(attempt)
		if !decision.Retry {
			err := &ExhaustedError{Attempts: attempt + 1, Last: out}
			o.hooks.SafeExhausted(ctx, requestID, attempt+1, err)
			return out, err
		}

		o.hooks.SafeRetryScheduled(ctx, requestID, attempt, decision.Wait, out.Summary())
		timer := time.NewTimer(decision.Wait)
		select {
		case <-attemptCtx.Done():
			timer.Stop()
			o.hooks.SafeCanceled(ctx, requestID, attempt)
			return Canceled(), ErrCanceled
		case <-timer.C:
		}
	}
}
