package retry

import (
	"encoding/json"
	"fmt"
)

// Kind classifies the result of one transport attempt.
type Kind int

const (
	// KindUnknown indicates a missing or invalid classification.
	KindUnknown Kind = iota
	// KindSuccess is a 2xx response.
	KindSuccess
	// KindRetryable is a 5xx response, eligible for backoff and re-attempt.
	KindRetryable
	// KindNonRetryable is any other non-2xx response; never retried.
	KindNonRetryable
	// KindTransport is a network-level failure (no response at all);
	// treated the same as a retryable server error.
	KindTransport
	// KindCanceled means the attempt was aborted by caller or owner cancellation.
	KindCanceled
)

// Outcome is the tagged result of one transport attempt. Exactly one shape is
// populated, selected by Kind. Classification is based solely on HTTP status
// and transport exceptions, never on response body content.
type Outcome struct {
	Kind       Kind
	Payload    json.RawMessage // KindSuccess; may be literal null
	Status     int             // KindRetryable, KindNonRetryable
	StatusText string          // KindRetryable, KindNonRetryable
	Body       map[string]any  // parsed error body; empty map if unparseable
	Cause      error           // KindTransport
}

// Success builds a successful outcome carrying the raw response payload.
func Success(payload json.RawMessage) Outcome {
	return Outcome{Kind: KindSuccess, Payload: payload}
}

// RetryableFailure builds an outcome for a 5xx response.
func RetryableFailure(status int, statusText string, body map[string]any) Outcome {
	return Outcome{Kind: KindRetryable, Status: status, StatusText: statusText, Body: body}
}

// NonRetryableFailure builds an outcome for a non-2xx, non-5xx response.
func NonRetryableFailure(status int, statusText string, body map[string]any) Outcome {
	return Outcome{Kind: KindNonRetryable, Status: status, StatusText: statusText, Body: body}
}

// TransportFailure builds an outcome for a network-level error.
func TransportFailure(err error) Outcome {
	return Outcome{Kind: KindTransport, Cause: err}
}

// Canceled builds an outcome for an attempt aborted by cancellation.
func Canceled() Outcome {
	return Outcome{Kind: KindCanceled}
}

// Retryable reports whether the outcome is eligible for another attempt.
func (o Outcome) Retryable() bool {
	return o.Kind == KindRetryable || o.Kind == KindTransport
}

// Summary returns a short human-readable description used in logs and errors.
func (o Outcome) Summary() string {
	switch o.Kind {
	case KindSuccess:
		return "success"
	case KindRetryable, KindNonRetryable:
		return fmt.Sprintf("HTTP %d: %s", o.Status, o.StatusText)
	case KindTransport:
		return fmt.Sprintf("network: %v", o.Cause)
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}
