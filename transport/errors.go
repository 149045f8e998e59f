package transport

import "fmt"

// HTTPError means the server answered but rejected the request. It carries
// the status and the parsed error body; Err is non-nil when the status was
// retryable and all retries were used.
type HTTPError struct {
	Status     int
	StatusText string
	Body       map[string]any
	Err        error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.StatusText)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NetworkError means the server could not be reached at all, after retry
// exhaustion. Distinct from HTTPError so callers can tell "rejected us"
// apart from "unreachable".
type NetworkError struct {
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("Network error: %s", e.Message)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
