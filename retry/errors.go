package retry

import (
	"errors"
	"fmt"
)

// ErrCanceled marks a request aborted by its caller or owner. Callers can
// tell it apart from retry exhaustion with errors.Is.
var ErrCanceled = errors.New("request canceled")

// ExhaustedError is returned when every retry attempt has been used. It
// carries the last failing outcome so callers can recover the HTTP status or
// the underlying transport error.
type ExhaustedError struct {
	Attempts int
	Last     Outcome
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %s", e.Attempts, e.Last.Summary())
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last.Cause
}
