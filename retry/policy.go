// Package retry implements the bounded linear-backoff retry engine that
// drives provider calls, with cancellation honored at every suspension point.
package retry

import "time"

// Policy controls how many retries are attempted and how long to wait
// between them. The wait grows linearly: (attempt+1) * BaseDelay.
type Policy struct {
	MaxRetries int           `json:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay"`
}

// DefaultPolicy returns the default policy: 3 retries at 5s, 10s, 15s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  5 * time.Second,
	}
}

// Decision is the outcome of consulting the policy after a retryable failure.
type Decision struct {
	Retry bool
	Wait  time.Duration
}

// Next returns the decision for a 0-based attempt number. Pure; no side effects.
func (p Policy) Next(attempt int) Decision {
	return Decision{
		Retry: attempt < p.MaxRetries,
		Wait:  time.Duration(attempt+1) * p.BaseDelay,
	}
}

// withDefaults fills zero values from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.MaxRetries <= 0 {
		p.MaxRetries = def.MaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	return p
}
