package session

import (
	"context"
	"time"
)

// Record is the persisted snapshot of a session, suitable for status queries
// and observers that attach after the fact.
type Record struct {
	SessionID string     `json:"session_id"`
	OwnerID   string     `json:"owner_id,omitempty"`
	Status    Status     `json:"status"`
	Percent   int        `json:"percent"`
	Message   string     `json:"message,omitempty"`
	Chapters  string     `json:"chapters,omitempty"`
	Model     string     `json:"model,omitempty"`
	Error     string     `json:"error,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// Transition is one persisted progress change for a session. Seq is assigned
// by the store, starting at 1, in transition order.
type Transition struct {
	SessionID string    `json:"session_id"`
	Seq       int64     `json:"seq"`
	Status    Status    `json:"status"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message,omitempty"`
	Complete  bool      `json:"complete"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists session records and their progress transition logs.
type Store interface {
	// SaveRecord saves the current snapshot of a session.
	SaveRecord(ctx context.Context, rec *Record) error

	// GetRecord retrieves the snapshot of a session.
	GetRecord(ctx context.Context, sessionID string) (*Record, error)

	// AppendTransition appends a progress transition to the session's log,
	// assigning its sequence number.
	AppendTransition(ctx context.Context, tr *Transition) error

	// Transitions retrieves all transitions for a session in order.
	Transitions(ctx context.Context, sessionID string) ([]*Transition, error)

	// TransitionsSince retrieves transitions with Seq greater than since.
	TransitionsSince(ctx context.Context, sessionID string, since int64) ([]*Transition, error)

	// ListRecords lists sessions, optionally filtered by status ("" = all).
	ListRecords(ctx context.Context, status Status) ([]*Record, error)

	// DeleteRecord removes a session's record and transitions (for cleanup).
	DeleteRecord(ctx context.Context, sessionID string) error
}
