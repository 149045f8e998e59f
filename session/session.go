// Package session ties a single generation request to its lifecycle and
// reports progress to observers as it advances toward a terminal state.
package session

import (
	"sync"
	"time"

	"github.com/inkwell-ai/inkwell/provider"
)

// Status represents the current state of a generation session.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timedout"
	StatusCanceled  Status = "canceled"
)

// IsTerminal returns true if the status is terminal (the session is done).
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimedOut || s == StatusCanceled
}

// observerBuffer is the per-watcher channel capacity. A slow watcher loses
// newer snapshots rather than blocking the session.
const observerBuffer = 16

// Session is the unit of work a caller tracks. Once terminal it is immutable.
type Session struct {
	id      string
	ownerID string

	mu        sync.Mutex
	status    Status
	progress  Progress
	result    *provider.Generation
	err       error
	startTime time.Time
	endTime   *time.Time
	watchers  []chan Progress
	done      chan struct{}
}

func newSession(id, ownerID string) *Session {
	return &Session{
		id:        id,
		ownerID:   ownerID,
		status:    StatusPending,
		progress:  Pending(),
		startTime: time.Now().UTC(),
		done:      make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Owner returns the owner identifier, empty if the session has none.
func (s *Session) Owner() string { return s.ownerID }

// Status returns the current lifecycle status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Progress returns the current progress snapshot.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Result returns the terminal generation and error. Before the session is
// terminal both are zero; use Done to wait.
func (s *Session) Result() (*provider.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

// StartTime returns when the session was submitted.
func (s *Session) StartTime() time.Time { return s.startTime }

// EndTime returns when the session reached a terminal state, or nil.
func (s *Session) EndTime() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endTime
}

// Done is closed when the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

// Watch returns a channel that receives the current progress snapshot and
// every later transition in order. The channel is closed once the session is
// terminal. Snapshots may be dropped for watchers that do not keep up.
func (s *Session) Watch() <-chan Progress {
	ch := make(chan Progress, observerBuffer)
	s.mu.Lock()
	defer s.mu.Unlock()

	ch <- s.progress
	if s.status.IsTerminal() {
		close(ch)
		return ch
	}
	s.watchers = append(s.watchers, ch)
	return ch
}

// Snapshot returns the status, progress, result, and error in one consistent
// read.
func (s *Session) Snapshot() (Status, Progress, *provider.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.progress, s.result, s.err
}

// advance publishes a non-terminal progress snapshot. It is a no-op once the
// session is terminal, so a late long-running timer cannot regress state.
func (s *Session) advance(status Status, p Progress) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.IsTerminal() {
		return false
	}
	s.status = status
	s.progress = p
	s.notifyLocked(p)
	return true
}

// finalize applies the single allowed terminal transition. It returns false
// if another terminal transition already won (e.g. a cancellation racing a
// success), in which case nothing changes.
func (s *Session) finalize(status Status, result *provider.Generation, err error, p Progress) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.IsTerminal() {
		return false
	}
	now := time.Now().UTC()
	s.status = status
	s.progress = p
	s.result = result
	s.err = err
	s.endTime = &now
	s.notifyLocked(p)
	for _, ch := range s.watchers {
		close(ch)
	}
	s.watchers = nil
	close(s.done)
	return true
}

func (s *Session) notifyLocked(p Progress) {
	for _, ch := range s.watchers {
		select {
		case ch <- p:
		default:
		}
	}
}
