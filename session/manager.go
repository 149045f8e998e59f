package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell/cancel"
	"github.com/inkwell-ai/inkwell/observability"
	"github.com/inkwell-ai/inkwell/provider"
	"github.com/inkwell-ai/inkwell/retry"
)

// ErrDeadlineExceeded marks a session that hit its caller-side deadline
// before any terminal outcome. Distinct from a failed generation so
// observers can suggest "try again" rather than "check your input".
var ErrDeadlineExceeded = errors.New("generation deadline exceeded")

// Call performs one complete generation: build, send (with retries), parse.
// The context is canceled when the session or its owner is canceled.
type Call func(ctx context.Context) (*provider.Generation, error)

// Manager is the call sink: it creates sessions, runs them to a terminal
// state, and supports cancellation by session, by owner, or globally.
type Manager struct {
	registry         *cancel.Registry
	store            Store
	hooks            *observability.Hooks
	longRunningAfter time.Duration
	mu               sync.Mutex
	sessions         map[string]*Session
}

// Config holds manager configuration.
type Config struct {
	// Registry should be shared with the retry orchestrator so that owner
	// cancellation reaches both the session and any in-flight attempt.
	Registry *cancel.Registry
	// Store persists session snapshots and transitions; defaults to in-memory.
	Store Store
	Hooks *observability.Hooks
	// LongRunningAfter is when a still-running session reports the
	// long-running milestone. Zero disables it.
	LongRunningAfter time.Duration
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	if cfg.Registry == nil {
		cfg.Registry = cancel.NewRegistry()
	}
	if cfg.Store == nil {
		cfg.Store = NewInMemoryStore()
	}
	return &Manager{
		registry:         cfg.Registry,
		store:            cfg.Store,
		hooks:            cfg.Hooks,
		longRunningAfter: cfg.LongRunningAfter,
		sessions:         make(map[string]*Session),
	}
}

// SubmitOptions configures a single submission.
type SubmitOptions struct {
	// OwnerID groups this session with others that must be canceled together.
	OwnerID string
	// Deadline is a caller-side limit for the whole generation including
	// retries. Zero means no deadline.
	Deadline time.Duration
	// Message overrides the in-progress status message.
	Message string
}

// Submit creates a session and starts running call asynchronously. The
// returned session can be watched, waited on, or canceled.
func (m *Manager) Submit(ctx context.Context, call Call, opts SubmitOptions) (*Session, error) {
	if call == nil {
		return nil, fmt.Errorf("call is required")
	}

	s := newSession(uuid.NewString(), opts.OwnerID)

	// The session runs detached from the submitting context; its lifetime is
	// controlled by the registry handle and the optional deadline.
	runCtx, cancelFn := context.WithCancel(context.Background())
	if err := m.registry.Register(s.id, cancelFn, opts.OwnerID); err != nil {
		cancelFn()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	m.persist(ctx, s)

	go m.run(runCtx, cancelFn, s, call, opts)

	log.Printf("[Session] Started session %s (owner=%q)", s.id, opts.OwnerID)
	return s, nil
}

// Get returns a live session by ID.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// Cancel cancels one session. Canceling a terminal session is a no-op and
// returns false.
func (m *Manager) Cancel(sessionID string) bool {
	return m.registry.Cancel(sessionID)
}

// CancelOwner cancels every session and in-flight request registered under
// ownerID, returning how many handles were signaled.
func (m *Manager) CancelOwner(ownerID string) int {
	return m.registry.CancelOwner(ownerID)
}

// OwnerClosed is the owner lifecycle event: the hosting layer calls it when
// an owner (tab, session, window) goes away.
func (m *Manager) OwnerClosed(ownerID string) {
	n := m.CancelOwner(ownerID)
	if n > 0 {
		log.Printf("[Session] Owner %q closed, canceled %d requests", ownerID, n)
	}
}

// Shutdown cancels every registered request. Used on process teardown.
func (m *Manager) Shutdown() {
	n := m.registry.CancelAll()
	log.Printf("[Session] Shutdown, canceled %d requests", n)
}

// Store exposes the session store for status queries and event streaming.
func (m *Manager) Store() Store {
	return m.store
}

func (m *Manager) run(ctx context.Context, cancelFn context.CancelFunc, s *Session, call Call, opts SubmitOptions) {
	defer cancelFn()
	defer m.registry.Deregister(s.id)

	if s.advance(StatusRunning, InProgress(opts.Message)) {
		m.persist(ctx, s)
	}

	if m.longRunningAfter > 0 {
		lrTimer := time.AfterFunc(m.longRunningAfter, func() {
			if s.advance(StatusRunning, LongRunning("")) {
				m.persist(context.Background(), s)
			}
		})
		defer lrTimer.Stop()
	}

	if opts.Deadline > 0 {
		deadlineTimer := time.AfterFunc(opts.Deadline, func() {
			if s.finalize(StatusTimedOut, nil, ErrDeadlineExceeded, TimedOut()) {
				m.persist(context.Background(), s)
				log.Printf("[Session] Session %s timed out after %v", s.id, opts.Deadline)
				// Abort the in-flight attempt; the losing finalize below is a no-op.
				cancelFn()
			}
		})
		defer deadlineTimer.Stop()
	}

	result, err := call(ctx)

	switch {
	case err == nil:
		if s.finalize(StatusCompleted, result, nil, Completed()) {
			m.persist(context.Background(), s)
			log.Printf("[Session] Session %s completed", s.id)
		}
	case errors.Is(err, retry.ErrCanceled):
		if s.finalize(StatusCanceled, nil, err, Canceled()) {
			m.persist(context.Background(), s)
			log.Printf("[Session] Session %s canceled", s.id)
		}
	default:
		if s.finalize(StatusFailed, nil, err, Failed(err)) {
			m.persist(context.Background(), s)
			log.Printf("[Session] Session %s failed: %v", s.id, err)
		}
	}
}

// persist writes the session snapshot and appends a transition. Storage
// errors are logged, never surfaced; the in-process session is authoritative.
func (m *Manager) persist(ctx context.Context, s *Session) {
	status, p, result, err := s.Snapshot()

	rec := &Record{
		SessionID: s.id,
		OwnerID:   s.ownerID,
		Status:    status,
		Percent:   p.Percent(),
		Message:   p.Message(),
		StartTime: s.startTime,
		EndTime:   s.EndTime(),
	}
	if result != nil {
		rec.Chapters = result.Chapters
		rec.Model = result.Model
	} else if err != nil {
		rec.Error = err.Error()
	}
	if saveErr := m.store.SaveRecord(ctx, rec); saveErr != nil {
		m.hooks.SafeLog(ctx, "error", "save session record", map[string]any{
			"session_id": s.id, "error": saveErr.Error(),
		})
	}

	tr := &Transition{
		SessionID: s.id,
		Status:    status,
		Percent:   p.Percent(),
		Message:   p.Message(),
		Complete:  p.IsComplete(),
		Timestamp: time.Now().UTC(),
	}
	if appendErr := m.store.AppendTransition(ctx, tr); appendErr != nil {
		m.hooks.SafeLog(ctx, "error", "append session transition", map[string]any{
			"session_id": s.id, "error": appendErr.Error(),
		})
	}
}
