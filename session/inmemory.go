package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	mu          sync.RWMutex
	records     map[string]*Record
	transitions map[string][]*Transition
}

// NewInMemoryStore creates a new in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:     make(map[string]*Record),
		transitions: make(map[string][]*Transition),
	}
}

// SaveRecord implements Store
func (s *InMemoryStore) SaveRecord(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy to avoid external mutations
	recCopy := *rec
	s.records[rec.SessionID] = &recCopy
	return nil
}

// GetRecord implements Store
func (s *InMemoryStore) GetRecord(ctx context.Context, sessionID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[sessionID]
	if !exists {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}

	recCopy := *rec
	return &recCopy, nil
}

// AppendTransition implements Store
func (s *InMemoryStore) AppendTransition(ctx context.Context, tr *Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.transitions[tr.SessionID]
	tr.Seq = int64(len(log)) + 1

	trCopy := *tr
	s.transitions[tr.SessionID] = append(log, &trCopy)
	return nil
}

// Transitions implements Store
func (s *InMemoryStore) Transitions(ctx context.Context, sessionID string) ([]*Transition, error) {
	return s.TransitionsSince(ctx, sessionID, 0)
}

// TransitionsSince implements Store
func (s *InMemoryStore) TransitionsSince(ctx context.Context, sessionID string, since int64) ([]*Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, exists := s.transitions[sessionID]
	if !exists {
		return []*Transition{}, nil
	}

	result := make([]*Transition, 0, len(log))
	for _, tr := range log {
		if tr.Seq > since {
			trCopy := *tr
			result = append(result, &trCopy)
		}
	}
	return result, nil
}

// ListRecords implements Store
func (s *InMemoryStore) ListRecords(ctx context.Context, status Status) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Record, 0)
	for _, rec := range s.records {
		if status == "" || rec.Status == status {
			recCopy := *rec
			result = append(result, &recCopy)
		}
	}

	// Stable ordering by StartTime then SessionID.
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].SessionID < result[j].SessionID
		}
		return result[i].StartTime.Before(result[j].StartTime)
	})

	return result, nil
}

// DeleteRecord implements Store
func (s *InMemoryStore) DeleteRecord(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, sessionID)
	delete(s.transitions, sessionID)
	return nil
}
