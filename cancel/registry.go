// Package cancel tracks in-flight requests so they can be canceled one at a
// time, per owner, or all at once during teardown.
package cancel

import (
	"context"
	"fmt"
	"sync"
)

// Registry maps request IDs to cancellation handles and groups them by owner.
// It is safe for concurrent use from independent call chains.
type Registry struct {
	mu      sync.Mutex
	handles map[string]context.CancelFunc
	owners  map[string]map[string]struct{} // ownerID -> set of requestIDs
	ownerOf map[string]string              // requestID -> ownerID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[string]context.CancelFunc),
		owners:  make(map[string]map[string]struct{}),
		ownerOf: make(map[string]string),
	}
}

// Register stores a cancellation handle for requestID. If ownerID is non-empty
// the request becomes cancellable through CancelOwner as well. Registering an
// ID that is already present is a caller contract violation and returns an error.
func (r *Registry) Register(requestID string, cancelFn context.CancelFunc, ownerID string) error {
	if requestID == "" {
		return fmt.Errorf("request ID is required")
	}
	if cancelFn == nil {
		return fmt.Errorf("cancel handle is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[requestID]; exists {
		return fmt.Errorf("request %s already registered", requestID)
	}

	r.handles[requestID] = cancelFn
	if ownerID != "" {
		set, ok := r.owners[ownerID]
		if !ok {
			set = make(map[string]struct{})
			r.owners[ownerID] = set
		}
		set[requestID] = struct{}{}
		r.ownerOf[requestID] = ownerID
	}
	return nil
}

// Deregister removes the handle for requestID and prunes its owner set if it
// becomes empty. It is idempotent.
func (r *Registry) Deregister(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(requestID)
}

// Cancel signals cancellation for requestID and deregisters it. It returns
// false if the request is unknown (already terminal or never registered).
func (r *Registry) Cancel(requestID string) bool {
	r.mu.Lock()
	cancelFn, ok := r.handles[requestID]
	if ok {
		r.removeLocked(requestID)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	cancelFn()
	return true
}

// CancelOwner cancels every request currently registered under ownerID and
// returns how many were canceled. Requests under other owners are unaffected.
func (r *Registry) CancelOwner(ownerID string) int {
	r.mu.Lock()
	// Snapshot before mutating; removeLocked edits the owner set.
	ids := make([]string, 0, len(r.owners[ownerID]))
	for id := range r.owners[ownerID] {
		ids = append(ids, id)
	}
	fns := make([]context.CancelFunc, 0, len(ids))
	for _, id := range ids {
		if fn, ok := r.handles[id]; ok {
			fns = append(fns, fn)
			r.removeLocked(id)
		}
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// CancelAll cancels every registered request and leaves the registry empty.
// Used on global teardown.
func (r *Registry) CancelAll() int {
	r.mu.Lock()
	fns := make([]context.CancelFunc, 0, len(r.handles))
	for _, fn := range r.handles {
		fns = append(fns, fn)
	}
	r.handles = make(map[string]context.CancelFunc)
	r.owners = make(map[string]map[string]struct{})
	r.ownerOf = make(map[string]string)
	r.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Len returns the number of currently registered requests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// OwnerLen returns the number of requests registered under ownerID.
func (r *Registry) OwnerLen(ownerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owners[ownerID])
}

// Contains reports whether requestID is currently registered.
func (r *Registry) Contains(requestID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handles[requestID]
	return ok
}

func (r *Registry) removeLocked(requestID string) {
	delete(r.handles, requestID)
	if ownerID, ok := r.ownerOf[requestID]; ok {
		delete(r.ownerOf, requestID)
		if set, ok := r.owners[ownerID]; ok {
			delete(set, requestID)
			if len(set) == 0 {
				delete(r.owners, ownerID)
			}
		}
	}
}
