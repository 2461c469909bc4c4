package auth

import (
	"sync"

	"github.com/mhrivnak/ssvirt-console/pkg/cache"
	"github.com/mhrivnak/ssvirt-console/pkg/rbac"
)

// Entry is the server-side state for one console session: the role context
// holding session and capabilities, the upstream CloudAPI token (empty in
// dev mode), and the session's role-scoped query cache.
type Entry struct {
	Context       *rbac.Context
	UpstreamToken string
	Cache         *cache.QueryCache
}

// Registry maps session URNs to live entries. Tokens only grant access to
// the entry their session_id claim names.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Put stores the entry for a session ID, replacing any previous one.
func (r *Registry) Put(sessionID string, entry *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[sessionID] = entry
}

// Get returns the entry for a session ID.
func (r *Registry) Get(sessionID string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[sessionID]
	return entry, ok
}

// Delete removes the entry for a session ID and returns it, if present.
func (r *Registry) Delete(sessionID string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[sessionID]
	if ok {
		delete(r.entries, sessionID)
	}
	return entry, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
