// Package session is an in-memory repository for onboarding sessions.
package session

import (
	"context"
	"sync"

	"github.com/vincent3477/GraduateSupportApp/internal/domain"
	domsession "github.com/vincent3477/GraduateSupportApp/internal/domain/session"
)

// Repo keeps sessions in process memory. Sessions hold personal identifiers
// (name, email) and are intentionally never written to the vector store.
type Repo struct {
	mu       sync.RWMutex
	sessions map[string]domsession.Session
}

// New creates an empty session repository.
func New() *Repo {
	return &Repo{sessions: make(map[string]domsession.Session)}
}

// Save creates or replaces a session.
func (r *Repo) Save(_ context.Context, s domsession.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return nil
}

// Get returns a session by ID.
func (r *Repo) Get(_ context.Context, id string) (domsession.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return domsession.Session{}, domain.ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session. Returns true if it existed.
func (r *Repo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok, nil
}

// All returns every session in no particular order.
func (r *Repo) All(_ context.Context) ([]domsession.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domsession.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out, nil
}

// Count returns the number of active sessions.
func (r *Repo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions), nil
}
