package rag

import (
	"context"
	"sync"
	"time"
)

// Session owns at most one live index. Rebuilds replace the index wholesale;
// a build in flight excludes asks and other builds, and an ask in flight
// excludes builds. Contended calls are rejected with ErrIndexBusy rather
// than queued.
type Session struct {
	mu         sync.Mutex
	index      *Index
	building   bool
	activeAsks int
	lastUsed   time.Time
}

// Ingest builds a fresh index from the document text and swaps it in. A
// failed build leaves any previous index untouched and queryable.
func (s *Session) Ingest(ctx context.Context, e *Engine, documentID, text string) (*Index, error) {
	s.mu.Lock()
	if s.building || s.activeAsks > 0 {
		s.mu.Unlock()
		return nil, ErrIndexBusy
	}
	s.building = true
	s.lastUsed = time.Now()
	s.mu.Unlock()

	ix, err := e.BuildIndex(ctx, documentID, text)

	s.mu.Lock()
	s.building = false
	if err == nil {
		s.index = ix
	}
	s.mu.Unlock()
	return ix, err
}

// Ask answers against the session's current index.
func (s *Session) Ask(ctx context.Context, e *Engine, question string, strategy Strategy) (*Answer, error) {
	s.mu.Lock()
	if s.building {
		s.mu.Unlock()
		return nil, ErrIndexBusy
	}
	if s.index == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveIndex
	}
	ix := s.index
	s.activeAsks++
	s.lastUsed = time.Now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.activeAsks--
		s.mu.Unlock()
	}()
	return e.Ask(ctx, ix, question, strategy)
}

// Index returns the current index, or nil when none is built.
func (s *Session) Index() *Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Clear drops the session's index. In-flight asks keep the snapshot they
// already hold.
func (s *Session) Clear() {
	s.mu.Lock()
	s.index = nil
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// LastUsed reports when the session was last touched.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Registry maps session IDs to their sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Get returns the session for id, creating it on first use.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s = &Session{lastUsed: time.Now()}
	r.sessions[id] = s
	return s
}

// Lookup returns the session for id without creating one.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove drops the session for id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ReapIdle removes sessions idle longer than maxIdle and reports how many
// were dropped. Sessions with a build in flight are skipped.
func (r *Registry) ReapIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	reaped := 0
	for id, s := range r.sessions {
		s.mu.Lock()
		idle := !s.building && s.activeAsks == 0 && s.lastUsed.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			reaped++
		}
	}
	return reaped
}
