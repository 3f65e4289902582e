package retrieval

import "sync"

// State describes how far a session has progressed through bootstrap.
type State string

const (
	// StateEmpty means no resume has been uploaded for the session.
	StateEmpty State = "empty"

	// StateBootstrapping means chunks are being embedded and upserted.
	StateBootstrapping State = "bootstrapping"

	// StateReady means the session's vectors are queryable.
	StateReady State = "ready"
)

// Sessions tracks per-session bootstrap state. It is safe for concurrent use.
// Two bootstraps for the same session may overlap; upserts are idempotent by
// record ID, so the race is tolerated rather than locked out.
type Sessions struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{
		states: make(map[string]State),
	}
}

// State returns the session's state. Unknown sessions are empty.
func (s *Sessions) State(sessionID string) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[sessionID]; ok {
		return st
	}
	return StateEmpty
}

// setState records a session's state.
func (s *Sessions) setState(sessionID string, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[sessionID] = st
}

// Ready reports whether the session has completed bootstrap.
func (s *Sessions) Ready(sessionID string) bool {
	return s.State(sessionID) == StateReady
}
