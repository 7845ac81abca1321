package ecu

import "sync"

// SessionState is the diagnostic conversation state of one endpoint:
// the open flag gating substantive services plus the bounded
// dizziness counter. It is owned by exactly one endpoint; the mutex
// serializes the dispatcher against the keepalive supervisor.
// Invariant: 0 <= dizziness <= maxDizziness on every path.
type SessionState struct {
	mu           sync.Mutex
	open         bool
	dizziness    int
	maxDizziness int
}

// SessionSnapshot is a point-in-time copy for logging and the admin
// surface.
type SessionSnapshot struct {
	Open         bool `json:"open"`
	Dizziness    int  `json:"dizziness"`
	MaxDizziness int  `json:"max_dizziness"`
}

func NewSessionState(maxDizziness int) *SessionState {
	return &SessionState{maxDizziness: maxDizziness}
}

// StartSession opens the session. It reports false when the session
// was already open, in which case nothing changes.
func (s *SessionState) StartSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return false
	}
	s.open = true
	return true
}

// StopSession closes the session. It reports false when the session
// was already closed.
func (s *SessionState) StopSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return false
	}
	s.open = false
	return true
}

// CloseIfOpen is the supervisor-side idempotent close.
func (s *SessionState) CloseIfOpen() bool {
	return s.StopSession()
}

func (s *SessionState) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *SessionState) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		Open:         s.open,
		Dizziness:    s.dizziness,
		MaxDizziness: s.maxDizziness,
	}
}
