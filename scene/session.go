package scene

import (
	"sync"

	"github.com/kasuganosora/tabletrade/model"
)

// Session is one client's view of who it is and what it has selected.
type Session struct {
	mu          sync.RWMutex
	participant model.Participant
	selection   []string
}

// NewSession creates a Session for a participant.
func NewSession(p model.Participant) *Session {
	return &Session{participant: p}
}

// Participant returns the current participant identity and role.
func (s *Session) Participant() model.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.participant
}

// Select replaces the current token selection.
func (s *Session) Select(tokenIDs ...string) {
	s.mu.Lock()
	s.selection = append([]string(nil), tokenIDs...)
	s.mu.Unlock()
}

// Selection returns a copy of the selected token ids.
func (s *Session) Selection() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.selection...)
}
