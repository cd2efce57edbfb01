package session

import (
	"sync"
	"time"

	"github.com/roadscout/roadscout/internal/schema"
)

// Session holds one chat's turn history and metadata. A key identifies the
// chat across channels, e.g. "telegram:12345" or "cli:default".
type Session struct {
	Key       string
	Turns     []schema.Turn
	CreatedAt time.Time
	UpdatedAt time.Time

	mu sync.Mutex
}

// AddUser appends a user turn.
func (s *Session) AddUser(content string) {
	s.add(schema.Turn{Role: schema.RoleUser, Content: content})
}

// AddAssistant appends an assistant turn.
func (s *Session) AddAssistant(content string) {
	s.add(schema.Turn{Role: schema.RoleAssistant, Content: content})
}

func (s *Session) add(t schema.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Turns = append(s.Turns, t)
	s.UpdatedAt = time.Now()
}

// Recent returns a copy of the last max turns (all turns when max <= 0).
func (s *Session) Recent(max int) []schema.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.Turns
	if max > 0 && len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	out := make([]schema.Turn, len(turns))
	copy(out, turns)
	return out
}

// Len returns the number of turns in the session.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Turns)
}

// Clear discards all turns.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Turns = nil
	s.UpdatedAt = time.Now()
}

// snapshot copies the fields the manager persists. Taken under the lock so a
// concurrent Add never tears the slice.
func (s *Session) snapshot() ([]schema.Turn, time.Time, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := make([]schema.Turn, len(s.Turns))
	copy(turns, s.Turns)
	return turns, s.CreatedAt, s.UpdatedAt
}
