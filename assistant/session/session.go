// Package session holds per-conversation state: the append-only turn history
// and the turn-processing phase. Callers must serialize turns per session;
// only the process-wide table is guarded here.
package session

import (
	"time"

	contractx "github.com/primeauto/concierge/assistant/contract"
)

type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseAwaitingToolCall Phase = "awaiting_tool_result"
)

type Session struct {
	id        string
	createdAt time.Time
	turns     []contractx.Turn
	phase     Phase
	maxTurns  int
}

func newSession(id string, maxTurns int, now time.Time) *Session {
	return &Session{
		id:        id,
		createdAt: now.UTC(),
		phase:     PhaseIdle,
		maxTurns:  maxTurns,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) Phase() Phase { return s.phase }

func (s *Session) SetPhase(p Phase) { s.phase = p }

// History returns a copy of the turn log in conversational order.
func (s *Session) History() []contractx.Turn {
	out := make([]contractx.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Session) Len() int { return len(s.turns) }

// Append commits turns to the history. Existing turns are never edited or
// reordered; when the window cap is exceeded the oldest turns fall off.
// The window must never open on a tool result whose assistant tool call was
// trimmed away: providers reject such histories, so the trim keeps dropping
// until the head is a user turn.
func (s *Session) Append(turns ...contractx.Turn) {
	s.turns = append(s.turns, turns...)
	if s.maxTurns > 0 && len(s.turns) > s.maxTurns {
		overflow := len(s.turns) - s.maxTurns
		trimmed := s.turns[overflow:]
		for len(trimmed) > 0 && trimmed[0].Role != contractx.RoleUser {
			trimmed = trimmed[1:]
		}
		s.turns = append([]contractx.Turn(nil), trimmed...)
	}
}
