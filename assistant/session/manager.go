package session

import (
	"fmt"
	"sync"
	"time"

	contractx "github.com/primeauto/concierge/assistant/contract"
)

const DefaultMaxTurns = 50

type Config struct {
	// MaxTurns bounds each session's history window; 0 keeps everything.
	MaxTurns int `split_words:"true" default:"50"`
	// MaxSessions bounds the process-wide table; 0 means unlimited.
	MaxSessions int `split_words:"true" default:"0"`
}

// Manager is the process-wide session table. Sessions are created implicitly
// on first use and retained for the process lifetime.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxTurns    int
	maxSessions int
	now         func() time.Time
}

func NewManager(cfg Config) *Manager {
	maxTurns := cfg.MaxTurns
	if maxTurns < 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		maxTurns:    maxTurns,
		maxSessions: cfg.MaxSessions,
		now:         time.Now,
	}
}

// Acquire returns the session for id, creating it when unseen.
func (m *Manager) Acquire(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("%w: %d active sessions", contractx.ErrCapacityExceeded, len(m.sessions))
	}
	s = newSession(id, m.maxTurns, m.now())
	m.sessions[id] = s
	return s, nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
