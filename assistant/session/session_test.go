package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	contractx "github.com/primeauto/concierge/assistant/contract"
)

func turn(role contractx.Role, content string) contractx.Turn {
	return contractx.Turn{Role: role, Content: content, Timestamp: time.Now().UTC()}
}

func TestAppendTrimsOldestBeyondWindow(t *testing.T) {
	t.Parallel()
	s := newSession("s1", 4, time.Now())

	for i := 0; i < 6; i++ {
		s.Append(turn(contractx.RoleUser, fmt.Sprintf("msg-%d", i)))
	}

	history := s.History()
	if len(history) != 4 {
		t.Fatalf("len = %d, want 4", len(history))
	}
	if history[0].Content != "msg-2" || history[3].Content != "msg-5" {
		t.Fatalf("window = [%s .. %s]", history[0].Content, history[3].Content)
	}
}

func TestAppendTrimNeverOrphansToolResult(t *testing.T) {
	t.Parallel()
	s := newSession("s1", 4, time.Now())

	// One full tool round fills the window exactly.
	s.Append(
		turn(contractx.RoleUser, "any suvs?"),
		contractx.Turn{Role: contractx.RoleAssistant, ToolCallID: "call-1", ToolName: "search_vehicles"},
		contractx.Turn{Role: contractx.RoleTool, Content: "found 2", ToolCallID: "call-1"},
		turn(contractx.RoleAssistant, "two suvs in stock"),
	)
	// The next plain exchange would land the cut inside the tool round.
	s.Append(
		turn(contractx.RoleUser, "when do you open?"),
		turn(contractx.RoleAssistant, "nine"),
	)

	history := s.History()
	if len(history) == 0 {
		t.Fatal("window emptied")
	}
	if history[0].Role != contractx.RoleUser {
		t.Fatalf("window head role = %s, want user", history[0].Role)
	}
	for _, tn := range history {
		if tn.Role == contractx.RoleTool {
			prevOK := false
			for _, p := range history {
				if p.Role == contractx.RoleAssistant && p.ToolCallID == tn.ToolCallID {
					prevOK = true
				}
			}
			if !prevOK {
				t.Fatalf("tool result %q kept without its tool call", tn.ToolCallID)
			}
		}
	}
	if history[0].Content != "when do you open?" || history[1].Content != "nine" {
		t.Fatalf("window = %+v", history)
	}
}

func TestAppendUnboundedWhenZero(t *testing.T) {
	t.Parallel()
	s := newSession("s1", 0, time.Now())

	for i := 0; i < 100; i++ {
		s.Append(turn(contractx.RoleUser, "x"))
	}
	if s.Len() != 100 {
		t.Fatalf("len = %d, want 100", s.Len())
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	t.Parallel()
	s := newSession("s1", 0, time.Now())
	s.Append(turn(contractx.RoleUser, "original"))

	history := s.History()
	history[0].Content = "mutated"

	if got := s.History()[0].Content; got != "original" {
		t.Fatalf("history mutated through copy: %q", got)
	}
}

func TestPhaseTransitions(t *testing.T) {
	t.Parallel()
	s := newSession("s1", 0, time.Now())

	if s.Phase() != PhaseIdle {
		t.Fatalf("initial phase = %q", s.Phase())
	}
	s.SetPhase(PhaseAwaitingToolCall)
	if s.Phase() != PhaseAwaitingToolCall {
		t.Fatalf("phase = %q", s.Phase())
	}
	s.SetPhase(PhaseIdle)
	if s.Phase() != PhaseIdle {
		t.Fatalf("phase = %q", s.Phase())
	}
}

func TestAcquireCreatesOnce(t *testing.T) {
	t.Parallel()
	m := NewManager(Config{MaxTurns: 10})

	a, err := m.Acquire("cust-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	b, err := m.Acquire("cust-1")
	if err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	if a != b {
		t.Fatal("same id produced distinct sessions")
	}
	if m.Len() != 1 {
		t.Fatalf("table size = %d, want 1", m.Len())
	}
}

func TestAcquireEnforcesSessionCap(t *testing.T) {
	t.Parallel()
	m := NewManager(Config{MaxTurns: 10, MaxSessions: 2})

	for _, id := range []string{"a", "b"} {
		if _, err := m.Acquire(id); err != nil {
			t.Fatalf("acquire %s: %v", id, err)
		}
	}

	if _, err := m.Acquire("c"); !errors.Is(err, contractx.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}

	// Existing sessions stay reachable at the cap.
	if _, err := m.Acquire("a"); err != nil {
		t.Fatalf("re-acquire at cap: %v", err)
	}
}
