package main

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	bookingx "github.com/primeauto/concierge/assistant/booking"
	catalogx "github.com/primeauto/concierge/assistant/catalog"
	contractx "github.com/primeauto/concierge/assistant/contract"
	orchestratorx "github.com/primeauto/concierge/assistant/orchestrator"
	sessionx "github.com/primeauto/concierge/assistant/session"
)

const replInventory = `{
  "dealership": {"name": "Prime Auto Gallery", "location": "San Diego", "contact": "+1 619 555 0142", "email": "hello@primeautogallery.com"},
  "working_hours": {"monday": "09:00 - 18:00"},
  "inventory": [
    {"id": "sedan_001", "brand": "Velocity", "model": "Elegance 2024", "year": 2024, "type": "sedan", "price_range": "$32,000 - $38,000", "features": [], "fuel_type": "gasoline", "test_drive_duration_minutes": 60, "availability": true}
  ]
}`

type cannedOracle struct {
	reply string
}

func (c *cannedOracle) Generate(context.Context, []contractx.Turn) (contractx.OracleResponse, error) {
	return contractx.OracleResponse{Reply: c.reply}, nil
}

type noActions struct{}

func (noActions) Handle(_ context.Context, req contractx.ActionRequest) contractx.ActionResult {
	return contractx.ActionResult{Tool: req.Name, Content: "ok"}
}

func replFixture(t *testing.T) (*orchestratorx.Orchestrator, *bookingx.Engine, *catalogx.Catalog) {
	t.Helper()
	cat, err := catalogx.Parse([]byte(replInventory))
	if err != nil {
		t.Fatalf("parse inventory: %v", err)
	}
	engine := bookingx.NewEngine(cat)
	sessions := sessionx.NewManager(sessionx.Config{MaxTurns: 50})
	orch, err := orchestratorx.New(sessions, &cannedOracle{reply: "Happy to help."}, noActions{}, orchestratorx.Config{})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return orch, engine, cat
}

func TestChatLoopConversesAndExitsOnFarewell(t *testing.T) {
	t.Parallel()
	orch, engine, cat := replFixture(t)

	in := strings.NewReader("hello\nbye\n")
	var out strings.Builder

	chatLoop(context.Background(), in, &out, "cli-test", orch, engine, cat)

	got := out.String()
	if !strings.Contains(got, "Welcome to Prime Auto Gallery!") {
		t.Fatalf("missing greeting: %q", got)
	}
	if !strings.Contains(got, "Assistant: Happy to help.") {
		t.Fatalf("missing assistant reply: %q", got)
	}
	if !strings.Contains(got, "Thank you for visiting!") {
		t.Fatalf("missing farewell: %q", got)
	}
}

func TestChatLoopStopsWhenContextCancelled(t *testing.T) {
	t.Parallel()
	orch, engine, cat := replFixture(t)

	// A reader that never produces input simulates an idle terminal.
	blocked, _ := io.Pipe()
	var out strings.Builder

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		chatLoop(ctx, blocked, &out, "cli-test", orch, engine, cat)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("chat loop did not stop after context cancellation")
	}
	if !strings.Contains(out.String(), "Thank you for visiting!") {
		t.Fatalf("missing farewell after cancel: %q", out.String())
	}
}
