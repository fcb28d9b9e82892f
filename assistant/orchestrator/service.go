// Package orchestrator drives one conversation turn end to end: append the
// user turn, consult the language oracle, dispatch at most a bounded number
// of action rounds, and commit the exchange to the session history.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/primeauto/concierge/assistant/contract"
	sessionx "github.com/primeauto/concierge/assistant/session"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

// FallbackReply is returned whenever a turn cannot be completed for a reason
// the customer should not see in raw form.
const FallbackReply = "I'm sorry, I couldn't complete that request. Could you rephrase, or try again in a moment?"

type Config struct {
	// MaxToolRounds bounds oracle action round-trips within one turn.
	MaxToolRounds int `split_words:"true" default:"3"`
	// OracleTimeout is the deadline applied to each oracle call.
	OracleTimeout time.Duration `split_words:"true" default:"45s"`
}

type Orchestrator struct {
	sessions *sessionx.Manager
	oracle   contractx.Oracle
	actions  contractx.ActionHandler

	runner graphRunner

	maxToolRounds int
	oracleTimeout time.Duration
	now           func() time.Time
}

func New(sessions *sessionx.Manager, oracle contractx.Oracle, actions contractx.ActionHandler, cfg Config) (*Orchestrator, error) {
	if sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if oracle == nil {
		return nil, errors.New("oracle is required")
	}
	if actions == nil {
		return nil, errors.New("action handler is required")
	}

	maxRounds := cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = 3
	}
	timeout := cfg.OracleTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	o := &Orchestrator{
		sessions:      sessions,
		oracle:        oracle,
		actions:       actions,
		maxToolRounds: maxRounds,
		oracleTimeout: timeout,
		now:           time.Now,
	}

	runner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.runner = runner

	return o, nil
}

// HandleTurn processes one user message and returns the assistant reply.
// The turn is all-or-nothing: if the oracle fails or times out, no turn is
// appended and the session phase is idle. ErrCapabilityTimeout is the only
// error callers should retry.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, text string) (string, error) {
	out, err := o.runner.Invoke(ctx, GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

func (o *Orchestrator) generate(ctx context.Context, turns []contractx.Turn) (contractx.OracleResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.oracleTimeout)
	defer cancel()

	resp, err := o.oracle.Generate(callCtx, turns)
	if err != nil {
		if errors.Is(err, contractx.ErrCapabilityTimeout) {
			return contractx.OracleResponse{}, err
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return contractx.OracleResponse{}, fmt.Errorf("%w: %v", contractx.ErrCapabilityTimeout, err)
		}
		return contractx.OracleResponse{}, err
	}
	return resp, nil
}
