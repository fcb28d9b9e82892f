package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	contractx "github.com/primeauto/concierge/assistant/contract"
	sessionx "github.com/primeauto/concierge/assistant/session"
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply string
}

// GraphState flows through the handle-turn pipeline. Staged turns are only
// committed to the session in the commit node, so a failed turn leaves no
// trace in the history.
type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Session *sessionx.Session
	Staged  []contractx.Turn
	Reply   string
}

type graphRunner = compose.Runnable[GraphInput, GraphOutput]

func (o *Orchestrator) compileHandleTurnGraph(ctx context.Context) (graphRunner, error) {
	graph := compose.NewGraph[GraphInput, GraphOutput]()

	if err := graph.AddLambdaNode("validate_turn",
		compose.InvokableLambda(func(ctx context.Context, in GraphInput) (*GraphState, error) {
			return validateTurn(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_turn: %w", err)
	}

	if err := graph.AddLambdaNode("acquire_session",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			return o.acquireSession(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node acquire_session: %w", err)
	}

	if err := graph.AddLambdaNode("converse",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			return o.converse(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node converse: %w", err)
	}

	if err := graph.AddLambdaNode("commit_turns",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			return commitTurns(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node commit_turns: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (GraphOutput, error) {
			return finalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_turn"},
		{"validate_turn", "acquire_session"},
		{"acquire_session", "converse"},
		{"converse", "commit_turns"},
		{"commit_turns", "finalize_reply"},
		{"finalize_reply", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile handle_turn graph: %w", err)
	}
	return runner, nil
}

func validateTurn(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}
	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}

func (o *Orchestrator) acquireSession(in *GraphState) (*GraphState, error) {
	sess, err := o.sessions.Acquire(in.SessionID)
	if err != nil {
		return nil, err
	}
	in.Session = sess
	return in, nil
}

// converse runs the oracle loop. At most maxToolRounds action round-trips
// happen per turn; past the bound the turn ends with the fallback reply.
func (o *Orchestrator) converse(ctx context.Context, in *GraphState) (*GraphState, error) {
	sess := in.Session
	defer sess.SetPhase(sessionx.PhaseIdle)

	staged := []contractx.Turn{{
		Role:      contractx.RoleUser,
		Content:   in.Text,
		Timestamp: in.Now,
	}}
	history := append(sess.History(), staged...)

	resp, err := o.generate(ctx, history)
	if err != nil {
		return nil, err
	}

	rounds := 0
	for resp.Action != nil {
		if rounds >= o.maxToolRounds {
			resp = contractx.OracleResponse{Reply: FallbackReply}
			break
		}
		rounds++

		act := *resp.Action
		callID := act.ID
		if callID == "" {
			callID = "call-" + uuid.NewString()
		}

		sess.SetPhase(sessionx.PhaseAwaitingToolCall)
		result := o.actions.Handle(ctx, act)
		sess.SetPhase(sessionx.PhaseIdle)

		exchange := []contractx.Turn{
			{
				Role:       contractx.RoleAssistant,
				ToolCallID: callID,
				ToolName:   act.Name,
				ToolArgs:   act.RawArgs,
				Timestamp:  o.now().UTC(),
			},
			{
				Role:       contractx.RoleTool,
				Content:    result.Content,
				ToolCallID: callID,
				ToolName:   result.Tool,
				Timestamp:  o.now().UTC(),
			},
		}
		staged = append(staged, exchange...)
		history = append(history, exchange...)

		resp, err = o.generate(ctx, history)
		if err != nil {
			return nil, err
		}
	}

	staged = append(staged, contractx.Turn{
		Role:      contractx.RoleAssistant,
		Content:   resp.Reply,
		Timestamp: o.now().UTC(),
	})

	in.Staged = staged
	in.Reply = resp.Reply
	return in, nil
}

func commitTurns(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("graph state is incomplete")
	}
	in.Session.Append(in.Staged...)
	in.Session.SetPhase(sessionx.PhaseIdle)
	return in, nil
}

func finalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("graph state is nil")
	}
	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: empty final reply", contractx.ErrOracleResponse)
	}
	return GraphOutput{Reply: reply}, nil
}
