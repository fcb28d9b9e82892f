// Package oracle adapts a tool-calling chat model into the narrow language
// capability the orchestrator consumes: ordered turns in, either a direct
// reply or one structured action request out.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/primeauto/concierge/assistant/contract"
)

type LLM struct {
	model        einomodel.ToolCallingChatModel
	systemPrompt string
}

var _ contractx.Oracle = (*LLM)(nil)

// New binds the fixed action catalog to the chat model once at construction.
func New(chatModel einomodel.ToolCallingChatModel, systemPrompt string, tools []*schema.ToolInfo) (*LLM, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	bound := chatModel
	if len(tools) > 0 {
		withTools, err := chatModel.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("bind action catalog: %w", err)
		}
		bound = withTools
	}

	return &LLM{
		model:        bound,
		systemPrompt: strings.TrimSpace(systemPrompt),
	}, nil
}

func (l *LLM) Generate(ctx context.Context, turns []contractx.Turn) (contractx.OracleResponse, error) {
	out, err := l.model.Generate(ctx, toMessages(l.systemPrompt, turns))
	if err != nil {
		if ctx.Err() != nil {
			return contractx.OracleResponse{}, fmt.Errorf("%w: oracle call: %v", contractx.ErrCapabilityTimeout, err)
		}
		return contractx.OracleResponse{}, fmt.Errorf("oracle generate: %w", err)
	}
	if out == nil {
		return contractx.OracleResponse{}, fmt.Errorf("%w: nil message", contractx.ErrOracleResponse)
	}

	if len(out.ToolCalls) > 0 {
		req, err := toActionRequest(out.ToolCalls[0])
		if err != nil {
			return contractx.OracleResponse{}, err
		}
		return contractx.OracleResponse{Action: req}, nil
	}

	reply := strings.TrimSpace(out.Content)
	if reply == "" {
		return contractx.OracleResponse{}, fmt.Errorf("%w: empty reply", contractx.ErrOracleResponse)
	}
	return contractx.OracleResponse{Reply: reply}, nil
}

// toMessages rebuilds the provider message list from the turn history.
// Assistant turns that requested an action are replayed with their tool call
// so the provider sees a coherent exchange.
func toMessages(systemPrompt string, turns []contractx.Turn) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(turns)+1)
	if systemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(systemPrompt))
	}
	for _, t := range turns {
		switch t.Role {
		case contractx.RoleUser:
			msgs = append(msgs, schema.UserMessage(t.Content))
		case contractx.RoleAssistant:
			if t.ToolCallID != "" {
				msgs = append(msgs, &schema.Message{
					Role:    schema.Assistant,
					Content: t.Content,
					ToolCalls: []schema.ToolCall{{
						ID: t.ToolCallID,
						Function: schema.FunctionCall{
							Name:      t.ToolName,
							Arguments: t.ToolArgs,
						},
					}},
				})
				continue
			}
			msgs = append(msgs, schema.AssistantMessage(t.Content, nil))
		case contractx.RoleTool:
			msgs = append(msgs, schema.ToolMessage(t.Content, t.ToolCallID))
		}
	}
	return msgs
}

func toActionRequest(call schema.ToolCall) (*contractx.ActionRequest, error) {
	name := strings.TrimSpace(call.Function.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrOracleResponse)
	}

	args := map[string]any{}
	rawArgs := strings.TrimSpace(call.Function.Arguments)
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return nil, fmt.Errorf("%w: invalid args for action=%s: %v", contractx.ErrOracleResponse, name, err)
		}
	}

	return &contractx.ActionRequest{
		ID:      call.ID,
		Name:    name,
		Args:    args,
		RawArgs: rawArgs,
	}, nil
}
