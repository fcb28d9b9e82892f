package contract

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one message in a session's ordered history. Immutable once appended.
// Assistant turns that requested an action carry the tool call fields so the
// oracle can replay the exchange; tool turns carry the matching call id.
type Turn struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	ToolName   string    `json:"tool_name,omitempty"`
	ToolArgs   string    `json:"tool_args,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ActionRequest is a structured tool invocation issued by the language oracle.
type ActionRequest struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Args    map[string]any `json:"args,omitempty"`
	RawArgs string         `json:"raw_args,omitempty"`
}

// OracleResponse is the closed two-arm result of one oracle call: either a
// direct natural-language reply, or a request to run one action.
type OracleResponse struct {
	Reply  string
	Action *ActionRequest
}

// ActionResult is what flows back to the oracle after dispatch. Content is
// always natural-language safe; router failures are folded into it rather
// than surfaced as faults.
type ActionResult struct {
	Tool    string `json:"tool"`
	Content string `json:"content"`
}
