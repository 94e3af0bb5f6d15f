package llm

import (
	"context"
	"encoding/json"
)

// Chat roles, matching the wire roles of OpenAI-compatible providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of a chat exchange.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a model-chosen action invocation.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool describes one invocable action offered to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Completer is the opaque text-in/text-out capability used by the transcript
// analyzer. Any concrete provider is swappable without touching orchestration.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Chatter drives the multi-turn conversation loop, including tool calls.
type Chatter interface {
	Chat(ctx context.Context, messages []Message, tools []Tool) (Message, error)
}

// Client is the full capability the service wires in.
type Client interface {
	Completer
	Chatter
}
