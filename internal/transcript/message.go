package transcript

import "encoding/json"

// Role identifies the author of a message in the chat-completions wire format.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a conversation transcript.
//
// Invariants:
//   - a tool message always carries ToolCallID, referencing an earlier assistant ToolCalls[i].ID.
//   - an assistant message with ToolCalls may have empty Content; it is encoded as null.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-issued request to invoke a named tool.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the tool name and its JSON-encoded arguments. Arguments
// stay opaque text until the dispatcher parses them.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	type plain Message
	if m.Content == "" && len(m.ToolCalls) > 0 {
		return json.Marshal(struct {
			plain
			Content *string `json:"content"`
		}{plain: plain(m)})
	}
	return json.Marshal(plain(m))
}

// Clone returns a deep copy of m.
func (m Message) Clone() Message {
	if m.ToolCalls != nil {
		calls := make([]ToolCall, len(m.ToolCalls))
		copy(calls, m.ToolCalls)
		m.ToolCalls = calls
	}
	return m
}

// HasToolCalls reports whether an assistant message requests tool use.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

func cloneAll(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
