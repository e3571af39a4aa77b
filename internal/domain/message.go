// Package domain holds the shared conversation data model.
package domain

import "time"

// Role constants for dialogue context messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single turn element in the dialogue context.
// The context is append-only; messages are never edited or removed.
type Message struct {
	Role       string     `json:"role"` // "user", "assistant", "tool"
	Content    string     `json:"content"`
	ToolName   string     `json:"toolName,omitempty"`   // set when Role == "tool"
	ToolCallID string     `json:"toolCallId,omitempty"` // set when Role == "tool"
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ToolCall is a reasoning-backend request to invoke a named capability.
type ToolCall struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Input string `json:"input"` // JSON string of arguments
}
