// Package llm defines the reasoning-backend client interface and its
// HTTP provider implementations.
//
// The backend is a chat-completion service with tool/function calling:
// a completion either returns free text or requests that the caller
// execute a named tool with JSON arguments.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Role constants for messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// Tool round-trip bookkeeping. ToolCalls is set on assistant
	// messages that requested tool execution; ToolName and ToolCallID
	// are set on tool-role messages carrying the result envelope.
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolName   string     `json:"toolName,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
}

// ToolDefinition describes a capability the backend can request.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema string `json:"inputSchema"` // JSON Schema string
}

// CompletionRequest is the input to a Complete call.
type CompletionRequest struct {
	Model       string           `json:"model,omitempty"`
	System      string           `json:"system,omitempty"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	MaxTokens   int              `json:"maxTokens,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
}

// CompletionResponse is the result of a completion.
type CompletionResponse struct {
	Content    string        `json:"content"`
	StopReason string        `json:"stopReason,omitempty"`
	ToolCalls  []ToolCall    `json:"toolCalls,omitempty"`
	Usage      Usage         `json:"usage"`
	Model      string        `json:"model,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// ToolCall is a backend request to invoke a tool.
type ToolCall struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Input string `json:"input"` // JSON string of arguments
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Client is the interface all reasoning providers implement.
type Client interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name (e.g., "gemini", "claude").
	Name() string
}

// ProviderError is returned when a reasoning provider fails.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP status code when available
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}
