package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultClaudeBaseURL = "https://api.anthropic.com"

// ClaudeClient is a direct HTTP client for the Claude messages API.
type ClaudeClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewClaudeClient creates a Claude API client.
func NewClaudeClient(apiKey, model string) *ClaudeClient {
	return &ClaudeClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultClaudeBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// NewClaudeClientWithBaseURL creates a client against a custom endpoint.
func NewClaudeClientWithBaseURL(apiKey, model, baseURL string) *ClaudeClient {
	c := NewClaudeClient(apiKey, model)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Complete sends a completion request to the Claude API.
func (c *ClaudeClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	body, err := c.buildRequestBody(req)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/messages", strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: "claude", Code: resp.StatusCode, Message: string(respBody)}
	}

	var result claudeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return c.responseToCompletion(&result, time.Since(start)), nil
}

// Name returns the provider name.
func (c *ClaudeClient) Name() string {
	return "claude"
}

func (c *ClaudeClient) buildRequestBody(req CompletionRequest) (map[string]any, error) {
	messages, err := messagesToClaude(req.Messages)
	if err != nil {
		return nil, err
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	body := map[string]any{
		"model":      c.model,
		"messages":   messages,
		"max_tokens": maxTokens,
	}
	if req.System != "" {
		body["system"] = req.System
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if len(req.Tools) > 0 {
		tools := make([]map[string]any, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = map[string]any{
				"name":        t.Name,
				"description": t.Description,
			}
			if schema := parseJSONSchema(t.InputSchema); schema != nil {
				tools[i]["input_schema"] = schema
			}
		}
		body["tools"] = tools
	}

	return body, nil
}

// messagesToClaude maps history messages onto Claude message-API entries.
// Assistant tool requests replay as tool_use blocks; tool results become
// user-role tool_result blocks referencing the originating call ID.
func messagesToClaude(msgs []Message) ([]map[string]any, error) {
	result := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				result = append(result, map[string]any{"role": "assistant", "content": m.Content})
				continue
			}
			blocks := []map[string]any{}
			if m.Content != "" {
				blocks = append(blocks, map[string]any{"type": "text", "text": m.Content})
			}
			for _, call := range m.ToolCalls {
				var input map[string]any
				if call.Input != "" {
					if err := json.Unmarshal([]byte(call.Input), &input); err != nil {
						return nil, fmt.Errorf("tool call %s arguments: %w", call.Name, err)
					}
				}
				blocks = append(blocks, map[string]any{
					"type":  "tool_use",
					"id":    call.ID,
					"name":  call.Name,
					"input": input,
				})
			}
			result = append(result, map[string]any{"role": "assistant", "content": blocks})

		case RoleTool:
			result = append(result, map[string]any{
				"role": "user",
				"content": []map[string]any{{
					"type":        "tool_result",
					"tool_use_id": m.ToolCallID,
					"content":     m.Content,
				}},
			})

		default:
			result = append(result, map[string]any{"role": "user", "content": m.Content})
		}
	}
	return result, nil
}

func (c *ClaudeClient) responseToCompletion(resp *claudeResponse, duration time.Duration) *CompletionResponse {
	var content strings.Builder
	var toolCalls []ToolCall

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "tool_use":
			input, _ := json.Marshal(block.Input)
			toolCalls = append(toolCalls, ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: string(input),
			})
		}
	}

	return &CompletionResponse{
		Content:    content.String(),
		StopReason: resp.StopReason,
		ToolCalls:  toolCalls,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
		Model:    resp.Model,
		Duration: duration,
	}
}

// API response structures

type claudeResponse struct {
	ID         string               `json:"id"`
	Role       string               `json:"role"`
	Content    []claudeContentBlock `json:"content"`
	Model      string               `json:"model"`
	StopReason string               `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type claudeContentBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}
