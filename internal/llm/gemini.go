package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient is a direct HTTP client for the Gemini generateContent API.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiClient creates a Gemini API client.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultGeminiBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// NewGeminiClientWithBaseURL creates a client against a custom endpoint.
// Used by tests to point at a local server.
func NewGeminiClientWithBaseURL(apiKey, model, baseURL string) *GeminiClient {
	c := NewGeminiClient(apiKey, model)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Complete sends a completion request to the Gemini API.
func (g *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	body, err := g.buildRequestBody(req)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, g.model, url.QueryEscape(g.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: "gemini", Code: resp.StatusCode, Message: string(respBody)}
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return g.responseToCompletion(&result, time.Since(start)), nil
}

// Name returns the provider name.
func (g *GeminiClient) Name() string {
	return "gemini"
}

func (g *GeminiClient) buildRequestBody(req CompletionRequest) (map[string]any, error) {
	contents := make([]map[string]any, 0, len(req.Messages))
	for _, msg := range req.Messages {
		content, err := messageToGeminiContent(msg)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}

	genCfg := map[string]any{}
	if req.MaxTokens > 0 {
		genCfg["maxOutputTokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		genCfg["temperature"] = *req.Temperature
	}

	body := map[string]any{
		"contents": contents,
	}
	if len(genCfg) > 0 {
		body["generationConfig"] = genCfg
	}
	if req.System != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": req.System}},
		}
	}

	if len(req.Tools) > 0 {
		decls := make([]map[string]any, len(req.Tools))
		for i, t := range req.Tools {
			decls[i] = map[string]any{
				"name":        t.Name,
				"description": t.Description,
			}
			if schema := parseJSONSchema(t.InputSchema); schema != nil {
				decls[i]["parameters"] = schema
			}
		}
		body["tools"] = []map[string]any{{"functionDeclarations": decls}}
	}

	return body, nil
}

// messageToGeminiContent maps one history message onto a generateContent
// content entry. Assistant tool requests replay as functionCall parts and
// tool results go back as functionResponse parts, so the backend sees the
// same tool round-trip it produced.
func messageToGeminiContent(msg Message) (map[string]any, error) {
	switch msg.Role {
	case RoleAssistant:
		parts := []map[string]any{}
		if msg.Content != "" {
			parts = append(parts, map[string]any{"text": msg.Content})
		}
		for _, call := range msg.ToolCalls {
			var args map[string]any
			if call.Input != "" {
				if err := json.Unmarshal([]byte(call.Input), &args); err != nil {
					return nil, fmt.Errorf("tool call %s arguments: %w", call.Name, err)
				}
			}
			parts = append(parts, map[string]any{
				"functionCall": map[string]any{"name": call.Name, "args": args},
			})
		}
		return map[string]any{"role": "model", "parts": parts}, nil

	case RoleTool:
		var response map[string]any
		if err := json.Unmarshal([]byte(msg.Content), &response); err != nil {
			response = map[string]any{"result": msg.Content}
		}
		return map[string]any{
			"role": "user",
			"parts": []map[string]any{{
				"functionResponse": map[string]any{
					"name":     msg.ToolName,
					"response": response,
				},
			}},
		}, nil

	default:
		return map[string]any{
			"role":  "user",
			"parts": []map[string]any{{"text": msg.Content}},
		}, nil
	}
}

func (g *GeminiClient) responseToCompletion(resp *geminiResponse, duration time.Duration) *CompletionResponse {
	var content strings.Builder
	var toolCalls []ToolCall

	if len(resp.Candidates) > 0 {
		candidate := resp.Candidates[0]
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				content.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				input, _ := json.Marshal(part.FunctionCall.Args)
				toolCalls = append(toolCalls, ToolCall{
					Name:  part.FunctionCall.Name,
					Input: string(input),
				})
			}
		}
	}

	stopReason := ""
	if len(resp.Candidates) > 0 {
		stopReason = resp.Candidates[0].FinishReason
	}

	return &CompletionResponse{
		Content:    content.String(),
		StopReason: stopReason,
		ToolCalls:  toolCalls,
		Usage: Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		},
		Model:    g.model,
		Duration: duration,
	}
}

// API response structures

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content struct {
		Parts []geminiPart `json:"parts"`
		Role  string       `json:"role"`
	} `json:"content"`
	FinishReason string `json:"finishReason"`
}

type geminiPart struct {
	Text         string `json:"text,omitempty"`
	FunctionCall *struct {
		Name string         `json:"name"`
		Args map[string]any `json:"args"`
	} `json:"functionCall,omitempty"`
}

// parseJSONSchema converts a JSON schema string to a map.
func parseJSONSchema(schemaStr string) map[string]any {
	if schemaStr == "" {
		return nil
	}
	var schema map[string]any
	if err := json.Unmarshal([]byte(schemaStr), &schema); err != nil {
		return nil
	}
	return schema
}
