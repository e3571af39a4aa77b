package agent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voiceteller/voiceteller/internal/bank"
	"github.com/voiceteller/voiceteller/internal/domain"
	"github.com/voiceteller/voiceteller/internal/llm"
	"github.com/voiceteller/voiceteller/internal/logging"
	"github.com/voiceteller/voiceteller/internal/tools"
)

func testLog() *logging.Logger {
	return logging.New(io.Discard, "silent", "json")
}

// stubTool is a minimal tool for protocol tests.
type stubTool struct {
	name    string
	execute func(ctx context.Context, input string) (tools.Result, error)
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) InputSchema() string { return `{"type":"object"}` }
func (s *stubTool) Execute(ctx context.Context, input string) (tools.Result, error) {
	return s.execute(ctx, input)
}

func newTestSession(t *testing.T, client llm.Client, registry *tools.Registry) *Session {
	t.Helper()
	if registry == nil {
		registry = tools.NewRegistry()
	}
	session, err := NewSession(Config{
		Key:               domain.SessionKey{Channel: "test"},
		SystemInstruction: BuildSystemPrompt("acc-"),
		Model:             "mock",
	}, client, NewMemorySessionStore(), registry, testLog())
	require.NoError(t, err)
	return session
}

func TestNewSessionUninitialized(t *testing.T) {
	_, err := NewSession(Config{}, nil, NewMemorySessionStore(), tools.NewRegistry(), testLog())
	assert.ErrorIs(t, err, ErrSessionUninitialized)

	var s *Session
	_, err = s.RunTurn(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrSessionUninitialized)
}

func TestRunTurnDirectReply(t *testing.T) {
	calls := 0
	client := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			assert.NotEmpty(t, req.System)
			return &llm.CompletionResponse{Content: "Hello! How can I help with your accounts?"}, nil
		},
	}

	session := newTestSession(t, client, nil)
	reply, err := session.RunTurn(context.Background(), "hi there")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help with your accounts?", reply)
	assert.Equal(t, 1, calls)

	history, err := session.History()
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "hi there", history[0].Content)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
}

func TestRunTurnToolRoundTrip(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&stubTool{
		name: "getAccountBalance",
		execute: func(ctx context.Context, input string) (tools.Result, error) {
			assert.JSONEq(t, `{"accountId":"acc-1234"}`, input)
			return tools.Ok(map[string]any{"balance": 500.0, "nickname": "Checking", "currency": "USD"}), nil
		},
	})

	calls := 0
	var secondRequest llm.CompletionRequest
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			if calls == 1 {
				return &llm.CompletionResponse{
					ToolCalls: []llm.ToolCall{{ID: "tc-1", Name: "getAccountBalance", Input: `{"accountId":"acc-1234"}`}},
				}, nil
			}
			secondRequest = req
			return &llm.CompletionResponse{Content: "Your Checking account has 500 USD."}, nil
		},
	}

	session := newTestSession(t, client, registry)
	reply, err := session.RunTurn(context.Background(), "check balance for account one two three four")
	require.NoError(t, err)
	assert.Equal(t, "Your Checking account has 500 USD.", reply)
	assert.Equal(t, 2, calls)

	// Full history: user, assistant tool request, tool result, final reply.
	history, err := session.History()
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
	require.Len(t, history[1].ToolCalls, 1)
	assert.Equal(t, "getAccountBalance", history[1].ToolCalls[0].Name)
	assert.Equal(t, domain.RoleTool, history[2].Role)
	assert.Equal(t, "getAccountBalance", history[2].ToolName)
	assert.Equal(t, domain.RoleAssistant, history[3].Role)

	// Result envelope is fed back verbatim as JSON.
	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(history[2].Content), &envelope))
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, 500.0, envelope["balance"])

	// The re-completion saw the tool round-trip in its message list.
	require.Len(t, secondRequest.Messages, 3)
	assert.Equal(t, llm.RoleTool, secondRequest.Messages[2].Role)
	assert.Equal(t, "tc-1", secondRequest.Messages[2].ToolCallID)
}

func TestRunTurnUnknownTool(t *testing.T) {
	calls := 0
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			return &llm.CompletionResponse{
				ToolCalls: []llm.ToolCall{{Name: "closeAccount", Input: `{}`}},
			}, nil
		},
	}

	session := newTestSession(t, client, nil)
	reply, err := session.RunTurn(context.Background(), "close my account")
	require.NoError(t, err)
	assert.Equal(t, "I'm sorry, that capability is not available.", reply)

	// Terminal outcome: no second backend call, nothing appended beyond
	// the user message.
	assert.Equal(t, 1, calls)
	history, err := session.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.RoleUser, history[0].Role)
}

func TestRunTurnMultipleToolCallsHonorsFirst(t *testing.T) {
	var executed []string
	registry := tools.NewRegistry()
	for _, name := range []string{"first", "second"} {
		name := name
		registry.Register(&stubTool{
			name: name,
			execute: func(ctx context.Context, input string) (tools.Result, error) {
				executed = append(executed, name)
				return tools.Ok(nil), nil
			},
		})
	}

	calls := 0
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			if calls == 1 {
				return &llm.CompletionResponse{ToolCalls: []llm.ToolCall{
					{Name: "first", Input: `{}`},
					{Name: "second", Input: `{}`},
				}}, nil
			}
			return &llm.CompletionResponse{Content: "done"}, nil
		},
	}

	session := newTestSession(t, client, registry)
	_, err := session.RunTurn(context.Background(), "do both")
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, executed)
	assert.Equal(t, 2, calls)
}

func TestRunTurnInvalidArgumentsFeedBack(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&stubTool{
		name: "getAccountBalance",
		execute: func(ctx context.Context, input string) (tools.Result, error) {
			return tools.Result{}, &tools.InvalidArgumentsError{Tool: "getAccountBalance", Reason: "accountId is required"}
		},
	})

	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			if len(req.Messages) == 1 {
				return &llm.CompletionResponse{ToolCalls: []llm.ToolCall{{Name: "getAccountBalance", Input: `{}`}}}, nil
			}
			return &llm.CompletionResponse{Content: "I need an account number for that."}, nil
		},
	}

	session := newTestSession(t, client, registry)
	reply, err := session.RunTurn(context.Background(), "balance please")
	require.NoError(t, err)
	assert.Equal(t, "I need an account number for that.", reply)

	history, _ := session.History()
	require.Len(t, history, 4)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(history[2].Content), &envelope))
	assert.Equal(t, false, envelope["success"])
	assert.Contains(t, envelope["error"], "accountId is required")
}

func TestRunTurnBackendError(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, &llm.ProviderError{Provider: "mock", Code: 500, Message: "boom"}
		},
	}

	session := newTestSession(t, client, nil)
	_, err := session.RunTurn(context.Background(), "hello")
	require.Error(t, err)

	var perr *llm.ProviderError
	assert.ErrorAs(t, err, &perr)
}

// End-to-end against a fake banking upstream: spoken digits resolve to a
// real account and the final reply carries the looked-up balance.
func TestRunTurnBalanceScenario(t *testing.T) {
	bankSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/acc-1234", r.URL.Path)
		io.WriteString(w, `{"_id": "acc-1234", "nickname": "Checking", "balance": 500}`)
	}))
	defer bankSrv.Close()

	log := testLog()
	registry := tools.NewBankingRegistry(bank.NewClient("k", bankSrv.URL, log), log)

	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			last := req.Messages[len(req.Messages)-1]
			if last.Role == llm.RoleTool {
				var envelope map[string]any
				require.NoError(t, json.Unmarshal([]byte(last.Content), &envelope))
				require.Equal(t, true, envelope["success"])
				return &llm.CompletionResponse{Content: "Your Checking account balance is 500 USD."}, nil
			}
			return &llm.CompletionResponse{
				ToolCalls: []llm.ToolCall{{Name: "getAccountBalance", Input: `{"accountId":"acc-1234"}`}},
			}, nil
		},
	}

	session := newTestSession(t, client, registry)
	reply, err := session.RunTurn(context.Background(), "check balance for account one two three four")
	require.NoError(t, err)
	assert.Contains(t, reply, "500")
	assert.Contains(t, reply, "USD")
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt("acc-")
	assert.Contains(t, prompt, `"one two three four" becomes "1234"`)
	assert.Contains(t, prompt, `"acc-1234"`)
	assert.Contains(t, prompt, "concise")
}
