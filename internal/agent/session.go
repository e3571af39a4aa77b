// Package agent implements the conversation session: the unit that owns
// a dialogue context and runs the reasoning/tool protocol for each turn.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/voiceteller/voiceteller/internal/domain"
	"github.com/voiceteller/voiceteller/internal/llm"
	"github.com/voiceteller/voiceteller/internal/logging"
	"github.com/voiceteller/voiceteller/internal/tools"
)

// ErrSessionUninitialized is returned when a turn runs against a nil or
// unstarted session handle.
var ErrSessionUninitialized = errors.New("conversation session not initialized")

// unknownToolReply is the terminal reply for a tool name the registry
// does not know. No second backend call is made in that case.
const unknownToolReply = "I'm sorry, that capability is not available."

// Config carries the per-session reasoning parameters.
type Config struct {
	Key               domain.SessionKey
	SystemInstruction string
	Model             string
	MaxTokens         int
	Temperature       *float64
}

// Session owns one dialogue context and runs turns against the reasoning
// backend. A session is single-threaded: callers serialize RunTurn.
type Session struct {
	id     string
	cfg    Config
	client llm.Client
	store  SessionStore
	tools  *tools.Registry
	log    *logging.Logger
}

// NewSession opens (or resumes) the session for cfg.Key.
func NewSession(cfg Config, client llm.Client, store SessionStore, registry *tools.Registry, log *logging.Logger) (*Session, error) {
	if client == nil || store == nil || registry == nil {
		return nil, ErrSessionUninitialized
	}
	session, err := store.GetOrCreate(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	return &Session{
		id:     session.ID,
		cfg:    cfg,
		client: client,
		store:  store,
		tools:  registry,
		log:    log.Sub("agent"),
	}, nil
}

// ID returns the persistent session identifier.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// RunTurn appends the user's text to the dialogue context, completes
// against the reasoning backend with the tool declarations, performs at
// most one tool round-trip, and returns the final reply text.
func (s *Session) RunTurn(ctx context.Context, userText string) (string, error) {
	if s == nil || s.client == nil || s.store == nil {
		return "", ErrSessionUninitialized
	}

	if err := s.append(domain.Message{Role: domain.RoleUser, Content: userText}); err != nil {
		return "", err
	}

	resp, err := s.complete(ctx)
	if err != nil {
		return "", err
	}

	if len(resp.ToolCalls) == 0 {
		if err := s.append(domain.Message{Role: domain.RoleAssistant, Content: resp.Content}); err != nil {
			return "", err
		}
		return resp.Content, nil
	}

	// One tool call per turn. Extras are dropped, not queued.
	call := resp.ToolCalls[0]
	if len(resp.ToolCalls) > 1 {
		s.log.Warn().
			Int("dropped", len(resp.ToolCalls)-1).
			Str("honored", call.Name).
			Msg("backend returned multiple tool calls")
	}

	tool, ok := s.tools.Get(call.Name)
	if !ok {
		s.log.Warn().Str("tool", call.Name).Msg("backend requested unknown tool")
		return unknownToolReply, nil
	}

	result, err := tool.Execute(ctx, call.Input)
	if err != nil {
		// Argument faults feed back as a failed envelope so the backend
		// can explain the problem to the user.
		result = tools.Fail(err.Error())
	}
	envelope := result.JSON()

	s.log.Info().
		Str("tool", call.Name).
		Bool("success", result.Success).
		Msg("tool executed")

	if err := s.append(domain.Message{
		Role:      domain.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: []domain.ToolCall{{ID: call.ID, Name: call.Name, Input: call.Input}},
	}); err != nil {
		return "", err
	}
	if err := s.append(domain.Message{
		Role:       domain.RoleTool,
		Content:    envelope,
		ToolName:   call.Name,
		ToolCallID: call.ID,
	}); err != nil {
		return "", err
	}

	// Exactly one re-completion; the protocol never recurses.
	final, err := s.complete(ctx)
	if err != nil {
		return "", err
	}
	if err := s.append(domain.Message{Role: domain.RoleAssistant, Content: final.Content}); err != nil {
		return "", err
	}
	return final.Content, nil
}

// History returns the session's dialogue context in append order.
func (s *Session) History() ([]domain.Message, error) {
	if s == nil || s.store == nil {
		return nil, ErrSessionUninitialized
	}
	return s.store.History(s.id)
}

func (s *Session) append(msg domain.Message) error {
	msg.Timestamp = time.Now()
	if err := s.store.Append(s.id, msg); err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	return nil
}

func (s *Session) complete(ctx context.Context) (*llm.CompletionResponse, error) {
	history, err := s.store.History(s.id)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	req := llm.CompletionRequest{
		Model:       s.cfg.Model,
		System:      s.cfg.SystemInstruction,
		Messages:    historyToLLM(history),
		Tools:       s.tools.Definitions(),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}

	resp, err := s.client.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("reasoning backend: %w", err)
	}
	return resp, nil
}

// historyToLLM converts stored messages into backend wire messages,
// preserving the tool round-trip bookkeeping.
func historyToLLM(history []domain.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		msg := llm.Message{
			Role:       m.Role,
			Content:    m.Content,
			ToolName:   m.ToolName,
			ToolCallID: m.ToolCallID,
		}
		for _, call := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{ID: call.ID, Name: call.Name, Input: call.Input})
		}
		out = append(out, msg)
	}
	return out
}
