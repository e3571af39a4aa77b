// Package turn implements the voice turn orchestrator: the state machine
// that chains capture, transcription, reasoning, synthesis, and playback
// into one conversational turn.
package turn

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/voiceteller/voiceteller/internal/agent"
	"github.com/voiceteller/voiceteller/internal/audio"
	"github.com/voiceteller/voiceteller/internal/domain"
	"github.com/voiceteller/voiceteller/internal/logging"
	"github.com/voiceteller/voiceteller/internal/speech"
)

// apologyPrefix starts every failure message shown to the user.
const apologyPrefix = "I'm sorry, I encountered an error: "

// noSpeechReply is used when transcription produces no text. Not an
// error path; the turn just ends without a reasoning call.
const noSpeechReply = "I didn't catch that. Could you try again?"

// ErrBusy is returned when a turn is started while another is in flight.
var ErrBusy = errors.New("a turn is already in progress")

// Status strings shown while a stage is in flight.
const (
	statusTranscribing = "Transcribing..."
	statusThinking     = "Thinking..."
	statusSpeaking     = "Speaking..."
)

// EventType discriminates orchestrator events.
type EventType string

const (
	EventState  EventType = "state"
	EventChat   EventType = "chat"
	EventStatus EventType = "status"
)

// Event is a single observable orchestrator happening. State events
// carry State; chat events carry Message; status events carry Status
// (empty when the pending status is removed).
type Event struct {
	Type    EventType          `json:"type"`
	State   domain.TurnState   `json:"state,omitempty"`
	Message domain.ChatMessage `json:"message,omitempty"`
	Status  string             `json:"status,omitempty"`
}

// TurnResult is the outcome of processing one captured clip.
type TurnResult struct {
	UserText   string
	ReplyText  string
	ReplyAudio *audio.Clip
}

// Orchestrator runs voice turns. Turns are serialized: starting a turn
// while one is in flight is rejected, never queued.
type Orchestrator struct {
	recorder    audio.Recorder
	player      audio.Player
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
	session     *agent.Session
	log         *logging.Logger

	mu       sync.Mutex
	state    domain.TurnState
	messages []domain.ChatMessage
	status   string
	listener func(Event)
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(
	recorder audio.Recorder,
	player audio.Player,
	transcriber speech.Transcriber,
	synthesizer speech.Synthesizer,
	session *agent.Session,
	log *logging.Logger,
) *Orchestrator {
	return &Orchestrator{
		recorder:    recorder,
		player:      player,
		transcriber: transcriber,
		synthesizer: synthesizer,
		session:     session,
		log:         log.Sub("turn"),
		state:       domain.StateIdle,
	}
}

// OnEvent installs a listener for state transitions, chat messages, and
// status changes. One listener; the gateway fans out to its clients.
func (o *Orchestrator) OnEvent(fn func(Event)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listener = fn
}

// State returns the current turn state.
func (o *Orchestrator) State() domain.TurnState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Transcript returns the chat messages so far and the transient status
// line, if a stage is in flight.
func (o *Orchestrator) Transcript() ([]domain.ChatMessage, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.ChatMessage, len(o.messages))
	copy(out, o.messages)
	return out, o.status
}

// StartTurn begins capturing a new voice turn. Rejected while a turn is
// in flight. A microphone permission failure never enters Recording and
// makes no remote calls.
func (o *Orchestrator) StartTurn(ctx context.Context) error {
	o.mu.Lock()
	if o.state != domain.StateIdle {
		o.mu.Unlock()
		return ErrBusy
	}
	o.mu.Unlock()

	if err := o.recorder.Start(ctx); err != nil {
		o.failTurn(err)
		return err
	}

	o.setState(domain.StateRecording)
	return nil
}

// StopTurn ends capture and runs the rest of the pipeline through
// playback. The reply is spoken on the local output device.
func (o *Orchestrator) StopTurn(ctx context.Context) (*TurnResult, error) {
	o.mu.Lock()
	if o.state != domain.StateRecording {
		o.mu.Unlock()
		return nil, fmt.Errorf("no recording in progress")
	}
	o.mu.Unlock()

	clip, err := o.recorder.Stop(ctx)
	if err != nil {
		o.failTurn(err)
		return nil, err
	}

	result, err := o.process(ctx, clip)
	if err != nil {
		return nil, err
	}
	if result.ReplyAudio == nil {
		o.setState(domain.StateIdle)
		return result, nil
	}

	o.setState(domain.StateSpeaking)
	o.setStatus(statusSpeaking)
	if err := o.player.Play(ctx, result.ReplyAudio); err != nil {
		o.failTurn(err)
		return nil, err
	}
	o.setStatus("")
	o.setState(domain.StateIdle)
	return result, nil
}

// ProcessClip runs transcription, reasoning, and synthesis on a finished
// clip. Gateway turns call this directly and play audio client-side.
func (o *Orchestrator) ProcessClip(ctx context.Context, clip *audio.Clip) (*TurnResult, error) {
	result, err := o.process(ctx, clip)
	if err != nil {
		return nil, err
	}
	o.setState(domain.StateIdle)
	return result, nil
}

// process runs the remote pipeline stages. On success the orchestrator
// is left in Synthesizing; the caller owns the final transition, so a
// local turn stays busy straight through playback.
func (o *Orchestrator) process(ctx context.Context, clip *audio.Clip) (*TurnResult, error) {
	o.mu.Lock()
	if o.state.Busy() {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	o.mu.Unlock()

	o.setState(domain.StateTranscribing)
	o.setStatus(statusTranscribing)

	userText, err := o.transcriber.Transcribe(ctx, clip.Data, clip.MimeType)
	if err != nil {
		o.failTurn(err)
		return nil, err
	}

	if userText == "" {
		// Nothing was said; end the turn without a reasoning call.
		o.setStatus("")
		o.appendChat(domain.ChatMessage{Role: domain.ChatRoleBot, Content: noSpeechReply})
		return &TurnResult{ReplyText: noSpeechReply}, nil
	}

	o.appendChat(domain.ChatMessage{Role: domain.ChatRoleUser, Content: userText})

	o.setState(domain.StateReasoning)
	o.setStatus(statusThinking)

	replyText, err := o.session.RunTurn(ctx, userText)
	if err != nil {
		o.failTurn(err)
		return nil, err
	}

	o.setState(domain.StateSynthesizing)

	replyAudio, err := o.synthesizer.Synthesize(ctx, replyText)
	if err != nil {
		o.failTurn(err)
		return nil, err
	}

	o.setStatus("")
	o.appendChat(domain.ChatMessage{Role: domain.ChatRoleBot, Content: replyText})

	return &TurnResult{
		UserText:   userText,
		ReplyText:  replyText,
		ReplyAudio: &audio.Clip{Data: replyAudio, MimeType: "audio/mpeg"},
	}, nil
}

// failTurn converts any pipeline failure into a single apology message,
// clears the pending status, and returns to Idle through Error. No stage
// is ever retried.
func (o *Orchestrator) failTurn(err error) {
	o.log.Error().Err(err).Msg("turn failed")
	o.setState(domain.StateError)
	o.setStatus("")
	o.appendChat(domain.ChatMessage{
		Role:    domain.ChatRoleBot,
		Content: apologyPrefix + userFacingError(err),
	})
	o.setState(domain.StateIdle)
}

// userFacingError maps known failures to plain language; everything else
// passes through as-is.
func userFacingError(err error) string {
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		return "I couldn't access the microphone. Please check the audio permissions."
	case errors.Is(err, audio.ErrDecode):
		return "The reply audio could not be played."
	case errors.Is(err, agent.ErrSessionUninitialized):
		return "The conversation session is not ready."
	default:
		return err.Error()
	}
}

func (o *Orchestrator) setState(s domain.TurnState) {
	o.mu.Lock()
	o.state = s
	listener := o.listener
	o.mu.Unlock()

	o.log.Debug().Str("state", string(s)).Msg("state transition")
	if listener != nil {
		listener(Event{Type: EventState, State: s})
	}
}

func (o *Orchestrator) setStatus(status string) {
	o.mu.Lock()
	o.status = status
	listener := o.listener
	o.mu.Unlock()

	if listener != nil {
		listener(Event{Type: EventStatus, Status: status})
	}
}

func (o *Orchestrator) appendChat(msg domain.ChatMessage) {
	o.mu.Lock()
	o.messages = append(o.messages, msg)
	listener := o.listener
	o.mu.Unlock()

	if listener != nil {
		listener(Event{Type: EventChat, Message: msg})
	}
}
