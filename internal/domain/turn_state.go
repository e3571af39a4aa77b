package domain

// TurnState is the orchestrator's position in the turn pipeline.
type TurnState string

const (
	StateIdle         TurnState = "idle"
	StateRecording    TurnState = "recording"
	StateTranscribing TurnState = "transcribing"
	StateReasoning    TurnState = "reasoning"
	StateSynthesizing TurnState = "synthesizing"
	StateSpeaking     TurnState = "speaking"
	StateError        TurnState = "error"
)

// Busy reports whether a turn is being processed. Starting a new
// recording is rejected while Busy.
func (s TurnState) Busy() bool {
	switch s {
	case StateTranscribing, StateReasoning, StateSynthesizing, StateSpeaking:
		return true
	}
	return false
}

func (s TurnState) String() string { return string(s) }
