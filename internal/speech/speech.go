// Package speech wraps the speech service's transcription and synthesis
// endpoints.
package speech

import (
	"context"
	"fmt"
)

// Transcriber converts captured audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Synthesizer converts reply text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// APIError is returned when the speech service responds with a
// non-success status.
type APIError struct {
	Operation string // "transcribe" or "synthesize"
	Status    int
	Message   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("speech %s: %d %s", e.Operation, e.Status, e.Message)
}
