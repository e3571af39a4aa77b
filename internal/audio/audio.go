// Package audio abstracts microphone capture and speaker playback.
//
// The default implementations shell out to external tools (ffmpeg for
// capture, ffplay for playback) so the assistant has no native audio
// bindings. Gateway clients that capture audio in the browser bypass
// Recorder entirely and submit finished clips.
package audio

import (
	"context"
	"errors"
)

// ErrPermissionDenied means the capture device could not be opened.
var ErrPermissionDenied = errors.New("audio device permission denied")

// ErrDecode means the player could not decode the clip.
var ErrDecode = errors.New("audio decode failed")

// Clip is a completed audio capture or synthesis result.
type Clip struct {
	Data     []byte
	MimeType string
}

// Recorder captures audio from the local microphone. Start begins a
// capture; Stop ends it and resolves once with the completed clip.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (*Clip, error)
}

// Player plays a clip through the local output device, blocking until
// playback completes or ctx is canceled.
type Player interface {
	Play(ctx context.Context, clip *Clip) error
}
