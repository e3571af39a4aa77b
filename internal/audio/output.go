package audio

import (
	"context"
	"sync"
)

var (
	outputMu      sync.Mutex
	outputPlayer  Player
	outputFactory = func() Player { return nil }
)

// SetOutputFactory installs the constructor used by Output. Called once
// at startup before any turn runs.
func SetOutputFactory(f func() Player) {
	outputMu.Lock()
	defer outputMu.Unlock()
	outputFactory = f
	outputPlayer = nil
}

// Output returns the process-wide playback device, creating it lazily on
// first use. Turns are serialized, so there is never more than one
// concurrent writer.
func Output() Player {
	outputMu.Lock()
	defer outputMu.Unlock()
	if outputPlayer == nil {
		outputPlayer = outputFactory()
	}
	return outputPlayer
}

// outputHandle defers device creation until a clip is actually played.
type outputHandle struct{}

func (outputHandle) Play(ctx context.Context, clip *Clip) error {
	return Output().Play(ctx, clip)
}

// OutputHandle returns a Player backed by the process-wide output
// device. The device itself is not created until the first Play, so
// wiring a pipeline does not touch audio hardware.
func OutputHandle() Player { return outputHandle{} }
