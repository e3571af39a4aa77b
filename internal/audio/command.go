package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voiceteller/voiceteller/internal/logging"
)

// Default command templates. {file} is replaced with a temp file path.
const (
	defaultRecordCommand = "ffmpeg -y -f pulse -i default -t 30 {file}"
	defaultPlayCommand   = "ffplay -nodisp -autoexit -loglevel error {file}"
)

// startGracePeriod is how long Start watches the capture command for an
// immediate failure, so a closed or denied audio device surfaces before
// the caller treats the capture as running.
const startGracePeriod = 200 * time.Millisecond

// CommandRecorder captures audio by running an external command that
// writes to a temp file. Stop interrupts the command and reads the file.
type CommandRecorder struct {
	template string
	log      *logging.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	path string
	done chan error
}

// NewCommandRecorder creates a recorder from a command template. An empty
// template selects the ffmpeg default.
func NewCommandRecorder(template string, log *logging.Logger) *CommandRecorder {
	if template == "" {
		template = defaultRecordCommand
	}
	return &CommandRecorder{template: template, log: log.Sub("audio.recorder")}
}

// Start launches the capture command. Only one capture may be active.
func (r *CommandRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return fmt.Errorf("capture already in progress")
	}

	path := filepath.Join(os.TempDir(), "voiceteller-"+uuid.NewString()+".wav")
	args := buildArgs(r.template, path)
	if len(args) == 0 {
		return fmt.Errorf("empty recorder command")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		if err != nil && isPermissionFailure(stderr.String()) {
			err = ErrPermissionDenied
		}
		done <- err
	}()

	// An encoder that dies within the grace period fails the start
	// instead of the stop. A command that exits cleanly this fast has
	// already written its file, so its result is put back for Stop.
	select {
	case waitErr := <-done:
		if waitErr != nil {
			os.Remove(path)
			if errors.Is(waitErr, ErrPermissionDenied) {
				return ErrPermissionDenied
			}
			return fmt.Errorf("capture failed to start: %w", waitErr)
		}
		done <- nil
	case <-time.After(startGracePeriod):
	}

	r.cmd = cmd
	r.path = path
	r.done = done
	r.log.Debug().Str("file", path).Msg("capture started")
	return nil
}

// Stop interrupts the capture command and returns the recorded clip.
func (r *CommandRecorder) Stop(ctx context.Context) (*Clip, error) {
	r.mu.Lock()
	cmd, path, done := r.cmd, r.path, r.done
	r.cmd, r.path, r.done = nil, "", nil
	r.mu.Unlock()

	if cmd == nil {
		return nil, fmt.Errorf("no capture in progress")
	}
	defer os.Remove(path)

	// An interrupt lets the encoder finalize the container before exit.
	_ = cmd.Process.Signal(os.Interrupt)

	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		return nil, ctx.Err()
	}
	if waitErr == ErrPermissionDenied {
		return nil, ErrPermissionDenied
	}

	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		if waitErr != nil {
			return nil, fmt.Errorf("capture failed: %w", waitErr)
		}
		return nil, fmt.Errorf("capture produced no audio")
	}

	r.log.Debug().Int("bytes", len(data)).Msg("capture complete")
	return &Clip{Data: data, MimeType: "audio/wav"}, nil
}

// CommandPlayer plays clips by handing them to an external command.
type CommandPlayer struct {
	template string
	log      *logging.Logger
}

// NewCommandPlayer creates a player from a command template. An empty
// template selects the ffplay default.
func NewCommandPlayer(template string, log *logging.Logger) *CommandPlayer {
	if template == "" {
		template = defaultPlayCommand
	}
	return &CommandPlayer{template: template, log: log.Sub("audio.player")}
}

// Play writes the clip to a temp file and blocks until the playback
// command exits.
func (p *CommandPlayer) Play(ctx context.Context, clip *Clip) error {
	if clip == nil || len(clip.Data) == 0 {
		return ErrDecode
	}

	path := filepath.Join(os.TempDir(), "voiceteller-"+uuid.NewString()+extensionFor(clip.MimeType))
	if err := os.WriteFile(path, clip.Data, 0o600); err != nil {
		return fmt.Errorf("writing playback file: %w", err)
	}
	defer os.Remove(path)

	args := buildArgs(p.template, path)
	if len(args) == 0 {
		return fmt.Errorf("empty player command")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	p.log.Debug().Int("bytes", len(clip.Data)).Msg("playback started")
	if err := cmd.Run(); err != nil {
		if isDecodeFailure(stderr.String()) {
			return ErrDecode
		}
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}

// buildArgs splits a command template and substitutes the file path.
func buildArgs(template, path string) []string {
	fields := strings.Fields(template)
	args := make([]string, 0, len(fields))
	for _, f := range fields {
		args = append(args, strings.ReplaceAll(f, "{file}", path))
	}
	return args
}

func isPermissionFailure(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "permission denied") ||
		strings.Contains(s, "device or resource busy") ||
		strings.Contains(s, "cannot open audio device")
}

func isDecodeFailure(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "invalid data") ||
		strings.Contains(s, "could not find codec") ||
		strings.Contains(s, "decode")
}

func extensionFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return ".mp3"
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	default:
		return ".wav"
	}
}
