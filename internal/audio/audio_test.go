package audio

import (
	"context"
	"io"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voiceteller/voiceteller/internal/logging"
)

func testLog() *logging.Logger {
	return logging.New(io.Discard, "silent", "json")
}

func TestBuildArgs(t *testing.T) {
	args := buildArgs("ffmpeg -y -i default {file}", "/tmp/out.wav")
	assert.Equal(t, []string{"ffmpeg", "-y", "-i", "default", "/tmp/out.wav"}, args)

	assert.Empty(t, buildArgs("", "/tmp/out.wav"))
}

func TestFailureClassifiers(t *testing.T) {
	assert.True(t, isPermissionFailure("ALSA lib: Permission denied"))
	assert.True(t, isPermissionFailure("cannot open audio device hw:0"))
	assert.False(t, isPermissionFailure("frame=  100 fps= 30"))

	assert.True(t, isDecodeFailure("Invalid data found when processing input"))
	assert.False(t, isDecodeFailure(""))
}

func TestRecorderStopWithoutStart(t *testing.T) {
	rec := NewCommandRecorder("", testLog())
	_, err := rec.Stop(context.Background())
	assert.Error(t, err)
}

func TestRecorderDoubleStart(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix shell tooling")
	}

	// sleep stands in for a capture process; it writes nothing.
	rec := NewCommandRecorder("sleep 30", testLog())
	require.NoError(t, rec.Start(context.Background()))
	assert.Error(t, rec.Start(context.Background()))

	_, err := rec.Stop(context.Background())
	assert.Error(t, err) // no audio produced
}

func TestRecorderStartPermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix shell tooling")
	}

	// The script stands in for an encoder that cannot open the mic: it
	// dies immediately, so Start must fail before a capture is reported
	// as running.
	script := t.TempDir() + "/denied.sh"
	require.NoError(t, os.WriteFile(script,
		[]byte("#!/bin/sh\necho 'cannot open audio device' >&2\nexit 1\n"), 0o755))

	rec := NewCommandRecorder(script+" {file}", testLog())
	err := rec.Start(context.Background())
	require.ErrorIs(t, err, ErrPermissionDenied)

	// The failed start leaves no capture in progress.
	_, err = rec.Stop(context.Background())
	assert.Error(t, err)
}

func TestRecorderStartImmediateFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix shell tooling")
	}

	rec := NewCommandRecorder("false {file}", testLog())
	err := rec.Start(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
}

func TestRecorderCapturesCommandOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix shell tooling")
	}

	// cp stands in for an encoder: it copies a known payload to the
	// output path immediately and exits.
	src := t.TempDir() + "/src.wav"
	require.NoError(t, os.WriteFile(src, []byte("RIFF-fake-audio"), 0o600))

	rec := NewCommandRecorder("cp "+src+" {file}", testLog())
	require.NoError(t, rec.Start(context.Background()))
	time.Sleep(100 * time.Millisecond)

	clip, err := rec.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF-fake-audio"), clip.Data)
	assert.Equal(t, "audio/wav", clip.MimeType)
}

func TestPlayerRejectsEmptyClip(t *testing.T) {
	player := NewCommandPlayer("", testLog())
	assert.ErrorIs(t, player.Play(context.Background(), nil), ErrDecode)
	assert.ErrorIs(t, player.Play(context.Background(), &Clip{}), ErrDecode)
}

func TestPlayerRunsCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix shell tooling")
	}

	// true stands in for a player that accepts any file.
	player := NewCommandPlayer("true {file}", testLog())
	err := player.Play(context.Background(), &Clip{Data: []byte("mpeg"), MimeType: "audio/mpeg"})
	assert.NoError(t, err)
}

func TestPlayerCommandFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix shell tooling")
	}

	player := NewCommandPlayer("false {file}", testLog())
	err := player.Play(context.Background(), &Clip{Data: []byte("x"), MimeType: "audio/wav"})
	assert.Error(t, err)
}

type countingPlayer struct {
	plays int
}

func (p *countingPlayer) Play(ctx context.Context, clip *Clip) error {
	p.plays++
	return nil
}

func TestOutputHandleDefersCreation(t *testing.T) {
	created := 0
	player := &countingPlayer{}
	SetOutputFactory(func() Player {
		created++
		return player
	})
	t.Cleanup(func() { SetOutputFactory(func() Player { return nil }) })

	handle := OutputHandle()
	assert.Equal(t, 0, created)

	require.NoError(t, handle.Play(context.Background(), &Clip{Data: []byte("x")}))
	require.NoError(t, handle.Play(context.Background(), &Clip{Data: []byte("x")}))
	assert.Equal(t, 1, created)
	assert.Equal(t, 2, player.plays)
}

func TestClipExtension(t *testing.T) {
	assert.Equal(t, ".mp3", extensionFor("audio/mpeg"))
	assert.Equal(t, ".webm", extensionFor("audio/webm;codecs=opus"))
	assert.Equal(t, ".wav", extensionFor("audio/wav"))
	assert.Equal(t, ".wav", extensionFor(""))
}
