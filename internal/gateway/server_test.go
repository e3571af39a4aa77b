package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voiceteller/voiceteller/internal/agent"
	"github.com/voiceteller/voiceteller/internal/audio"
	"github.com/voiceteller/voiceteller/internal/config"
	"github.com/voiceteller/voiceteller/internal/domain"
	"github.com/voiceteller/voiceteller/internal/llm"
	"github.com/voiceteller/voiceteller/internal/logging"
	"github.com/voiceteller/voiceteller/internal/speech"
	"github.com/voiceteller/voiceteller/internal/tools"
	"github.com/voiceteller/voiceteller/internal/turn"
)

type echoTranscriber struct{ text string }

func (e *echoTranscriber) Transcribe(ctx context.Context, data []byte, mimeType string) (string, error) {
	return e.text, nil
}

type fixedSynthesizer struct{ audio []byte }

func (f *fixedSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return f.audio, nil
}

type noopRecorder struct{}

func (noopRecorder) Start(ctx context.Context) error              { return nil }
func (noopRecorder) Stop(ctx context.Context) (*audio.Clip, error) { return nil, nil }

type noopPlayer struct{}

func (noopPlayer) Play(ctx context.Context, clip *audio.Clip) error { return nil }

var (
	_ speech.Transcriber = (*echoTranscriber)(nil)
	_ speech.Synthesizer = (*fixedSynthesizer)(nil)
)

func newTestServer(t *testing.T, token string) (*Server, *httptest.Server) {
	t.Helper()
	log := logging.New(io.Discard, "silent", "json")

	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: "Your balance is 500 USD."}, nil
		},
	}
	session, err := agent.NewSession(agent.Config{
		Key: domain.SessionKey{Channel: "gateway"},
	}, client, agent.NewMemorySessionStore(), tools.NewRegistry(), log)
	require.NoError(t, err)

	orch := turn.NewOrchestrator(
		noopRecorder{}, noopPlayer{},
		&echoTranscriber{text: "what is my balance"},
		&fixedSynthesizer{audio: []byte("mpeg-reply")},
		session, log,
	)

	srv := New(config.GatewayConfig{Port: 0, Bind: "loopback", AuthToken: token}, orch, log)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func multipartAudio(t *testing.T, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio", "clip.webm")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, "")

	resp, err := http.Get(ts.URL + "/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "idle", body["state"])
}

func TestTurnEndpoint(t *testing.T) {
	_, ts := newTestServer(t, "")

	buf, contentType := multipartAudio(t, []byte("captured-audio"))
	resp, err := http.Post(ts.URL+"/v1/turn", contentType, buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body TurnResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "what is my balance", body.UserText)
	assert.Equal(t, "Your balance is 500 USD.", body.ReplyText)

	decoded, err := base64.StdEncoding.DecodeString(body.ReplyAudio)
	require.NoError(t, err)
	assert.Equal(t, []byte("mpeg-reply"), decoded)
	assert.Equal(t, "audio/mpeg", body.ReplyAudioMime)
}

func TestTurnEndpointMissingAudio(t *testing.T) {
	_, ts := newTestServer(t, "")

	resp, err := http.Post(ts.URL+"/v1/turn", "multipart/form-data; boundary=x", strings.NewReader("--x--"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	_, ts := newTestServer(t, "secret-token")

	buf, contentType := multipartAudio(t, []byte("audio"))
	resp, err := http.Post(ts.URL+"/v1/turn", contentType, buf)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Health stays open for probes.
	resp, err = http.Get(ts.URL + "/v1/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Bearer token passes.
	buf, contentType = multipartAudio(t, []byte("audio"))
	req, err := http.NewRequest("POST", ts.URL+"/v1/turn", buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Wrong token fails.
	buf, contentType = multipartAudio(t, []byte("audio"))
	req, _ = http.NewRequest("POST", ts.URL+"/v1/turn", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEventStream(t *testing.T) {
	_, ts := newTestServer(t, "secret-token")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/events?token=secret-token"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// First frame is the transcript snapshot.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snapshot map[string]any
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Equal(t, "snapshot", snapshot["type"])
	assert.Equal(t, "idle", snapshot["state"])

	// A turn produces state and chat events on the stream.
	buf, contentType := multipartAudio(t, []byte("audio"))
	req, _ := http.NewRequest("POST", ts.URL+"/v1/turn", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sawChat := false
	sawState := false
	for i := 0; i < 20 && !(sawChat && sawState); i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var event map[string]any
		require.NoError(t, conn.ReadJSON(&event))
		switch event["type"] {
		case "chat":
			sawChat = true
		case "state":
			sawState = true
		}
	}
	assert.True(t, sawChat)
	assert.True(t, sawState)
}

func TestEventStreamUnauthorized(t *testing.T) {
	_, ts := newTestServer(t, "secret-token")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/events"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestResolveBindAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:18990", resolveBindAddr(config.GatewayConfig{Bind: "loopback", Port: 18990}))
	assert.Equal(t, "0.0.0.0:18990", resolveBindAddr(config.GatewayConfig{Bind: "lan", Port: 18990}))
	assert.Equal(t, "10.0.0.5:9999", resolveBindAddr(config.GatewayConfig{Bind: "custom", CustomBindHost: "10.0.0.5", Port: 9999}))
	assert.Equal(t, "127.0.0.1:1234", resolveBindAddr(config.GatewayConfig{Bind: "", Port: 1234}))
}

func TestSafeEqual(t *testing.T) {
	assert.True(t, safeEqual("abc", "abc"))
	assert.False(t, safeEqual("abc", "abd"))
	assert.False(t, safeEqual("abc", "abcd"))
	assert.True(t, safeEqual("", ""))
}
