package gateway

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/voiceteller/voiceteller/internal/audio"
	"github.com/voiceteller/voiceteller/internal/turn"
	"github.com/voiceteller/voiceteller/internal/version"
)

// TurnResponse is the JSON body returned by POST /v1/turn.
type TurnResponse struct {
	UserText       string `json:"userText"`
	ReplyText      string `json:"replyText"`
	ReplyAudio     string `json:"replyAudio,omitempty"` // base64
	ReplyAudioMime string `json:"replyAudioMime,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Version,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
		"state":   s.orch.State(),
	})
}

// handleTurn accepts a finished audio clip as a multipart upload and runs
// the transcribe/reason/synthesize pipeline. Playback happens client-side.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing audio file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty audio file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	result, err := s.orch.ProcessClip(r.Context(), &audio.Clip{Data: data, MimeType: mimeType})
	if err != nil {
		if errors.Is(err, turn.ErrBusy) {
			writeError(w, http.StatusConflict, "a turn is already in progress")
			return
		}
		s.log.Error().Err(err).Msg("turn processing failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	resp := TurnResponse{
		UserText:  result.UserText,
		ReplyText: result.ReplyText,
	}
	if result.ReplyAudio != nil {
		resp.ReplyAudio = base64.StdEncoding.EncodeToString(result.ReplyAudio.Data)
		resp.ReplyAudioMime = result.ReplyAudio.MimeType
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEvents upgrades to WebSocket and streams orchestrator events.
// On connect the client receives a transcript snapshot, then live events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{conn: conn, send: make(chan turn.Event, 64)}
	s.addClient(client)
	s.log.Debug().Str("remote", r.RemoteAddr).Msg("event subscriber connected")

	// Snapshot so late joiners see the transcript so far.
	messages, status := s.orch.Transcript()
	snapshot := map[string]any{
		"type":     "snapshot",
		"state":    s.orch.State(),
		"messages": messages,
		"status":   status,
	}
	if err := conn.WriteJSON(snapshot); err != nil {
		s.removeClient(client)
		conn.Close()
		return
	}

	// Writer: events to the socket until the channel closes.
	go func() {
		for e := range client.send {
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	}()

	// Reader: detects disconnect; inbound frames are ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("event subscriber read error")
			}
			break
		}
	}

	s.removeClient(client)
	conn.Close()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
