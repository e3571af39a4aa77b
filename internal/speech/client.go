package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voiceteller/voiceteller/internal/config"
	"github.com/voiceteller/voiceteller/internal/logging"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// Client implements Transcriber and Synthesizer against the hosted
// speech service. Authentication is an xi-api-key header on every call.
type Client struct {
	apiKey          string
	baseURL         string
	voiceID         string
	ttsModel        string
	sttModel        string
	stability       float64
	similarityBoost float64
	http            *http.Client
	log             *logging.Logger
}

// NewClient creates a speech client from configuration.
func NewClient(cfg config.SpeechConfig, log *logging.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:          cfg.APIKey,
		baseURL:         strings.TrimRight(baseURL, "/"),
		voiceID:         cfg.VoiceID,
		ttsModel:        cfg.TTSModel,
		sttModel:        cfg.STTModel,
		stability:       cfg.Stability,
		similarityBoost: cfg.SimilarityBoost,
		http:            &http.Client{Timeout: 60 * time.Second},
		log:             log.Sub("speech"),
	}
}

// Transcribe uploads audio and returns the recognized text. The mimeType
// names the container the audio was captured in, e.g. "audio/webm".
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "recording"+extensionFor(mimeType))
	if err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if err := writer.WriteField("model_id", c.sttModel); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/speech-to-text", &buf)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("xi-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Operation: "transcribe", Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}

	c.log.Debug().
		Int("audioBytes", len(audio)).
		Dur("elapsed", time.Since(start)).
		Msg("transcription complete")

	return result.Text, nil
}

// Synthesize converts text into audio bytes in the service's default
// mpeg encoding.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": c.ttsModel,
		"voice_settings": map[string]any{
			"stability":        c.stability,
			"similarity_boost": c.similarityBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := c.baseURL + "/v1/text-to-speech/" + url.PathEscape(c.voiceID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Operation: "synthesize", Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	c.log.Debug().
		Int("textLen", len(text)).
		Int("audioBytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("synthesis complete")

	return body, nil
}

func extensionFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	case strings.Contains(mimeType, "wav"):
		return ".wav"
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return ".mp3"
	default:
		return ".bin"
	}
}
