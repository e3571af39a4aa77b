package config

// Config is the root configuration for voiceteller.
type Config struct {
	Speech    SpeechConfig    `yaml:"speech,omitempty"`
	Reasoning ReasoningConfig `yaml:"reasoning,omitempty"`
	Bank      BankConfig      `yaml:"bank,omitempty"`
	Gateway   GatewayConfig   `yaml:"gateway,omitempty"`
	Session   SessionConfig   `yaml:"session,omitempty"`
	Audio     AudioConfig     `yaml:"audio,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// SpeechConfig configures the transcription and synthesis services.
type SpeechConfig struct {
	APIKey          string  `yaml:"apiKey,omitempty"`
	BaseURL         string  `yaml:"baseUrl,omitempty"`         // default https://api.elevenlabs.io
	VoiceID         string  `yaml:"voiceId,omitempty"`
	TTSModel        string  `yaml:"ttsModel,omitempty"`        // default eleven_multilingual_v2
	STTModel        string  `yaml:"sttModel,omitempty"`        // default scribe_v1
	Stability       float64 `yaml:"stability,omitempty"`       // default 0.5
	SimilarityBoost float64 `yaml:"similarityBoost,omitempty"` // default 0.75
}

// ReasoningConfig configures the chat-with-tools backend.
type ReasoningConfig struct {
	Provider    string   `yaml:"provider,omitempty"` // "gemini" | "claude"
	APIKey      string   `yaml:"apiKey,omitempty"`
	Model       string   `yaml:"model,omitempty"`
	MaxTokens   int      `yaml:"maxTokens,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
}

// BankConfig configures the banking data API.
type BankConfig struct {
	BaseURL       string `yaml:"baseUrl,omitempty"` // default http://api.nessieisreal.com
	APIKey        string `yaml:"apiKey,omitempty"`  // static credential query parameter
	AccountPrefix string `yaml:"accountPrefix,omitempty"` // default "acc-"
}

// GatewayConfig controls the voice gateway HTTP server.
type GatewayConfig struct {
	Port           int    `yaml:"port,omitempty"`
	Bind           string `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string `yaml:"customBindHost,omitempty"`
	AuthToken      string `yaml:"authToken,omitempty"`
}

// SessionConfig controls dialogue context persistence.
type SessionConfig struct {
	Store string `yaml:"store,omitempty"` // "memory" | "sqlite"
}

// AudioConfig overrides the local capture/playback commands.
type AudioConfig struct {
	RecorderCommand string `yaml:"recorderCommand,omitempty"`
	PlayerCommand   string `yaml:"playerCommand,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent".."trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}
