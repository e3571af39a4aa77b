package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so API keys can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Speech.APIKey = expandEnvVars(cfg.Speech.APIKey)
	cfg.Reasoning.APIKey = expandEnvVars(cfg.Reasoning.APIKey)
	cfg.Bank.APIKey = expandEnvVars(cfg.Bank.APIKey)
	cfg.Gateway.AuthToken = expandEnvVars(cfg.Gateway.AuthToken)
}

// Defaults returns a Config with all defaults applied.
func Defaults() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. A missing file produces defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Speech.BaseURL == "" {
		cfg.Speech.BaseURL = "https://api.elevenlabs.io"
	}
	if cfg.Speech.VoiceID == "" {
		cfg.Speech.VoiceID = "21m00Tcm4TlvDq8ikWAM"
	}
	if cfg.Speech.TTSModel == "" {
		cfg.Speech.TTSModel = "eleven_multilingual_v2"
	}
	if cfg.Speech.STTModel == "" {
		cfg.Speech.STTModel = "scribe_v1"
	}
	if cfg.Speech.Stability == 0 {
		cfg.Speech.Stability = 0.5
	}
	if cfg.Speech.SimilarityBoost == 0 {
		cfg.Speech.SimilarityBoost = 0.75
	}
	if cfg.Reasoning.Provider == "" {
		cfg.Reasoning.Provider = "gemini"
	}
	if cfg.Reasoning.Model == "" {
		cfg.Reasoning.Model = "gemini-2.5-flash"
	}
	if cfg.Reasoning.MaxTokens == 0 {
		cfg.Reasoning.MaxTokens = 1024
	}
	if cfg.Bank.BaseURL == "" {
		cfg.Bank.BaseURL = "http://api.nessieisreal.com"
	}
	if cfg.Bank.AccountPrefix == "" {
		cfg.Bank.AccountPrefix = "acc-"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18990
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = "sqlite"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads VOICETELLER_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VOICETELLER_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("VOICETELLER_GATEWAY_BIND"); v != "" {
		cfg.Gateway.Bind = v
	}
	if v := os.Getenv("VOICETELLER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("VOICETELLER_SPEECH_API_KEY"); v != "" {
		cfg.Speech.APIKey = v
	}
	if v := os.Getenv("VOICETELLER_REASONING_API_KEY"); v != "" {
		cfg.Reasoning.APIKey = v
	}
	if v := os.Getenv("VOICETELLER_BANK_API_KEY"); v != "" {
		cfg.Bank.APIKey = v
	}
}
