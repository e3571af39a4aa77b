// Package config loads, validates, and resolves voiceteller configuration.
package config

// ConfigError indicates a malformed or unusable configuration.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Message
}
