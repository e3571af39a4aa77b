package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	validProviders := []string{"gemini", "claude"}
	if cfg.Reasoning.Provider != "" && !slices.Contains(validProviders, cfg.Reasoning.Provider) {
		issues = append(issues, ValidationIssue{
			Path:    "reasoning.provider",
			Message: fmt.Sprintf("must be one of %v, got %q", validProviders, cfg.Reasoning.Provider),
		})
	}
	if cfg.Reasoning.MaxTokens < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "reasoning.maxTokens",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Reasoning.MaxTokens),
		})
	}
	if cfg.Reasoning.Temperature != nil {
		t := *cfg.Reasoning.Temperature
		if t < 0 || t > 2 {
			issues = append(issues, ValidationIssue{
				Path:    "reasoning.temperature",
				Message: fmt.Sprintf("must be 0-2, got %g", t),
			})
		}
	}

	if cfg.Speech.Stability < 0 || cfg.Speech.Stability > 1 {
		issues = append(issues, ValidationIssue{
			Path:    "speech.stability",
			Message: fmt.Sprintf("must be 0-1, got %g", cfg.Speech.Stability),
		})
	}
	if cfg.Speech.SimilarityBoost < 0 || cfg.Speech.SimilarityBoost > 1 {
		issues = append(issues, ValidationIssue{
			Path:    "speech.similarityBoost",
			Message: fmt.Sprintf("must be 0-1, got %g", cfg.Speech.SimilarityBoost),
		})
	}

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}
	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}
	if cfg.Gateway.Bind == "custom" && cfg.Gateway.CustomBindHost == "" {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.customBindHost",
			Message: "required when bind: custom",
		})
	}

	validStores := []string{"memory", "sqlite"}
	if cfg.Session.Store != "" && !slices.Contains(validStores, cfg.Session.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "session.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Session.Store),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}
	validConsoleStyles := []string{"pretty", "compact", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	return issues
}
