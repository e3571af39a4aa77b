package cli

import (
	"fmt"
	"path/filepath"

	"github.com/voiceteller/voiceteller/internal/agent"
	"github.com/voiceteller/voiceteller/internal/audio"
	"github.com/voiceteller/voiceteller/internal/bank"
	"github.com/voiceteller/voiceteller/internal/config"
	"github.com/voiceteller/voiceteller/internal/domain"
	"github.com/voiceteller/voiceteller/internal/llm"
	"github.com/voiceteller/voiceteller/internal/speech"
	"github.com/voiceteller/voiceteller/internal/store"
	"github.com/voiceteller/voiceteller/internal/tools"
	"github.com/voiceteller/voiceteller/internal/turn"
)

// runtime is the assembled pipeline shared by the assist and serve
// commands.
type runtime struct {
	cfg  config.Config
	orch *turn.Orchestrator
	db   *store.DB // nil when using the in-memory session store
}

// close releases runtime resources.
func (r *runtime) close() {
	if r.db != nil {
		r.db.Close()
	}
}

// buildRuntime loads and validates config, then wires the full turn
// pipeline for the given entry channel.
func buildRuntime(channel string) (*runtime, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}

	if issues := config.Validate(&cfg); len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return nil, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}

	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}

	registry := llm.NewRegistryFromConfig(cfg.Reasoning, log)
	client, err := registry.Resolve(cfg.Reasoning.Model)
	if err != nil {
		return nil, fmt.Errorf("no reasoning provider configured: %w", err)
	}

	rt := &runtime{cfg: cfg}

	var sessions agent.SessionStore
	if cfg.Session.Store == "sqlite" {
		dbPath := filepath.Join(paths.Data, "voiceteller.db")
		db, err := store.Open(dbPath, log)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		rt.db = db
		sessions = store.NewSQLiteSessionStore(db)
		log.Info().Str("path", dbPath).Msg("using SQLite session store")
	} else {
		sessions = agent.NewMemorySessionStore()
		log.Info().Msg("using in-memory session store")
	}

	bankClient := bank.NewClient(cfg.Bank.APIKey, cfg.Bank.BaseURL, log)
	toolReg := tools.NewBankingRegistry(bankClient, log)

	session, err := agent.NewSession(agent.Config{
		Key:               domain.SessionKey{Channel: channel},
		SystemInstruction: agent.BuildSystemPrompt(cfg.Bank.AccountPrefix),
		Model:             cfg.Reasoning.Model,
		MaxTokens:         cfg.Reasoning.MaxTokens,
		Temperature:       cfg.Reasoning.Temperature,
	}, client, sessions, toolReg, log)
	if err != nil {
		rt.close()
		return nil, err
	}

	speechClient := speech.NewClient(cfg.Speech, log)
	recorder := audio.NewCommandRecorder(cfg.Audio.RecorderCommand, log)

	audio.SetOutputFactory(func() audio.Player {
		return audio.NewCommandPlayer(cfg.Audio.PlayerCommand, log)
	})

	rt.orch = turn.NewOrchestrator(recorder, audio.OutputHandle(), speechClient, speechClient, session, log)
	return rt, nil
}
