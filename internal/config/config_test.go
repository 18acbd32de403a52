package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitConfigLoadsFileFromWorkingDirectory(t *testing.T) {
	dir := t.TempDir()

	data := []byte(`{
  "host": "127.0.0.1",
  "port": 9090,
  "log_level": "debug",
  "game": {
    "num_players": 8,
    "num_werewolves": 2,
    "vote_rule": "plurality"
  }
}`)

	if err := os.WriteFile(filepath.Join(dir, "app_config.json"), data, 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change working directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatalf("failed to restore working directory: %v", err)
		}
	})

	cfg := InitConfig()

	if cfg.Host != "127.0.0.1" || cfg.Port != 9090 {
		t.Fatalf("server config not loaded: host=%q port=%d", cfg.Host, cfg.Port)
	}

	if cfg.LogLevel != "debug" {
		t.Fatalf("log level not loaded, got %q", cfg.LogLevel)
	}

	if cfg.Game.NumPlayers != 8 || cfg.Game.NumWerewolves != 2 {
		t.Fatalf("game config not loaded: players=%d wolves=%d", cfg.Game.NumPlayers, cfg.Game.NumWerewolves)
	}

	if cfg.Game.VoteRule != "plurality" {
		t.Fatalf("vote rule not loaded, got %q", cfg.Game.VoteRule)
	}

	// 文件里没写的字段取默认值
	if cfg.Game.MaxDebateTurns != 4 {
		t.Fatalf("max_debate_turns default not applied, got %d", cfg.Game.MaxDebateTurns)
	}

	if cfg.Game.DebatePolicy != "bid" {
		t.Fatalf("debate_policy default not applied, got %q", cfg.Game.DebatePolicy)
	}

	if cfg.Game.DecisionTimeoutSec != 60 || cfg.Game.NumWorkers != 4 {
		t.Fatalf("engine defaults not applied: timeout=%d workers=%d",
			cfg.Game.DecisionTimeoutSec, cfg.Game.NumWorkers)
	}
}
