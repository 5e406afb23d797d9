package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRequiresAppIDUnlessMock(t *testing.T) {
	t.Setenv("VENUE_APP_ID", "")
	t.Setenv("USE_MOCK_VENUE", "")
	if _, err := Load(); err == nil {
		t.Fatal("missing VENUE_APP_ID accepted without mock mode")
	}

	t.Setenv("USE_MOCK_VENUE", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with mock venue: %v", err)
	}
	if !cfg.UseMockVenue {
		t.Fatal("mock venue flag not set")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("USE_MOCK_VENUE", "true")
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port=%q, expected default 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel=%q, expected default info", cfg.LogLevel)
	}
	if cfg.MaxConnectRetries != 5 {
		t.Fatalf("MaxConnectRetries=%d, expected default 5", cfg.MaxConnectRetries)
	}
}

func TestLoadPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	doc := `presets:
  standard:
    name: Standard
    initial_stake: 5
    profit_threshold: 1000
    loss_threshold: 500
    max_recovery_attempts: 3
    max_daily_trades: 50
  cautious:
    name: Cautious
    initial_stake: 1
    profit_threshold: 100
    loss_threshold: 50
    max_recovery_attempts: 2
    max_daily_trades: 20
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write presets file: %v", err)
	}

	presets, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if len(presets) != 2 {
		t.Fatalf("got %d presets, expected 2", len(presets))
	}
	if presets["standard"].InitialStake != 5 || presets["cautious"].MaxDailyTrades != 20 {
		t.Fatalf("preset values wrong: %+v", presets)
	}
}

func TestLoadPresetsRejectsNonPositiveValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	doc := `presets:
  broken:
    initial_stake: 0
    profit_threshold: 100
    loss_threshold: 50
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write presets file: %v", err)
	}
	if _, err := LoadPresets(path); err == nil {
		t.Fatal("non-positive preset accepted")
	}
}
