package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"

	"binary_bot/internal/models"
)

const sample = `
service:
  name: binary_bot_test
  health_addr: ":9090"
store:
  driver: memory
deriv:
  app_id: "1089"
runner:
  instrument: R_100
  trade_duration: 300s
settings:
  entry_amount: 15
  min_confidence: 0.7
  risk_level: HIGH
`

func writeConfig(t *testing.T, body string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "test.yaml"), []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(configDirENV, dir)
	t.Setenv(configFilePathENV, "test.yaml")
}

func TestNewConfigFromFile(t *testing.T) {
	writeConfig(t, sample)

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Service.HealthAddr != ":9090" || cfg.Runner.Instrument != "R_100" || cfg.Runner.TradeDuration != 5*time.Minute {
		t.Fatalf("unexpected config %+v", cfg)
	}
	s := cfg.Settings
	if s.EntryAmount != 15 || s.MinConfidence != 0.7 || s.RiskLevel != models.RiskHigh {
		t.Fatalf("unexpected settings %+v", s)
	}
	// untouched fields keep their defaults
	if s.MaxDailyTrades != 20 || !s.IsDemoMode || cfg.Indicator.MinPeriod != 20 {
		t.Fatalf("defaults lost: %+v", s)
	}
}

func TestEnvOverrides(t *testing.T) {
	writeConfig(t, sample)
	t.Setenv("BOT_SETTINGS_ENTRY_AMOUNT", "25")
	t.Setenv("DERIV_TOKEN", "secret")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Settings.EntryAmount != 25 {
		t.Fatalf("entry amount %v, want 25", cfg.Settings.EntryAmount)
	}
	if cfg.Deriv.Token != "secret" {
		t.Fatalf("deriv token not taken from env")
	}
}

func TestInvalidSettingsRejected(t *testing.T) {
	writeConfig(t, "settings:\n  entry_amount: -1\n")
	if _, err := NewConfig(); !errors.Is(err, models.ErrConfigurationInvalid) {
		t.Fatalf("expected ErrConfigurationInvalid, got %v", err)
	}
}

func TestUnknownKeyRejected(t *testing.T) {
	writeConfig(t, "settings:\n  entry_amout: 10\n")
	if _, err := NewConfig(); err == nil {
		t.Fatalf("typo in config must fail")
	}
}

func TestMissingFile(t *testing.T) {
	t.Setenv(configDirENV, t.TempDir())
	t.Setenv(configFilePathENV, "nope.yaml")
	if _, err := NewConfig(); err == nil {
		t.Fatalf("expected error")
	}
}
