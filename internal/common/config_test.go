package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_DefaultPort(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port default = %d, want %d", cfg.Server.Port, 8080)
	}
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("TRADESIM_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want %d", cfg.Server.Port, 9090)
	}
}

func TestConfig_TradingDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Trading.FeeRate != 0.001 {
		t.Errorf("Trading.FeeRate default = %v, want 0.001", cfg.Trading.FeeRate)
	}
	if cfg.Trading.MaxOrderQuantity != 10000 {
		t.Errorf("Trading.MaxOrderQuantity default = %d, want 10000", cfg.Trading.MaxOrderQuantity)
	}
	if cfg.Trading.StartingBalance != 100000 {
		t.Errorf("Trading.StartingBalance default = %v, want 100000", cfg.Trading.StartingBalance)
	}
}

func TestConfig_FeedDurations(t *testing.T) {
	cfg := NewDefaultConfig()
	if got := cfg.Feed.GetPollInterval(); got != 5*time.Second {
		t.Errorf("GetPollInterval() = %v, want 5s", got)
	}
	if got := cfg.Feed.GetStalenessThreshold(); got != 2*time.Minute {
		t.Errorf("GetStalenessThreshold() = %v, want 2m", got)
	}

	// Invalid duration strings fall back to defaults
	cfg.Feed.PollInterval = "bogus"
	if got := cfg.Feed.GetPollInterval(); got != 5*time.Second {
		t.Errorf("GetPollInterval() with invalid input = %v, want 5s fallback", got)
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tradesim.toml")
	content := `
environment = "production"

[server]
port = 7070

[trading]
fee_rate = 0.002
starting_balance = 50000.0

[feed]
poll_interval = "10s"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Trading.FeeRate != 0.002 {
		t.Errorf("Trading.FeeRate = %v, want 0.002", cfg.Trading.FeeRate)
	}
	if cfg.Trading.StartingBalance != 50000 {
		t.Errorf("Trading.StartingBalance = %v, want 50000", cfg.Trading.StartingBalance)
	}
	if got := cfg.Feed.GetPollInterval(); got != 10*time.Second {
		t.Errorf("GetPollInterval() = %v, want 10s", got)
	}
	// Untouched sections keep defaults
	if cfg.Trading.MaxOrderQuantity != 10000 {
		t.Errorf("Trading.MaxOrderQuantity = %d, want default 10000", cfg.Trading.MaxOrderQuantity)
	}
}

func TestLoadConfig_MissingFileSkipped(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/tradesim.toml")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil for missing file", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("FINNHUB_API_KEY", "env-key")
	if got := ResolveAPIKey("finnhub_api_key", "config-key"); got != "env-key" {
		t.Errorf("ResolveAPIKey() = %q, want env-key", got)
	}
	if got := ResolveAPIKey("twelvedata_api_key", "config-key"); got != "config-key" {
		t.Errorf("ResolveAPIKey() fallback = %q, want config-key", got)
	}
}

func TestIsFresh(t *testing.T) {
	if IsFresh(time.Time{}, time.Hour) {
		t.Error("IsFresh(zero) = true, want false")
	}
	if !IsFresh(time.Now().Add(-time.Minute), time.Hour) {
		t.Error("IsFresh(1m ago, 1h ttl) = false, want true")
	}
	if IsFresh(time.Now().Add(-2*time.Hour), time.Hour) {
		t.Error("IsFresh(2h ago, 1h ttl) = true, want false")
	}
}
