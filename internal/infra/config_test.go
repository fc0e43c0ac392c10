package infra

import (
	"os"
	"path/filepath"
	"testing"
)

const testConfigYAML = `
app:
  name: auction-test
  version: 0.0.1
market:
  cross_segment_trading: false
  neutral_house: neutral
  houses:
    - id: alliance
      name: Alliance Auction House
      cut_percent: 5
      deposit_rate: "0.15"
    - id: syndicate
      name: Syndicate Auction House
      cut_percent: 5
      deposit_rate: "0.15"
    - id: neutral
      name: Neutral Auction House
      cut_percent: 15
      deposit_rate: "0.75"
  segments:
    westhold: alliance
    ironreach: syndicate
    freeport: neutral
  durations_hours: [12, 24, 48]
  max_listings_per_actor: 50
  buyout_guard_secs: 60
  mail_delivery_delay_secs: 3600
storage:
  path: test.db
logging:
  level: debug
`

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeTestConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.App.Name != "auction-test" {
		t.Errorf("expected app name auction-test, got %s", cfg.App.Name)
	}
	if len(cfg.Market.Houses) != 3 {
		t.Fatalf("expected 3 houses, got %d", len(cfg.Market.Houses))
	}
	h, ok := cfg.HouseByID("neutral")
	if !ok || h.CutPercent != 15 {
		t.Errorf("neutral house not loaded correctly: %+v", h)
	}

	// defaults
	if !cfg.Rates.Deposit.Equal(cfg.Rates.Cut) || cfg.Rates.Deposit.IntPart() != 1 {
		t.Errorf("rates should default to 1, got %v / %v", cfg.Rates.Deposit, cfg.Rates.Cut)
	}
	if cfg.Market.SweepIntervalSecs != 60 {
		t.Errorf("sweep interval should default to 60, got %d", cfg.Market.SweepIntervalSecs)
	}
}

func TestConfig_DurationSeconds(t *testing.T) {
	cfg, err := LoadConfig(writeTestConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if secs, ok := cfg.DurationSeconds(24); !ok || secs != 24*3600 {
		t.Errorf("24h bucket: got %d, %v", secs, ok)
	}
	if _, ok := cfg.DurationSeconds(13); ok {
		t.Error("13h is not an allowed duration")
	}
	if _, ok := cfg.DurationSeconds(0); ok {
		t.Error("zero duration must be rejected")
	}
	if cfg.MinDurationSeconds() != 12*3600 {
		t.Errorf("minimum duration unit should be 12h, got %d", cfg.MinDurationSeconds())
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("AUCTION_DB_PATH", "/tmp/override.db")

	cfg, err := LoadConfig(writeTestConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Storage.Path != "/tmp/override.db" {
		t.Errorf("env override not applied, got %s", cfg.Storage.Path)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown neutral house", func(c *Config) { c.Market.NeutralHouse = "nowhere" }},
		{"segment to unknown house", func(c *Config) { c.Market.Segments["x"] = "nowhere" }},
		{"wrong duration count", func(c *Config) { c.Market.DurationsHours = []int64{12, 24} }},
		{"non-increasing durations", func(c *Config) { c.Market.DurationsHours = []int64{12, 12, 48} }},
		{"zero max listings", func(c *Config) { c.Market.MaxListingsPerActor = 0 }},
		{"negative guard window", func(c *Config) { c.Market.BuyoutGuardSecs = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeTestConfig(t, testConfigYAML))
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
