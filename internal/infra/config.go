package infra

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// HouseConfig describes one auction house partition and its fee policy.
type HouseConfig struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	CutPercent  int64           `yaml:"cut_percent"`  // marketplace share of the sale price
	DepositRate decimal.Decimal `yaml:"deposit_rate"` // listing fee rate on the item's base price
}

// Config holds all application settings. LoadConfig reads the YAML file and
// then applies environment overrides for deployment-specific values.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Market struct {
		// CrossSegmentTrading collapses every segment into the neutral house.
		CrossSegmentTrading bool              `yaml:"cross_segment_trading"`
		NeutralHouse        string            `yaml:"neutral_house"`
		CrossCutPercent     int64             `yaml:"cross_cut_percent"`
		CrossDepositRate    decimal.Decimal   `yaml:"cross_deposit_rate"`
		Houses              []HouseConfig     `yaml:"houses"`
		Segments            map[string]string `yaml:"segments"` // segment id -> house id

		DurationsHours        []int64 `yaml:"durations_hours"` // the 3 listing durations clients may pick
		MaxListingsPerActor   int     `yaml:"max_listings_per_actor"`
		BuyoutGuardSecs       int64   `yaml:"buyout_guard_secs"`
		MailDeliveryDelaySecs int64   `yaml:"mail_delivery_delay_secs"`
		SweepIntervalSecs     int     `yaml:"sweep_interval_secs"`
	} `yaml:"market"`

	// Global rate multipliers applied on top of per-house policy.
	Rates struct {
		Deposit decimal.Decimal `yaml:"deposit"`
		Cut     decimal.Decimal `yaml:"cut"`
		Time    decimal.Decimal `yaml:"time"`
	} `yaml:"rates"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	API struct {
		Addr string `yaml:"addr"`
	} `yaml:"api"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	one := decimal.NewFromInt(1)
	if c.Rates.Deposit.IsZero() {
		c.Rates.Deposit = one
	}
	if c.Rates.Cut.IsZero() {
		c.Rates.Cut = one
	}
	if c.Rates.Time.IsZero() {
		c.Rates.Time = one
	}
	if c.Market.CrossCutPercent == 0 {
		c.Market.CrossCutPercent = 5
	}
	if c.Market.CrossDepositRate.IsZero() {
		c.Market.CrossDepositRate = decimal.RequireFromString("0.15")
	}
	if c.Market.SweepIntervalSecs == 0 {
		c.Market.SweepIntervalSecs = 60
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if len(c.Market.Houses) == 0 {
		return fmt.Errorf("at least one auction house is required")
	}
	if _, ok := c.HouseByID(c.Market.NeutralHouse); !ok {
		return fmt.Errorf("neutral house %q is not a configured house", c.Market.NeutralHouse)
	}
	for _, h := range c.Market.Houses {
		if h.CutPercent < 0 || h.CutPercent > 100 {
			return fmt.Errorf("house %q: cut percent %d out of range", h.ID, h.CutPercent)
		}
		if h.DepositRate.IsNegative() {
			return fmt.Errorf("house %q: negative deposit rate", h.ID)
		}
	}
	for seg, houseID := range c.Market.Segments {
		if _, ok := c.HouseByID(houseID); !ok {
			return fmt.Errorf("segment %q maps to unknown house %q", seg, houseID)
		}
	}
	// Clients understand exactly 3 listing durations.
	if len(c.Market.DurationsHours) != 3 {
		return fmt.Errorf("exactly 3 listing durations are required, got %d", len(c.Market.DurationsHours))
	}
	for i, h := range c.Market.DurationsHours {
		if h <= 0 {
			return fmt.Errorf("listing duration must be positive, got %d", h)
		}
		if i > 0 && h <= c.Market.DurationsHours[i-1] {
			return fmt.Errorf("listing durations must be strictly increasing")
		}
	}
	if c.Market.MaxListingsPerActor <= 0 {
		return fmt.Errorf("max listings per actor must be positive")
	}
	if c.Market.BuyoutGuardSecs < 0 || c.Market.MailDeliveryDelaySecs < 0 {
		return fmt.Errorf("time windows must not be negative")
	}
	return nil
}

// HouseByID returns the configuration of one house.
func (c *Config) HouseByID(id string) (HouseConfig, bool) {
	for _, h := range c.Market.Houses {
		if h.ID == id {
			return h, true
		}
	}
	return HouseConfig{}, false
}

// DurationSeconds converts a requested duration to seconds, rejecting
// anything that is not one of the allowed buckets.
func (c *Config) DurationSeconds(hours int64) (int64, bool) {
	for _, h := range c.Market.DurationsHours {
		if h == hours {
			return h * 3600, true
		}
	}
	return 0, false
}

// MinDurationSeconds is the smallest allowed listing duration, the unit the
// deposit formula scales on.
func (c *Config) MinDurationSeconds() int64 {
	return c.Market.DurationsHours[0] * 3600
}

// overrideWithEnv applies environment variables over file values.
func overrideWithEnv(cfg *Config) {
	if path := os.Getenv("AUCTION_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if addr := os.Getenv("AUCTION_API_ADDR"); addr != "" {
		cfg.API.Addr = addr
	}
	if level := os.Getenv("AUCTION_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
