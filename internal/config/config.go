// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Feed describes the market data source the engine subscribes to.
type Feed struct {
	Provider        string   `yaml:"provider"`
	Symbols         []string `yaml:"symbols"`
	PollInterval    int      `yaml:"poll_interval_ms"`
	SettlementAsset string   `yaml:"settlement_asset"`
	ReferenceSymbol string   `yaml:"reference_symbol"`
}

// Trading groups the knobs shared by the live engine and the backtest:
// buy-order lifetime, the reference-asset panic filter, and the
// balance-simulation inputs.
type Trading struct {
	BuyOrderLifetimeHours int      `yaml:"buy_order_lifetime_hours"`
	PanicDailyChange      float64  `yaml:"panic_daily_change"`
	ExcludedSymbols       []string `yaml:"excluded_symbols"`
	StartingCapital       float64  `yaml:"starting_capital"`
	SizePerTrade          float64  `yaml:"size_per_trade"`
	WindowDays            int      `yaml:"window_days"`
}

// Storage locates the JSON state files and sets the autosave cadence.
type Storage struct {
	Dir              string `yaml:"dir"`
	SaveIntervalSecs int    `yaml:"save_interval_secs"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App     App     `yaml:"app"`
	Feed    Feed    `yaml:"feed"`
	Trading Trading `yaml:"trading"`
	Storage Storage `yaml:"storage"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyDefaults()
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Feed.SettlementAsset == "" {
		c.Feed.SettlementAsset = "USDT"
	}
	if c.Feed.ReferenceSymbol == "" {
		c.Feed.ReferenceSymbol = "BTCUSDT"
	}
	if c.Trading.BuyOrderLifetimeHours <= 0 {
		c.Trading.BuyOrderLifetimeHours = 24
	}
	if c.Trading.PanicDailyChange == 0 {
		c.Trading.PanicDailyChange = -7
	}
	if c.Trading.StartingCapital <= 0 {
		c.Trading.StartingCapital = 1000
	}
	if c.Trading.SizePerTrade <= 0 {
		c.Trading.SizePerTrade = 0.5
	}
	if c.Trading.WindowDays <= 0 {
		c.Trading.WindowDays = 30
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "data"
	}
	if c.Storage.SaveIntervalSecs <= 0 {
		c.Storage.SaveIntervalSecs = 60
	}
}
