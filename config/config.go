package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/xlubecx/mmbot/market"
	"gopkg.in/yaml.v3"
)

// Config represents the complete bot configuration
type Config struct {
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Market   MarketConfig   `json:"market" yaml:"market"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
}

// StrategyConfig contains the leveraged strategy parameters
type StrategyConfig struct {
	Calculus        string  `json:"calculus" yaml:"calculus"` // "hyperbolic" or "linear"
	Asymmetry       float64 `json:"asymmetry" yaml:"asymmetry"`
	ExternalBalance float64 `json:"external_balance" yaml:"external_balance"`
	Power           float64 `json:"power" yaml:"power"`
	Reduction       float64 `json:"reduction" yaml:"reduction"`
	DynReduction    float64 `json:"dyn_reduction" yaml:"dyn_reduction"`
	DetectTrend     bool    `json:"detect_trend" yaml:"detect_trend"`
	MaxLoss         float64 `json:"max_loss" yaml:"max_loss"`
}

// MarketConfig selects a preset pair and lets single fields override it
type MarketConfig struct {
	Preset string       `json:"preset,omitempty" yaml:"preset,omitempty"`
	Info   *market.Info `json:"info,omitempty" yaml:"info,omitempty"`
}

// Resolve returns the market description, with Info taking precedence over
// the preset.
func (m MarketConfig) Resolve() (market.Info, error) {
	if m.Info != nil {
		return *m.Info, nil
	}
	if m.Preset == "" {
		return market.Info{}, nil
	}
	info, ok := market.Presets[m.Preset]
	if !ok {
		return market.Info{}, fmt.Errorf("unknown market preset: %s", m.Preset)
	}
	return info, nil
}

// BacktestConfig contains backtest driver parameters
type BacktestConfig struct {
	InitPos    float64 `json:"init_pos" yaml:"init_pos"`
	Balance    float64 `json:"balance" yaml:"balance"`
	BuyMult    float64 `json:"buy_mult" yaml:"buy_mult"`
	SellMult   float64 `json:"sell_mult" yaml:"sell_mult"`
	MinSize    float64 `json:"min_size" yaml:"min_size"`
	DustOrders bool    `json:"dust_orders" yaml:"dust_orders"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv" or "sqlite"
	LedgerFile string `json:"ledger_file,omitempty" yaml:"ledger_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Strategy.Calculus)) {
	case "hyperbolic", "linear":
	default:
		return fmt.Errorf("strategy.calculus must be 'hyperbolic' or 'linear'")
	}
	if !positive(c.Strategy.Power) {
		return fmt.Errorf("strategy.power must be positive")
	}
	if math.IsNaN(c.Strategy.Asymmetry) || math.IsInf(c.Strategy.Asymmetry, 0) {
		return fmt.Errorf("strategy.asymmetry must be finite")
	}
	if c.Strategy.Reduction < 0 || c.Strategy.DynReduction < 0 {
		return fmt.Errorf("strategy.reduction and strategy.dyn_reduction must not be negative")
	}
	if c.Strategy.MaxLoss < 0 {
		return fmt.Errorf("strategy.max_loss must not be negative")
	}
	if c.Strategy.ExternalBalance < 0 {
		return fmt.Errorf("strategy.external_balance must not be negative")
	}
	if _, err := c.Market.Resolve(); err != nil {
		return err
	}
	if c.Backtest.Balance < 0 {
		return fmt.Errorf("backtest.balance must not be negative")
	}
	if !positive(c.Backtest.BuyMult) || !positive(c.Backtest.SellMult) {
		return fmt.Errorf("backtest.buy_mult and backtest.sell_mult must be positive")
	}
	if c.Backtest.MinSize < 0 {
		return fmt.Errorf("backtest.min_size must not be negative")
	}
	if c.Journal.Type != "csv" && c.Journal.Type != "sqlite" {
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	if c.Journal.Type == "csv" && c.Journal.LedgerFile == "" {
		return fmt.Errorf("journal ledger_file required for CSV type")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal db_path required for SQLite type")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Strategy: StrategyConfig{
			Calculus:  "hyperbolic",
			Power:     1,
			Reduction: 0.25,
		},
		Market: MarketConfig{
			Preset: "BTC_USD_PERP",
		},
		Backtest: BacktestConfig{
			Balance:  1000,
			BuyMult:  1,
			SellMult: 1,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./mmbot.sqlite",
		},
	}
}
