// Package config handles application configuration.
package config

import (
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config defines the structure for all application configuration. Every
// recognized option is an explicit field with a default; nothing is read
// ad hoc at use sites.
type Config struct {
	Symbol      string          `yaml:"symbol" validate:"required"`
	Risk        RiskConfig      `yaml:"risk"`
	OrderFlow   OrderFlowConfig `yaml:"order_flow"`
	Profile     ProfileConfig   `yaml:"profile"`
	Macro       MacroConfig     `yaml:"macro"`
	Crew        CrewConfig      `yaml:"crew"`
	Backtest    BacktestConfig  `yaml:"backtest"`
	LogLevel    string          `yaml:"-"` // Loaded from env
	DatabaseURL string          `yaml:"-"` // Loaded from env; empty disables persistence
}

// RiskConfig holds the decision engine's aggregation weights and risk
// limits.
type RiskConfig struct {
	OrderFlowWeight float64 `yaml:"order_flow_weight" validate:"gte=0,lte=1"`
	StructureWeight float64 `yaml:"structure_weight" validate:"gte=0,lte=1"`
	MacroWeight     float64 `yaml:"macro_weight" validate:"gte=0,lte=1"`
	MinConfidence   float64 `yaml:"min_confidence" validate:"gte=0,lte=1"`
	MaxPositionSize float64 `yaml:"max_position_size" validate:"gt=0,lte=1"`
	RiskPerTrade    float64 `yaml:"risk_per_trade" validate:"gt=0,lte=1"`
	KellyFraction   float64 `yaml:"kelly_fraction" validate:"gt=0,lte=1"`
	MaxCorrelation  float64 `yaml:"max_correlation" validate:"gte=0,lte=1"`
	Equity          float64 `yaml:"equity" validate:"gt=0"`
}

// OrderFlowConfig holds the order flow analyzer thresholds.
type OrderFlowConfig struct {
	WeakSigma           float64 `yaml:"weak_sigma" validate:"gt=0"`
	StrongSigma         float64 `yaml:"strong_sigma" validate:"gt=0"`
	ExhaustionLookback  int     `yaml:"exhaustion_lookback" validate:"gt=0"`
	DivergenceThreshold float64 `yaml:"divergence_threshold" validate:"gt=0"`
}

// ProfileConfig holds the volume profile builder parameters.
type ProfileConfig struct {
	Buckets           int     `yaml:"buckets" validate:"gt=1"`
	ValueAreaFraction float64 `yaml:"value_area_fraction" validate:"gt=0,lte=1"`
	HVNFactor         float64 `yaml:"hvn_factor" validate:"gt=0"`
	LVNFactor         float64 `yaml:"lvn_factor" validate:"gt=0"`
	TrendBand         float64 `yaml:"trend_band" validate:"gt=0"`
	BreakoutBand      float64 `yaml:"breakout_band" validate:"gt=0"`
}

// MacroConfig holds the macro signal source settings.
type MacroConfig struct {
	// EventBufferMinutes is the no-trade window around high-impact events.
	EventBufferMinutes int `yaml:"event_buffer_minutes" validate:"gte=0"`
}

// CrewConfig holds orchestration settings for the parallel fan-out.
type CrewConfig struct {
	// AnalysisTimeoutMs bounds the whole fan-out; sources that miss it
	// degrade to neutral.
	AnalysisTimeoutMs int `yaml:"analysis_timeout_ms" validate:"gt=0"`
}

// BacktestConfig holds the simulator settings.
type BacktestConfig struct {
	InitialCapital float64 `yaml:"initial_capital" validate:"gt=0"`
	Commission     float64 `yaml:"commission" validate:"gte=0,lt=1"`
	Slippage       float64 `yaml:"slippage" validate:"gte=0,lt=1"`
	RiskPerTrade   float64 `yaml:"risk_per_trade" validate:"gt=0,lte=1"`
	WindowSize     int     `yaml:"window_size" validate:"gt=0"`
}

// DefaultConfig returns the configuration with every option at its
// documented default.
func DefaultConfig() *Config {
	return &Config{
		Symbol: "SPY",
		Risk: RiskConfig{
			OrderFlowWeight: 0.40,
			StructureWeight: 0.35,
			MacroWeight:     0.25,
			MinConfidence:   0.6,
			MaxPositionSize: 0.10,
			RiskPerTrade:    0.02,
			KellyFraction:   0.25,
			MaxCorrelation:  0.85,
			Equity:          100000,
		},
		OrderFlow: OrderFlowConfig{
			WeakSigma:           0.5,
			StrongSigma:         1.5,
			ExhaustionLookback:  10,
			DivergenceThreshold: 0.5,
		},
		Profile: ProfileConfig{
			Buckets:           100,
			ValueAreaFraction: 0.70,
			HVNFactor:         1.5,
			LVNFactor:         0.5,
			TrendBand:         0.005,
			BreakoutBand:      0.005,
		},
		Macro: MacroConfig{
			EventBufferMinutes: 30,
		},
		Crew: CrewConfig{
			AnalysisTimeoutMs: 5000,
		},
		Backtest: BacktestConfig{
			InitialCapital: 100000,
			Commission:     0.001,
			Slippage:       0.0005,
			RiskPerTrade:   0.02,
			WindowSize:     60,
		},
		LogLevel: "info",
	}
}

// LoadConfig loads configuration from the specified YAML file path and
// environment variables. An empty path yields the defaults. The result
// is validated before it is returned.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Overrides from environment variables.
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints plus the cross-field invariant that
// the three aggregation weights sum to 1.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	weightSum := c.Risk.OrderFlowWeight + c.Risk.StructureWeight + c.Risk.MacroWeight
	if math.Abs(weightSum-1.0) > 1e-9 {
		return fmt.Errorf("invalid configuration: aggregation weights sum to %.4f, want 1.0", weightSum)
	}
	return nil
}
