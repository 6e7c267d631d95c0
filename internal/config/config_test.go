package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "SPY", cfg.Symbol)
	assert.InDelta(t, 0.40, cfg.Risk.OrderFlowWeight, 1e-9)
	assert.InDelta(t, 0.35, cfg.Risk.StructureWeight, 1e-9)
	assert.InDelta(t, 0.25, cfg.Risk.MacroWeight, 1e-9)
	assert.Equal(t, 60, cfg.Backtest.WindowSize)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestValidateWeightSum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Risk.OrderFlowWeight = 0.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregation weights")
}

func TestValidateFieldConstraints(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Risk.MaxPositionSize = 0

	assert.Error(t, cfg.Validate())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Risk, cfg.Risk)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
symbol: QQQ
risk:
  min_confidence: 0.7
backtest:
  window_size: 30
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "QQQ", cfg.Symbol)
	assert.InDelta(t, 0.7, cfg.Risk.MinConfidence, 1e-9)
	assert.Equal(t, 30, cfg.Backtest.WindowSize)
	// Untouched fields keep their defaults.
	assert.InDelta(t, 0.40, cfg.Risk.OrderFlowWeight, 1e-9)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/flowdesk")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres://localhost:5432/flowdesk", cfg.DatabaseURL)
}

func TestLoadConfigBadFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbol: [unclosed"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
risk:
  order_flow_weight: 0.9
`), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregation weights")
}
