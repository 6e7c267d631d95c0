package config

import (
	"github.com/your-org/flowdesk/pkg/orderflow"
	"github.com/your-org/flowdesk/pkg/profile"
)

// Analyzer converts the config section into the order flow analyzer's
// own config type. The history length is fixed; it only affects how
// much context is reported, not the signal itself.
func (c OrderFlowConfig) Analyzer() orderflow.Config {
	return orderflow.Config{
		WeakSigma:           c.WeakSigma,
		StrongSigma:         c.StrongSigma,
		ExhaustionLookback:  c.ExhaustionLookback,
		DivergenceThreshold: c.DivergenceThreshold,
	}
}

// Builder converts the config section into the profile builder's own
// config type.
func (c ProfileConfig) Builder() profile.Config {
	return profile.Config{
		Buckets:           c.Buckets,
		ValueAreaFraction: c.ValueAreaFraction,
		HVNFactor:         c.HVNFactor,
		LVNFactor:         c.LVNFactor,
		TrendBand:         c.TrendBand,
		BreakoutBand:      c.BreakoutBand,
	}
}
