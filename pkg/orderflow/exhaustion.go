package orderflow

import "math"

// divergenceEpsilon guards the ratio against a flat price trend.
const divergenceEpsilon = 1e-10

// DetectExhaustion looks for divergence between the price trend and the
// cumulative delta trend over the trailing lookback window.
//
// Bearish exhaustion: price making higher highs while delta declines.
// Bullish exhaustion: price making lower lows while delta rises.
// Returns nil when the window is too short or no divergence clears the
// configured threshold.
func (a *Analyzer) DetectExhaustion(cumulativeDelta, closes []float64) *Signal {
	lookback := a.cfg.ExhaustionLookback
	if len(cumulativeDelta) < lookback || len(closes) < lookback {
		return nil
	}

	recentDelta := tailFloats(cumulativeDelta, lookback)
	recentPrice := tailFloats(closes, lookback)

	deltaTrend := recentDelta[len(recentDelta)-1] - recentDelta[0]
	priceTrend := recentPrice[len(recentPrice)-1] - recentPrice[0]

	divergence := math.Abs(deltaTrend) / (math.Abs(priceTrend) + divergenceEpsilon)
	if divergence <= a.cfg.DivergenceThreshold {
		return nil
	}

	confidence := math.Min(0.9, 0.5+divergence*0.4)

	if priceTrend > 0 && deltaTrend < 0 {
		return &Signal{
			Type:            SignalBearish,
			Pattern:         PatternExhaustion,
			Confidence:      confidence,
			Delta:           recentDelta[len(recentDelta)-1],
			CumulativeDelta: cumulativeDelta[len(cumulativeDelta)-1],
			Description:     "BEARISH EXHAUSTION: Price rising but buying pressure fading",
		}
	}
	if priceTrend < 0 && deltaTrend > 0 {
		return &Signal{
			Type:            SignalBullish,
			Pattern:         PatternExhaustion,
			Confidence:      confidence,
			Delta:           recentDelta[len(recentDelta)-1],
			CumulativeDelta: cumulativeDelta[len(cumulativeDelta)-1],
			Description:     "BULLISH EXHAUSTION: Price falling but selling pressure fading",
		}
	}
	return nil
}
