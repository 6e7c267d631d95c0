package profile

import (
	"fmt"

	"github.com/rodrigo-brito/hurst"
	"github.com/your-org/flowdesk/pkg/market"
)

// regimeLookback is the number of trailing bars used for the trend test.
const regimeLookback = 20

// classifyRegime determines the market regime from the trailing closes
// and the value area bounds. Breakout takes precedence over trend.
func (b *Builder) classifyRegime(bars []market.Bar, vah, val float64) Regime {
	if len(bars) < regimeLookback {
		return RegimeRanging
	}

	currentClose := bars[len(bars)-1].Close
	if currentClose > vah*(1+b.cfg.BreakoutBand) || currentClose < val*(1-b.cfg.BreakoutBand) {
		return RegimeBreakout
	}

	recent := market.Closes(market.Tail(bars, regimeLookback))
	firstHalf := meanOf(recent[:regimeLookback/2])
	secondHalf := meanOf(recent[regimeLookback/2:])
	if firstHalf == 0 {
		return RegimeRanging
	}

	trend := (secondHalf - firstHalf) / firstHalf
	switch {
	case trend > b.cfg.TrendBand:
		return RegimeTrendingUp
	case trend < -b.cfg.TrendBand:
		return RegimeTrendingDown
	default:
		return RegimeRanging
	}
}

// TrendPersistence estimates the Hurst exponent of the close series as a
// measure of trend persistence: above 0.5 the series is trending, below
// 0.5 it is mean reverting. Needs at least maxLag closes.
func TrendPersistence(closes []float64, minLag, maxLag int) (float64, error) {
	if len(closes) < maxLag {
		return 0, fmt.Errorf("not enough data for Hurst exponent, got %d, need at least %d", len(closes), maxLag)
	}
	return hurst.Estimate(closes, minLag, maxLag), nil
}
