package agent

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/your-org/flowdesk/pkg/logger"
	"github.com/your-org/flowdesk/pkg/market"
	"github.com/your-org/flowdesk/pkg/profile"
)

const chartistName = "chartist"

const (
	// Hurst exponent lags for the persistence check on HTF closes.
	persistenceMinLag = 2
	persistenceMaxLag = 20

	// Relative tolerance for the break-and-retest scan at the HTF POC.
	pocRetestTolerance = 0.01
)

// Chartist analyzes market structure through volume profiles on three
// timeframes. The high timeframe sets direction, the medium timeframe
// confirms it, and the short timeframe locates price within value.
type Chartist struct {
	builder *profile.Builder
	log     logger.Logger
}

// NewChartist creates a chartist with the given profile config.
func NewChartist(cfg profile.Config, log logger.Logger) *Chartist {
	return &Chartist{
		builder: profile.NewBuilder(cfg),
		log:     log,
	}
}

func (c *Chartist) Name() string { return chartistName }

// Analyze builds per-timeframe profiles from the snapshot and derives
// the trading context. HTF bars are required; MTF and STF degrade
// gracefully when absent.
func (c *Chartist) Analyze(_ context.Context, snap Snapshot) Signal {
	htfBars := snap.HTFBars
	if len(htfBars) == 0 {
		htfBars = snap.Bars
	}
	htf, err := c.builder.Build(htfBars)
	if err != nil {
		return Signal{
			Source:         chartistName,
			Status:         StatusError,
			Reason:         "no high timeframe data available",
			Direction:      DirectionNeutral,
			TradingAllowed: true,
		}
	}

	var mtf, stf *profile.Result
	if len(snap.MTFBars) > 0 {
		if res, err := c.builder.Build(snap.MTFBars); err == nil {
			mtf = &res
		}
	}
	if len(snap.Bars) > 0 {
		if res, err := c.builder.Build(snap.Bars); err == nil {
			stf = &res
		}
	}

	currentPrice := lastClose(snap.Bars)
	if currentPrice == 0 {
		currentPrice = lastClose(htfBars)
	}

	direction, strength := timeframeContext(htf, mtf)
	if htf.Regime == profile.RegimeTrendingUp || htf.Regime == profile.RegimeTrendingDown {
		if h, err := profile.TrendPersistence(market.Closes(htfBars), persistenceMinLag, persistenceMaxLag); err == nil {
			strength = persistenceAdjust(strength, h)
		}
	}

	description := contextDescription(htf, currentPrice)
	if retest := profile.DetectBreakAndRetest(htfBars, htf.POC, pocRetestTolerance); retest != nil {
		direction, strength = foldRetest(direction, strength, retest)
		description += fmt.Sprintf(" Break and retest at HTF POC (%.2f): %s.", retest.Level, retest.Signal)
	}

	position := htf.Position
	if stf != nil {
		position = stf.Position
	}

	sig := Signal{
		Source:         chartistName,
		Status:         StatusOK,
		Direction:      direction,
		Confidence:     strength,
		TradingAllowed: true,
		CurrentPrice:   currentPrice,
		KeyLevels:      keyLevels(htf, mtf),
		Action:         chartAction(direction, strength),
		Description:    description,
	}
	c.log.Debugf("chartist: direction=%s strength=%.2f regime=%s position=%s",
		direction, strength, htf.Regime, position)
	return sig
}

// timeframeContext derives direction and strength from the HTF regime,
// adjusted by MTF alignment.
func timeframeContext(htf profile.Result, mtf *profile.Result) (Direction, float64) {
	var direction Direction
	var strength float64

	switch htf.Regime {
	case profile.RegimeTrendingUp:
		direction, strength = DirectionBullish, 0.7
	case profile.RegimeTrendingDown:
		direction, strength = DirectionBearish, 0.7
	case profile.RegimeBreakout:
		if htf.Position == profile.PositionAboveVAH {
			direction, strength = DirectionBullishBreakout, 0.85
		} else {
			direction, strength = DirectionBearishBreakout, 0.85
		}
	default:
		direction, strength = DirectionNeutral, 0.5
	}

	if mtf == nil {
		return direction, strength
	}
	switch {
	case mtf.Regime == htf.Regime:
		// Aligned timeframes reinforce the signal.
		strength = strength + 0.15
		if strength > 1.0 {
			strength = 1.0
		}
	case htf.Regime == profile.RegimeRanging && mtf.Regime == profile.RegimeTrendingUp:
		direction, strength = DirectionBullish, 0.55
	case htf.Regime == profile.RegimeRanging && mtf.Regime == profile.RegimeTrendingDown:
		direction, strength = DirectionBearish, 0.55
	}
	return direction, strength
}

// persistenceAdjust nudges trend strength by the Hurst exponent of the
// HTF closes. A persistent series reinforces the trend reading, a mean
// reverting one dampens it.
func persistenceAdjust(strength, h float64) float64 {
	switch {
	case h > 0.55:
		strength += 0.05
	case h < 0.45:
		strength -= 0.05
	}
	return math.Min(1.0, math.Max(0.0, strength))
}

// foldRetest merges a break-and-retest at the HTF POC into the derived
// context. A retest resolves a neutral read and reinforces an agreeing
// trend; a disagreeing one leaves the trend reading alone.
func foldRetest(direction Direction, strength float64, r *profile.Retest) (Direction, float64) {
	bullish := r.Signal == "bullish"
	switch direction {
	case DirectionNeutral:
		if bullish {
			return DirectionBullish, r.Confidence
		}
		return DirectionBearish, r.Confidence
	case DirectionBullish, DirectionBullishBreakout:
		if bullish {
			strength = math.Min(1.0, strength+0.05)
		}
	case DirectionBearish, DirectionBearishBreakout:
		if !bullish {
			strength = math.Min(1.0, strength+0.05)
		}
	}
	return direction, strength
}

// keyLevels collects structural levels, HTF first, ordered by
// importance then price. Only the three strongest HTF volume nodes are
// published.
func keyLevels(htf profile.Result, mtf *profile.Result) []Level {
	levels := []Level{
		{Price: htf.POC, Kind: "poc", Timeframe: "htf", Importance: "high"},
		{Price: htf.VAH, Kind: "vah", Timeframe: "htf", Importance: "high"},
		{Price: htf.VAL, Kind: "val", Timeframe: "htf", Importance: "high"},
	}
	for i, hvn := range htf.HVN {
		if i >= 3 {
			break
		}
		levels = append(levels, Level{Price: hvn, Kind: "hvn", Timeframe: "htf", Importance: "medium"})
	}
	if mtf != nil {
		levels = append(levels, Level{Price: mtf.POC, Kind: "poc", Timeframe: "mtf", Importance: "medium"})
	}
	sort.SliceStable(levels, func(i, j int) bool {
		if levels[i].Importance != levels[j].Importance {
			return levels[i].Importance == "high"
		}
		return levels[i].Price < levels[j].Price
	})
	return levels
}

func contextDescription(htf profile.Result, currentPrice float64) string {
	regime := strings.ReplaceAll(string(htf.Regime), "_", " ")
	switch {
	case htf.POC == 0:
		return fmt.Sprintf("%s market on HTF. POC not available.", regime)
	case currentPrice > htf.POC*1.01:
		return fmt.Sprintf("%s market on HTF. Price is above HTF POC (%.2f).", regime, htf.POC)
	case currentPrice < htf.POC*0.99:
		return fmt.Sprintf("%s market on HTF. Price is below HTF POC (%.2f).", regime, htf.POC)
	default:
		return fmt.Sprintf("%s market on HTF. Price is near HTF POC (%.2f).", regime, htf.POC)
	}
}

func chartAction(direction Direction, strength float64) string {
	if strength < 0.6 {
		return "wait_for_clarity"
	}
	switch direction {
	case DirectionBullish, DirectionBullishBreakout:
		return "look_for_longs"
	case DirectionBearish, DirectionBearishBreakout:
		return "look_for_shorts"
	}
	return "wait_for_clarity"
}

func lastClose(bars []market.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	return bars[len(bars)-1].Close
}
