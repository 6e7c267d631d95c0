package orderflow

// EffortVsResult interprets the relationship between delta (effort) and
// the candle direction (result) for a single bar.
//
// Absorption is effort not matching result: strong one-sided delta that
// fails to move price its way means the opposing side is absorbing the
// flow. Continuation is effort confirmed by result.
func (a *Analyzer) EffortVsResult(delta float64, bullishCandle bool, strength DeltaStrength) Signal {
	bullishDelta := delta > 0
	bearishDelta := delta < 0
	strong := strength == StrengthStrong

	switch {
	case bearishDelta && bullishCandle && strong:
		return Signal{
			Type:        SignalBullish,
			Pattern:     PatternAbsorption,
			Confidence:  0.85,
			Delta:       delta,
			Description: "BULLISH: Strong seller absorption - buyers absorbing all sell orders",
		}
	case bullishDelta && !bullishCandle && strong:
		return Signal{
			Type:        SignalBearish,
			Pattern:     PatternAbsorption,
			Confidence:  0.85,
			Delta:       delta,
			Description: "BEARISH: Strong buyer absorption - sellers absorbing all buy orders",
		}
	case bullishDelta && bullishCandle:
		return Signal{
			Type:        SignalBullish,
			Pattern:     PatternContinuation,
			Confidence:  0.65,
			Delta:       delta,
			Description: "BULLISH CONTINUATION: Buying pressure confirmed by price",
		}
	case bearishDelta && !bullishCandle:
		return Signal{
			Type:        SignalBearish,
			Pattern:     PatternContinuation,
			Confidence:  0.65,
			Delta:       delta,
			Description: "BEARISH CONTINUATION: Selling pressure confirmed by price",
		}
	default:
		return neutralSignal(delta, 0)
	}
}
