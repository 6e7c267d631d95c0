package decision

import "math"

// PositionSize describes how large a position to take.
type PositionSize struct {
	Units           float64
	Value           float64
	Pct             float64
	RiskAmount      float64
	StopDistancePct float64
}

// positionSize computes risk-based sizing: the capital at risk scales
// with confidence, and the resulting position value is capped at the
// configured fraction of equity.
func (e *Engine) positionSize(entry, stop, confidence float64) PositionSize {
	equity := e.cfg.Equity
	riskAmount := equity * e.cfg.RiskPerTrade * confidence

	stopDistance := math.Abs(entry - stop)
	if stopDistance == 0 {
		// Floor the stop at 1% of entry so sizing never divides by
		// zero.
		stopDistance = entry * 0.01
	}

	units := riskAmount / stopDistance
	value := units * entry
	pct := value / equity

	if pct > e.cfg.MaxPositionSize {
		pct = e.cfg.MaxPositionSize
		value = equity * pct
		units = value / entry
	}

	return PositionSize{
		Units:           units,
		Value:           value,
		Pct:             pct,
		RiskAmount:      riskAmount,
		StopDistancePct: stopDistance / entry * 100,
	}
}

// KellySize returns the fraction of equity to allocate per the Kelly
// criterion, scaled down by the configured fraction and capped at the
// max position size. Degenerate inputs yield zero.
func (e *Engine) KellySize(winRate, avgWin, avgLoss float64) float64 {
	if avgLoss == 0 || winRate <= 0 || winRate >= 1 {
		return 0
	}
	r := avgWin / avgLoss
	kelly := winRate - (1-winRate)/r
	scaled := kelly * e.cfg.KellyFraction
	if scaled < 0 {
		return 0
	}
	return math.Min(scaled, e.cfg.MaxPositionSize)
}
