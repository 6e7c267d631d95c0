package orderflow

import (
	"math"

	"github.com/your-org/flowdesk/pkg/market"
)

// DeltaStrength classifies the magnitude of a bar's estimated delta
// relative to the window's delta distribution.
type DeltaStrength string

const (
	StrengthWeak     DeltaStrength = "weak"
	StrengthModerate DeltaStrength = "moderate"
	StrengthStrong   DeltaStrength = "strong"
)

// DeltaEstimate holds the per-bar delta derived from candle structure.
type DeltaEstimate struct {
	Delta      float64
	Cumulative float64
	Strength   DeltaStrength
}

// EstimateDelta infers per-bar buying/selling pressure from candle
// structure: a strong close relative to the bar range is attributed to
// the closing side. This is an approximation used when tick data is not
// available. Cumulative is the running sum over the window's lifetime
// and always matches a full recompute.
func (a *Analyzer) EstimateDelta(bars []market.Bar) []DeltaEstimate {
	estimates := make([]DeltaEstimate, len(bars))

	cumulative := 0.0
	for i, b := range bars {
		r := b.Range()
		if r == 0 {
			// Flat bar; treat the range as 1 so the body ratio stays defined.
			r = 1
		}
		delta := (b.Body() / r) * b.Volume
		cumulative += delta
		estimates[i] = DeltaEstimate{Delta: delta, Cumulative: cumulative}
	}

	sigma := sampleStdDev(deltasOf(estimates))
	for i := range estimates {
		estimates[i].Strength = a.classifyStrength(estimates[i].Delta, sigma)
	}
	return estimates
}

func (a *Analyzer) classifyStrength(delta, sigma float64) DeltaStrength {
	if sigma == 0 {
		// Degenerate distribution, e.g. identical bars.
		return StrengthModerate
	}
	abs := math.Abs(delta)
	switch {
	case abs < a.cfg.WeakSigma*sigma:
		return StrengthWeak
	case abs <= a.cfg.StrongSigma*sigma:
		return StrengthModerate
	default:
		return StrengthStrong
	}
}

// sampleStdDev returns the sample (n-1) standard deviation.
func sampleStdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))

	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}
