package profile

import (
	"math"

	"github.com/your-org/flowdesk/pkg/market"
)

// retestLookback is the number of trailing bars scanned for the pattern.
const retestLookback = 20

// Retest describes a detected break-and-retest pattern at a key level.
type Retest struct {
	Level      float64
	Direction  string // "up" or "down"
	Signal     string // "bullish" or "bearish"
	Confidence float64
}

// DetectBreakAndRetest scans the trailing bars for a close breaking the
// key level by more than tolerance, followed later by a close returning
// within tolerance of the level. Returns nil when no such sequence exists
// or the window is shorter than 10 bars.
func DetectBreakAndRetest(bars []market.Bar, keyLevel, tolerance float64) *Retest {
	if len(bars) < 10 || keyLevel <= 0 {
		return nil
	}

	recent := market.Tail(bars, retestLookback)

	// Where price sat relative to the level before the move.
	head := recent
	if len(head) > 5 {
		head = head[:5]
	}
	wasAbove := meanOf(market.Closes(head)) > keyLevel

	broke := false
	direction := ""
	retested := false

	for _, bar := range recent {
		if !broke {
			if wasAbove && bar.Close < keyLevel*(1-tolerance) {
				broke = true
				direction = "down"
				continue
			}
			if !wasAbove && bar.Close > keyLevel*(1+tolerance) {
				broke = true
				direction = "up"
				continue
			}
		}
		if broke && math.Abs(bar.Close-keyLevel)/keyLevel < tolerance {
			retested = true
		}
	}

	if !broke || !retested {
		return nil
	}

	signal := "bearish"
	if direction == "up" {
		signal = "bullish"
	}
	return &Retest{
		Level:      keyLevel,
		Direction:  direction,
		Signal:     signal,
		Confidence: 0.75,
	}
}
