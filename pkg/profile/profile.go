// Package profile builds volume profiles from OHLCV bars and derives the
// point of control, value area, volume nodes and market regime.
package profile

import (
	"github.com/your-org/flowdesk/pkg/market"
)

// Regime classifies current price behavior relative to the profile.
type Regime string

const (
	RegimeTrendingUp   Regime = "trending_up"
	RegimeTrendingDown Regime = "trending_down"
	RegimeRanging      Regime = "ranging"
	RegimeBreakout     Regime = "breakout"
)

// Position locates the current close relative to the value area.
type Position string

const (
	PositionAboveVAH Position = "above_vah"
	PositionInValue  Position = "in_value"
	PositionBelowVAL Position = "below_val"
)

// Bucket is a single price level of the profile, keyed by its midpoint.
type Bucket struct {
	Price  float64
	Volume float64
}

// Result holds the complete volume profile analysis of a bar window.
// The invariant VAL <= POC <= VAH always holds, and the bucket volumes
// sum to the window's total volume within floating tolerance.
type Result struct {
	POC      float64
	VAH      float64
	VAL      float64
	HVN      []float64
	LVN      []float64
	Buckets  []Bucket
	Regime   Regime
	Position Position
}

// Config holds the tunable parameters of the builder. All thresholds are
// empirical constants of the methodology, kept configurable on purpose.
type Config struct {
	// Buckets is the number of equal-width price buckets.
	Buckets int
	// ValueAreaFraction is the share of total volume the value area holds.
	ValueAreaFraction float64
	// HVNFactor is the multiple of mean bucket volume above which a local
	// maximum qualifies as a high volume node.
	HVNFactor float64
	// LVNFactor is the fraction of mean bucket volume below which a local
	// minimum qualifies as a low volume node.
	LVNFactor float64
	// TrendBand is the relative close-mean shift beyond which the last 20
	// bars count as trending.
	TrendBand float64
	// BreakoutBand is the relative distance beyond VAH/VAL that counts as
	// a breakout.
	BreakoutBand float64
}

// DefaultConfig returns the standard builder parameters.
func DefaultConfig() Config {
	return Config{
		Buckets:           100,
		ValueAreaFraction: 0.70,
		HVNFactor:         1.5,
		LVNFactor:         0.5,
		TrendBand:         0.005,
		BreakoutBand:      0.005,
	}
}

// Builder constructs volume profiles.
type Builder struct {
	cfg Config
}

// NewBuilder creates a Builder. Zero-valued config fields fall back to
// the defaults.
func NewBuilder(cfg Config) *Builder {
	def := DefaultConfig()
	if cfg.Buckets <= 0 {
		cfg.Buckets = def.Buckets
	}
	if cfg.ValueAreaFraction <= 0 {
		cfg.ValueAreaFraction = def.ValueAreaFraction
	}
	if cfg.HVNFactor <= 0 {
		cfg.HVNFactor = def.HVNFactor
	}
	if cfg.LVNFactor <= 0 {
		cfg.LVNFactor = def.LVNFactor
	}
	if cfg.TrendBand <= 0 {
		cfg.TrendBand = def.TrendBand
	}
	if cfg.BreakoutBand <= 0 {
		cfg.BreakoutBand = def.BreakoutBand
	}
	return &Builder{cfg: cfg}
}

// Build aggregates the window's volume by price level and derives POC,
// value area, volume nodes, regime and position. It returns
// market.ErrNoData for an empty window.
func (b *Builder) Build(bars []market.Bar) (Result, error) {
	if len(bars) == 0 {
		return Result{Regime: RegimeRanging, Position: PositionInValue}, market.ErrNoData
	}

	priceMin := bars[0].Low
	priceMax := bars[0].High
	for _, bar := range bars {
		if bar.Low < priceMin {
			priceMin = bar.Low
		}
		if bar.High > priceMax {
			priceMax = bar.High
		}
	}

	priceRange := priceMax - priceMin
	if priceRange == 0 {
		// All bars at a single price; use 1% of that price as the range.
		priceRange = priceMin * 0.01
	}

	n := b.cfg.Buckets
	bucketSize := priceRange / float64(n)
	volumes := make([]float64, n)

	// Spread each bar's volume evenly across every bucket its low-high
	// range touches. This approximates the intrabar distribution without
	// tick data.
	for _, bar := range bars {
		start := clampBucket(int((bar.Low-priceMin)/bucketSize), n)
		end := clampBucket(int((bar.High-priceMin)/bucketSize), n)
		share := bar.Volume / float64(end-start+1)
		for i := start; i <= end; i++ {
			volumes[i] += share
		}
	}

	pocBucket := argmax(volumes)
	poc := priceMin + float64(pocBucket)*bucketSize + bucketSize/2

	vah, val := b.valueArea(volumes, priceMin, bucketSize)

	buckets := make([]Bucket, n)
	for i := range volumes {
		buckets[i] = Bucket{
			Price:  priceMin + float64(i)*bucketSize + bucketSize/2,
			Volume: volumes[i],
		}
	}

	currentClose := bars[len(bars)-1].Close
	position := PositionInValue
	if currentClose > vah {
		position = PositionAboveVAH
	} else if currentClose < val {
		position = PositionBelowVAL
	}

	return Result{
		POC:      poc,
		VAH:      vah,
		VAL:      val,
		HVN:      b.findHVN(volumes, priceMin, bucketSize),
		LVN:      b.findLVN(volumes, priceMin, bucketSize),
		Buckets:  buckets,
		Regime:   b.classifyRegime(bars, vah, val),
		Position: position,
	}, nil
}

// valueArea expands outward from the POC bucket, always taking the
// adjacent bucket with more volume, until the configured fraction of
// total volume is covered or both boundaries are exhausted.
func (b *Builder) valueArea(volumes []float64, priceMin, bucketSize float64) (vah, val float64) {
	var total float64
	for _, v := range volumes {
		total += v
	}
	target := total * b.cfg.ValueAreaFraction

	pocBucket := argmax(volumes)
	low, high := pocBucket, pocBucket
	accumulated := volumes[pocBucket]

	for accumulated < target {
		volAbove := 0.0
		if high+1 < len(volumes) {
			volAbove = volumes[high+1]
		}
		volBelow := 0.0
		if low-1 >= 0 {
			volBelow = volumes[low-1]
		}

		if volAbove >= volBelow && high+1 < len(volumes) {
			high++
			accumulated += volAbove
		} else if low-1 >= 0 {
			low--
			accumulated += volBelow
		} else {
			break
		}
	}

	val = priceMin + float64(low)*bucketSize
	vah = priceMin + float64(high)*bucketSize + bucketSize
	return vah, val
}

func clampBucket(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

func argmax(vals []float64) int {
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	return best
}
