package backtest

// SideMetrics summarizes one side of a strategy-versus-benchmark
// comparison.
type SideMetrics struct {
	ReturnPct      float64
	MaxDrawdownPct float64
	SharpeRatio    float64
	TotalTrades    int
	WinRate        float64
}

// Comparison contrasts a strategy run with a buy-and-hold benchmark on
// the same bars.
type Comparison struct {
	Strategy     SideMetrics
	BuyAndHold   SideMetrics
	ReturnDiff   float64
	SharpeDiff   float64
	DrawdownDiff float64
}

// CompareBuyAndHold benchmarks the result against holding the asset
// for the whole period with the same initial capital.
func (e *Engine) CompareBuyAndHold(closes []float64, result Result) Comparison {
	if len(closes) < 2 {
		return Comparison{}
	}

	startPrice := closes[0]
	endPrice := closes[len(closes)-1]
	bhReturn := (endPrice - startPrice) / startPrice * 100

	units := e.cfg.InitialCapital / startPrice
	bhEquity := make([]float64, len(closes))
	for i, c := range closes {
		bhEquity[i] = c * units
	}
	_, bhMaxDD := maxDrawdown(bhEquity)
	bhSharpe := sharpe(barReturns(bhEquity))

	bhWinRate := 0.0
	if bhReturn > 0 {
		bhWinRate = 100
	}

	return Comparison{
		Strategy: SideMetrics{
			ReturnPct:      result.TotalReturnPct,
			MaxDrawdownPct: result.MaxDrawdownPct,
			SharpeRatio:    result.SharpeRatio,
			TotalTrades:    result.TotalTrades,
			WinRate:        result.WinRate,
		},
		BuyAndHold: SideMetrics{
			ReturnPct:      bhReturn,
			MaxDrawdownPct: bhMaxDD,
			SharpeRatio:    bhSharpe,
			TotalTrades:    1,
			WinRate:        bhWinRate,
		},
		ReturnDiff:   result.TotalReturnPct - bhReturn,
		SharpeDiff:   result.SharpeRatio - bhSharpe,
		DrawdownDiff: bhMaxDD - result.MaxDrawdownPct,
	}
}
