package backtest

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// tradingDaysPerYear annualizes per-bar return statistics.
const tradingDaysPerYear = 252

// results computes the performance metrics for the finished run.
func (e *Engine) results(symbol string, start, end time.Time) Result {
	initial := decimal.NewFromFloat(e.cfg.InitialCapital)
	final := decimal.NewFromFloat(e.equity[len(e.equity)-1])
	totalReturn := final.Sub(initial)

	res := Result{
		Symbol:         symbol,
		Start:          start,
		End:            end,
		InitialCapital: initial,
		FinalCapital:   final,
		TotalReturn:    totalReturn,
		TotalReturnPct: totalReturn.Div(initial).InexactFloat64() * 100,
		TotalTrades:    len(e.trades),
		EquityCurve:    e.equity,
		Trades:         e.trades,
	}
	if len(e.trades) == 0 {
		return res
	}

	var winCount, lossCount int
	var winSum, lossSum float64
	for _, t := range e.trades {
		pnl := t.PnL.InexactFloat64()
		if pnl > 0 {
			winCount++
			winSum += pnl
		} else {
			lossCount++
			lossSum += -pnl
		}
	}
	res.WinningTrades = winCount
	res.LosingTrades = lossCount
	res.WinRate = float64(winCount) / float64(len(e.trades)) * 100
	if winCount > 0 {
		res.AvgWin = winSum / float64(winCount)
	}
	if lossCount > 0 {
		res.AvgLoss = lossSum / float64(lossCount)
	}
	if lossSum > 0 {
		res.ProfitFactor = winSum / lossSum
	} else {
		res.ProfitFactor = math.Inf(1)
	}

	res.MaxDrawdown, res.MaxDrawdownPct = maxDrawdown(e.equity)

	returns := barReturns(e.equity)
	res.SharpeRatio = sharpe(returns)
	res.SortinoRatio = sortino(returns, res.SharpeRatio)
	if res.MaxDrawdownPct > 0 {
		annualReturn := res.TotalReturnPct * (tradingDaysPerYear / float64(len(e.equity)))
		res.CalmarRatio = annualReturn / res.MaxDrawdownPct
	}
	return res
}

// maxDrawdown returns the largest peak-to-trough decline in absolute
// terms and as a percentage of the highest peak.
func maxDrawdown(equity []float64) (float64, float64) {
	var peak, maxPeak, worst float64
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > maxPeak {
			maxPeak = peak
		}
		if dd := peak - v; dd > worst {
			worst = dd
		}
	}
	if maxPeak == 0 {
		return 0, 0
	}
	return worst, worst / maxPeak * 100
}

// barReturns converts an equity curve into simple per-bar returns.
func barReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (equity[i]-equity[i-1])/equity[i-1])
	}
	return returns
}

func sharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean, std := meanStd(returns)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// sortino penalizes downside volatility only. With no losing bars it
// falls back to the Sharpe ratio.
func sortino(returns []float64, fallback float64) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return fallback
	}
	mean, _ := meanStd(returns)
	_, downsideStd := meanStd(downside)
	if downsideStd == 0 {
		return fallback
	}
	return mean / downsideStd * math.Sqrt(tradingDaysPerYear)
}

// meanStd returns the mean and population standard deviation.
func meanStd(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
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
	return mean, math.Sqrt(sq / float64(len(vals)))
}
