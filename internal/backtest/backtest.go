// Package backtest replays a strategy over historical bars with
// transaction costs and slippage, and reports performance metrics.
// Money amounts are tracked as decimals; ratios and statistics use
// floats.
package backtest

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/your-org/flowdesk/internal/config"
	"github.com/your-org/flowdesk/pkg/logger"
	"github.com/your-org/flowdesk/pkg/market"
)

// ErrInsufficientData is returned when the bar series is too short to
// produce meaningful results.
var ErrInsufficientData = errors.New("backtest: insufficient data, need at least 100 bars")

const minBars = 100

// Action is what a strategy wants to do on the current bar.
type Action string

const (
	Buy     Action = "buy"
	Sell    Action = "sell"
	NoTrade Action = "no_trade"
)

// Signal is a strategy's output for one window. StopLoss and TakeProfit
// of zero mean "use the default stop" and "no target" respectively.
type Signal struct {
	Action     Action
	StopLoss   float64
	TakeProfit float64
}

// Strategy is evaluated once per bar with the trailing window of bars
// up to but excluding the current one.
type Strategy func(window []market.Bar) Signal

// Trade records one round trip.
type Trade struct {
	Symbol     string
	Direction  string // "long" or "short"
	EntryTime  time.Time
	EntryPrice decimal.Decimal
	Units      int64
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	ExitTime   time.Time
	ExitPrice  decimal.Decimal
	PnL        decimal.Decimal
	PnLPct     float64
	ExitReason string
}

// Result holds the full outcome of a backtest run.
type Result struct {
	Symbol         string
	Start          time.Time
	End            time.Time
	InitialCapital decimal.Decimal
	FinalCapital   decimal.Decimal
	TotalReturn    decimal.Decimal
	TotalReturnPct float64

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	AvgWin        float64
	AvgLoss       float64
	ProfitFactor  float64

	MaxDrawdown    float64
	MaxDrawdownPct float64
	SharpeRatio    float64
	SortinoRatio   float64
	CalmarRatio    float64

	EquityCurve []float64
	Trades      []Trade
}

// Engine replays strategies over bar history. An Engine is not safe for
// concurrent runs; create one per backtest.
type Engine struct {
	cfg config.BacktestConfig
	log logger.Logger

	capital  decimal.Decimal
	equity   []float64
	trades   []Trade
	open     *Trade
	slippage decimal.Decimal
	fee      decimal.Decimal
}

// NewEngine creates a backtest engine from config.
func NewEngine(cfg config.BacktestConfig, log logger.Logger) *Engine {
	return &Engine{cfg: cfg, log: log}
}

func (e *Engine) reset() {
	e.capital = decimal.NewFromFloat(e.cfg.InitialCapital)
	e.equity = []float64{e.cfg.InitialCapital}
	e.trades = nil
	e.open = nil
	e.slippage = decimal.NewFromFloat(e.cfg.Slippage)
	e.fee = decimal.NewFromFloat(e.cfg.Commission)
}

// Run replays the strategy over the bars. It walks the series one bar
// at a time: stops are checked against the current bar before the
// strategy sees the trailing window, and any position still open at the
// end is force-closed at the last close.
func (e *Engine) Run(symbol string, bars []market.Bar, strategy Strategy) (Result, error) {
	if len(bars) < minBars {
		return Result{}, ErrInsufficientData
	}
	if err := market.ValidateSeries(bars); err != nil {
		return Result{}, err
	}
	e.reset()

	window := e.cfg.WindowSize
	e.log.Infof("backtest: running %s over %d bars (window %d)", symbol, len(bars), window)

	for i := window; i < len(bars); i++ {
		bar := bars[i]

		e.checkStops(bar)

		sig := strategy(bars[i-window : i])
		if sig.Action == Buy || sig.Action == Sell {
			e.execute(symbol, sig, bar)
		}

		e.markToMarket(bar.Close)
	}

	if e.open != nil {
		last := bars[len(bars)-1]
		e.closePosition(last.Close, last.Timestamp, "end_of_backtest")
		// Settle exit slippage and commission into the final equity
		// point, which was marked before the forced close.
		e.equity[len(e.equity)-1] = e.capital.InexactFloat64()
	}

	return e.results(symbol, bars[0].Timestamp, bars[len(bars)-1].Timestamp), nil
}

// execute opens a position on the bar's close. Entries pay slippage
// against the trader and commission up front. Only one position may be
// open at a time.
func (e *Engine) execute(symbol string, sig Signal, bar market.Bar) {
	if e.open != nil {
		return
	}

	one := decimal.NewFromInt(1)
	entry := decimal.NewFromFloat(bar.Close)
	direction := "long"
	if sig.Action == Buy {
		entry = entry.Mul(one.Add(e.slippage))
	} else {
		entry = entry.Mul(one.Sub(e.slippage))
		direction = "short"
	}

	stop := decimal.NewFromFloat(sig.StopLoss)
	if sig.StopLoss <= 0 {
		if sig.Action == Buy {
			stop = entry.Mul(decimal.NewFromFloat(0.98))
		} else {
			stop = entry.Mul(decimal.NewFromFloat(1.02))
		}
	}

	stopDistance := entry.Sub(stop).Abs()
	riskAmount := e.capital.Mul(decimal.NewFromFloat(e.cfg.RiskPerTrade))

	var units int64
	if stopDistance.IsPositive() {
		units = riskAmount.Div(stopDistance).IntPart()
	} else {
		units = e.capital.Mul(decimal.NewFromFloat(0.1)).Div(entry).IntPart()
	}

	// Never commit more than 90% of capital to a single position.
	costPerUnit := entry.Mul(one.Add(e.fee))
	maxValue := e.capital.Mul(decimal.NewFromFloat(0.9))
	if decimal.NewFromInt(units).Mul(costPerUnit).GreaterThan(maxValue) {
		units = maxValue.Div(costPerUnit).IntPart()
	}
	if units <= 0 {
		return
	}

	e.open = &Trade{
		Symbol:     symbol,
		Direction:  direction,
		EntryTime:  bar.Timestamp,
		EntryPrice: entry,
		Units:      units,
		StopLoss:   stop,
		TakeProfit: decimal.NewFromFloat(sig.TakeProfit),
	}
	e.capital = e.capital.Sub(entry.Mul(decimal.NewFromInt(units)).Mul(e.fee))
}

// checkStops closes the open position if the bar traded through its
// stop or target. Fills assume the stop level, not the bar extreme.
func (e *Engine) checkStops(bar market.Bar) {
	if e.open == nil {
		return
	}
	trade := e.open

	if trade.Direction == "long" {
		if decimal.NewFromFloat(bar.Low).LessThanOrEqual(trade.StopLoss) {
			e.closePosition(trade.StopLoss.InexactFloat64(), bar.Timestamp, "stop_loss")
			return
		}
	} else {
		if decimal.NewFromFloat(bar.High).GreaterThanOrEqual(trade.StopLoss) {
			e.closePosition(trade.StopLoss.InexactFloat64(), bar.Timestamp, "stop_loss")
			return
		}
	}

	if !trade.TakeProfit.IsPositive() {
		return
	}
	if trade.Direction == "long" {
		if decimal.NewFromFloat(bar.High).GreaterThanOrEqual(trade.TakeProfit) {
			e.closePosition(trade.TakeProfit.InexactFloat64(), bar.Timestamp, "take_profit")
		}
	} else {
		if decimal.NewFromFloat(bar.Low).LessThanOrEqual(trade.TakeProfit) {
			e.closePosition(trade.TakeProfit.InexactFloat64(), bar.Timestamp, "take_profit")
		}
	}
}

// closePosition exits the open trade at the given price, paying
// slippage and commission on the way out.
func (e *Engine) closePosition(price float64, at time.Time, reason string) {
	if e.open == nil {
		return
	}
	trade := *e.open
	e.open = nil

	one := decimal.NewFromInt(1)
	exit := decimal.NewFromFloat(price)
	if trade.Direction == "long" {
		exit = exit.Mul(one.Sub(e.slippage))
	} else {
		exit = exit.Mul(one.Add(e.slippage))
	}

	units := decimal.NewFromInt(trade.Units)
	var pnl decimal.Decimal
	if trade.Direction == "long" {
		pnl = exit.Sub(trade.EntryPrice).Mul(units)
	} else {
		pnl = trade.EntryPrice.Sub(exit).Mul(units)
	}
	pnl = pnl.Sub(exit.Mul(units).Mul(e.fee))

	trade.ExitTime = at
	trade.ExitPrice = exit
	trade.PnL = pnl
	trade.ExitReason = reason
	notional := trade.EntryPrice.Mul(units)
	if notional.IsPositive() {
		trade.PnLPct = pnl.Div(notional).InexactFloat64() * 100
	}

	e.capital = e.capital.Add(pnl)
	e.trades = append(e.trades, trade)
}

// markToMarket appends the current equity point, valuing the open
// position at the given price.
func (e *Engine) markToMarket(price float64) {
	equity := e.capital
	if e.open != nil {
		current := decimal.NewFromFloat(price)
		units := decimal.NewFromInt(e.open.Units)
		if e.open.Direction == "long" {
			equity = equity.Add(current.Sub(e.open.EntryPrice).Mul(units))
		} else {
			equity = equity.Add(e.open.EntryPrice.Sub(current).Mul(units))
		}
	}
	e.equity = append(e.equity, equity.InexactFloat64())
}
