package backtest

import (
	"fmt"
	"math"

	"RiskLens/internal/domain/models"
	applogger "RiskLens/pkg/logger"
)

// MinDataPoints is the shortest price history a simulation accepts.
const MinDataPoints = 30

// Engine replays a trading-rule state machine over a daily price series.
// Each Run is a pure function of its inputs; the engine holds no state
// between calls and is safe to use concurrently.
type Engine struct {
	l *applogger.Logger
}

func NewEngine(l *applogger.Logger) *Engine {
	return &Engine{l: l}
}

// Run simulates the requested strategy, re-runs buy-and-hold over the same
// window as the benchmark, and merges the benchmark equity into the curve.
func (e *Engine) Run(symbol string, bars []models.PriceBar, capital float64, params models.StrategyParams) (*models.BacktestResult, error) {
	if len(bars) < MinDataPoints {
		return nil, fmt.Errorf("insufficient data for %s: need %d+ bars, have %d", symbol, MinDataPoints, len(bars))
	}
	if capital <= 0 {
		return nil, fmt.Errorf("initial capital must be positive, got %v", capital)
	}
	if bars[0].Close <= 0 {
		return nil, fmt.Errorf("non-positive opening close for %s", symbol)
	}

	var sim simulation
	switch params.Kind {
	case models.StrategyBuyAndHold:
		sim = e.buyAndHold(bars, capital)
	case models.StrategyRiskThreshold:
		sim = e.riskThreshold(bars, capital, params)
	case models.StrategyMovingAverage:
		if params.ShortWindow <= 0 || params.LongWindow <= params.ShortWindow {
			return nil, fmt.Errorf("moving_average windows invalid: short=%d long=%d", params.ShortWindow, params.LongWindow)
		}
		sim = e.movingAverage(bars, capital, params)
	case models.StrategyMeanReversion:
		if params.Lookback <= 1 {
			return nil, fmt.Errorf("mean_reversion lookback invalid: %d", params.Lookback)
		}
		sim = e.meanReversion(bars, capital, params)
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", params.Kind)
	}

	bench := e.buyAndHold(bars, capital)
	mergeBenchmark(sim.curve, bench.curve, capital)

	metrics := ComputeMetrics(sim.curve, capital, sim.trades)
	metrics.BenchmarkReturn = ComputeMetrics(bench.curve, capital, bench.trades).TotalReturn

	if e.l != nil {
		e.l.Info("backtest completed",
			applogger.String("symbol", symbol),
			applogger.String("strategy", string(params.Kind)),
			applogger.Int("bars", len(bars)),
			applogger.Int("trades", len(sim.trades)),
		)
	}

	return &models.BacktestResult{
		Symbol:         symbol,
		Strategy:       params.Kind,
		InitialCapital: capital,
		StartDate:      bars[0].Date,
		EndDate:        bars[len(bars)-1].Date,
		DataPoints:     len(bars),
		EquityCurve:    sim.curve,
		Trades:         sim.trades,
		MAData:         sim.ma,
		Metrics:        metrics,
	}, nil
}

type simulation struct {
	curve  []models.EquityPoint
	trades []models.TradeRecord
	ma     []models.MAPoint
}

// position is the two-state machine every strategy shares: the portfolio is
// either fully in cash or fully in fractional shares.
type position struct {
	cash   float64
	shares float64
	long   bool
}

func (p *position) buy(price float64) float64 {
	p.shares = p.cash / price
	p.cash = 0
	p.long = true
	return p.shares
}

func (p *position) sell(price float64) {
	p.cash = p.shares * price
	p.shares = 0
	p.long = false
}

func (p *position) equity(price float64) float64 {
	return p.cash + p.shares*price
}

func (e *Engine) buyAndHold(bars []models.PriceBar, capital float64) simulation {
	shares := capital / bars[0].Close
	curve := make([]models.EquityPoint, len(bars))
	for i, b := range bars {
		curve[i] = models.EquityPoint{Date: b.Date, Equity: shares * b.Close}
	}
	trades := []models.TradeRecord{{
		Date:   bars[0].Date,
		Action: models.ActionBuy,
		Price:  bars[0].Close,
		Shares: shares,
	}}
	return simulation{curve: curve, trades: trades}
}

// riskThreshold holds the position while the risk score stays below the
// threshold. Dates absent from the score series read as the neutral 0.5.
func (e *Engine) riskThreshold(bars []models.PriceBar, capital float64, params models.StrategyParams) simulation {
	pos := position{cash: capital}
	var sim simulation

	for _, b := range bars {
		risk := 0.5
		if r, ok := params.RiskScores[dateKey(b.Date)]; ok {
			risk = r
		}

		if !pos.long && risk < params.RiskThreshold {
			shares := pos.buy(b.Close)
			score := risk
			sim.trades = append(sim.trades, models.TradeRecord{
				Date: b.Date, Action: models.ActionBuy, Price: b.Close, Shares: shares, RiskScore: &score,
			})
		} else if pos.long && risk >= params.RiskThreshold {
			pos.sell(b.Close)
			score := risk
			sim.trades = append(sim.trades, models.TradeRecord{
				Date: b.Date, Action: models.ActionSell, Price: b.Close, RiskScore: &score,
			})
		}

		sim.curve = append(sim.curve, models.EquityPoint{Date: b.Date, Equity: pos.equity(b.Close)})
	}
	return sim
}

// movingAverage trades the golden/death cross of two simple moving
// averages. Bars before the long warm-up hold FLAT with equity frozen at
// the initial capital.
func (e *Engine) movingAverage(bars []models.PriceBar, capital float64, params models.StrategyParams) simulation {
	closes := closesOf(bars)
	shortMA := rollingMean(closes, params.ShortWindow)
	longMA := rollingMean(closes, params.LongWindow)

	pos := position{cash: capital}
	var sim simulation

	for i, b := range bars {
		if i < params.LongWindow {
			sim.curve = append(sim.curve, models.EquityPoint{Date: b.Date, Equity: capital})
			continue
		}

		crossedUp := shortMA[i] > longMA[i] && shortMA[i-1] <= longMA[i-1]
		crossedDown := shortMA[i] < longMA[i] && shortMA[i-1] >= longMA[i-1]

		if !pos.long && crossedUp {
			shares := pos.buy(b.Close)
			sim.trades = append(sim.trades, models.TradeRecord{
				Date: b.Date, Action: models.ActionBuy, Price: b.Close, Shares: shares,
			})
		} else if pos.long && crossedDown {
			pos.sell(b.Close)
			sim.trades = append(sim.trades, models.TradeRecord{
				Date: b.Date, Action: models.ActionSell, Price: b.Close,
			})
		}

		sim.curve = append(sim.curve, models.EquityPoint{Date: b.Date, Equity: pos.equity(b.Close)})
	}

	sim.ma = make([]models.MAPoint, len(bars))
	for i, b := range bars {
		p := models.MAPoint{Date: b.Date, Close: b.Close}
		if !math.IsNaN(shortMA[i]) {
			p.ShortMA = shortMA[i]
		}
		if !math.IsNaN(longMA[i]) {
			p.LongMA = longMA[i]
		}
		sim.ma[i] = p
	}
	return sim
}

// meanReversion buys when the z-score of price against its rolling mean
// drops below the entry bound and sells once it reverts above the exit
// bound. Undefined z (warm-up or zero dispersion) freezes equity at the
// initial capital, matching the warm-up treatment of the crossover
// strategy.
func (e *Engine) meanReversion(bars []models.PriceBar, capital float64, params models.StrategyParams) simulation {
	closes := closesOf(bars)
	mean := rollingMean(closes, params.Lookback)
	std := rollingStd(closes, params.Lookback)

	pos := position{cash: capital}
	var sim simulation

	for i, b := range bars {
		if i < params.Lookback || math.IsNaN(std[i]) || std[i] == 0 {
			sim.curve = append(sim.curve, models.EquityPoint{Date: b.Date, Equity: capital})
			continue
		}

		z := (b.Close - mean[i]) / std[i]

		if !pos.long && z < params.ZEntry {
			shares := pos.buy(b.Close)
			zv := z
			sim.trades = append(sim.trades, models.TradeRecord{
				Date: b.Date, Action: models.ActionBuy, Price: b.Close, Shares: shares, ZScore: &zv,
			})
		} else if pos.long && z > params.ZExit {
			pos.sell(b.Close)
			zv := z
			sim.trades = append(sim.trades, models.TradeRecord{
				Date: b.Date, Action: models.ActionSell, Price: b.Close, ZScore: &zv,
			})
		}

		sim.curve = append(sim.curve, models.EquityPoint{Date: b.Date, Equity: pos.equity(b.Close)})
	}
	return sim
}

// mergeBenchmark writes the buy-and-hold equity into each strategy point,
// matching by date; unmatched dates fall back to the initial capital.
func mergeBenchmark(curve, bench []models.EquityPoint, capital float64) {
	byDate := make(map[int64]float64, len(bench))
	for _, p := range bench {
		byDate[p.Date.Unix()] = p.Equity
	}
	for i := range curve {
		if v, ok := byDate[curve[i].Date.Unix()]; ok {
			curve[i].Benchmark = v
		} else {
			curve[i].Benchmark = capital
		}
	}
}

func closesOf(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// rollingMean is the simple moving average over a trailing window; NaN
// until the window is complete.
func rollingMean(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	sum := 0.0
	for i, x := range xs {
		sum += x
		if i >= window {
			sum -= xs[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// rollingStd is the trailing sample standard deviation (n-1 denominator);
// NaN until the window is complete.
func rollingStd(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		w := xs[i-window+1 : i+1]
		m := 0.0
		for _, x := range w {
			m += x
		}
		m /= float64(window)
		sum2 := 0.0
		for _, x := range w {
			d := x - m
			sum2 += d * d
		}
		out[i] = math.Sqrt(sum2 / float64(window-1))
	}
	return out
}
