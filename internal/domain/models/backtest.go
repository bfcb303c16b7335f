package models

import "time"

// StrategyKind discriminates the StrategyParams variant. The backtest engine
// matches it exhaustively; adding a strategy means a new constant, a new
// parameter block, and a new engine arm.
type StrategyKind string

const (
	StrategyBuyAndHold    StrategyKind = "buy_and_hold"
	StrategyRiskThreshold StrategyKind = "risk_based"
	StrategyMovingAverage StrategyKind = "moving_average"
	StrategyMeanReversion StrategyKind = "mean_reversion"
)

// StrategyParams is a tagged union: Kind selects which parameter block the
// engine reads. Unused blocks are ignored.
type StrategyParams struct {
	Kind StrategyKind

	// risk_based
	RiskThreshold float64
	RiskScores    map[time.Time]float64 // date -> score; missing dates read as 0.5

	// moving_average
	ShortWindow int
	LongWindow  int

	// mean_reversion
	Lookback int
	ZEntry   float64
	ZExit    float64
}

// TradeAction is a position transition.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)

// TradeRecord is one state transition of a strategy. Annotation fields are
// strategy-specific and nil when not applicable.
type TradeRecord struct {
	Date      time.Time
	Action    TradeAction
	Price     float64
	Shares    float64
	RiskScore *float64
	ZScore    *float64
}

// EquityPoint is one bar of the simulated equity curve. Benchmark is the
// buy-and-hold overlay, filled in after the benchmark pass.
type EquityPoint struct {
	Date      time.Time
	Equity    float64
	Benchmark float64
}

// MAPoint carries the moving-average overlay for charting the crossover
// strategy. Values are zero before the corresponding window is warm.
type MAPoint struct {
	Date    time.Time
	Close   float64
	ShortMA float64
	LongMA  float64
}

// PerformanceMetrics are derived from an equity curve and trade log.
type PerformanceMetrics struct {
	TotalReturn      float64
	AnnualReturn     float64
	MaxDrawdown      float64 // negative or zero
	SharpeRatio      float64
	SortinoRatio     float64
	AnnualVolatility float64
	WinRate          float64
	TotalTrades      int
	FinalEquity      float64
	BenchmarkReturn  float64
}

// BacktestResult is the full output of one simulation: pure function of its
// inputs, no shared state across calls.
type BacktestResult struct {
	Symbol         string
	Strategy       StrategyKind
	InitialCapital float64
	StartDate      time.Time
	EndDate        time.Time
	DataPoints     int
	EquityCurve    []EquityPoint
	Trades         []TradeRecord
	MAData         []MAPoint // moving_average only
	Metrics        PerformanceMetrics
}
