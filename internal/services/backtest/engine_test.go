package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskLens/internal/domain/models"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func barsFromCloses(symbol string, closes []float64) []models.PriceBar {
	out := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		out[i] = models.PriceBar{Symbol: symbol, Date: day(i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestBuyAndHoldFlatSeries(t *testing.T) {
	e := NewEngine(nil)
	bars := barsFromCloses("KO", repeat(50, 40))
	res, err := e.Run("KO", bars, 10_000, models.StrategyParams{Kind: models.StrategyBuyAndHold})
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, models.ActionBuy, res.Trades[0].Action)
	assert.InDelta(t, 200.0, res.Trades[0].Shares, 1e-9)

	assert.InDelta(t, 0.0, res.Metrics.TotalReturn, 1e-12)
	assert.InDelta(t, 0.0, res.Metrics.SharpeRatio, 1e-12)
	assert.InDelta(t, 0.0, res.Metrics.AnnualVolatility, 1e-12)
	assert.InDelta(t, 0.0, res.Metrics.MaxDrawdown, 1e-12)
	assert.InDelta(t, 10_000, res.Metrics.FinalEquity, 1e-9)
	for _, p := range res.EquityCurve {
		assert.InDelta(t, 10_000, p.Equity, 1e-9)
		assert.InDelta(t, p.Equity, p.Benchmark, 1e-9)
	}
}

// One golden cross and one death cross on a step series: exactly one BUY
// and one SELL, with equity tracking manual computation at every bar.
func TestMovingAverageCrossoverScript(t *testing.T) {
	e := NewEngine(nil)
	closes := []float64{10, 10, 10, 20, 20, 20, 10, 10, 10}
	bars := barsFromCloses("STEP", closes)
	sim := e.movingAverage(bars, 10_000, models.StrategyParams{
		Kind: models.StrategyMovingAverage, ShortWindow: 2, LongWindow: 3,
	})

	require.Len(t, sim.trades, 2)
	assert.Equal(t, models.ActionBuy, sim.trades[0].Action)
	assert.Equal(t, day(3), sim.trades[0].Date)
	assert.InDelta(t, 20.0, sim.trades[0].Price, 1e-12)
	assert.InDelta(t, 500.0, sim.trades[0].Shares, 1e-9)

	assert.Equal(t, models.ActionSell, sim.trades[1].Action)
	assert.Equal(t, day(6), sim.trades[1].Date)
	assert.InDelta(t, 10.0, sim.trades[1].Price, 1e-12)

	want := []float64{10_000, 10_000, 10_000, 10_000, 10_000, 10_000, 5_000, 5_000, 5_000}
	require.Len(t, sim.curve, len(want))
	for i, w := range want {
		assert.InDelta(t, w, sim.curve[i].Equity, 1e-9, "bar %d", i)
	}

	require.Len(t, sim.ma, len(closes))
	assert.Equal(t, 0.0, sim.ma[0].ShortMA) // warm-up, undefined
	assert.InDelta(t, 15.0, sim.ma[3].ShortMA, 1e-12)
	assert.InDelta(t, 50.0/3, sim.ma[4].LongMA, 1e-9)
}

func TestMeanReversionDipAndRevert(t *testing.T) {
	e := NewEngine(nil)
	closes := []float64{100, 101, 100, 101, 100, 101, 100, 101, 100, 101, 60, 140}
	bars := barsFromCloses("DIP", closes)
	sim := e.meanReversion(bars, 10_000, models.StrategyParams{
		Kind: models.StrategyMeanReversion, Lookback: 5, ZEntry: -1.0, ZExit: 0.5,
	})

	require.Len(t, sim.trades, 2)
	assert.Equal(t, models.ActionBuy, sim.trades[0].Action)
	assert.InDelta(t, 60.0, sim.trades[0].Price, 1e-12)
	require.NotNil(t, sim.trades[0].ZScore)
	assert.Less(t, *sim.trades[0].ZScore, -1.0)

	assert.Equal(t, models.ActionSell, sim.trades[1].Action)
	assert.InDelta(t, 140.0, sim.trades[1].Price, 1e-12)
	require.NotNil(t, sim.trades[1].ZScore)
	assert.Greater(t, *sim.trades[1].ZScore, 0.5)

	final := sim.curve[len(sim.curve)-1].Equity
	assert.InDelta(t, 10_000.0/60*140, final, 1e-6)
}

func TestMeanReversionZeroStdFreezesEquity(t *testing.T) {
	e := NewEngine(nil)
	bars := barsFromCloses("FLAT", repeat(100, 12))
	sim := e.meanReversion(bars, 10_000, models.StrategyParams{
		Kind: models.StrategyMeanReversion, Lookback: 5, ZEntry: -1.0, ZExit: 0.5,
	})
	assert.Empty(t, sim.trades)
	for _, p := range sim.curve {
		assert.InDelta(t, 10_000, p.Equity, 1e-12)
	}
}

func TestRiskThresholdStrategy(t *testing.T) {
	e := NewEngine(nil)
	bars := barsFromCloses("RSK", []float64{10, 10, 20, 20, 10})
	scores := map[time.Time]float64{
		day(0): 0.7,
		day(1): 0.2,
		// day(2) missing: neutral 0.5 holds the position
		day(3): 0.9,
		day(4): 0.3,
	}
	sim := e.riskThreshold(bars, 10_000, models.StrategyParams{
		Kind: models.StrategyRiskThreshold, RiskThreshold: 0.6, RiskScores: scores,
	})

	require.Len(t, sim.trades, 3)
	assert.Equal(t, models.ActionBuy, sim.trades[0].Action)
	assert.Equal(t, day(1), sim.trades[0].Date)
	require.NotNil(t, sim.trades[0].RiskScore)
	assert.InDelta(t, 0.2, *sim.trades[0].RiskScore, 1e-12)

	assert.Equal(t, models.ActionSell, sim.trades[1].Action)
	assert.Equal(t, day(3), sim.trades[1].Date)

	assert.Equal(t, models.ActionBuy, sim.trades[2].Action)
	assert.Equal(t, day(4), sim.trades[2].Date)

	// bought 1000 shares at 10, sold at 20, rebought at 10
	assert.InDelta(t, 20_000, sim.curve[3].Equity, 1e-9)
	assert.InDelta(t, 20_000, sim.curve[4].Equity, 1e-9)
}

func TestRunMergesBenchmark(t *testing.T) {
	e := NewEngine(nil)
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	bars := barsFromCloses("UP", closes)
	res, err := e.Run("UP", bars, 10_000, models.StrategyParams{Kind: models.StrategyBuyAndHold})
	require.NoError(t, err)

	for _, p := range res.EquityCurve {
		assert.InDelta(t, p.Equity, p.Benchmark, 1e-9)
	}
	assert.InDelta(t, res.Metrics.TotalReturn, res.Metrics.BenchmarkReturn, 1e-12)
	assert.Equal(t, 40, res.DataPoints)
	assert.Equal(t, day(0), res.StartDate)
	assert.Equal(t, day(39), res.EndDate)
}

func TestRunValidation(t *testing.T) {
	e := NewEngine(nil)
	bars := barsFromCloses("X", repeat(10, 40))

	_, err := e.Run("X", barsFromCloses("X", repeat(10, 10)), 10_000, models.StrategyParams{Kind: models.StrategyBuyAndHold})
	assert.Error(t, err)

	_, err = e.Run("X", bars, 0, models.StrategyParams{Kind: models.StrategyBuyAndHold})
	assert.Error(t, err)

	_, err = e.Run("X", bars, 10_000, models.StrategyParams{Kind: "martingale"})
	assert.Error(t, err)

	_, err = e.Run("X", bars, 10_000, models.StrategyParams{Kind: models.StrategyMovingAverage, ShortWindow: 50, LongWindow: 20})
	assert.Error(t, err)

	_, err = e.Run("X", bars, 10_000, models.StrategyParams{Kind: models.StrategyMeanReversion, Lookback: 1})
	assert.Error(t, err)
}
