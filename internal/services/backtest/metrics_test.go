package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"RiskLens/internal/domain/models"
)

func curveOf(equities ...float64) []models.EquityPoint {
	out := make([]models.EquityPoint, len(equities))
	for i, e := range equities {
		out[i] = models.EquityPoint{Date: day(i), Equity: e}
	}
	return out
}

func TestComputeMetricsTotalAndAnnualReturn(t *testing.T) {
	m := ComputeMetrics(curveOf(100, 110, 121), 100, nil)
	assert.InDelta(t, 0.21, m.TotalReturn, 1e-12)
	assert.InDelta(t, math.Pow(1.21, 252.0/3)-1, m.AnnualReturn, 1e-9)
	assert.InDelta(t, 121, m.FinalEquity, 1e-12)
	// constant daily return has zero variance
	assert.Equal(t, 0.0, m.SharpeRatio)
	assert.Equal(t, 0.0, m.AnnualVolatility)
}

func TestComputeMetricsMaxDrawdown(t *testing.T) {
	m := ComputeMetrics(curveOf(100, 120, 90, 130), 100, nil)
	assert.InDelta(t, -0.25, m.MaxDrawdown, 1e-12)

	m = ComputeMetrics(curveOf(100, 110, 120), 100, nil)
	assert.Equal(t, 0.0, m.MaxDrawdown)
}

func TestComputeMetricsSharpeSign(t *testing.T) {
	m := ComputeMetrics(curveOf(100, 102, 101, 104, 103, 107), 100, nil)
	assert.Greater(t, m.SharpeRatio, 0.0)
	assert.Greater(t, m.AnnualVolatility, 0.0)

	m = ComputeMetrics(curveOf(100, 98, 99, 96, 97, 93), 100, nil)
	assert.Less(t, m.SharpeRatio, 0.0)
}

func TestComputeMetricsSortino(t *testing.T) {
	// no losing bar: sortino defined as zero
	m := ComputeMetrics(curveOf(100, 101, 103, 106), 100, nil)
	assert.Equal(t, 0.0, m.SortinoRatio)

	// two distinct losing bars give a positive downside deviation
	m = ComputeMetrics(curveOf(100, 98, 99, 94, 97, 103), 100, nil)
	assert.NotEqual(t, 0.0, m.SortinoRatio)
}

func TestWinRatePairsBuySell(t *testing.T) {
	trades := []models.TradeRecord{
		{Action: models.ActionBuy, Price: 10},
		{Action: models.ActionSell, Price: 20}, // win
		{Action: models.ActionBuy, Price: 20},
		{Action: models.ActionSell, Price: 15}, // loss
	}
	assert.InDelta(t, 0.5, winRate(trades), 1e-12)
}

func TestWinRateIgnoresOpenPosition(t *testing.T) {
	trades := []models.TradeRecord{
		{Action: models.ActionBuy, Price: 10},
		{Action: models.ActionSell, Price: 20},
		{Action: models.ActionBuy, Price: 25}, // still open
	}
	assert.InDelta(t, 1.0, winRate(trades), 1e-12)

	assert.Equal(t, 0.0, winRate(nil))
	assert.Equal(t, 0.0, winRate([]models.TradeRecord{{Action: models.ActionBuy, Price: 10}}))
}

func TestComputeMetricsDegenerateInput(t *testing.T) {
	m := ComputeMetrics(nil, 100, nil)
	assert.Equal(t, models.PerformanceMetrics{}, m)

	m = ComputeMetrics(curveOf(100), 0, nil)
	assert.Equal(t, 0.0, m.TotalReturn)
}
