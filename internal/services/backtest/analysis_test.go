package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskLens/internal/domain/models"
)

func TestAnalyzeRequiresMinimumHistory(t *testing.T) {
	a := NewAnalyzer()
	_, err := a.Analyze("X", barsFromCloses("X", repeat(10, 10)))
	assert.Error(t, err)
}

func TestAnalyzeDrawdownEpisode(t *testing.T) {
	a := NewAnalyzer()
	closes := repeat(100, 40)
	// a 10% dip from bar 10, recovering fully by bar 20
	for i := 10; i < 20; i++ {
		closes[i] = 90
	}
	report, err := a.Analyze("DIP", barsFromCloses("DIP", closes))
	require.NoError(t, err)

	assert.InDelta(t, -0.10, report.Drawdowns.MaxDrawdown, 1e-12)
	assert.InDelta(t, 0.0, report.Drawdowns.CurrentDrawdown, 1e-12)
	require.Len(t, report.Drawdowns.TopDrawdowns, 1)
	ep := report.Drawdowns.TopDrawdowns[0]
	assert.Equal(t, day(10), ep.Start)
	assert.Equal(t, day(20), ep.Recovery)
	assert.InDelta(t, -0.10, ep.Depth, 1e-12)
	assert.Equal(t, 10, ep.DurationDays)

	require.Len(t, report.Drawdowns.DrawdownCurve, 40)
	assert.InDelta(t, -10.0, report.Drawdowns.DrawdownCurve[10].Drawdown, 1e-9)
}

func TestAnalyzePeriodReturns(t *testing.T) {
	a := NewAnalyzer()
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	report, err := a.Analyze("UP", barsFromCloses("UP", closes))
	require.NoError(t, err)

	require.NotNil(t, report.PeriodReturns["1w"])
	assert.InDelta(t, 139.0/134-1, *report.PeriodReturns["1w"], 1e-12)
	require.NotNil(t, report.PeriodReturns["1m"])
	// history shorter than the horizon
	assert.Nil(t, report.PeriodReturns["1y"])
}

func TestAnalyzeDistributionCounts(t *testing.T) {
	a := NewAnalyzer()
	closes := make([]float64, 40)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		if i%2 == 0 {
			closes[i] = closes[i-1] * 1.01
		} else {
			closes[i] = closes[i-1] * 0.99
		}
	}
	report, err := a.Analyze("ZIG", barsFromCloses("ZIG", closes))
	require.NoError(t, err)

	stats := report.Distribution.Stats
	assert.Equal(t, 39, stats.TotalDays)
	assert.Equal(t, 19, stats.PositiveDays)
	assert.Equal(t, 20, stats.NegativeDays)

	total := 0
	for _, b := range report.Distribution.Histogram {
		total += b.Count
	}
	assert.Equal(t, 39, total)

	require.Len(t, report.BestDays, 5)
	require.Len(t, report.WorstDays, 5)
	assert.InDelta(t, 1.0, report.BestDays[0].ReturnPct, 1e-9)
	assert.InDelta(t, -1.0, report.WorstDays[0].ReturnPct, 1e-9)
}

func TestAnalyzeRollingMetrics(t *testing.T) {
	a := NewAnalyzer()
	closes := make([]float64, 45)
	for i := range closes {
		closes[i] = 100 * (1 + 0.001*float64(i))
	}
	report, err := a.Analyze("SLOW", barsFromCloses("SLOW", closes))
	require.NoError(t, err)

	require.Len(t, report.Rolling, 45-30)
	first := report.Rolling[0]
	assert.Equal(t, day(30), first.Date)
	assert.InDelta(t, (closes[30]/closes[0]-1)*100, first.Return30d, 1e-9)
	assert.Greater(t, first.Sharpe30d, 0.0)
}

func TestAnalyzeReportEnvelope(t *testing.T) {
	a := NewAnalyzer()
	bars := barsFromCloses("ENV", repeat(100, 31))
	report, err := a.Analyze("ENV", bars)
	require.NoError(t, err)
	assert.Equal(t, "ENV", report.Symbol)
	assert.Equal(t, 31, report.DataPoints)
	assert.Equal(t, day(0), report.Start)
	assert.Equal(t, day(30), report.End)
	assert.Equal(t, models.DrawdownAnalysis{
		MaxDrawdown:     0,
		CurrentDrawdown: 0,
		TopDrawdowns:    nil,
		DrawdownCurve:   report.Drawdowns.DrawdownCurve,
	}, report.Drawdowns)
}
