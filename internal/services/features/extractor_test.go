package features

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
		out[i] = models.PriceBar{
			Symbol: symbol,
			Date:   day(i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return out
}

func closesFromReturns(start float64, rets []float64) []float64 {
	out := make([]float64, len(rets)+1)
	out[0] = start
	for i, r := range rets {
		out[i+1] = out[i] * (1 + r)
	}
	return out
}

func TestComputeReturnsFirstElementZero(t *testing.T) {
	bars := barsFromCloses("AAPL", []float64{100, 110, 99})
	rets := ComputeReturns(bars)
	require.Len(t, rets, 3)
	assert.Equal(t, 0.0, rets[0])
	assert.InDelta(t, 0.10, rets[1], 1e-12)
	assert.InDelta(t, -0.10, rets[2], 1e-12)
}

func TestComputeReturnsSkipsNonPositiveCloses(t *testing.T) {
	bars := barsFromCloses("AAPL", []float64{100, 0, 105})
	rets := ComputeReturns(bars)
	assert.Equal(t, 0.0, rets[1])
	assert.Equal(t, 0.0, rets[2])
}

// An instrument whose returns are an exact multiple of the benchmark's must
// converge to that multiple as beta once the window has enough pairs.
func TestBetaConvergesOnScaledReturns(t *testing.T) {
	pattern := []float64{0.011, -0.006, 0.004, -0.013, 0.009, 0.002, -0.008}
	n := 120
	benchRets := make([]float64, n)
	instRets := make([]float64, n)
	for i := 0; i < n; i++ {
		r := pattern[i%len(pattern)]
		benchRets[i] = r
		instRets[i] = 2 * r
	}
	bench := barsFromCloses("SPY", closesFromReturns(400, benchRets))
	inst := barsFromCloses("TSLA", closesFromReturns(200, instRets))

	e := NewExtractor(DefaultConfig(), nil)
	vecs := e.Extract(inst, bench)
	require.Len(t, vecs, n+1)
	assert.InDelta(t, 2.0, vecs[n].Beta, 1e-9)
}

func TestBetaDefaultsWithoutEnoughPairs(t *testing.T) {
	inst := barsFromCloses("TSLA", []float64{100, 101, 99, 102, 100})
	bench := barsFromCloses("SPY", []float64{400, 401, 399, 402, 400})
	e := NewExtractor(DefaultConfig(), nil)
	vecs := e.Extract(inst, bench)
	for _, v := range vecs {
		assert.Equal(t, 1.0, v.Beta)
	}
}

func TestBetaDefaultsWithoutBenchmark(t *testing.T) {
	inst := barsFromCloses("TSLA", closesFromReturns(100, make([]float64, 80)))
	e := NewExtractor(DefaultConfig(), nil)
	vecs := e.Extract(inst, nil)
	assert.Equal(t, 1.0, vecs[len(vecs)-1].Beta)
}

func TestVolatilityShortHistoryFilledWithMean(t *testing.T) {
	rets := make([]float64, 29)
	for i := range rets {
		if i%2 == 0 {
			rets[i] = 0.01
		} else {
			rets[i] = -0.01
		}
	}
	bars := barsFromCloses("MSFT", closesFromReturns(300, rets))
	e := NewExtractor(DefaultConfig(), nil)
	vecs := e.Extract(bars, nil)

	// indexes below minPeriods-1 carry the fill value, which must equal the
	// mean of the computed tail and be strictly positive
	computed := 0.0
	count := 0
	for i := 9; i < len(vecs); i++ {
		computed += vecs[i].Volatility21d
		count++
	}
	fill := computed / float64(count)
	for i := 0; i < 9; i++ {
		assert.InDelta(t, fill, vecs[i].Volatility21d, 1e-9)
	}
	assert.Greater(t, vecs[len(vecs)-1].Volatility21d, 0.0)
}

func TestMaxDrawdownKnownSeries(t *testing.T) {
	bars := barsFromCloses("NVDA", []float64{10, 12, 9, 11})
	e := NewExtractor(DefaultConfig(), nil)
	vecs := e.Extract(bars, nil)
	assert.InDelta(t, 25.0, vecs[3].MaxDrawdown, 1e-9)
	// monotone rise has no drawdown
	rising := barsFromCloses("NVDA", []float64{10, 11, 12, 13})
	vecs = e.Extract(rising, nil)
	assert.Equal(t, 0.0, vecs[3].MaxDrawdown)
}

func TestPathologicalHistoryEmitsDefaults(t *testing.T) {
	bars := barsFromCloses("JUNK", []float64{0, 0, 0})
	e := NewExtractor(DefaultConfig(), nil)
	vecs := e.Extract(bars, nil)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Equal(t, "JUNK", v.Symbol)
		assert.Equal(t, 1.0, v.Beta)
		assert.Equal(t, 0.0, v.Volatility21d)
		assert.Equal(t, 0.0, v.SharpeRatio)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	e := NewExtractor(DefaultConfig(), nil)
	assert.Nil(t, e.Extract(nil, nil))
}

func TestLiquidityRiskFlatVolumeIsZero(t *testing.T) {
	bars := barsFromCloses("KO", closesFromReturns(60, make([]float64, 40)))
	e := NewExtractor(DefaultConfig(), nil)
	vecs := e.Extract(bars, nil)
	assert.InDelta(t, 0.0, vecs[len(vecs)-1].LiquidityRisk, 1e-12)
}
