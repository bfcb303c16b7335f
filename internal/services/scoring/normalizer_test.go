package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskLens/internal/domain/models"
)

func TestNormalizeSingleInstrumentIsNeutral(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())
	out := n.Normalize([]models.FeatureVector{{
		Symbol:        "AAPL",
		Volatility21d: 0.35,
		MaxDrawdown:   12,
		AvgSentiment:  0.1,
		LiquidityRisk: 0.4,
		Beta:          1.2,
	}})
	require.Len(t, out, 1)
	assert.Equal(t, 0.5, out[0].NormVolatility)
	assert.Equal(t, 0.5, out[0].NormBeta)
	// drawdown and sentiment are absolute mappings, not cross-sectional
	assert.InDelta(t, 0.12, out[0].NormDrawdown, 1e-12)
	assert.InDelta(t, 0.45, out[0].NormSentiment, 1e-12)
}

func TestNormalizeIdenticalUniverseIsNeutral(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())
	vecs := []models.FeatureVector{
		{Symbol: "A", Volatility21d: 0.2, Beta: 1.0, LiquidityRisk: 0},
		{Symbol: "B", Volatility21d: 0.2, Beta: 1.0, LiquidityRisk: 0},
		{Symbol: "C", Volatility21d: 0.2, Beta: 1.0, LiquidityRisk: 0},
	}
	for _, nf := range n.Normalize(vecs) {
		assert.Equal(t, 0.5, nf.NormVolatility)
		assert.Equal(t, 0.5, nf.NormBeta)
		assert.Equal(t, 0.5, nf.NormLiquidity)
	}
}

func TestNormalizePreservesOrderingAndBounds(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())
	vecs := []models.FeatureVector{
		{Symbol: "LOW", Volatility21d: 0.10, LiquidityRisk: 0.1, Beta: 0.8},
		{Symbol: "MID", Volatility21d: 0.25, LiquidityRisk: 0.3, Beta: 1.1},
		{Symbol: "HIGH", Volatility21d: 0.60, LiquidityRisk: 0.9, Beta: 1.9},
	}
	out := n.Normalize(vecs)
	require.Len(t, out, 3)
	assert.Less(t, out[0].NormVolatility, out[1].NormVolatility)
	assert.LessOrEqual(t, out[1].NormVolatility, out[2].NormVolatility)
	for _, nf := range out {
		assert.GreaterOrEqual(t, nf.NormVolatility, 0.0)
		assert.LessOrEqual(t, nf.NormVolatility, 1.0)
		assert.GreaterOrEqual(t, nf.NormLiquidity, 0.0)
		assert.LessOrEqual(t, nf.NormLiquidity, 1.0)
	}
	assert.Equal(t, 0.0, out[0].NormVolatility)
	assert.Equal(t, 1.0, out[2].NormVolatility)
}

func TestNormalizeSentimentInversion(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())
	vecs := []models.FeatureVector{
		{Symbol: "BAD", AvgSentiment: -1},
		{Symbol: "FLAT", AvgSentiment: 0},
		{Symbol: "GOOD", AvgSentiment: 1},
	}
	out := n.Normalize(vecs)
	assert.Equal(t, 1.0, out[0].NormSentiment)
	assert.Equal(t, 0.5, out[1].NormSentiment)
	assert.Equal(t, 0.0, out[2].NormSentiment)
}

func TestNormalizeDrawdownCapsAtOne(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())
	out := n.Normalize([]models.FeatureVector{
		{Symbol: "A", MaxDrawdown: 50},
		{Symbol: "B", MaxDrawdown: 150},
	})
	assert.InDelta(t, 0.5, out[0].NormDrawdown, 1e-12)
	assert.Equal(t, 1.0, out[1].NormDrawdown)
}

func TestNormalizeEmptyUniverse(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())
	assert.Empty(t, n.Normalize(nil))
}
