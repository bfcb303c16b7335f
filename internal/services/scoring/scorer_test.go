package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskLens/internal/domain/models"
	"RiskLens/internal/domain/service"
)

type fakeOracle struct {
	prob   float64
	probOK bool
	exps   map[string]service.Explanation
	called int
}

func (f *fakeOracle) Probability(map[string]float64) (float64, bool) {
	f.called++
	return f.prob, f.probOK
}

func (f *fakeOracle) Explanation(symbol string) (service.Explanation, bool) {
	e, ok := f.exps[symbol]
	return e, ok
}

func normVec(vol, dd, sent, liq float64) models.NormalizedFeatureVector {
	return models.NormalizedFeatureVector{
		NormVolatility: vol,
		NormDrawdown:   dd,
		NormSentiment:  sent,
		NormLiquidity:  liq,
	}
}

func TestScoreModelPathWins(t *testing.T) {
	o := &fakeOracle{prob: 0.73, probOK: true}
	s := NewScorer(o, DefaultWeights(), nil)
	out := s.Score("AAPL", normVec(1, 1, 1, 1))
	assert.Equal(t, models.MethodModel, out.Method)
	assert.InDelta(t, 0.73, out.Score, 1e-12)
	assert.Empty(t, out.ShapDrivers)
}

func TestScoreFallsBackToExplanation(t *testing.T) {
	o := &fakeOracle{
		probOK: false,
		exps: map[string]service.Explanation{
			"TSLA": {
				RiskProbability: 0.61,
				DriversUp:       []service.ExplanationEntry{{Feature: "volatility_21d", Contribution: 0.12}},
				DriversDown:     []service.ExplanationEntry{{Feature: "sharpe_ratio", Contribution: -0.05}},
			},
		},
	}
	s := NewScorer(o, DefaultWeights(), nil)
	out := s.Score("TSLA", normVec(0, 0, 0, 0))
	assert.Equal(t, models.MethodShap, out.Method)
	assert.InDelta(t, 0.61, out.Score, 1e-12)
	require.Len(t, out.ShapDrivers, 2)
	assert.Equal(t, "↑ volatility_21d (+0.120)", out.ShapDrivers[0])
	assert.Equal(t, "↓ sharpe_ratio (-0.050)", out.ShapDrivers[1])
}

func TestScoreManualFallback(t *testing.T) {
	o := &fakeOracle{probOK: false}
	s := NewScorer(o, DefaultWeights(), nil)
	out := s.Score("UNKNOWN", normVec(0.5, 0.4, 0.3, 0.2))
	assert.Equal(t, models.MethodManual, out.Method)
	// 0.4*0.5 + 0.3*0.4 + 0.2*0.3 + 0.1*0.2
	assert.InDelta(t, 0.40, out.Score, 1e-12)
}

func TestScoreNilOracleGoesManual(t *testing.T) {
	s := NewScorer(nil, DefaultWeights(), nil)
	out := s.Score("AAPL", normVec(1, 1, 1, 1))
	assert.Equal(t, models.MethodManual, out.Method)
	assert.InDelta(t, 1.0, out.Score, 1e-12)
}

func TestScoreClipped(t *testing.T) {
	o := &fakeOracle{prob: 1.7, probOK: true}
	s := NewScorer(o, DefaultWeights(), nil)
	assert.Equal(t, 1.0, s.Score("AAPL", normVec(0, 0, 0, 0)).Score)

	o = &fakeOracle{prob: -0.3, probOK: true}
	s = NewScorer(o, DefaultWeights(), nil)
	assert.Equal(t, 0.0, s.Score("AAPL", normVec(0, 0, 0, 0)).Score)
}

func TestZeroWeightsReplacedByDefaults(t *testing.T) {
	s := NewScorer(nil, Weights{}, nil)
	out := s.Score("AAPL", normVec(1, 0, 0, 0))
	assert.InDelta(t, 0.4, out.Score, 1e-12)
}
