package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"RiskLens/internal/domain/models"
)

func TestLevelBoundaries(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	assert.Equal(t, models.RiskLow, c.Level(0.0))
	assert.Equal(t, models.RiskLow, c.Level(0.29))
	assert.Equal(t, models.RiskMedium, c.Level(0.3))
	assert.Equal(t, models.RiskMedium, c.Level(0.59))
	assert.Equal(t, models.RiskHigh, c.Level(0.6))
	assert.Equal(t, models.RiskHigh, c.Level(1.0))
}

func TestDriversFixedOrder(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	nf := models.NormalizedFeatureVector{
		NormVolatility: 0.8,
		NormDrawdown:   0.9,
		NormSentiment:  0.7,
		NormLiquidity:  0.75,
	}
	assert.Equal(t, []string{
		"High volatility",
		"Significant drawdown",
		"Negative news sentiment",
		"Liquidity concerns",
	}, c.Drivers(nf))
}

func TestDriversThresholdsAreStrict(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	// exactly at a trigger threshold does not fire
	nf := models.NormalizedFeatureVector{
		NormVolatility: 0.7,
		NormDrawdown:   0.7,
		NormSentiment:  0.6,
		NormLiquidity:  0.7,
	}
	assert.Equal(t, []string{"Stable metrics"}, c.Drivers(nf))
}

func TestDriversStableFallback(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	assert.Equal(t, []string{"Stable metrics"}, c.Drivers(models.NormalizedFeatureVector{}))
}

func TestRankDenseWithTies(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	records := []models.RiskScoreRecord{
		{Symbol: "A", RiskScore: 0.5},
		{Symbol: "B", RiskScore: 0.9},
		{Symbol: "C", RiskScore: 0.7},
		{Symbol: "D", RiskScore: 0.9},
		{Symbol: "E", RiskScore: 0.5},
		{Symbol: "F", RiskScore: 0.4},
	}
	c.Rank(records)

	got := map[string]int{}
	for _, r := range records {
		got[r.Symbol] = r.RiskRank
	}
	assert.Equal(t, map[string]int{
		"B": 1, "D": 1,
		"C": 2,
		"A": 3, "E": 3,
		"F": 4,
	}, got)
	// sorted descending by score after ranking
	assert.Equal(t, "B", records[0].Symbol)
	assert.Equal(t, "F", records[len(records)-1].Symbol)
}

func TestRankEmptyAndSingle(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	c.Rank(nil)

	one := []models.RiskScoreRecord{{Symbol: "A", RiskScore: 0.2}}
	c.Rank(one)
	assert.Equal(t, 1, one[0].RiskRank)
}
