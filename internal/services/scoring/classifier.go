package scoring

import (
	"sort"

	"RiskLens/internal/domain/models"
)

// Thresholds define the level buckets and the per-component driver
// triggers. Boundary scores fall into the higher bucket: a score exactly at
// LowBelow is Medium, exactly at MediumBelow is High.
type Thresholds struct {
	LowBelow    float64 `yaml:"low_below" default:"0.3"`
	MediumBelow float64 `yaml:"medium_below" default:"0.6"`

	VolatilityDriver float64 `yaml:"volatility_driver" default:"0.7"`
	DrawdownDriver   float64 `yaml:"drawdown_driver" default:"0.7"`
	SentimentDriver  float64 `yaml:"sentiment_driver" default:"0.6"`
	LiquidityDriver  float64 `yaml:"liquidity_driver" default:"0.7"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		LowBelow:         0.3,
		MediumBelow:      0.6,
		VolatilityDriver: 0.7,
		DrawdownDriver:   0.7,
		SentimentDriver:  0.6,
		LiquidityDriver:  0.7,
	}
}

// Classifier assigns levels, driver labels and dense ranks to scored
// records.
type Classifier struct {
	t Thresholds
}

func NewClassifier(t Thresholds) *Classifier {
	if t.MediumBelow <= t.LowBelow {
		t = DefaultThresholds()
	}
	return &Classifier{t: t}
}

// Level buckets a composite score.
func (c *Classifier) Level(score float64) models.RiskLevel {
	switch {
	case score < c.t.LowBelow:
		return models.RiskLow
	case score < c.t.MediumBelow:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

// Drivers names the components that triggered, in a fixed order so output
// is stable across runs. When nothing triggers the single label "Stable
// metrics" is returned, never an empty list.
func (c *Classifier) Drivers(nf models.NormalizedFeatureVector) []string {
	var out []string
	if nf.NormVolatility > c.t.VolatilityDriver {
		out = append(out, "High volatility")
	}
	if nf.NormDrawdown > c.t.DrawdownDriver {
		out = append(out, "Significant drawdown")
	}
	if nf.NormSentiment > c.t.SentimentDriver {
		out = append(out, "Negative news sentiment")
	}
	if nf.NormLiquidity > c.t.LiquidityDriver {
		out = append(out, "Liquidity concerns")
	}
	if len(out) == 0 {
		out = append(out, "Stable metrics")
	}
	return out
}

// Rank assigns dense descending ranks in place: the highest score gets
// rank 1, equal scores share a rank, and the next distinct score gets the
// previous rank plus one with no gaps. Records are left sorted by rank.
func (c *Classifier) Rank(records []models.RiskScoreRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].RiskScore > records[j].RiskScore
	})
	rank := 0
	prev := 0.0
	for i := range records {
		if rank == 0 || records[i].RiskScore != prev {
			rank++
			prev = records[i].RiskScore
		}
		records[i].RiskRank = rank
	}
}
