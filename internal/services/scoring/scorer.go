package scoring

import (
	"fmt"
	"math"

	"RiskLens/internal/domain/models"
	"RiskLens/internal/domain/service"
	applogger "RiskLens/pkg/logger"
)

// Weights are the manual composite weights. They should sum to 1; a
// mismatched sum is logged once at construction and used as-is.
type Weights struct {
	Volatility float64 `yaml:"volatility" default:"0.4"`
	Drawdown   float64 `yaml:"drawdown" default:"0.3"`
	Sentiment  float64 `yaml:"sentiment" default:"0.2"`
	Liquidity  float64 `yaml:"liquidity" default:"0.1"`
}

func DefaultWeights() Weights {
	return Weights{Volatility: 0.4, Drawdown: 0.3, Sentiment: 0.2, Liquidity: 0.1}
}

func (w Weights) Sum() float64 {
	return w.Volatility + w.Drawdown + w.Sentiment + w.Liquidity
}

// Outcome is one symbol's composite score plus the provenance of the stage
// that produced it. ShapDrivers is populated only on the explanation path.
type Outcome struct {
	Score       float64
	Method      models.ScoringMethod
	ShapDrivers []string
}

// Scorer walks the three-stage chain per symbol: trained model probability,
// then precomputed explanation score, then the weighted manual formula. A
// stage failing for one symbol never poisons the others; the manual stage
// cannot fail.
type Scorer struct {
	oracle  service.RiskOracle // nil means stages 1 and 2 are unavailable
	weights Weights
	l       *applogger.Logger
}

func NewScorer(oracle service.RiskOracle, weights Weights, l *applogger.Logger) *Scorer {
	if weights.Sum() == 0 {
		weights = DefaultWeights()
	}
	if math.Abs(weights.Sum()-1.0) > 1e-6 && l != nil {
		l.Warn("composite weights do not sum to 1, using as configured",
			applogger.Float64("sum", weights.Sum()),
		)
	}
	return &Scorer{oracle: oracle, weights: weights, l: l}
}

// Score produces the composite risk score for one symbol. The result is
// always clipped to [0,1] regardless of which stage produced it.
func (s *Scorer) Score(symbol string, nf models.NormalizedFeatureVector) Outcome {
	if s.oracle != nil {
		if p, ok := s.oracle.Probability(nf.Raw.AsMap()); ok {
			return Outcome{Score: clip01(p), Method: models.MethodModel}
		}
		if exp, ok := s.oracle.Explanation(symbol); ok {
			return Outcome{
				Score:       clip01(exp.RiskProbability),
				Method:      models.MethodShap,
				ShapDrivers: formatShapDrivers(exp),
			}
		}
	}
	return Outcome{Score: clip01(s.manual(nf)), Method: models.MethodManual}
}

// manual is the deterministic weighted composite over the normalized
// components. It is total: any input yields a score.
func (s *Scorer) manual(nf models.NormalizedFeatureVector) float64 {
	return s.weights.Volatility*nf.NormVolatility +
		s.weights.Drawdown*nf.NormDrawdown +
		s.weights.Sentiment*nf.NormSentiment +
		s.weights.Liquidity*nf.NormLiquidity
}

func formatShapDrivers(exp service.Explanation) []string {
	out := make([]string, 0, len(exp.DriversUp)+len(exp.DriversDown))
	for _, d := range exp.DriversUp {
		out = append(out, fmt.Sprintf("↑ %s (%+.3f)", d.Feature, d.Contribution))
	}
	for _, d := range exp.DriversDown {
		out = append(out, fmt.Sprintf("↓ %s (%+.3f)", d.Feature, d.Contribution))
	}
	return out
}

func clip01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
