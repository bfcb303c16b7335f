package scoring

import (
	"RiskLens/internal/domain/models"
	"RiskLens/internal/services/features"
)

const epsilon = 1e-9

// NormalizerConfig controls cross-sectional scaling.
type NormalizerConfig struct {
	// ClipPercentile bounds volatility and liquidity raw values before
	// scaling so a single outlier cannot compress everyone else to ~0.
	ClipPercentile float64
}

func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{ClipPercentile: 0.95}
}

// Normalizer maps raw features to [0,1] across the current universe.
// It needs the whole cross-section at once: all instruments' raw features
// for the date must be computed before Normalize runs.
type Normalizer struct {
	cfg NormalizerConfig
}

func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	if cfg.ClipPercentile <= 0 || cfg.ClipPercentile > 1 {
		cfg.ClipPercentile = 0.95
	}
	return &Normalizer{cfg: cfg}
}

// Normalize scales each scoring component to [0,1] across the universe.
// A degenerate distribution (max == min, single instrument) yields the
// neutral 0.5 for every member: a deliberate "no information" signal.
// Sentiment is inverted so that more negative news means more risk.
func (n *Normalizer) Normalize(vectors []models.FeatureVector) []models.NormalizedFeatureVector {
	out := make([]models.NormalizedFeatureVector, len(vectors))
	if len(vectors) == 0 {
		return out
	}

	vols := make([]float64, len(vectors))
	liqs := make([]float64, len(vectors))
	betas := make([]float64, len(vectors))
	atrs := make([]float64, len(vectors))
	for i, v := range vectors {
		vols[i] = v.Volatility21d
		liqs[i] = v.LiquidityRisk
		betas[i] = v.Beta
		atrs[i] = v.ATRPct
	}

	volScale := minMaxScaler(clipAt(vols, n.cfg.ClipPercentile))
	betaScale := minMaxScaler(betas)
	atrScale := minMaxScaler(atrs)
	liqCap, _ := features.Percentile(liqs, n.cfg.ClipPercentile)

	for i, v := range vectors {
		nf := models.NormalizedFeatureVector{Raw: v}
		nf.NormVolatility = volScale(features.Clip(v.Volatility21d, minOf(vols), liqOrSelf(vols, n.cfg.ClipPercentile)))
		nf.NormDrawdown = features.Clip(v.MaxDrawdown/100, 0, 1)
		nf.NormSentiment = features.Clip((1-v.AvgSentiment)/2, 0, 1)
		nf.NormLiquidity = scaleByCap(v.LiquidityRisk, liqCap)
		nf.NormBeta = betaScale(v.Beta)
		nf.NormATR = atrScale(v.ATRPct)
		out[i] = nf
	}
	return out
}

// minMaxScaler returns (x-min)/(max-min) over the fitted values, or the
// constant 0.5 when the range is degenerate.
func minMaxScaler(xs []float64) func(float64) float64 {
	if len(xs) == 0 {
		return func(float64) float64 { return 0.5 }
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if hi-lo < epsilon {
		return func(float64) float64 { return 0.5 }
	}
	return func(x float64) float64 {
		return features.Clip((x-lo)/(hi-lo), 0, 1)
	}
}

// scaleByCap divides by the percentile cap, the original anchoring used for
// liquidity risk; a zero cap is degenerate and maps to neutral.
func scaleByCap(x, cap float64) float64 {
	if cap < epsilon {
		return 0.5
	}
	return features.Clip(x/cap, 0, 1)
}

func clipAt(xs []float64, p float64) []float64 {
	cap, ok := features.Percentile(xs, p)
	if !ok {
		return xs
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		if x > cap {
			x = cap
		}
		out[i] = x
	}
	return out
}

func minOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	lo := xs[0]
	for _, x := range xs {
		if x < lo {
			lo = x
		}
	}
	return lo
}

func liqOrSelf(xs []float64, p float64) float64 {
	cap, ok := features.Percentile(xs, p)
	if !ok {
		return 0
	}
	return cap
}
