package models

import "time"

// FeatureVector holds the windowed risk features for one (symbol, date).
// Derived and recomputable; a recomputation replaces the prior value.
type FeatureVector struct {
	Symbol        string
	Date          time.Time
	Close         float64
	Returns       float64
	Volatility21d float64
	Volatility60d float64
	MaxDrawdown   float64 // positive percent decline from the trailing peak
	Beta          float64
	SharpeRatio   float64
	ATRPct        float64
	LiquidityRisk float64
	AvgSentiment  float64
	SentimentStd  float64
	ArticleCount  int
}

// NormalizedFeatureVector carries each scoring component mapped to [0,1]
// alongside the raw vector it was derived from. Raw values are never
// discarded; they back the driver explanations.
type NormalizedFeatureVector struct {
	Raw FeatureVector

	NormVolatility float64
	NormDrawdown   float64
	NormSentiment  float64
	NormLiquidity  float64
	NormBeta       float64
	NormATR        float64
}

// AsMap exposes the raw features under stable names for the model oracle.
func (f FeatureVector) AsMap() map[string]float64 {
	return map[string]float64{
		"returns":        f.Returns,
		"volatility_21d": f.Volatility21d,
		"volatility_60d": f.Volatility60d,
		"max_drawdown":   f.MaxDrawdown,
		"beta":           f.Beta,
		"sharpe_ratio":   f.SharpeRatio,
		"atr_pct":        f.ATRPct,
		"liquidity_risk": f.LiquidityRisk,
		"avg_sentiment":  f.AvgSentiment,
	}
}
