package service

import "RiskLens/internal/domain/models"

// ExplanationEntry is one signed factor contribution from an offline
// explainability pass.
type ExplanationEntry struct {
	Feature      string  `json:"feature"`
	Contribution float64 `json:"contribution"`
}

// Explanation is the precomputed per-symbol explanation artifact: a risk
// probability plus the top contributing and mitigating factors.
type Explanation struct {
	RiskProbability float64            `json:"risk_probability"`
	DriversUp       []ExplanationEntry `json:"risk_drivers_up"`
	DriversDown     []ExplanationEntry `json:"risk_drivers_down"`
}

// RiskOracle is the injectable scoring oracle backed by a trained model
// artifact. Either capability may be unavailable; callers degrade through
// the fallback chain rather than failing the run.
type RiskOracle interface {
	// Probability returns the positive-class probability in [0,1] for the
	// feature map. ok is false when no model artifact is loaded.
	Probability(features map[string]float64) (p float64, ok bool)

	// Explanation returns the precomputed explanation score for a symbol,
	// when the offline pass produced one.
	Explanation(symbol string) (Explanation, bool)
}

// VolForecast is an offline volatility forecast for one symbol.
type VolForecast struct {
	Garch30d float64 `json:"garch_forecast_30d"`
	Signal   string  `json:"signal"`
}

// VolForecaster exposes offline volatility forecasts. Optional capability;
// wired separately from RiskOracle so fakes stay small.
type VolForecaster interface {
	VolForecast(symbol string) (VolForecast, bool)
}

// SentimentProvider supplies the aggregated sentiment scalar per symbol.
// Absence of data is legal; implementations return ok=false and callers
// substitute neutral (0).
type SentimentProvider interface {
	Sentiment(symbol string) (models.SentimentPoint, bool)
}
