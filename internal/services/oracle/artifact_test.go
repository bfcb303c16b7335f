package oracle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFilesDegrades(t *testing.T) {
	a := Load(Config{
		ModelPath:        "/nonexistent/model.json",
		ExplanationsPath: "/nonexistent/shap.json",
	}, nil)

	_, ok := a.Probability(map[string]float64{"volatility_21d": 0.5})
	assert.False(t, ok)
	_, ok = a.Explanation("AAPL")
	assert.False(t, ok)
	_, ok = a.VolForecast("AAPL")
	assert.False(t, ok)
}

func TestProbabilityLogistic(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "model.json", `{
		"intercept": 0,
		"coefficients": {"volatility_21d": 1.0, "max_drawdown": 0.0}
	}`)
	a := Load(Config{ModelPath: model}, nil)

	// zero input hits the intercept: sigmoid(0) = 0.5
	p, ok := a.Probability(map[string]float64{})
	require.True(t, ok)
	assert.InDelta(t, 0.5, p, 1e-12)

	p, _ = a.Probability(map[string]float64{"volatility_21d": 2.0})
	assert.Greater(t, p, 0.85)
	assert.Less(t, p, 1.0)

	// unknown features in the input are ignored
	p2, _ := a.Probability(map[string]float64{"volatility_21d": 2.0, "mystery": 99})
	assert.Equal(t, p, p2)
}

func TestExplanationLookup(t *testing.T) {
	dir := t.TempDir()
	shap := writeFile(t, dir, "shap.json", `{
		"TSLA": {
			"risk_probability": 0.71,
			"risk_drivers_up": [{"feature": "volatility_21d", "contribution": 0.2}],
			"risk_drivers_down": [{"feature": "sharpe_ratio", "contribution": -0.1}]
		}
	}`)
	a := Load(Config{ExplanationsPath: shap}, nil)

	e, ok := a.Explanation("TSLA")
	require.True(t, ok)
	assert.InDelta(t, 0.71, e.RiskProbability, 1e-12)
	require.Len(t, e.DriversUp, 1)
	assert.Equal(t, "volatility_21d", e.DriversUp[0].Feature)

	_, ok = a.Explanation("AAPL")
	assert.False(t, ok)
}

func TestVolForecastAndSentiment(t *testing.T) {
	dir := t.TempDir()
	vol := writeFile(t, dir, "vol.json", `{
		"NVDA": {"garch_forecast_30d": 0.42, "signal": "elevated"}
	}`)
	sent := writeFile(t, dir, "sentiment.json", `{
		"NVDA": {"avg_sentiment": -0.3, "sentiment_std": 0.2, "article_count": 12}
	}`)
	a := Load(Config{VolForecastsPath: vol, SentimentPath: sent}, nil)

	f, ok := a.VolForecast("NVDA")
	require.True(t, ok)
	assert.InDelta(t, 0.42, f.Garch30d, 1e-12)
	assert.Equal(t, "elevated", f.Signal)

	s, ok := a.Sentiment("NVDA")
	require.True(t, ok)
	assert.Equal(t, "NVDA", s.Symbol)
	assert.InDelta(t, -0.3, s.AvgSentiment, 1e-12)
	assert.Equal(t, 12, s.ArticleCount)
}

func TestLoadCorruptModelIgnored(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "model.json", `{not json`)
	a := Load(Config{ModelPath: model}, nil)
	_, ok := a.Probability(map[string]float64{})
	assert.False(t, ok)
}
