package oracle

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"RiskLens/internal/domain/models"
	"RiskLens/internal/domain/service"
	applogger "RiskLens/pkg/logger"
)

// Config points at the offline training artifacts. Any path may be empty
// or missing; the corresponding capability is simply reported unavailable.
type Config struct {
	ModelPath        string `yaml:"model_path"`
	ExplanationsPath string `yaml:"explanations_path"`
	VolForecastsPath string `yaml:"vol_forecasts_path"`
	SentimentPath    string `yaml:"sentiment_path"`
}

// logitModel is the exported classifier: a logistic regression over named
// features. Features absent from the input map contribute zero.
type logitModel struct {
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
}

// Artifact serves model probabilities, explanation scores, volatility
// forecasts and sentiment aggregates from JSON files produced by the
// offline training pipeline. All lookups are read-only after Load.
type Artifact struct {
	model        *logitModel
	explanations map[string]service.Explanation
	forecasts    map[string]service.VolForecast
	sentiment    map[string]models.SentimentPoint
	l            *applogger.Logger
}

var _ service.RiskOracle = (*Artifact)(nil)
var _ service.VolForecaster = (*Artifact)(nil)
var _ service.SentimentProvider = (*Artifact)(nil)

// Load reads whichever artifacts exist. A missing or unreadable file
// degrades that capability and logs a warning; it never fails the load,
// so a deployment with no trained model still scores via the manual path.
func Load(cfg Config, l *applogger.Logger) *Artifact {
	a := &Artifact{l: l}

	if cfg.ModelPath != "" {
		var m logitModel
		if err := readJSON(cfg.ModelPath, &m); err != nil {
			a.warn("model artifact unavailable", cfg.ModelPath, err)
		} else if len(m.Coefficients) == 0 {
			a.warn("model artifact has no coefficients", cfg.ModelPath, nil)
		} else {
			a.model = &m
			a.info("model artifact loaded", applogger.Int("features", len(m.Coefficients)))
		}
	}

	if cfg.ExplanationsPath != "" {
		if err := readJSON(cfg.ExplanationsPath, &a.explanations); err != nil {
			a.warn("explanations artifact unavailable", cfg.ExplanationsPath, err)
		} else {
			a.info("explanations loaded", applogger.Int("symbols", len(a.explanations)))
		}
	}

	if cfg.VolForecastsPath != "" {
		if err := readJSON(cfg.VolForecastsPath, &a.forecasts); err != nil {
			a.warn("vol forecasts unavailable", cfg.VolForecastsPath, err)
		} else {
			a.info("vol forecasts loaded", applogger.Int("symbols", len(a.forecasts)))
		}
	}

	if cfg.SentimentPath != "" {
		if err := readJSON(cfg.SentimentPath, &a.sentiment); err != nil {
			a.warn("sentiment artifact unavailable", cfg.SentimentPath, err)
		} else {
			a.info("sentiment loaded", applogger.Int("symbols", len(a.sentiment)))
		}
	}

	return a
}

// Probability applies the logistic model to the feature map. ok is false
// when no model artifact was loaded.
func (a *Artifact) Probability(features map[string]float64) (float64, bool) {
	if a.model == nil {
		return 0, false
	}
	z := a.model.Intercept
	for name, coef := range a.model.Coefficients {
		z += coef * features[name]
	}
	return 1 / (1 + math.Exp(-z)), true
}

func (a *Artifact) Explanation(symbol string) (service.Explanation, bool) {
	e, ok := a.explanations[symbol]
	return e, ok
}

func (a *Artifact) VolForecast(symbol string) (service.VolForecast, bool) {
	f, ok := a.forecasts[symbol]
	return f, ok
}

func (a *Artifact) Sentiment(symbol string) (models.SentimentPoint, bool) {
	s, ok := a.sentiment[symbol]
	if ok {
		s.Symbol = symbol
	}
	return s, ok
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (a *Artifact) warn(msg, path string, err error) {
	if a.l == nil {
		return
	}
	fields := []applogger.Field{applogger.String("path", path)}
	if err != nil {
		fields = append(fields, applogger.Error(err))
	}
	a.l.Warn(msg, fields...)
}

func (a *Artifact) info(msg string, fields ...applogger.Field) {
	if a.l != nil {
		a.l.Info(msg, fields...)
	}
}
