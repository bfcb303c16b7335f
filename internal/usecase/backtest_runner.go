package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"RiskLens/internal/domain/models"
	drepo "RiskLens/internal/domain/repository"
	svcmetrics "RiskLens/internal/service/metrics"
	"RiskLens/internal/services/backtest"
	applogger "RiskLens/pkg/logger"
)

// BacktestRunner resolves a simulation request against stored history and
// runs the engine. Each call is independent; runners are safe to share.
type BacktestRunner struct {
	bars     drepo.BarStore
	scores   drepo.ScoreStore
	engine   *backtest.Engine
	analyzer *backtest.Analyzer
	l        *applogger.Logger
}

func NewBacktestRunner(bars drepo.BarStore, scores drepo.ScoreStore, engine *backtest.Engine, analyzer *backtest.Analyzer, l *applogger.Logger) *BacktestRunner {
	return &BacktestRunner{bars: bars, scores: scores, engine: engine, analyzer: analyzer, l: l}
}

// Run loads the price window, resolves strategy parameters (including the
// stored risk-score series for the risk-based variant) and simulates.
func (r *BacktestRunner) Run(ctx context.Context, req models.BacktestRequest) (*models.BacktestResult, error) {
	symbol := strings.ToUpper(req.Symbol)
	bars, err := r.loadWindow(ctx, symbol, req.StartDaysAgo)
	if err != nil {
		return nil, err
	}

	params := models.StrategyParams{
		Kind:          models.StrategyKind(req.Strategy),
		RiskThreshold: req.RiskThreshold,
		ShortWindow:   req.ShortWindow,
		LongWindow:    req.LongWindow,
		Lookback:      req.Lookback,
		ZEntry:        req.ZEntry,
		ZExit:         req.ZExit,
	}
	if params.Kind == models.StrategyRiskThreshold {
		series, err := r.scores.ScoreSeries(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("load risk scores for %s: %w", symbol, err)
		}
		params.RiskScores = series
	}

	start := time.Now()
	result, err := r.engine.Run(symbol, bars, req.InitialCapital, params)
	if err != nil {
		return nil, err
	}
	svcmetrics.BacktestDuration.WithLabelValues(req.Strategy).Observe(time.Since(start).Seconds())
	r.l.Info("backtest run",
		applogger.String("symbol", symbol),
		applogger.String("strategy", req.Strategy),
		applogger.Int("bars", result.DataPoints),
		applogger.Duration("took", time.Since(start)),
	)
	return result, nil
}

// Analyze produces the historical analysis report over the lookback window.
func (r *BacktestRunner) Analyze(ctx context.Context, symbol string, days int) (*models.AnalysisReport, error) {
	symbol = strings.ToUpper(symbol)
	bars, err := r.loadWindow(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	return r.analyzer.Analyze(symbol, bars)
}

func (r *BacktestRunner) loadWindow(ctx context.Context, symbol string, daysAgo int) ([]models.PriceBar, error) {
	if daysAgo <= 0 {
		daysAgo = 365
	}
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -daysAgo)
	bars, err := r.bars.GetBars(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("load bars for %s: %w", symbol, err)
	}
	if len(bars) < backtest.MinDataPoints {
		return nil, fmt.Errorf("insufficient data for %s: need %d+ bars, have %d", symbol, backtest.MinDataPoints, len(bars))
	}
	return bars, nil
}
