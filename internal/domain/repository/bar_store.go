package repository

import (
	"context"
	"time"

	"RiskLens/internal/domain/models"
)

// BarStore provides read-only access to daily price history for scoring
// and backtesting. Bars come back in ascending date order.
type BarStore interface {
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error)
	GetLatestNBars(ctx context.Context, symbol string, n int) ([]models.PriceBar, error)
	ListSymbols(ctx context.Context) ([]string, error)
}

// ScoreStore persists scoring output. The history log is append-only and
// backs spike detection and trend queries; a run never overwrites
// historical dates.
type ScoreStore interface {
	AppendScores(ctx context.Context, runAt time.Time, records []models.RiskScoreRecord) error
	// LatestScores returns the most recent historical score per symbol
	// strictly before the given time (the previous completed run).
	LatestScores(ctx context.Context, before time.Time) (map[string]float64, error)
	// ScoreSeries returns dated scores for one symbol, ascending.
	ScoreSeries(ctx context.Context, symbol string) (map[time.Time]float64, error)
}

// AlertStore appends emitted alerts and reads recent ones back.
type AlertStore interface {
	AppendAlerts(ctx context.Context, alerts []models.AlertRecord) error
	RecentAlerts(ctx context.Context, symbol string, limit int) ([]models.AlertRecord, error)
}

// AlertSink publishes alerts to downstream consumers (message bus).
type AlertSink interface {
	PublishAlerts(ctx context.Context, alerts []models.AlertRecord) error
	Close() error
}
