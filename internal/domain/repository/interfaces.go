package repository

import (
	"context"
	"time"

	"RiskLens/internal/domain/models"
)

// MarketStream delivers price bars from an external provider.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.PriceBar, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher publishes price bars to the message bus.
type Publisher interface {
	Publish(ctx context.Context, b *models.PriceBar) error
	PublishBatch(ctx context.Context, bars []*models.PriceBar) error
	Close() error
}

// Storage is the write side of bar persistence.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, b *models.PriceBar) error
	StoreBatch(ctx context.Context, bars []*models.PriceBar) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.PriceBar, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// Metrics abstracts operational metric recording.
type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
