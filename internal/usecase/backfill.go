package usecase

import (
	"context"
	"time"

	"RiskLens/internal/domain/models"
	applogger "RiskLens/pkg/logger"
)

// HistorySource provides daily candle history for backfill.
type HistorySource interface {
	Daily(ctx context.Context, symbol string, from, to time.Time) ([]*models.PriceBar, error)
}

// Backfiller seeds storage with daily history on cold start so the first
// scoring run has enough bars to work with. Per-symbol failures are
// logged and skipped.
type Backfiller struct {
	source  HistorySource
	proc    *BarProcessor
	symbols []string
	days    int
	l       *applogger.Logger
}

func NewBackfiller(source HistorySource, proc *BarProcessor, symbols []string, days int, l *applogger.Logger) *Backfiller {
	if days <= 0 {
		days = 365
	}
	return &Backfiller{source: source, proc: proc, symbols: symbols, days: days, l: l}
}

// Run fetches and stores history for every configured symbol. Returns the
// number of symbols successfully backfilled.
func (b *Backfiller) Run(ctx context.Context) int {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -b.days)

	done := 0
	for _, sym := range b.symbols {
		if err := ctx.Err(); err != nil {
			return done
		}
		bars, err := b.source.Daily(ctx, sym, from, to)
		if err != nil {
			b.warn("backfill fetch failed", sym, err)
			continue
		}
		if len(bars) == 0 {
			b.warn("backfill returned no bars", sym, nil)
			continue
		}
		if err := b.proc.ProcessBatch(ctx, bars); err != nil {
			b.warn("backfill store failed", sym, err)
			continue
		}
		done++
		if b.l != nil {
			b.l.Info("backfilled",
				applogger.String("symbol", sym),
				applogger.Int("bars", len(bars)),
			)
		}
	}
	return done
}

func (b *Backfiller) warn(msg, symbol string, err error) {
	if b.l == nil {
		return
	}
	fields := []applogger.Field{applogger.String("symbol", symbol)}
	if err != nil {
		fields = append(fields, applogger.Error(err))
	}
	b.l.Warn(msg, fields...)
}
