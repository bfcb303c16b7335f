package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskLens/internal/domain/models"
)

type fakeHistory struct {
	bars map[string][]*models.PriceBar
}

func (f *fakeHistory) Daily(_ context.Context, symbol string, _, _ time.Time) ([]*models.PriceBar, error) {
	bars, ok := f.bars[symbol]
	if !ok {
		return nil, fmt.Errorf("no data for %s", symbol)
	}
	return bars, nil
}

type captureStorage struct {
	batches [][]*models.PriceBar
}

func (c *captureStorage) Init(context.Context) error { return nil }

func (c *captureStorage) Store(context.Context, *models.PriceBar) error { return nil }
func (c *captureStorage) StoreBatch(_ context.Context, bars []*models.PriceBar) error {
	c.batches = append(c.batches, bars)
	return nil
}
func (c *captureStorage) Query(context.Context, string, time.Time, time.Time, int) ([]*models.PriceBar, error) {
	return nil, nil
}
func (c *captureStorage) Health(context.Context) error { return nil }
func (c *captureStorage) Close() error                 { return nil }

type noopMetrics struct{}

func (noopMetrics) RecordMessageSent(string, string) {}
func (noopMetrics) RecordError(string)               {}
func (noopMetrics) RecordLastPrice(string, float64)  {}
func (noopMetrics) RecordLatency(string, float64)    {}

func barsFor(symbol string, n int) []*models.PriceBar {
	out := make([]*models.PriceBar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = &models.PriceBar{
			Symbol: symbol,
			Date:   base.AddDate(0, 0, i),
			Open:   100,
			High:   101,
			Low:    99,
			Close:  100,
			Volume: 1000,
		}
	}
	return out
}

func TestBackfillerStoresEachSymbol(t *testing.T) {
	store := &captureStorage{}
	proc := NewBarProcessor(nil, store, noopMetrics{}, "clickhouse", 500, time.Second)
	src := &fakeHistory{bars: map[string][]*models.PriceBar{
		"AAPL": barsFor("AAPL", 40),
		"SPY":  barsFor("SPY", 40),
	}}

	b := NewBackfiller(src, proc, []string{"AAPL", "SPY"}, 90, nil)
	got := b.Run(context.Background())

	assert.Equal(t, 2, got)
	require.Len(t, store.batches, 2)
	assert.Len(t, store.batches[0], 40)
}

func TestBackfillerSkipsFailedSymbols(t *testing.T) {
	store := &captureStorage{}
	proc := NewBarProcessor(nil, store, noopMetrics{}, "clickhouse", 500, time.Second)
	src := &fakeHistory{bars: map[string][]*models.PriceBar{
		"MSFT": barsFor("MSFT", 35),
	}}

	b := NewBackfiller(src, proc, []string{"MSFT", "UNKNOWN"}, 90, nil)
	got := b.Run(context.Background())

	assert.Equal(t, 1, got)
	require.Len(t, store.batches, 1)
	assert.Equal(t, "MSFT", store.batches[0][0].Symbol)
}

func TestBackfillerStopsOnCancelledContext(t *testing.T) {
	store := &captureStorage{}
	proc := NewBarProcessor(nil, store, noopMetrics{}, "clickhouse", 500, time.Second)
	src := &fakeHistory{bars: map[string][]*models.PriceBar{"AAPL": barsFor("AAPL", 40)}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBackfiller(src, proc, []string{"AAPL"}, 90, nil)
	assert.Equal(t, 0, b.Run(ctx))
	assert.Empty(t, store.batches)
}
