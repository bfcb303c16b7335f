package usecase

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskLens/internal/domain/models"
	drepo "RiskLens/internal/domain/repository"
	"RiskLens/internal/services/alerts"
	"RiskLens/internal/services/features"
	"RiskLens/internal/services/scoring"
	applogger "RiskLens/pkg/logger"
)

type fakeBarStore struct {
	bars map[string][]models.PriceBar
}

func (f *fakeBarStore) GetBars(_ context.Context, symbol string, _, _ time.Time) ([]models.PriceBar, error) {
	return f.bars[symbol], nil
}

func (f *fakeBarStore) GetLatestNBars(_ context.Context, symbol string, n int) ([]models.PriceBar, error) {
	bars, ok := f.bars[symbol]
	if !ok {
		return nil, fmt.Errorf("no bars for %s", symbol)
	}
	if len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}

func (f *fakeBarStore) ListSymbols(context.Context) ([]string, error) {
	out := make([]string, 0, len(f.bars))
	for s := range f.bars {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

type memScoreStore struct {
	appended [][]models.RiskScoreRecord
	latest   map[string]float64
}

func (m *memScoreStore) AppendScores(_ context.Context, _ time.Time, records []models.RiskScoreRecord) error {
	m.appended = append(m.appended, records)
	return nil
}

func (m *memScoreStore) LatestScores(context.Context, time.Time) (map[string]float64, error) {
	return m.latest, nil
}

func (m *memScoreStore) ScoreSeries(context.Context, string) (map[time.Time]float64, error) {
	return nil, nil
}

type memAlertStore struct {
	alerts []models.AlertRecord
}

func (m *memAlertStore) AppendAlerts(_ context.Context, alerts []models.AlertRecord) error {
	m.alerts = append(m.alerts, alerts...)
	return nil
}

func (m *memAlertStore) RecentAlerts(context.Context, string, int) ([]models.AlertRecord, error) {
	return m.alerts, nil
}

type fakeAlertSink struct {
	published []models.AlertRecord
}

func (f *fakeAlertSink) PublishAlerts(_ context.Context, alerts []models.AlertRecord) error {
	f.published = append(f.published, alerts...)
	return nil
}

func (f *fakeAlertSink) Close() error { return nil }

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

// priceSeries builds an alternating up/down daily path; larger wiggle
// means more realized volatility.
func priceSeries(symbol string, n int, wiggle float64) []models.PriceBar {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, n)
	price := 100.0
	for i := range bars {
		step := wiggle
		if i%2 == 1 {
			step = -wiggle
		}
		price += step
		bars[i] = models.PriceBar{
			Symbol: symbol,
			Date:   base.AddDate(0, 0, i),
			Open:   price - 0.5,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1_000_000 + float64(i%7)*50_000,
		}
	}
	return bars
}

// sink is the domain interface so that passing nil yields a nil interface
// value, not an interface wrapping a nil pointer.
func newTestPipeline(t *testing.T, store *fakeBarStore, scores *memScoreStore, alertStore *memAlertStore, sink drepo.AlertSink) *ScoringPipeline {
	t.Helper()
	l := testLogger(t)
	return NewScoringPipeline(
		PipelineConfig{BenchmarkSymbol: "SPY", LookbackBars: 90, Workers: 2},
		store, scores, alertStore, sink, nil,
		features.NewExtractor(features.DefaultConfig(), l),
		scoring.NewNormalizer(scoring.DefaultNormalizerConfig()),
		scoring.NewScorer(nil, scoring.DefaultWeights(), l),
		scoring.NewClassifier(scoring.DefaultThresholds()),
		alerts.NewDetector(alerts.DefaultSpikeConfig(), l),
		l,
	)
}

func TestScoringRunScoresUniverse(t *testing.T) {
	store := &fakeBarStore{bars: map[string][]models.PriceBar{
		"AAPL": priceSeries("AAPL", 80, 0.5),
		"MSFT": priceSeries("MSFT", 80, 1.5),
		"NVDA": priceSeries("NVDA", 80, 3.0),
		"SPY":  priceSeries("SPY", 80, 1.0),
	}}
	scoreStore := &memScoreStore{}
	p := newTestPipeline(t, store, scoreStore, &memAlertStore{}, nil)

	run, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)

	// benchmark is excluded from the universe
	assert.Equal(t, 3, run.Universe)
	require.Len(t, run.Records, 3)
	assert.Empty(t, run.Skipped)

	for _, rec := range run.Records {
		assert.NotEqual(t, "SPY", rec.Symbol)
		assert.GreaterOrEqual(t, rec.RiskScore, 0.0)
		assert.LessOrEqual(t, rec.RiskScore, 1.0)
		assert.GreaterOrEqual(t, rec.RiskRank, 1)
		assert.Equal(t, models.MethodManual, rec.ScoringMethod)
		assert.NotEmpty(t, rec.RiskDrivers)
	}

	// records come back sorted by rank, highest risk first
	assert.Equal(t, 1, run.Records[0].RiskRank)
	for i := 1; i < len(run.Records); i++ {
		assert.GreaterOrEqual(t, run.Records[i].RiskRank, run.Records[i-1].RiskRank)
	}

	require.Len(t, scoreStore.appended, 1)
	assert.Same(t, run, p.Last())
}

func TestScoringRunSkipsShortHistory(t *testing.T) {
	store := &fakeBarStore{bars: map[string][]models.PriceBar{
		"AAPL": priceSeries("AAPL", 80, 0.5),
		"IPO":  priceSeries("IPO", 10, 0.5),
		"SPY":  priceSeries("SPY", 80, 1.0),
	}}
	p := newTestPipeline(t, store, &memScoreStore{}, &memAlertStore{}, nil)

	run, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, run.Records, 1)
	assert.Equal(t, "AAPL", run.Records[0].Symbol)
	require.Contains(t, run.Skipped, "IPO")
	assert.Contains(t, run.Skipped["IPO"], "insufficient history")
}

func TestScoringRunEmptyUniverseFails(t *testing.T) {
	store := &fakeBarStore{bars: map[string][]models.PriceBar{
		"SPY": priceSeries("SPY", 80, 1.0),
	}}
	p := newTestPipeline(t, store, &memScoreStore{}, &memAlertStore{}, nil)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty scoring universe")
}

func TestScoringRunColdStartSpikeBaseline(t *testing.T) {
	store := &fakeBarStore{bars: map[string][]models.PriceBar{
		"AAPL": priceSeries("AAPL", 80, 0.5),
		"SPY":  priceSeries("SPY", 80, 1.0),
	}}
	// a tiny persisted baseline guarantees the new score clears the
	// absolute spike threshold
	scoreStore := &memScoreStore{latest: map[string]float64{"AAPL": 0.01}}
	alertStore := &memAlertStore{}
	sink := &fakeAlertSink{}
	p := newTestPipeline(t, store, scoreStore, alertStore, sink)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	var spike *models.AlertRecord
	for i := range alertStore.alerts {
		if alertStore.alerts[i].AlertType == models.AlertSuddenSpike {
			spike = &alertStore.alerts[i]
		}
	}
	require.NotNil(t, spike, "expected a spike against the persisted baseline")
	assert.Equal(t, "AAPL", spike.Symbol)
	require.NotNil(t, spike.PrevRiskScore)
	assert.InDelta(t, 0.01, *spike.PrevRiskScore, 1e-9)
	assert.Equal(t, alertStore.alerts, sink.published)
}

func TestScoringRunWithoutSinkStoresAlerts(t *testing.T) {
	store := &fakeBarStore{bars: map[string][]models.PriceBar{
		"AAPL": priceSeries("AAPL", 80, 0.5),
		"SPY":  priceSeries("SPY", 80, 1.0),
	}}
	// baseline low enough that the run emits a spike alert with no sink
	// configured; the store is the only destination
	scoreStore := &memScoreStore{latest: map[string]float64{"AAPL": 0.01}}
	alertStore := &memAlertStore{}
	p := newTestPipeline(t, store, scoreStore, alertStore, nil)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, alertStore.alerts)
}

func TestScoringRunSecondRunBaselinesOnFirst(t *testing.T) {
	store := &fakeBarStore{bars: map[string][]models.PriceBar{
		"AAPL": priceSeries("AAPL", 80, 0.5),
		"MSFT": priceSeries("MSFT", 80, 2.0),
		"SPY":  priceSeries("SPY", 80, 1.0),
	}}
	alertStore := &memAlertStore{}
	p := newTestPipeline(t, store, &memScoreStore{}, alertStore, nil)

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	before := len(alertStore.alerts)

	second, err := p.Run(context.Background())
	require.NoError(t, err)

	// identical inputs: no score moved, so the second run may add only
	// high-risk re-alerts, never spikes
	for _, a := range alertStore.alerts[before:] {
		assert.NotEqual(t, models.AlertSuddenSpike, a.AlertType)
	}
	fr, _ := first.Record("AAPL")
	sr, ok := second.Record("AAPL")
	require.True(t, ok)
	assert.InDelta(t, fr.RiskScore, sr.RiskScore, 1e-12)
}
