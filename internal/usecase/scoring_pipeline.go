package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"RiskLens/internal/domain/models"
	drepo "RiskLens/internal/domain/repository"
	"RiskLens/internal/domain/service"
	svcmetrics "RiskLens/internal/service/metrics"
	"RiskLens/internal/services/alerts"
	"RiskLens/internal/services/backtest"
	"RiskLens/internal/services/features"
	"RiskLens/internal/services/scoring"
	pkgcache "RiskLens/pkg/cache"
	applogger "RiskLens/pkg/logger"
)

// PipelineConfig holds the scoring-run knobs.
type PipelineConfig struct {
	BenchmarkSymbol string
	LookbackBars    int
	Workers         int
}

// ScoringPipeline orchestrates a full scoring pass: per-symbol feature
// extraction fans out across workers, joins, then normalization, scoring,
// classification and ranking run over the whole cross-section. The last
// completed run is published atomically; readers never observe a run in
// flight.
type ScoringPipeline struct {
	cfg        PipelineConfig
	bars       drepo.BarStore
	scoreStore drepo.ScoreStore
	alertStore drepo.AlertStore
	alertSink  drepo.AlertSink // optional
	sentiment  service.SentimentProvider

	extractor  *features.Extractor
	normalizer *scoring.Normalizer
	scorer     *scoring.Scorer
	classifier *scoring.Classifier
	detector   *alerts.Detector

	last     atomic.Pointer[models.ScoringRun]
	snapshot pkgcache.Service // optional, survives restarts
	runs     sync.Mutex       // one scoring pass at a time
	l        *applogger.Logger
}

func NewScoringPipeline(
	cfg PipelineConfig,
	bars drepo.BarStore,
	scoreStore drepo.ScoreStore,
	alertStore drepo.AlertStore,
	alertSink drepo.AlertSink,
	sentiment service.SentimentProvider,
	extractor *features.Extractor,
	normalizer *scoring.Normalizer,
	scorer *scoring.Scorer,
	classifier *scoring.Classifier,
	detector *alerts.Detector,
	l *applogger.Logger,
) *ScoringPipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.LookbackBars <= 0 {
		cfg.LookbackBars = 365
	}
	return &ScoringPipeline{
		cfg:        cfg,
		bars:       bars,
		scoreStore: scoreStore,
		alertStore: alertStore,
		alertSink:  alertSink,
		sentiment:  sentiment,
		extractor:  extractor,
		normalizer: normalizer,
		scorer:     scorer,
		classifier: classifier,
		detector:   detector,
		l:          l,
	}
}

// SetSnapshotCache wires a cache that survives restarts: the last
// completed run is written through on success and read back when the
// in-memory pointer is cold.
func (p *ScoringPipeline) SetSnapshotCache(c pkgcache.Service) { p.snapshot = c }

const snapshotKey = "scoring:last_run"

// Last returns the most recent completed run, or nil before the first
// pass finishes. A cold process falls back to the cached snapshot.
func (p *ScoringPipeline) Last() *models.ScoringRun {
	if run := p.last.Load(); run != nil {
		return run
	}
	if p.snapshot == nil {
		return nil
	}
	var cached models.ScoringRun
	if err := p.snapshot.Get(context.Background(), snapshotKey, &cached); err != nil {
		return nil
	}
	p.last.CompareAndSwap(nil, &cached)
	return p.last.Load()
}

type extracted struct {
	symbol string
	vector models.FeatureVector
	err    error
}

// Run executes one scoring pass. Per-symbol failures are recovered into
// the run's Skipped map; only universe-wide failures (no symbols, storage
// down) surface as errors.
func (p *ScoringPipeline) Run(ctx context.Context) (*models.ScoringRun, error) {
	p.runs.Lock()
	defer p.runs.Unlock()

	start := time.Now()
	runAt := start.UTC()

	symbols, err := p.bars.ListSymbols(ctx)
	if err != nil {
		svcmetrics.ScoringRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	universe := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s != p.cfg.BenchmarkSymbol {
			universe = append(universe, s)
		}
	}
	if len(universe) == 0 {
		svcmetrics.ScoringRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("empty scoring universe")
	}

	benchmark, err := p.bars.GetLatestNBars(ctx, p.cfg.BenchmarkSymbol, p.cfg.LookbackBars)
	if err != nil {
		p.l.Warn("benchmark history unavailable, betas default to 1.0",
			applogger.String("symbol", p.cfg.BenchmarkSymbol),
			applogger.Error(err),
		)
		benchmark = nil
	}

	// fan out extraction, join before the cross-sectional stages
	results := make(chan extracted, len(universe))
	jobs := make(chan string)
	var wg sync.WaitGroup
	for w := 0; w < p.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				results <- p.extractOne(ctx, sym, benchmark)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, sym := range universe {
			select {
			case jobs <- sym:
			case <-ctx.Done():
				return
			}
		}
	}()
	wg.Wait()
	close(results)

	skipped := make(map[string]string)
	vectors := make([]models.FeatureVector, 0, len(universe))
	for r := range results {
		if r.err != nil {
			skipped[r.symbol] = r.err.Error()
			continue
		}
		vectors = append(vectors, r.vector)
	}
	if err := ctx.Err(); err != nil {
		svcmetrics.ScoringRunsTotal.WithLabelValues("cancelled").Inc()
		return nil, err
	}
	if len(vectors) == 0 {
		svcmetrics.ScoringRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("no symbol produced features (%d skipped)", len(skipped))
	}
	sort.Slice(vectors, func(i, j int) bool { return vectors[i].Symbol < vectors[j].Symbol })

	normalized := p.normalizer.Normalize(vectors)

	records := make([]models.RiskScoreRecord, 0, len(normalized))
	for _, nf := range normalized {
		out := p.scorer.Score(nf.Raw.Symbol, nf)
		drivers := out.ShapDrivers
		if len(drivers) == 0 {
			drivers = p.classifier.Drivers(nf)
		}
		records = append(records, models.RiskScoreRecord{
			Symbol:        nf.Raw.Symbol,
			Date:          nf.Raw.Date,
			Close:         nf.Raw.Close,
			RiskScore:     out.Score,
			RiskLevel:     p.classifier.Level(out.Score),
			RiskDrivers:   drivers,
			ScoringMethod: out.Method,
			Normalized:    nf,
		})
		svcmetrics.ScoringMethodTotal.WithLabelValues(string(out.Method)).Inc()
	}
	p.classifier.Rank(records)

	run := &models.ScoringRun{
		RunAt:    runAt,
		Records:  records,
		Skipped:  skipped,
		Universe: len(universe),
	}

	p.detectAndPersist(ctx, run)

	if err := p.scoreStore.AppendScores(ctx, runAt, records); err != nil {
		p.l.Error("score history append failed", applogger.Error(err))
	}

	p.last.Store(run)
	if p.snapshot != nil {
		if err := p.snapshot.Set(ctx, snapshotKey, run, 0); err != nil {
			p.l.Warn("snapshot cache write failed", applogger.Error(err))
		}
	}

	svcmetrics.ScoringRunDuration.Observe(time.Since(start).Seconds())
	svcmetrics.ScoringRunsTotal.WithLabelValues("ok").Inc()
	svcmetrics.SymbolsScored.Set(float64(len(records)))
	svcmetrics.SymbolsSkipped.Set(float64(len(skipped)))

	p.l.Info("scoring run completed",
		applogger.Int("scored", len(records)),
		applogger.Int("skipped", len(skipped)),
		applogger.Duration("took", time.Since(start)),
	)
	return run, nil
}

func (p *ScoringPipeline) extractOne(ctx context.Context, symbol string, benchmark []models.PriceBar) extracted {
	bars, err := p.bars.GetLatestNBars(ctx, symbol, p.cfg.LookbackBars)
	if err != nil {
		return extracted{symbol: symbol, err: fmt.Errorf("load bars: %w", err)}
	}
	if len(bars) < backtest.MinDataPoints {
		return extracted{symbol: symbol, err: fmt.Errorf("insufficient history: %d bars", len(bars))}
	}
	vecs := p.extractor.Extract(bars, benchmark)
	if len(vecs) == 0 {
		return extracted{symbol: symbol, err: fmt.Errorf("no features extracted")}
	}
	latest := vecs[len(vecs)-1]
	if p.sentiment != nil {
		if s, ok := p.sentiment.Sentiment(symbol); ok {
			latest.AvgSentiment = s.AvgSentiment
			latest.SentimentStd = s.SentimentStd
			latest.ArticleCount = s.ArticleCount
		}
	}
	return extracted{symbol: symbol, vector: latest}
}

// detectAndPersist compares the new run against the previous completed one,
// stores any alerts and publishes them to the sink. Alert failures are
// logged, never fatal to the run.
func (p *ScoringPipeline) detectAndPersist(ctx context.Context, run *models.ScoringRun) {
	prev := p.last.Load()
	if prev == nil {
		prev = p.baselineFromHistory(ctx, run.RunAt)
	}
	found := p.detector.Detect(run, prev)
	if len(found) == 0 {
		return
	}
	for _, a := range found {
		svcmetrics.AlertsEmitted.WithLabelValues(string(a.AlertType), string(a.Severity)).Inc()
	}
	if p.alertStore != nil {
		if err := p.alertStore.AppendAlerts(ctx, found); err != nil {
			p.l.Error("alert append failed", applogger.Error(err))
		}
	}
	if p.alertSink != nil {
		if err := p.alertSink.PublishAlerts(ctx, found); err != nil {
			p.l.Error("alert publish failed", applogger.Error(err))
		}
	}
}

// baselineFromHistory rebuilds a spike baseline from the persisted score
// history after a restart, when no in-memory run exists yet. Returns nil
// when there is no usable history; spike detection then skips.
func (p *ScoringPipeline) baselineFromHistory(ctx context.Context, before time.Time) *models.ScoringRun {
	if p.scoreStore == nil {
		return nil
	}
	scores, err := p.scoreStore.LatestScores(ctx, before)
	if err != nil {
		p.l.Warn("spike baseline unavailable", applogger.Error(err))
		return nil
	}
	if len(scores) == 0 {
		return nil
	}
	prev := &models.ScoringRun{Records: make([]models.RiskScoreRecord, 0, len(scores))}
	for sym, score := range scores {
		prev.Records = append(prev.Records, models.RiskScoreRecord{Symbol: sym, RiskScore: score})
	}
	return prev
}
