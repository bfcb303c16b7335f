package features

import (
	"math"
	"time"

	"RiskLens/internal/domain/models"
	applogger "RiskLens/pkg/logger"
)

const (
	// TradingDaysPerYear is the annualization base for daily bars.
	TradingDaysPerYear = 252

	epsilon = 1e-9
)

// Config holds the window and rate knobs for feature extraction.
type Config struct {
	VolShortWindow int
	VolLongWindow  int
	DrawdownWindow int
	BetaWindow     int
	SharpeWindow   int
	ATRWindow      int
	VolumeWindow   int
	RiskFreeRate   float64
	SharpeClip     float64
}

// DefaultConfig mirrors the documented defaults: 21d/60d volatility, 252d
// drawdown, 60d beta and Sharpe, 14d ATR, 20d volume windows, 2% risk-free.
func DefaultConfig() Config {
	return Config{
		VolShortWindow: 21,
		VolLongWindow:  60,
		DrawdownWindow: 252,
		BetaWindow:     60,
		SharpeWindow:   60,
		ATRWindow:      14,
		VolumeWindow:   20,
		RiskFreeRate:   0.02,
		SharpeClip:     5.0,
	}
}

// Extractor converts one instrument's bar history into a FeatureVector per
// date. Pure per call; safe to run concurrently across instruments.
type Extractor struct {
	cfg Config
	l   *applogger.Logger
}

func NewExtractor(cfg Config, l *applogger.Logger) *Extractor {
	if cfg.VolShortWindow <= 0 {
		cfg = DefaultConfig()
	}
	return &Extractor{cfg: cfg, l: l}
}

// ComputeReturns computes simple returns r_t = C_t/C_{t-1} - 1, aligned to
// the bar index. The first element is 0; non-positive closes yield 0.
func ComputeReturns(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		cur := bars[i].Close
		if prev <= 0 || cur <= 0 {
			continue
		}
		out[i] = cur/prev - 1
	}
	return out
}

// Extract produces one FeatureVector per bar. Pathological input (no bars
// with positive closes, single bar) yields default-filled vectors and a
// warning; it never returns an error.
func (e *Extractor) Extract(bars []models.PriceBar, benchmark []models.PriceBar) []models.FeatureVector {
	if len(bars) == 0 {
		return nil
	}
	symbol := bars[0].Symbol

	if !hasUsablePrices(bars) {
		if e.l != nil {
			e.l.Warn("pathological price history, emitting defaults",
				applogger.String("symbol", symbol),
				applogger.Int("bars", len(bars)),
			)
		}
		out := make([]models.FeatureVector, len(bars))
		for i, b := range bars {
			out[i] = defaultVector(b)
		}
		return out
	}

	rets := ComputeReturns(bars)
	benchRets := alignedBenchmarkReturns(bars, benchmark)
	tr := trueRanges(bars)
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		volumes[i] = b.Volume
	}

	out := make([]models.FeatureVector, len(bars))
	for i, b := range bars {
		fv := models.FeatureVector{
			Symbol:  symbol,
			Date:    b.Date,
			Close:   b.Close,
			Returns: rets[i],
		}
		fv.MaxDrawdown = e.maxDrawdown(bars, i)
		fv.Beta = e.beta(rets, benchRets, i)
		fv.SharpeRatio = e.sharpe(rets, i)
		fv.ATRPct = e.atrPct(tr, b.Close, i)
		fv.LiquidityRisk = e.liquidityRisk(volumes, i)
		out[i] = fv
	}

	e.fillVolatility(out, rets, e.cfg.VolShortWindow, func(fv *models.FeatureVector, v float64) { fv.Volatility21d = v })
	e.fillVolatility(out, rets, e.cfg.VolLongWindow, func(fv *models.FeatureVector, v float64) { fv.Volatility60d = v })
	return out
}

// fillVolatility computes annualized trailing volatility with a minimum
// usable window of window/2. Short-history slots are filled with the mean
// of the computed values so the series is never left undefined.
func (e *Extractor) fillVolatility(out []models.FeatureVector, rets []float64, window int, set func(*models.FeatureVector, float64)) {
	minPeriods := window / 2
	computed := make([]float64, 0, len(out))
	ok := make([]bool, len(out))
	vals := make([]float64, len(out))
	for i := range out {
		if sd, valid := WindowedStd(rets, i, window, minPeriods); valid {
			v := sd * math.Sqrt(TradingDaysPerYear)
			vals[i] = v
			ok[i] = true
			computed = append(computed, v)
		}
	}
	fill, _ := Mean(computed)
	for i := range out {
		if ok[i] {
			set(&out[i], vals[i])
		} else {
			set(&out[i], fill)
		}
	}
}

// maxDrawdown reports the deepest peak-to-trough decline within the
// trailing window (expanding before the window is full) as a positive
// percentage.
func (e *Extractor) maxDrawdown(bars []models.PriceBar, i int) float64 {
	start := i - e.cfg.DrawdownWindow + 1
	if start < 0 {
		start = 0
	}
	if i-start < 1 {
		return 0
	}
	peak := 0.0
	worst := 0.0
	for j := start; j <= i; j++ {
		c := bars[j].Close
		if c > peak {
			peak = c
		}
		if peak <= 0 {
			continue
		}
		dd := (c - peak) / peak
		if dd < worst {
			worst = dd
		}
	}
	return -worst * 100
}

// beta is covariance/variance over the trailing window of paired returns.
// Fewer than window/2 pairs or near-zero benchmark variance default to the
// market-neutral prior of 1.0.
func (e *Extractor) beta(rets []float64, benchRets []float64, i int) float64 {
	window := e.cfg.BetaWindow
	start := i - window + 1
	if start < 1 { // index 0 carries no return
		start = 1
	}
	var xs, ys []float64
	for j := start; j <= i && j < len(rets); j++ {
		if math.IsNaN(benchRets[j]) {
			continue
		}
		xs = append(xs, rets[j])
		ys = append(ys, benchRets[j])
	}
	if len(xs) < window/2 {
		return 1.0
	}
	cov, ok1 := SampleCov(xs, ys)
	mVar, ok2 := sampleVar(ys)
	if !ok1 || !ok2 || mVar < epsilon {
		return 1.0
	}
	return cov / mVar
}

func (e *Extractor) sharpe(rets []float64, i int) float64 {
	window := e.cfg.SharpeWindow
	minPeriods := window / 3
	m, okM := WindowedMean(rets, i, window, minPeriods)
	sd, okS := WindowedStd(rets, i, window, minPeriods)
	if !okM || !okS || sd == 0 {
		return 0
	}
	annRet := m * TradingDaysPerYear
	annStd := sd * math.Sqrt(TradingDaysPerYear)
	return Clip((annRet-e.cfg.RiskFreeRate)/annStd, -e.cfg.SharpeClip, e.cfg.SharpeClip)
}

func (e *Extractor) atrPct(tr []float64, close float64, i int) float64 {
	if close <= 0 {
		return 0
	}
	minPeriods := e.cfg.ATRWindow / 2
	if minPeriods < 1 {
		minPeriods = 1
	}
	atr, ok := WindowedMean(tr, i, e.cfg.ATRWindow, minPeriods)
	if !ok {
		// expanding mean until the window is usable
		atr, ok = WindowedMean(tr, i, e.cfg.ATRWindow, 1)
		if !ok {
			return 0
		}
	}
	return atr / close * 100
}

func (e *Extractor) liquidityRisk(volumes []float64, i int) float64 {
	window := e.cfg.VolumeWindow
	minPeriods := window / 2
	sd, okS := WindowedStd(volumes, i, window, minPeriods)
	m, okM := WindowedMean(volumes, i, window, minPeriods)
	if !okS || !okM {
		return 0
	}
	return sd / (m + epsilon)
}

// trueRanges computes TR_t = max(H-L, |H-prevC|, |L-prevC|) per bar; the
// first bar uses only H-L.
func trueRanges(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		hl := b.High - b.Low
		if i == 0 {
			out[i] = hl
			continue
		}
		prevC := bars[i-1].Close
		hc := math.Abs(b.High - prevC)
		lc := math.Abs(b.Low - prevC)
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// alignedBenchmarkReturns maps the benchmark's returns onto the
// instrument's bar indexes by date; unmatched dates are NaN and skipped by
// the beta window.
func alignedBenchmarkReturns(bars, benchmark []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(benchmark) < 2 {
		return out
	}
	byDate := make(map[time.Time]float64, len(benchmark))
	for i := 1; i < len(benchmark); i++ {
		prev := benchmark[i-1].Close
		cur := benchmark[i].Close
		if prev <= 0 || cur <= 0 {
			continue
		}
		byDate[dateKey(benchmark[i].Date)] = cur/prev - 1
	}
	for i, b := range bars {
		if r, ok := byDate[dateKey(b.Date)]; ok {
			out[i] = r
		}
	}
	return out
}

func dateKey(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleVar(xs []float64) (float64, bool) {
	sd, ok := SampleStd(xs)
	if !ok {
		return 0, false
	}
	return sd * sd, true
}

func hasUsablePrices(bars []models.PriceBar) bool {
	if len(bars) < 2 {
		return false
	}
	positive := 0
	for _, b := range bars {
		if b.Close > 0 {
			positive++
		}
	}
	return positive >= 2
}

func defaultVector(b models.PriceBar) models.FeatureVector {
	return models.FeatureVector{
		Symbol: b.Symbol,
		Date:   b.Date,
		Close:  b.Close,
		Beta:   1.0,
	}
}
