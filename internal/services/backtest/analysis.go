package backtest

import (
	"fmt"
	"math"
	"sort"

	"RiskLens/internal/domain/models"
	"RiskLens/internal/services/features"
)

const (
	rollingWindow   = 30
	histogramBins   = 40
	topDrawdowns    = 10
	topDays         = 5
	drawdownEnterAt = -0.01
	drawdownExitAt  = -0.001
)

// Analyzer derives the historical report (drawdown episodes, rolling
// metrics, return distribution, period returns) from a raw price series.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze builds the full report. It needs MinDataPoints bars, the same
// floor as a simulation.
func (a *Analyzer) Analyze(symbol string, bars []models.PriceBar) (*models.AnalysisReport, error) {
	if len(bars) < MinDataPoints {
		return nil, fmt.Errorf("insufficient data for %s: need %d+ bars, have %d", symbol, MinDataPoints, len(bars))
	}

	closes := closesOf(bars)
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			rets = append(rets, 0)
			continue
		}
		rets = append(rets, closes[i]/closes[i-1]-1)
	}

	report := &models.AnalysisReport{
		Symbol:     symbol,
		DataPoints: len(bars),
		Start:      bars[0].Date,
		End:        bars[len(bars)-1].Date,
	}
	report.Drawdowns = a.drawdowns(bars, closes)
	report.Rolling = a.rolling(bars, closes, rets)
	report.Distribution = a.distribution(rets)
	report.PeriodReturns = a.periodReturns(closes)
	report.BestDays, report.WorstDays = a.bestWorst(bars, rets)
	return report, nil
}

// drawdowns walks the running peak, collecting completed episodes: entry
// below -1%, recovery at -0.1% or better. The worst episodes by depth are
// kept.
func (a *Analyzer) drawdowns(bars []models.PriceBar, closes []float64) models.DrawdownAnalysis {
	n := len(closes)
	ddPct := make([]float64, n)
	peak := 0.0
	for i, c := range closes {
		if c > peak {
			peak = c
		}
		if peak > 0 {
			ddPct[i] = (c - peak) / peak
		}
	}

	maxDD := 0.0
	for _, d := range ddPct {
		if d < maxDD {
			maxDD = d
		}
	}

	var periods []models.DrawdownPeriod
	inDD := false
	start := 0
	for i := 0; i < n; i++ {
		if ddPct[i] < drawdownEnterAt && !inDD {
			inDD = true
			start = i
		} else if ddPct[i] >= drawdownExitAt && inDD {
			inDD = false
			depth := 0.0
			trough := start
			for j := start; j <= i; j++ {
				if ddPct[j] < depth {
					depth = ddPct[j]
					trough = j
				}
			}
			periods = append(periods, models.DrawdownPeriod{
				Start:        bars[start].Date,
				Trough:       bars[trough].Date,
				Recovery:     bars[i].Date,
				Depth:        depth,
				DurationDays: int(bars[i].Date.Sub(bars[start].Date).Hours() / 24),
			})
		}
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Depth < periods[j].Depth })
	if len(periods) > topDrawdowns {
		periods = periods[:topDrawdowns]
	}

	curve := make([]models.DrawdownPoint, n)
	for i := range bars {
		curve[i] = models.DrawdownPoint{Date: bars[i].Date, Drawdown: ddPct[i] * 100}
	}

	return models.DrawdownAnalysis{
		MaxDrawdown:     maxDD,
		CurrentDrawdown: ddPct[n-1],
		TopDrawdowns:    periods,
		DrawdownCurve:   curve,
	}
}

func (a *Analyzer) rolling(bars []models.PriceBar, closes, rets []float64) []models.RollingMetricPoint {
	var out []models.RollingMetricPoint
	for i := rollingWindow; i < len(closes); i++ {
		w := rets[i-rollingWindow : i]
		mean := meanOf(w)
		std := popStd(w)
		total := closes[i]/closes[i-rollingWindow] - 1
		sharpe := 0.0
		if std > 0 {
			sharpe = mean * TradingDaysPerYear / (std * math.Sqrt(TradingDaysPerYear))
		}
		out = append(out, models.RollingMetricPoint{
			Date:      bars[i].Date,
			Return30d: total * 100,
			Vol30d:    std * math.Sqrt(TradingDaysPerYear) * 100,
			Sharpe30d: sharpe,
		})
	}
	return out
}

func (a *Analyzer) distribution(rets []float64) models.ReturnDistribution {
	pct := make([]float64, len(rets))
	positive, negative := 0, 0
	for i, r := range rets {
		pct[i] = r * 100
		if r > 0 {
			positive++
		} else if r < 0 {
			negative++
		}
	}

	stats := models.DistributionStats{
		Mean:         meanOf(pct),
		Std:          popStd(pct),
		PositiveDays: positive,
		NegativeDays: negative,
		TotalDays:    len(rets),
	}
	if sk, ok := features.Skewness(rets); ok {
		stats.Skew = sk
	}
	if ku, ok := features.Kurtosis(rets); ok {
		stats.Kurtosis = ku
	}
	if len(pct) > 0 {
		min, max := pct[0], pct[0]
		for _, v := range pct {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		stats.Min = min
		stats.Max = max
	}

	return models.ReturnDistribution{
		Histogram: histogram(pct, histogramBins),
		Stats:     stats,
	}
}

// histogram buckets the values into equal-width bins between min and max;
// Bin carries the bucket midpoint.
func histogram(xs []float64, bins int) []models.HistogramBin {
	if len(xs) == 0 || bins <= 0 {
		return nil
	}
	min, max := xs[0], xs[0]
	for _, x := range xs {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	width := (max - min) / float64(bins)
	out := make([]models.HistogramBin, bins)
	for i := range out {
		out[i].Bin = min + width*(float64(i)+0.5)
	}
	if width == 0 {
		out[0].Count = len(xs)
		return out
	}
	for _, x := range xs {
		idx := int((x - min) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

// periodReturns looks back fixed trading-day horizons; a horizon longer
// than the history yields nil.
func (a *Analyzer) periodReturns(closes []float64) map[string]*float64 {
	horizons := []struct {
		label string
		days  int
	}{
		{"1w", 5}, {"1m", 21}, {"3m", 63}, {"6m", 126}, {"1y", 252},
	}
	out := make(map[string]*float64, len(horizons))
	last := closes[len(closes)-1]
	for _, h := range horizons {
		if len(closes) > h.days {
			base := closes[len(closes)-h.days-1]
			if base != 0 {
				v := last/base - 1
				out[h.label] = &v
				continue
			}
		}
		out[h.label] = nil
	}
	return out
}

func (a *Analyzer) bestWorst(bars []models.PriceBar, rets []float64) (best, worst []models.DayReturn) {
	days := make([]models.DayReturn, len(rets))
	for i, r := range rets {
		days[i] = models.DayReturn{Date: bars[i+1].Date, ReturnPct: r * 100}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].ReturnPct < days[j].ReturnPct })

	k := topDays
	if k > len(days) {
		k = len(days)
	}
	worst = append(worst, days[:k]...)
	for i := 0; i < k; i++ {
		best = append(best, days[len(days)-1-i])
	}
	return best, worst
}
