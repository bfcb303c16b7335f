package backtest

import (
	"math"
	"time"

	"RiskLens/internal/domain/models"
)

// TradingDaysPerYear is the annualization base for daily equity curves.
const TradingDaysPerYear = 252

func dateKey(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ComputeMetrics derives the standard performance set from an equity curve
// and its trade log. Degenerate inputs collapse to zeros, never to NaN:
// zero-variance curves report zero Sharpe and volatility, a curve with no
// losing bars reports zero Sortino, and no closed trade pairs report a zero
// win rate.
func ComputeMetrics(curve []models.EquityPoint, initialCapital float64, trades []models.TradeRecord) models.PerformanceMetrics {
	var m models.PerformanceMetrics
	m.TotalTrades = len(trades)
	if len(curve) == 0 || initialCapital <= 0 {
		return m
	}

	final := curve[len(curve)-1].Equity
	m.FinalEquity = final
	m.TotalReturn = (final - initialCapital) / initialCapital

	n := len(curve)
	m.AnnualReturn = math.Pow(1+m.TotalReturn, TradingDaysPerYear/float64(n)) - 1

	m.MaxDrawdown = maxDrawdown(curve)

	rets := dailyReturns(curve)
	if len(rets) > 1 {
		mean := meanOf(rets)
		std := popStd(rets)
		if std > 0 {
			m.SharpeRatio = (mean * TradingDaysPerYear) / (std * math.Sqrt(TradingDaysPerYear))
		}
		m.AnnualVolatility = std * math.Sqrt(TradingDaysPerYear)

		var downside []float64
		for _, r := range rets {
			if r < 0 {
				downside = append(downside, r)
			}
		}
		if len(downside) > 0 {
			dd := popStd(downside) * math.Sqrt(TradingDaysPerYear)
			if dd > 0 {
				m.SortinoRatio = mean * TradingDaysPerYear / dd
			}
		}
	}

	m.WinRate = winRate(trades)
	return m
}

// maxDrawdown is the deepest decline from the running equity peak,
// reported as a negative fraction (0 for a curve that never declines).
func maxDrawdown(curve []models.EquityPoint) float64 {
	peak := 0.0
	worst := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak <= 0 {
			continue
		}
		dd := (p.Equity - peak) / peak
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

func dailyReturns(curve []models.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, curve[i].Equity/prev-1)
	}
	return out
}

// winRate pairs consecutive BUY then SELL trades and reports the fraction
// whose sell price exceeded the buy price. Unpaired trades (an open
// position at the end of the window) are ignored.
func winRate(trades []models.TradeRecord) float64 {
	wins := 0
	pairs := 0
	i := 0
	for i < len(trades)-1 {
		if trades[i].Action == models.ActionBuy && trades[i+1].Action == models.ActionSell {
			pairs++
			if trades[i+1].Price > trades[i].Price {
				wins++
			}
			i += 2
		} else {
			i++
		}
	}
	if pairs == 0 {
		return 0
	}
	return float64(wins) / float64(pairs)
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// popStd is the population standard deviation (n denominator).
func popStd(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	m := meanOf(xs)
	sum2 := 0.0
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(n))
}
