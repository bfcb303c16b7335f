package models

import "time"

// DrawdownPeriod is one completed decline-and-recovery episode.
type DrawdownPeriod struct {
	Start        time.Time
	Trough       time.Time
	Recovery     time.Time
	Depth        float64 // negative fraction at the trough
	DurationDays int
}

// DrawdownPoint is one bar of the drawdown curve, in percent.
type DrawdownPoint struct {
	Date     time.Time
	Drawdown float64
}

// DrawdownAnalysis summarizes declines over the analysis window.
type DrawdownAnalysis struct {
	MaxDrawdown     float64
	CurrentDrawdown float64
	TopDrawdowns    []DrawdownPeriod
	DrawdownCurve   []DrawdownPoint
}

// RollingMetricPoint carries trailing 30-day performance for one date.
// Return and volatility are in percent.
type RollingMetricPoint struct {
	Date      time.Time
	Return30d float64
	Vol30d    float64
	Sharpe30d float64
}

// HistogramBin is one bucket of the daily-return distribution; Bin is the
// bucket midpoint in percent.
type HistogramBin struct {
	Bin   float64
	Count int
}

// DistributionStats describe the daily-return sample, in percent where the
// unit applies.
type DistributionStats struct {
	Mean         float64
	Std          float64
	Skew         float64
	Kurtosis     float64
	Min          float64
	Max          float64
	PositiveDays int
	NegativeDays int
	TotalDays    int
}

// ReturnDistribution is the histogram plus its summary statistics.
type ReturnDistribution struct {
	Histogram []HistogramBin
	Stats     DistributionStats
}

// DayReturn is one day's return in percent, for best/worst rankings.
type DayReturn struct {
	Date      time.Time
	ReturnPct float64
}

// AnalysisReport is the full historical analysis for one symbol.
type AnalysisReport struct {
	Symbol        string
	DataPoints    int
	Start         time.Time
	End           time.Time
	Drawdowns     DrawdownAnalysis
	Rolling       []RollingMetricPoint
	Distribution  ReturnDistribution
	PeriodReturns map[string]*float64 // nil when the window exceeds history
	BestDays      []DayReturn
	WorstDays     []DayReturn
}
