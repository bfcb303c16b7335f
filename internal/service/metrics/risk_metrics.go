package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ScoringRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "risklens",
			Subsystem: "scoring",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one full scoring pass",
			Buckets:   prometheus.DefBuckets,
		},
	)

	ScoringRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "risklens",
			Subsystem: "scoring",
			Name:      "runs_total",
			Help:      "Scoring passes by outcome",
		},
		[]string{"status"},
	)

	SymbolsScored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "risklens",
			Subsystem: "scoring",
			Name:      "symbols_scored",
			Help:      "Symbols scored in the last completed run",
		},
	)

	SymbolsSkipped = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "risklens",
			Subsystem: "scoring",
			Name:      "symbols_skipped",
			Help:      "Symbols skipped in the last completed run",
		},
	)

	ScoringMethodTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "risklens",
			Subsystem: "scoring",
			Name:      "method_total",
			Help:      "Scores produced per fallback-chain stage",
		},
		[]string{"method"},
	)

	AlertsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "risklens",
			Subsystem: "alerts",
			Name:      "emitted_total",
			Help:      "Alerts emitted by type and severity",
		},
		[]string{"type", "severity"},
	)

	BacktestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "risklens",
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Simulation wall time per strategy",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "risklens",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "risklens",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by API endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ScoringRunDuration,
			ScoringRunsTotal,
			SymbolsScored,
			SymbolsSkipped,
			ScoringMethodTotal,
			AlertsEmitted,
			BacktestDuration,
			APILatency,
			APIErrors,
		)
	})
}
