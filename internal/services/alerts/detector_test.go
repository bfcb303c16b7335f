package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskLens/internal/domain/models"
)

func runWith(recs ...models.RiskScoreRecord) *models.ScoringRun {
	return &models.ScoringRun{
		RunAt:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Records:  recs,
		Universe: len(recs),
	}
}

func rec(symbol string, score float64, level models.RiskLevel) models.RiskScoreRecord {
	return models.RiskScoreRecord{
		Symbol:      symbol,
		RiskScore:   score,
		RiskLevel:   level,
		RiskDrivers: []string{"High volatility"},
	}
}

func TestDetectHighRisk(t *testing.T) {
	d := NewDetector(DefaultSpikeConfig(), nil)
	run := runWith(
		rec("AAPL", 0.75, models.RiskHigh),
		rec("MSFT", 0.40, models.RiskMedium),
	)
	out := d.Detect(run, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "AAPL", out[0].Symbol)
	assert.Equal(t, models.AlertHighRisk, out[0].AlertType)
	assert.Equal(t, models.SeverityHigh, out[0].Severity)
	assert.Nil(t, out[0].PrevRiskScore)
	assert.Equal(t, run.RunAt, out[0].CreatedAt)
}

func TestDetectSpikeByPercent(t *testing.T) {
	d := NewDetector(DefaultSpikeConfig(), nil)
	prev := runWith(rec("TSLA", 0.40, models.RiskMedium))
	run := runWith(rec("TSLA", 0.50, models.RiskMedium)) // +25%, +0.10
	out := d.Detect(run, prev)
	require.Len(t, out, 1)
	assert.Equal(t, models.AlertSuddenSpike, out[0].AlertType)
	assert.Equal(t, models.SeverityMedium, out[0].Severity)
	require.NotNil(t, out[0].RiskChangePct)
	assert.InDelta(t, 25.0, *out[0].RiskChangePct, 1e-9)
	assert.InDelta(t, 0.40, *out[0].PrevRiskScore, 1e-12)
	assert.InDelta(t, 0.10, *out[0].RiskChange, 1e-12)
}

func TestDetectSpikeByAbsoluteChange(t *testing.T) {
	d := NewDetector(DefaultSpikeConfig(), nil)
	// +0.16 absolute but exactly +20% relative: only the absolute arm fires
	prev := runWith(rec("NVDA", 0.80, models.RiskHigh))
	run := runWith(rec("NVDA", 0.96, models.RiskHigh))
	out := d.Detect(run, prev)
	spikes := filterType(out, models.AlertSuddenSpike)
	require.Len(t, spikes, 1)
	assert.Equal(t, models.SeverityMedium, spikes[0].Severity)
}

func TestDetectSpikeThresholdsAreStrict(t *testing.T) {
	d := NewDetector(DefaultSpikeConfig(), nil)
	// exactly +20% and exactly +0.15 absolute: neither arm fires, even
	// though 0.90-0.75 lands a hair above 0.15 in float arithmetic
	prev := runWith(rec("KO", 0.75, models.RiskMedium))
	run := runWith(rec("KO", 0.90, models.RiskHigh))
	out := d.Detect(run, prev)
	assert.Empty(t, filterType(out, models.AlertSuddenSpike))

	// exactly +0.15 absolute where float arithmetic rounds down instead
	prev = runWith(rec("PG", 0.80, models.RiskHigh))
	run = runWith(rec("PG", 0.95, models.RiskHigh))
	out = d.Detect(run, prev)
	assert.Empty(t, filterType(out, models.AlertSuddenSpike))
}

func TestDetectSpikeEscalatesToHigh(t *testing.T) {
	d := NewDetector(DefaultSpikeConfig(), nil)
	prev := runWith(rec("GME", 0.20, models.RiskLow))
	run := runWith(rec("GME", 0.35, models.RiskMedium)) // +75%
	out := d.Detect(run, prev)
	require.Len(t, out, 1)
	assert.Equal(t, models.SeverityHigh, out[0].Severity)
}

func TestDetectNoBaselineSkipsSpike(t *testing.T) {
	d := NewDetector(DefaultSpikeConfig(), nil)
	prev := runWith(rec("AAPL", 0.10, models.RiskLow))
	run := runWith(
		rec("AAPL", 0.11, models.RiskLow),
		rec("IPO", 0.95, models.RiskHigh), // new symbol, no baseline
	)
	out := d.Detect(run, prev)
	require.Len(t, out, 1)
	assert.Equal(t, models.AlertHighRisk, out[0].AlertType)
	assert.Equal(t, "IPO", out[0].Symbol)
}

func TestDetectBothAlertsForSameSymbol(t *testing.T) {
	d := NewDetector(DefaultSpikeConfig(), nil)
	prev := runWith(rec("TSLA", 0.30, models.RiskMedium))
	run := runWith(rec("TSLA", 0.80, models.RiskHigh))
	out := d.Detect(run, prev)
	require.Len(t, out, 2)
	assert.Equal(t, models.AlertHighRisk, out[0].AlertType)
	assert.Equal(t, models.AlertSuddenSpike, out[1].AlertType)
}

func TestDetectNilRun(t *testing.T) {
	d := NewDetector(DefaultSpikeConfig(), nil)
	assert.Nil(t, d.Detect(nil, nil))
}

func filterType(in []models.AlertRecord, typ models.AlertType) []models.AlertRecord {
	var out []models.AlertRecord
	for _, a := range in {
		if a.AlertType == typ {
			out = append(out, a)
		}
	}
	return out
}
