package alerts

import (
	"time"

	"RiskLens/internal/domain/models"
	applogger "RiskLens/pkg/logger"
)

// SpikeConfig holds the sudden-spike trigger knobs. Both comparisons are
// strict: a change landing exactly on a threshold does not fire.
type SpikeConfig struct {
	ChangePctOver float64 `yaml:"change_pct_over" default:"20"`
	ChangeOver    float64 `yaml:"change_over" default:"0.15"`
	HighPctAt     float64 `yaml:"high_pct_at" default:"50"`
}

func DefaultSpikeConfig() SpikeConfig {
	return SpikeConfig{ChangePctOver: 20, ChangeOver: 0.15, HighPctAt: 50}
}

// Detector evaluates a completed scoring run against its predecessor and
// emits alerts. Detection is idempotent per run pair: the same inputs
// always produce the same alerts.
type Detector struct {
	cfg SpikeConfig
	l   *applogger.Logger
}

func NewDetector(cfg SpikeConfig, l *applogger.Logger) *Detector {
	if cfg.ChangePctOver <= 0 {
		cfg = DefaultSpikeConfig()
	}
	return &Detector{cfg: cfg, l: l}
}

// Detect scans a run and returns the alerts it triggers. prev may be nil
// (first run ever): spike detection is skipped for symbols without a
// baseline, never synthesized from a placeholder. A symbol can emit both a
// high-risk and a spike alert for the same run.
func (d *Detector) Detect(run *models.ScoringRun, prev *models.ScoringRun) []models.AlertRecord {
	if run == nil {
		return nil
	}
	now := run.RunAt
	var out []models.AlertRecord

	for i := range run.Records {
		rec := &run.Records[i]
		if rec.RiskLevel == models.RiskHigh {
			out = append(out, newAlert(rec, models.AlertHighRisk, models.SeverityHigh, now))
		}
		if prev == nil {
			continue
		}
		base, ok := prev.Record(rec.Symbol)
		if !ok {
			continue
		}
		if a, fired := d.spike(rec, base, now); fired {
			out = append(out, a)
		}
	}

	if d.l != nil && len(out) > 0 {
		d.l.Info("alerts detected",
			applogger.Int("count", len(out)),
			applogger.Int("universe", run.Universe),
		)
	}
	return out
}

// boundaryTolerance absorbs float representation error in the computed
// change, so a jump mathematically equal to a threshold never fires:
// 0.90-0.75 evaluates to 0.15000000000000002 and would otherwise clear
// the strict comparison.
const boundaryTolerance = 1e-9

// spike fires when the score jumped more than ChangePctOver percent
// relative to the baseline, or by more than ChangeOver in absolute terms.
// Severity escalates to HIGH at HighPctAt percent.
func (d *Detector) spike(rec *models.RiskScoreRecord, base models.RiskScoreRecord, now time.Time) (models.AlertRecord, bool) {
	change := rec.RiskScore - base.RiskScore
	changePct := 0.0
	if base.RiskScore > 0 {
		changePct = change / base.RiskScore * 100
	}
	if !(changePct > d.cfg.ChangePctOver+boundaryTolerance || change > d.cfg.ChangeOver+boundaryTolerance) {
		return models.AlertRecord{}, false
	}

	severity := models.SeverityMedium
	if changePct >= d.cfg.HighPctAt {
		severity = models.SeverityHigh
	}
	a := newAlert(rec, models.AlertSuddenSpike, severity, now)
	prevScore := base.RiskScore
	a.PrevRiskScore = &prevScore
	a.RiskChange = &change
	a.RiskChangePct = &changePct
	return a, true
}

func newAlert(rec *models.RiskScoreRecord, typ models.AlertType, sev models.Severity, now time.Time) models.AlertRecord {
	drivers := make([]string, len(rec.RiskDrivers))
	copy(drivers, rec.RiskDrivers)
	return models.AlertRecord{
		Symbol:      rec.Symbol,
		AlertType:   typ,
		Severity:    sev,
		RiskScore:   rec.RiskScore,
		RiskLevel:   rec.RiskLevel,
		RiskRank:    rec.RiskRank,
		RiskDrivers: drivers,
		CreatedAt:   now,
	}
}
