package models

import "time"

// RiskLevel is the ordinal bucket a composite score falls into.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// ScoringMethod records which stage of the fallback chain produced a score.
type ScoringMethod string

const (
	MethodModel  ScoringMethod = "model"
	MethodShap   ScoringMethod = "shap"
	MethodManual ScoringMethod = "manual"
)

// RiskScoreRecord is the scored output for one symbol in one run.
// Records are superseded by the next run, never merged; history is append-only.
type RiskScoreRecord struct {
	Symbol        string
	Date          time.Time
	Close         float64
	RiskScore     float64 // always in [0,1]
	RiskLevel     RiskLevel
	RiskRank      int // 1 = highest risk, dense, ties share rank
	RiskDrivers   []string
	ScoringMethod ScoringMethod

	Normalized NormalizedFeatureVector
}

// ScoringRun is the atomically published result of one scoring pass.
// Readers always see the last completed run while a new one is in flight.
type ScoringRun struct {
	RunAt    time.Time
	Records  []RiskScoreRecord
	Skipped  map[string]string // symbol -> reason
	Universe int
}

// Record returns the record for a symbol, if the run scored it.
func (r *ScoringRun) Record(symbol string) (RiskScoreRecord, bool) {
	for i := range r.Records {
		if r.Records[i].Symbol == symbol {
			return r.Records[i], true
		}
	}
	return RiskScoreRecord{}, false
}

// AlertType identifies the trigger that produced an alert.
type AlertType string

const (
	AlertHighRisk    AlertType = "high_risk"
	AlertSuddenSpike AlertType = "sudden_spike"
)

// Severity grades an alert.
type Severity string

const (
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// AlertRecord is one emitted alert. Append-only; a run may emit both a
// high-risk and a spike alert for the same symbol.
type AlertRecord struct {
	Symbol        string
	AlertType     AlertType
	Severity      Severity
	RiskScore     float64
	RiskLevel     RiskLevel
	RiskRank      int
	RiskDrivers   []string
	PrevRiskScore *float64
	RiskChange    *float64
	RiskChangePct *float64
	CreatedAt     time.Time
}
