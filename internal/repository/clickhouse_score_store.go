package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"RiskLens/internal/domain/models"
	domrepo "RiskLens/internal/domain/repository"
	pkgch "RiskLens/pkg/clickhouse"
	applogger "RiskLens/pkg/logger"
)

const (
	scoresTable = "risklens.risk_scores"
	alertsTable = "risklens.risk_alerts"

	driverSep = " | "
)

// ScoreSchema are the idempotent DDL statements for score and alert
// history. Both tables are append-only logs.
var ScoreSchema = []string{
	`CREATE DATABASE IF NOT EXISTS risklens`,
	`CREATE TABLE IF NOT EXISTS risklens.risk_scores (
		run_at         DateTime,
		symbol         LowCardinality(String),
		date           Date,
		close          Float64,
		risk_score     Float64,
		risk_level     LowCardinality(String),
		risk_rank      UInt32,
		risk_drivers   String,
		scoring_method LowCardinality(String)
	) ENGINE = MergeTree
	ORDER BY (symbol, run_at)`,
	`CREATE TABLE IF NOT EXISTS risklens.risk_alerts (
		created_at      DateTime,
		symbol          LowCardinality(String),
		alert_type      LowCardinality(String),
		severity        LowCardinality(String),
		risk_score      Float64,
		risk_level      LowCardinality(String),
		risk_rank       UInt32,
		risk_drivers    String,
		prev_risk_score Nullable(Float64),
		risk_change     Nullable(Float64),
		risk_change_pct Nullable(Float64)
	) ENGINE = MergeTree
	ORDER BY (symbol, created_at)`,
}

// ClickHouseScoreStore persists scoring runs and alerts.
type ClickHouseScoreStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewClickHouseScoreStore(ch *pkgch.Client, l *applogger.Logger) *ClickHouseScoreStore {
	return &ClickHouseScoreStore{db: ch.DB(), l: l}
}

var _ domrepo.ScoreStore = (*ClickHouseScoreStore)(nil)
var _ domrepo.AlertStore = (*ClickHouseScoreStore)(nil)

// Init ensures the score and alert tables exist.
func (s *ClickHouseScoreStore) Init(ctx context.Context) error {
	for _, stmt := range ScoreSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init score schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseScoreStore) AppendScores(ctx context.Context, runAt time.Time, records []models.RiskScoreRecord) error {
	if len(records) == 0 {
		return nil
	}
	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*9)
	for _, r := range records {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			runAt,
			r.Symbol,
			r.Date,
			r.Close,
			r.RiskScore,
			string(r.RiskLevel),
			uint32(r.RiskRank),
			strings.Join(r.RiskDrivers, driverSep),
			string(r.ScoringMethod),
		)
	}
	q := fmt.Sprintf("INSERT INTO %s (run_at, symbol, date, close, risk_score, risk_level, risk_rank, risk_drivers, scoring_method) VALUES %s",
		scoresTable, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("append scores: %w", err)
	}
	return nil
}

func (s *ClickHouseScoreStore) LatestScores(ctx context.Context, before time.Time) (map[string]float64, error) {
	q := fmt.Sprintf(`
        SELECT symbol, argMax(risk_score, run_at)
        FROM %s
        WHERE run_at < ?
        GROUP BY symbol
    `, scoresTable)
	rows, err := s.db.QueryContext(ctx, q, before)
	if err != nil {
		return nil, fmt.Errorf("latest scores: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var sym string
		var score float64
		if err := rows.Scan(&sym, &score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out[sym] = score
	}
	return out, rows.Err()
}

func (s *ClickHouseScoreStore) ScoreSeries(ctx context.Context, symbol string) (map[time.Time]float64, error) {
	q := fmt.Sprintf(`
        SELECT date, argMax(risk_score, run_at)
        FROM %s
        WHERE symbol = ?
        GROUP BY date
        ORDER BY date ASC
    `, scoresTable)
	rows, err := s.db.QueryContext(ctx, q, symbol)
	if err != nil {
		return nil, fmt.Errorf("score series: %w", err)
	}
	defer rows.Close()

	out := make(map[time.Time]float64)
	for rows.Next() {
		var d time.Time
		var score float64
		if err := rows.Scan(&d, &score); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		y, m, day := d.UTC().Date()
		out[time.Date(y, m, day, 0, 0, 0, 0, time.UTC)] = score
	}
	return out, rows.Err()
}

func (s *ClickHouseScoreStore) AppendAlerts(ctx context.Context, alerts []models.AlertRecord) error {
	if len(alerts) == 0 {
		return nil
	}
	values := make([]string, 0, len(alerts))
	args := make([]interface{}, 0, len(alerts)*11)
	for _, a := range alerts {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			a.CreatedAt,
			a.Symbol,
			string(a.AlertType),
			string(a.Severity),
			a.RiskScore,
			string(a.RiskLevel),
			uint32(a.RiskRank),
			strings.Join(a.RiskDrivers, driverSep),
			a.PrevRiskScore,
			a.RiskChange,
			a.RiskChangePct,
		)
	}
	q := fmt.Sprintf("INSERT INTO %s (created_at, symbol, alert_type, severity, risk_score, risk_level, risk_rank, risk_drivers, prev_risk_score, risk_change, risk_change_pct) VALUES %s",
		alertsTable, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("append alerts: %w", err)
	}
	return nil
}

func (s *ClickHouseScoreStore) RecentAlerts(ctx context.Context, symbol string, limit int) ([]models.AlertRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if symbol != "" {
		q := fmt.Sprintf("SELECT created_at, symbol, alert_type, severity, risk_score, risk_level, risk_rank, risk_drivers, prev_risk_score, risk_change, risk_change_pct FROM %s WHERE symbol = ? ORDER BY created_at DESC LIMIT ?", alertsTable)
		rows, err = s.db.QueryContext(ctx, q, symbol, limit)
	} else {
		q := fmt.Sprintf("SELECT created_at, symbol, alert_type, severity, risk_score, risk_level, risk_rank, risk_drivers, prev_risk_score, risk_change, risk_change_pct FROM %s ORDER BY created_at DESC LIMIT ?", alertsTable)
		rows, err = s.db.QueryContext(ctx, q, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("recent alerts: %w", err)
	}
	defer rows.Close()

	var out []models.AlertRecord
	for rows.Next() {
		var a models.AlertRecord
		var typ, sev, level, drivers string
		var rank uint32
		if err := rows.Scan(&a.CreatedAt, &a.Symbol, &typ, &sev, &a.RiskScore, &level, &rank, &drivers, &a.PrevRiskScore, &a.RiskChange, &a.RiskChangePct); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.AlertType = models.AlertType(typ)
		a.Severity = models.Severity(sev)
		a.RiskLevel = models.RiskLevel(level)
		a.RiskRank = int(rank)
		if drivers != "" {
			a.RiskDrivers = strings.Split(drivers, driverSep)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
