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
	"RiskLens/pkg/util"
)

const barsTable = "risklens.daily_bars"

// BarSchema are the idempotent DDL statements for the bar tables.
var BarSchema = []string{
	`CREATE DATABASE IF NOT EXISTS risklens`,
	`CREATE TABLE IF NOT EXISTS risklens.daily_bars (
		symbol LowCardinality(String),
		date   Date,
		open   Float64,
		high   Float64,
		low    Float64,
		close  Float64,
		volume Float64
	) ENGINE = ReplacingMergeTree
	ORDER BY (symbol, date)`,
}

// ClickHouseBarStorage is the write side of bar persistence.
type ClickHouseBarStorage struct {
	db *sql.DB
}

func NewClickHouseBarStorage(ch *pkgch.Client) domrepo.Storage {
	return &ClickHouseBarStorage{db: ch.DB()}
}

func (s *ClickHouseBarStorage) Init(ctx context.Context) error {
	for _, stmt := range BarSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init bar schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseBarStorage) Store(ctx context.Context, b *models.PriceBar) error {
	q := fmt.Sprintf("INSERT INTO %s (symbol, date, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)", barsTable)
	_, err := s.db.ExecContext(ctx, q, b.Symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
	return err
}

func (s *ClickHouseBarStorage) StoreBatch(ctx context.Context, bars []*models.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, b := range bars[start:end] {
			if b == nil || b.Symbol == "" || b.Date.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, b.Symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, date, open, high, low, close, volume) VALUES %s", barsTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseBarStorage) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.PriceBar, error) {
	q := fmt.Sprintf("SELECT symbol, date, open, high, low, close, volume FROM %s WHERE symbol = ? AND date >= ? AND date <= ? ORDER BY date DESC LIMIT ?", barsTable)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []*models.PriceBar
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, &b)
	}
	return bars, rows.Err()
}

func (s *ClickHouseBarStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseBarStorage) Close() error {
	return nil // pool managed by pkg client
}

// ClickHouseBarStore is the read side used by the scoring pipeline and
// backtests. Bars come back in ascending date order.
type ClickHouseBarStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewClickHouseBarStore(ch *pkgch.Client, l *applogger.Logger) domrepo.BarStore {
	return &ClickHouseBarStore{db: ch.DB(), l: l}
}

func (s *ClickHouseBarStore) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	start := time.Now()
	from, to = util.AlignFromTo(from, to, "1d")
	q := fmt.Sprintf(`
        SELECT symbol, date, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `, barsTable)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		s.logErr("get_bars query error", symbol, err)
		return nil, fmt.Errorf("get bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceBar, 0, 512)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			s.logErr("get_bars scan error", symbol, err)
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		s.logErr("get_bars rows error", symbol, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse get_bars ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *ClickHouseBarStore) GetLatestNBars(ctx context.Context, symbol string, n int) ([]models.PriceBar, error) {
	q := fmt.Sprintf(`
        SELECT symbol, date, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY date DESC
        LIMIT ?
    `, barsTable)
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		s.logErr("latest_bars query error", symbol, err)
		return nil, fmt.Errorf("get latest bars: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.PriceBar, 0, n)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			s.logErr("latest_bars scan error", symbol, err)
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		tmp = append(tmp, b)
	}
	if err := rows.Err(); err != nil {
		s.logErr("latest_bars rows error", symbol, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	return tmp, nil
}

func (s *ClickHouseBarStore) ListSymbols(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT symbol FROM %s ORDER BY symbol", barsTable)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (s *ClickHouseBarStore) logErr(msg, symbol string, err error) {
	if s.l != nil {
		s.l.Error(msg, applogger.String("symbol", symbol), applogger.Error(err))
	}
}
