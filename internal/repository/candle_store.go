package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	pkgch "TradePulse/pkg/clickhouse"
	applogger "TradePulse/pkg/logger"
	"TradePulse/pkg/util"
)

// CHCandleStore implements CandleStore backed by ClickHouse. Candles
// land in a ReplacingMergeTree keyed by (market, symbol, bucket), so a
// re-fetched bucket overwrites instead of duplicating.
type CHCandleStore struct {
	db *sql.DB
	l  *applogger.Logger
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)

func NewCHCandleStore(ch *pkgch.Client, l *applogger.Logger) *CHCandleStore {
	return &CHCandleStore{db: ch.DB(), l: l}
}

const candleSchema = `
CREATE TABLE IF NOT EXISTS candles (
    bucket DateTime,
    market LowCardinality(String),
    symbol String,
    open   Float64,
    high   Float64,
    low    Float64,
    close  Float64,
    vol    Float64
) ENGINE = ReplacingMergeTree()
ORDER BY (market, symbol, bucket)
TTL bucket + INTERVAL 180 DAY
`

// Init ensures the candle table exists.
func (s *CHCandleStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, candleSchema); err != nil {
		return fmt.Errorf("init candle schema: %w", err)
	}
	return nil
}

// StoreBatch inserts one refresh cycle's candles in a single statement.
func (s *CHCandleStore) StoreBatch(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin candle batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO candles (bucket, market, symbol, open, high, low, close, vol) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare candle insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, c.Bucket, c.Market, c.Symbol, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert candle %s/%s: %w", c.Market, c.Symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit candle batch: %w", err)
	}

	if s.l != nil {
		s.l.Debug("candle batch stored",
			applogger.Int("rows", len(candles)),
			applogger.Duration("took", time.Since(start)))
	}
	return nil
}

// GetCandles returns candles for one asset within [from, to], ascending.
// The range is aligned to hourly bucket boundaries before querying.
func (s *CHCandleStore) GetCandles(ctx context.Context, market, symbol string, from, to time.Time) ([]models.Candle, error) {
	from, to = util.AlignFromTo(from, to, "1h")
	const q = `
        SELECT bucket, market, symbol, open, high, low, close, vol
        FROM candles FINAL
        WHERE market = ? AND symbol = ? AND bucket >= ? AND bucket <= ?
        ORDER BY bucket ASC
    `
	rows, err := s.db.QueryContext(ctx, q, market, symbol, from, to)
	if err != nil {
		s.logQueryErr("get_candles", market, symbol, err)
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()
	return s.scanCandles(rows, market, symbol)
}

// GetLatestNCandles returns the newest n candles for one asset, still in
// ascending bucket order for direct indicator consumption.
func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, market, symbol string, n int) ([]models.Candle, error) {
	if n <= 0 {
		return nil, nil
	}
	const q = `
        SELECT bucket, market, symbol, open, high, low, close, vol
        FROM (
            SELECT bucket, market, symbol, open, high, low, close, vol
            FROM candles FINAL
            WHERE market = ? AND symbol = ?
            ORDER BY bucket DESC
            LIMIT ?
        )
        ORDER BY bucket ASC
    `
	rows, err := s.db.QueryContext(ctx, q, market, symbol, n)
	if err != nil {
		s.logQueryErr("get_latest_candles", market, symbol, err)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()
	return s.scanCandles(rows, market, symbol)
}

// Health pings the connection pool.
func (s *CHCandleStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pooled client owns the connection lifecycle.
func (s *CHCandleStore) Close() error { return nil }

func (s *CHCandleStore) scanCandles(rows *sql.Rows, market, symbol string) ([]models.Candle, error) {
	out := make([]models.Candle, 0, 256)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Market, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.logQueryErr("scan_candle", market, symbol, err)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHCandleStore) logQueryErr(op, market, symbol string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error("clickhouse "+op+" error",
		applogger.String("market", market),
		applogger.String("symbol", symbol),
		applogger.Error(err))
}
