package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/screener/backend/internal/contracts"
)

// BarRepository implements contracts.BarStore on Postgres
// ⭐ SSOT: 일봉 저장/조회는 여기서만
type BarRepository struct {
	pool *pgxpool.Pool
}

// NewBarRepository creates a new bar repository
func NewBarRepository(pool *pgxpool.Pool) *BarRepository {
	return &BarRepository{pool: pool}
}

// GetBars retrieves bars for [from, to], date-ascending
func (r *BarRepository) GetBars(ctx context.Context, code string, from, to time.Time) ([]contracts.DailyBar, error) {
	query := `
		SELECT stock_code, trade_date, open_price, high_price, low_price, close_price, volume
		FROM market.daily_bars
		WHERE stock_code = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date
	`

	rows, err := r.pool.Query(ctx, query, code, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily bars: %w", err)
	}
	defer rows.Close()

	var bars []contracts.DailyBar
	for rows.Next() {
		var b contracts.DailyBar
		if err := rows.Scan(&b.Code, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar row: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bar rows: %w", err)
	}

	return bars, nil
}

// SaveBars appends bars in one batch. ON CONFLICT DO NOTHING keeps closed
// trading dates immutable: an existing (code, date) row is never overwritten.
func (r *BarRepository) SaveBars(ctx context.Context, bars []contracts.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.daily_bars
			(stock_code, trade_date, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stock_code, trade_date) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(query, b.Code, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range bars {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert bar: %w", err)
		}
	}
	return nil
}

var _ contracts.BarStore = (*BarRepository)(nil)
