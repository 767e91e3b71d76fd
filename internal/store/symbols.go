package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/screener/backend/internal/contracts"
)

// SymbolRepository implements contracts.SymbolStore on Postgres
// ⭐ SSOT: 종목 마스터 저장/조회는 여기서만
type SymbolRepository struct {
	pool *pgxpool.Pool
}

// NewSymbolRepository creates a new symbol repository
func NewSymbolRepository(pool *pgxpool.Pool) *SymbolRepository {
	return &SymbolRepository{pool: pool}
}

// UpsertSymbols inserts or refreshes symbol master rows. Unlike bars, the
// master is mutable: names and market moves do happen.
func (r *SymbolRepository) UpsertSymbols(ctx context.Context, symbols []contracts.Symbol) error {
	if len(symbols) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.symbols (stock_code, stock_name, market, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (stock_code) DO UPDATE SET
			stock_name = EXCLUDED.stock_name,
			market = EXCLUDED.market,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, s := range symbols {
		batch.Queue(query, s.Code, s.Name, s.Market)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range symbols {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert symbol: %w", err)
		}
	}
	return nil
}

// ListSymbols returns the symbol master, code-ascending
func (r *SymbolRepository) ListSymbols(ctx context.Context) ([]contracts.Symbol, error) {
	query := `
		SELECT stock_code, stock_name, market
		FROM market.symbols
		ORDER BY stock_code
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []contracts.Symbol
	for rows.Next() {
		var s contracts.Symbol
		if err := rows.Scan(&s.Code, &s.Name, &s.Market); err != nil {
			return nil, fmt.Errorf("failed to scan symbol row: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbol rows: %w", err)
	}

	return symbols, nil
}

var _ contracts.SymbolStore = (*SymbolRepository)(nil)
