package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/screener/backend/internal/contracts"
)

// FlowRepository implements contracts.FlowStore on Postgres
// ⭐ SSOT: 투자자 수급 저장/조회는 여기서만
type FlowRepository struct {
	pool *pgxpool.Pool
}

// NewFlowRepository creates a new flow repository
func NewFlowRepository(pool *pgxpool.Pool) *FlowRepository {
	return &FlowRepository{pool: pool}
}

// GetFlows retrieves investor flows for [from, to], date-ascending
func (r *FlowRepository) GetFlows(ctx context.Context, code string, from, to time.Time) ([]contracts.InvestorFlow, error) {
	query := `
		SELECT stock_code, trade_date, program_net, individual_net, foreign_net, institution_net
		FROM market.investor_flows
		WHERE stock_code = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date
	`

	rows, err := r.pool.Query(ctx, query, code, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query investor flows: %w", err)
	}
	defer rows.Close()

	var flows []contracts.InvestorFlow
	for rows.Next() {
		var f contracts.InvestorFlow
		if err := rows.Scan(&f.Code, &f.Date, &f.ProgramNet, &f.IndividualNet, &f.ForeignNet, &f.InstitutionNet); err != nil {
			return nil, fmt.Errorf("failed to scan flow row: %w", err)
		}
		flows = append(flows, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flow rows: %w", err)
	}

	return flows, nil
}

// SaveFlows appends flows in one batch, append-if-absent
func (r *FlowRepository) SaveFlows(ctx context.Context, flows []contracts.InvestorFlow) error {
	if len(flows) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.investor_flows
			(stock_code, trade_date, program_net, individual_net, foreign_net, institution_net)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (stock_code, trade_date) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, f := range flows {
		batch.Queue(query, f.Code, f.Date, f.ProgramNet, f.IndividualNet, f.ForeignNet, f.InstitutionNet)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range flows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert flow: %w", err)
		}
	}
	return nil
}

var _ contracts.FlowStore = (*FlowRepository)(nil)
