package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/screener/backend/internal/contracts"
)

// ResultRepository implements contracts.ResultStore on Postgres
// ⭐ SSOT: 스크리닝 결과 저장/조회는 여기서만
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new result repository
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// SaveResults replaces the result set for the run date in one transaction.
// A rerun for the same date supersedes the earlier run's rows.
func (r *ResultRepository) SaveResults(ctx context.Context, results []contracts.ScreeningResult) error {
	if len(results) == 0 {
		return nil
	}
	runDate := results[0].RunDate

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM screening.results WHERE run_date = $1`, runDate); err != nil {
		return fmt.Errorf("failed to clear results for date: %w", err)
	}

	query := `
		INSERT INTO screening.results
			(run_date, stock_code, stock_name, market, stage, passed_tags, metrics, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, res := range results {
		metrics, err := json.Marshal(res.Metrics)
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}
		batch.Queue(query, res.RunDate, res.Code, res.Name, res.Market,
			int(res.Stage), res.PassedTags, metrics, res.CreatedAt)
	}

	br := tx.SendBatch(ctx, batch)
	for range results {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert result: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	return tx.Commit(ctx)
}

// SaveSummary upserts the run summary for its date
func (r *ResultRepository) SaveSummary(ctx context.Context, summary *contracts.ScreeningSummary) error {
	query := `
		INSERT INTO screening.summaries
			(run_id, run_date, strategy, universe_total,
			 stage1_counts, stage2_counts, stage3_counts,
			 final_passed, elapsed_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_date) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			strategy = EXCLUDED.strategy,
			universe_total = EXCLUDED.universe_total,
			stage1_counts = EXCLUDED.stage1_counts,
			stage2_counts = EXCLUDED.stage2_counts,
			stage3_counts = EXCLUDED.stage3_counts,
			final_passed = EXCLUDED.final_passed,
			elapsed_ms = EXCLUDED.elapsed_ms,
			created_at = EXCLUDED.created_at
	`

	s1, err := json.Marshal(summary.Stage1)
	if err != nil {
		return fmt.Errorf("failed to marshal stage1 counts: %w", err)
	}
	s2, err := json.Marshal(summary.Stage2)
	if err != nil {
		return fmt.Errorf("failed to marshal stage2 counts: %w", err)
	}
	s3, err := json.Marshal(summary.Stage3)
	if err != nil {
		return fmt.Errorf("failed to marshal stage3 counts: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		summary.RunID, summary.RunDate, summary.Strategy, summary.UniverseTotal,
		s1, s2, s3, summary.FinalPassed, summary.Elapsed.Milliseconds(), summary.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}
	return nil
}

// ResultsByDate retrieves the persisted results for a run date
func (r *ResultRepository) ResultsByDate(ctx context.Context, date time.Time) ([]contracts.ScreeningResult, error) {
	query := `
		SELECT run_date, stock_code, stock_name, market, stage, passed_tags, metrics, created_at
		FROM screening.results
		WHERE run_date = $1
		ORDER BY stock_code
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []contracts.ScreeningResult
	for rows.Next() {
		var res contracts.ScreeningResult
		var stage int
		var metrics []byte
		if err := rows.Scan(&res.RunDate, &res.Code, &res.Name, &res.Market,
			&stage, &res.PassedTags, &metrics, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		res.Stage = contracts.Stage(stage)
		if len(metrics) > 0 {
			if err := json.Unmarshal(metrics, &res.Metrics); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
			}
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating result rows: %w", err)
	}

	return results, nil
}

// SummaryByDate retrieves the persisted summary for a run date, nil if absent
func (r *ResultRepository) SummaryByDate(ctx context.Context, date time.Time) (*contracts.ScreeningSummary, error) {
	query := `
		SELECT run_id, run_date, strategy, universe_total,
		       stage1_counts, stage2_counts, stage3_counts,
		       final_passed, elapsed_ms, created_at
		FROM screening.summaries
		WHERE run_date = $1
	`

	var summary contracts.ScreeningSummary
	var s1, s2, s3 []byte
	var elapsedMs int64
	err := r.pool.QueryRow(ctx, query, date).Scan(
		&summary.RunID, &summary.RunDate, &summary.Strategy, &summary.UniverseTotal,
		&s1, &s2, &s3, &summary.FinalPassed, &elapsedMs, &summary.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	if err := json.Unmarshal(s1, &summary.Stage1); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stage1 counts: %w", err)
	}
	if err := json.Unmarshal(s2, &summary.Stage2); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stage2 counts: %w", err)
	}
	if err := json.Unmarshal(s3, &summary.Stage3); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stage3 counts: %w", err)
	}
	summary.Elapsed = time.Duration(elapsedMs) * time.Millisecond

	return &summary, nil
}

var _ contracts.ResultStore = (*ResultRepository)(nil)
