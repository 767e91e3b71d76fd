package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/screener/backend/internal/contracts"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestBarRepositoryIntegration(t *testing.T) {
	pool := testPool(t)
	repo := NewBarRepository(pool)
	ctx := context.Background()

	date := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	code := "TEST01"
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM market.daily_bars WHERE stock_code = $1`, code)
	})

	bar := contracts.DailyBar{Code: code, Date: date, Open: 100, High: 110, Low: 95, Close: 105, Volume: 12345}
	require.NoError(t, repo.SaveBars(ctx, []contracts.DailyBar{bar}))

	// Append-if-absent: a conflicting rewrite is a no-op.
	conflicting := bar
	conflicting.Close = 999
	require.NoError(t, repo.SaveBars(ctx, []contracts.DailyBar{conflicting}))

	got, err := repo.GetBars(ctx, code, date, date)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 105.0, got[0].Close)
}

func TestResultRepositoryIntegration(t *testing.T) {
	pool := testPool(t)
	repo := NewResultRepository(pool)
	ctx := context.Background()

	date := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM screening.results WHERE run_date = $1`, date)
		pool.Exec(ctx, `DELETE FROM screening.summaries WHERE run_date = $1`, date)
	})

	results := []contracts.ScreeningResult{{
		RunDate: date, Code: "TEST01", Name: "테스트", Market: "KOSPI",
		Stage:      contracts.StageSupplyDemand,
		PassedTags: []string{"P-1", "P-2"},
		Metrics:    map[string]float64{"T-1.sma": 102.5},
		CreatedAt:  time.Now(),
	}}
	require.NoError(t, repo.SaveResults(ctx, results))

	// A rerun for the same date supersedes the earlier rows.
	results[0].Code = "TEST02"
	require.NoError(t, repo.SaveResults(ctx, results))

	got, err := repo.ResultsByDate(ctx, date)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "TEST02", got[0].Code)
	assert.Equal(t, 102.5, got[0].Metrics["T-1.sma"])

	summary := &contracts.ScreeningSummary{
		RunID: "itest-run", RunDate: date, Strategy: "default",
		UniverseTotal: 3, FinalPassed: 1,
		Stage1:    contracts.StageCounts{Input: 3, Passed: 2, Failed: 1},
		Elapsed:   1500 * time.Millisecond,
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.SaveSummary(ctx, summary))

	gotSum, err := repo.SummaryByDate(ctx, date)
	require.NoError(t, err)
	require.NotNil(t, gotSum)
	assert.Equal(t, "itest-run", gotSum.RunID)
	assert.Equal(t, contracts.StageCounts{Input: 3, Passed: 2, Failed: 1}, gotSum.Stage1)
	assert.Equal(t, 1500*time.Millisecond, gotSum.Elapsed)
}
