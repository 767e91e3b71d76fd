package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/pkg/logger"
)

// DefaultSymbolSyncSchedule refreshes the symbol master before the open.
const DefaultSymbolSyncSchedule = "0 30 8 * * 1-5"

// symbolSyncer is the slice of the provider this job needs
type symbolSyncer interface {
	SyncSymbols(ctx context.Context, date time.Time, store contracts.SymbolStore) (int, error)
}

// SymbolSyncJob refreshes the symbol master (종목 마스터) from the latest
// session's quote table. Listings and renames show up here first.
type SymbolSyncJob struct {
	provider symbolSyncer
	store    contracts.SymbolStore
	schedule string
	logger   *logger.Logger
}

// NewSymbolSyncJob creates the symbol master sync job
func NewSymbolSyncJob(provider symbolSyncer, store contracts.SymbolStore, schedule string, log *logger.Logger) *SymbolSyncJob {
	if schedule == "" {
		schedule = DefaultSymbolSyncSchedule
	}
	return &SymbolSyncJob{
		provider: provider,
		store:    store,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *SymbolSyncJob) Name() string {
	return "symbol_sync"
}

// Schedule returns the cron schedule expression
func (j *SymbolSyncJob) Schedule() string {
	return j.schedule
}

// Run syncs the symbol master from the most recent session. The job runs
// pre-open, so it walks back from yesterday to the last trading day.
func (j *SymbolSyncJob) Run(ctx context.Context) error {
	day := time.Now().AddDate(0, 0, -1)

	var lastErr error
	for i := 0; i < 7; i++ {
		count, err := j.provider.SyncSymbols(ctx, day, j.store)
		if err == nil && count > 0 {
			j.logger.WithFields(map[string]interface{}{
				"date":    day.Format("2006-01-02"),
				"symbols": count,
			}).Info("Symbol master synced")
			return nil
		}
		if err != nil {
			lastErr = err
		}
		day = day.AddDate(0, 0, -1)
	}

	return fmt.Errorf("no trading session found in the last week: %w", lastErr)
}
