package screening

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/internal/datacache"
	"github.com/wonny/screener/backend/internal/strategy"
	"github.com/wonny/screener/backend/pkg/logger"
)

// Screener sequences the three filtering stages for one run date.
// Pure sequencer plus aggregator: all I/O goes through the cache manager,
// the snapshot provider, and the persistence/notification ports.
type Screener struct {
	provider contracts.DataProvider
	cache    *datacache.Manager
	results  contracts.ResultStore
	notifier contracts.Notifier
	timeout  time.Duration
	log      *logger.Logger

	// one run in flight at a time
	mu sync.Mutex
}

// New creates a screener. notifier may be nil (no alerting configured).
func New(provider contracts.DataProvider, cache *datacache.Manager, results contracts.ResultStore, notifier contracts.Notifier, timeout time.Duration, log *logger.Logger) *Screener {
	return &Screener{
		provider: provider,
		cache:    cache,
		results:  results,
		notifier: notifier,
		timeout:  timeout,
		log:      log,
	}
}

// Run executes the full pipeline for a run date under one strategy.
//
// Failure semantics:
//   - invalid strategy: abort before any stage
//   - universe snapshot unavailable: abort before Stage1, nothing partial
//   - per-symbol data problems in Stage2/3: skip the symbol, run continues
//   - persistence failure: reported via the returned error, but the computed
//     summary and survivor set are still returned
func (s *Screener) Run(ctx context.Context, date time.Time, cfg *strategy.Config) (*contracts.ScreeningSummary, []contracts.ScreeningResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := strategy.Validate(cfg); err != nil {
		return nil, nil, err
	}

	started := time.Now()
	runID := uuid.NewString()
	cfgHash, err := strategy.Hash(cfg)
	if err != nil {
		s.log.WithError(err).Warn("strategy hash failed")
	}
	log := s.log.WithFields(map[string]interface{}{
		"run_id":        runID,
		"run_date":      date.Format("2006-01-02"),
		"strategy":      cfg.Name,
		"strategy_hash": cfgHash,
	})
	log.Info("screening run started")

	snap, err := s.fetchSnapshot(ctx, date)
	if err != nil {
		log.WithError(err).Error("universe snapshot unavailable, run aborted")
		return nil, nil, err
	}

	stage1, c1 := runStage1(snap, cfg)
	log.WithFields(map[string]interface{}{
		"input": c1.Input, "passed": c1.Passed, "failed": c1.Failed, "skipped": c1.Skipped,
	}).Info("stage1 bulk filter done")

	stage2, c2 := s.runStage2(ctx, date, stage1, cfg)
	log.WithFields(map[string]interface{}{
		"input": c2.Input, "passed": c2.Passed, "failed": c2.Failed, "skipped": c2.Skipped,
	}).Info("stage2 technical filter done")

	stage3, c3 := s.runStage3(ctx, date, stage2, cfg)
	log.WithFields(map[string]interface{}{
		"input": c3.Input, "passed": c3.Passed, "failed": c3.Failed, "skipped": c3.Skipped,
	}).Info("stage3 supply/demand filter done")

	now := time.Now()
	results := make([]contracts.ScreeningResult, len(stage3))
	for i, cand := range stage3 {
		results[i] = contracts.ScreeningResult{
			RunDate:    date,
			Code:       cand.Code,
			Name:       cand.Name,
			Market:     cand.Market,
			Stage:      contracts.StageSupplyDemand,
			PassedTags: cand.PassedTags,
			Metrics:    cand.Metrics,
			CreatedAt:  now,
		}
	}

	summary := &contracts.ScreeningSummary{
		RunID:         runID,
		RunDate:       date,
		Strategy:      cfg.Name,
		UniverseTotal: snap.Len(),
		Stage1:        c1,
		Stage2:        c2,
		Stage3:        c3,
		FinalPassed:   len(results),
		Elapsed:       time.Since(started),
		CreatedAt:     now,
	}

	persistErr := s.persist(ctx, summary, results)

	s.notify(ctx, summary, results)

	log.WithFields(map[string]interface{}{
		"final_passed": summary.FinalPassed,
		"elapsed_ms":   summary.Elapsed.Milliseconds(),
	}).Info("screening run finished")

	return summary, results, persistErr
}

// fetchSnapshot pulls the whole-universe snapshot under the provider timeout
func (s *Screener) fetchSnapshot(ctx context.Context, date time.Time) (*contracts.UniverseSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	snap, err := s.provider.GetUniverseSnapshot(ctx, date)
	if err != nil {
		return nil, contracts.DataUnavailable("universe snapshot "+date.Format("2006-01-02"), err)
	}
	return snap, nil
}

// persist writes results and summary. A write failure is surfaced to the
// caller but never invalidates the computed survivor set.
func (s *Screener) persist(ctx context.Context, summary *contracts.ScreeningSummary, results []contracts.ScreeningResult) error {
	if err := s.results.SaveResults(ctx, results); err != nil {
		s.log.WithError(err).Error("saving screening results failed")
		return contracts.PersistenceError("save results", err)
	}
	if err := s.results.SaveSummary(ctx, summary); err != nil {
		s.log.WithError(err).Error("saving screening summary failed")
		return contracts.PersistenceError("save summary", err)
	}
	return nil
}

// notify delivers the run outcome best-effort
func (s *Screener) notify(ctx context.Context, summary *contracts.ScreeningSummary, results []contracts.ScreeningResult) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, summary, results); err != nil {
		s.log.WithError(err).Warn("run notification failed")
	}
}
