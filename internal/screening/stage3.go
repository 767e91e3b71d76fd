package screening

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/screener/backend/internal/condition"
	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/internal/strategy"
)

// runStage3 is the per-candidate supply/demand pass (3차 수급 필터).
// One investor-flow record for the run date, S-1 AND S-2. A missing record
// is insufficient data, not a failing condition.
func (s *Screener) runStage3(ctx context.Context, date time.Time, candidates []Candidate, cfg *strategy.Config) ([]Candidate, contracts.StageCounts) {
	counts := contracts.StageCounts{Input: len(candidates)}
	survivors := make([]Candidate, 0, len(candidates))

	group := cfg.SupplyGroup()

	for _, cand := range candidates {
		flows, err := s.cache.GetFlows(ctx, cand.Code, date, date)
		if err != nil {
			if !errors.Is(err, contracts.ErrDataUnavailable) {
				s.log.WithError(err).WithFields(map[string]interface{}{"code": cand.Code}).
					Warn("stage3: flow fetch failed, skipping symbol")
			}
			counts.Skipped++
			continue
		}

		w, err := condition.NewWindow(nil, flows)
		if err != nil {
			counts.Skipped++
			continue
		}

		v := group.Evaluate(w)
		if v.Insufficient() {
			counts.Skipped++
			continue
		}
		if !v.Passed() {
			counts.Failed++
			continue
		}

		cand.PassedTags = append(cand.PassedTags, condition.PassedTags(v)...)
		flattenMetrics(v, cand.Metrics)
		counts.Passed++
		survivors = append(survivors, cand)
	}
	return survivors, counts
}
