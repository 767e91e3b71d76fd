package screening

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/screener/backend/internal/condition"
	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/internal/strategy"
)

// calendarBuffer converts a trading-day lookback into a calendar span wide
// enough to cover weekends and holidays. Roughly 2 calendar days per trading
// day plus a small slack.
func calendarBuffer(tradingDays int) int {
	return tradingDays*2 + 14
}

// runStage2 is the per-candidate technical pass (2차 기술적 필터).
// Conjunction, short-circuited on first failure:
//
//	P-1 AND P-2 AND volume tiers AND trend group AND golden cross group
//
// History shorter than the strategy's maximum lookback is a skip, never a
// fail; per-symbol data unavailability likewise degrades to a skip.
func (s *Screener) runStage2(ctx context.Context, date time.Time, candidates []Candidate, cfg *strategy.Config) ([]Candidate, contracts.StageCounts) {
	counts := contracts.StageCounts{Input: len(candidates)}
	survivors := make([]Candidate, 0, len(candidates))

	maxLookback := cfg.MaxLookback()
	from := date.AddDate(0, 0, -calendarBuffer(maxLookback))

	groups := stage2Groups(cfg)

	for _, cand := range candidates {
		bars, err := s.cache.GetBars(ctx, cand.Code, from, date)
		if err != nil {
			if errors.Is(err, contracts.ErrDataUnavailable) {
				counts.Skipped++
				s.log.WithFields(map[string]interface{}{"code": cand.Code}).
					Warn("stage2: bars unavailable, skipping symbol")
				continue
			}
			counts.Skipped++
			s.log.WithError(err).WithFields(map[string]interface{}{"code": cand.Code}).
				Warn("stage2: bar fetch failed, skipping symbol")
			continue
		}

		// Checking the maximum lookback up front makes the short-circuit
		// below safe: no group can come back insufficient mid-conjunction.
		if len(bars) < maxLookback {
			counts.Skipped++
			continue
		}

		w, err := condition.NewWindow(bars, nil)
		if err != nil {
			counts.Skipped++
			s.log.WithError(err).WithFields(map[string]interface{}{"code": cand.Code}).
				Warn("stage2: corrupt bar series, skipping symbol")
			continue
		}

		passed := true
		for _, g := range groups {
			v := g.Evaluate(w)
			if v.Insufficient() {
				passed = false
				counts.Skipped++
				break
			}
			if !v.Passed() {
				passed = false
				counts.Failed++
				break
			}
			cand.PassedTags = append(cand.PassedTags, condition.PassedTags(v)...)
			flattenMetrics(v, cand.Metrics)
		}
		if !passed {
			continue
		}

		counts.Passed++
		survivors = append(survivors, cand)
	}
	return survivors, counts
}

// stage2Groups builds the ordered conjunction for Stage2. Cheap conditions
// come first so failures short-circuit before the moving-average work.
func stage2Groups(cfg *strategy.Config) []condition.Evaluator {
	tiers := make([]condition.Evaluator, len(cfg.VolumeTiers))
	for i, t := range cfg.VolumeTiers {
		tiers[i] = condition.VolumeTier{
			TierTag:  volumeTierTag(i),
			Multiple: t.Multiple,
			Window:   t.Window,
		}
	}
	var volumeGroup condition.Evaluator
	if cfg.VolumeMode == strategy.ModeAll {
		volumeGroup = condition.AllOf{GroupTag: contracts.TagVolume, Members: tiers}
	} else {
		volumeGroup = condition.AnyOf{GroupTag: contracts.TagVolume, Members: tiers}
	}

	return []condition.Evaluator{
		condition.UptrendDay{},
		condition.BullishCandle{},
		volumeGroup,
		cfg.TrendGroup(),
		cfg.CrossGroup(),
	}
}

func volumeTierTag(i int) string {
	switch i {
	case 0:
		return contracts.TagVolumeTierA
	case 1:
		return contracts.TagVolumeTierB
	default:
		return fmt.Sprintf("V-%d", i+1)
	}
}

// flattenMetrics folds a verdict tree's numeric diagnostics into the
// candidate metrics map, keyed "tag.metric". Passing leaves only.
func flattenMetrics(v contracts.Verdict, out map[string]float64) {
	if v.Passed() && len(v.Sub) == 0 {
		for k, raw := range v.Metrics {
			switch n := raw.(type) {
			case float64:
				out[v.Tag+"."+k] = n
			case int:
				out[v.Tag+"."+k] = float64(n)
			case int64:
				out[v.Tag+"."+k] = float64(n)
			}
		}
	}
	for _, sub := range v.Sub {
		flattenMetrics(sub, out)
	}
}
