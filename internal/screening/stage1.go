package screening

import (
	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/internal/strategy"
)

// Candidate is one symbol surviving a stage, carried forward with its
// snapshot identity so later stages never re-touch the snapshot columns.
type Candidate struct {
	Code   string
	Name   string
	Market string

	// PassedTags accumulates across stages 2 and 3
	PassedTags []string
	// Metrics accumulates condition diagnostics (SMA values, cross offsets 등)
	Metrics map[string]float64
}

// runStage1 is the whole-universe bulk pass (1차 대량 필터).
// One column-wise sweep: rising close, bullish candle, absolute volume floor.
// Symbols whose trailing history was too short for the rolling average
// (negative AvgVolumes) or that have no prior close are skipped, not failed.
func runStage1(snap *contracts.UniverseSnapshot, cfg *strategy.Config) ([]Candidate, contracts.StageCounts) {
	n := snap.Len()
	counts := contracts.StageCounts{Input: n}
	candidates := make([]Candidate, 0, n/8)

	for i := 0; i < n; i++ {
		if snap.AvgVolumes[i] < 0 || snap.PrevCloses[i] <= 0 {
			counts.Skipped++
			continue
		}

		pass := snap.Closes[i] > snap.PrevCloses[i] && // P-1
			snap.Closes[i] > snap.Opens[i] && // P-2
			snap.Volumes[i] >= cfg.MinVolume
		if !pass {
			counts.Failed++
			continue
		}

		counts.Passed++
		candidates = append(candidates, Candidate{
			Code:    snap.Codes[i],
			Name:    snap.Names[i],
			Market:  snap.Markets[i],
			Metrics: map[string]float64{},
		})
	}
	return candidates, counts
}
