package screening

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/internal/datacache"
	"github.com/wonny/screener/backend/internal/provider"
	"github.com/wonny/screener/backend/internal/store"
	"github.com/wonny/screener/backend/internal/strategy"
	"github.com/wonny/screener/backend/pkg/logger"
)

func day(d int) time.Time {
	return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC)
}

// compactStrategy keeps lookbacks small enough to drive with 10 bars
func compactStrategy() *strategy.Config {
	return &strategy.Config{
		Name:        "compact",
		MinVolume:   30000,
		VolumeTiers: []strategy.VolumeTier{{Multiple: 2.0, Window: 3}},
		VolumeMode:  strategy.ModeAny,
		Trend:       strategy.Trend{Short: 2, Medium: 3, Long: 5},
		GoldenCross: strategy.GoldenCross{
			Pairs:    []strategy.CrossPair{{Short: 2, Long: 5}},
			Lookback: 3,
		},
		CrossMode: strategy.ModeAny,
	}
}

// rallyBars is a decline followed by a sharp rally: on the last bar the
// close beats all SMAs, the averages stack, the 2/5 cross fired two sessions
// back, and volume runs 2.5x its trailing 3-day average.
func rallyBars(code string) []contracts.DailyBar {
	closes := []float64{100, 98, 96, 94, 92, 90, 88, 100, 110, 125}
	bars := make([]contracts.DailyBar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		vol := int64(100000)
		if i == len(closes)-1 {
			vol = 250000
		}
		bars[i] = contracts.DailyBar{
			Code: code, Date: day(10 + i),
			Open: open, High: c * 1.02, Low: open * 0.98, Close: c, Volume: vol,
		}
	}
	return bars
}

// threeSymbolFixture builds the canonical funnel scenario:
// A passes everything, B falls at Stage1, C passes Stage2 but has negative
// program net buy.
func threeSymbolFixture() (*provider.Replay, time.Time) {
	runDate := day(19)

	rp := provider.NewReplay()
	rp.Snapshots[runDate.Format("2006-01-02")] = &contracts.UniverseSnapshot{
		Date:       runDate,
		Codes:      []string{"AAA001", "BBB002", "CCC003"},
		Names:      []string{"알파전자", "베타화학", "감마바이오"},
		Markets:    []string{"KOSPI", "KOSPI", "KOSDAQ"},
		Opens:      []float64{110, 100, 110},
		Closes:     []float64{125, 95, 125},
		PrevCloses: []float64{110, 98, 110},
		Volumes:    []int64{250000, 80000, 250000},
		AvgVolumes: []float64{100000, 90000, 100000},
	}
	rp.Bars["AAA001"] = rallyBars("AAA001")
	rp.Bars["CCC003"] = rallyBars("CCC003")

	rp.Flows["AAA001"] = []contracts.InvestorFlow{
		{Code: "AAA001", Date: runDate, ProgramNet: 500, IndividualNet: -300},
	}
	rp.Flows["CCC003"] = []contracts.InvestorFlow{
		{Code: "CCC003", Date: runDate, ProgramNet: -100, IndividualNet: -200},
	}
	return rp, runDate
}

type captureNotifier struct {
	summary *contracts.ScreeningSummary
	results []contracts.ScreeningResult
	err     error
}

func (n *captureNotifier) Send(ctx context.Context, summary *contracts.ScreeningSummary, results []contracts.ScreeningResult) error {
	n.summary = summary
	n.results = results
	return n.err
}

func newTestScreener(rp contracts.DataProvider, mem *store.MemoryStore, notifier contracts.Notifier) *Screener {
	log := logger.NewNop()
	cache := datacache.New(rp, mem, mem, time.Second, log)
	return New(rp, cache, mem, notifier, time.Second, log)
}

func TestRunThreeSymbolFunnel(t *testing.T) {
	rp, runDate := threeSymbolFixture()
	mem := store.NewMemoryStore()
	notifier := &captureNotifier{}
	s := newTestScreener(rp, mem, notifier)

	summary, results, err := s.Run(context.Background(), runDate, compactStrategy())
	require.NoError(t, err)

	// Funnel: 3 -> 2 (B falls) -> 2 -> 1 (C fails program net buy).
	assert.Equal(t, 3, summary.UniverseTotal)
	assert.Equal(t, contracts.StageCounts{Input: 3, Passed: 2, Failed: 1}, summary.Stage1)
	assert.Equal(t, contracts.StageCounts{Input: 2, Passed: 2}, summary.Stage2)
	assert.Equal(t, contracts.StageCounts{Input: 2, Passed: 1, Failed: 1}, summary.Stage3)
	assert.Equal(t, 1, summary.FinalPassed)
	assert.Equal(t, "compact", summary.Strategy)
	assert.NotEmpty(t, summary.RunID)

	require.Len(t, results, 1)
	survivor := results[0]
	assert.Equal(t, "AAA001", survivor.Code)
	assert.Equal(t, "알파전자", survivor.Name)
	assert.Equal(t, contracts.StageSupplyDemand, survivor.Stage)

	// Tags accumulate across stages 2 and 3.
	for _, tag := range []string{
		contracts.TagUptrendDay, contracts.TagBullishCandle,
		contracts.TagVolumeTierA, contracts.TagTrendStack,
		contracts.TagGoldenCross1, contracts.TagProgramBuy, contracts.TagIndividualOut,
	} {
		assert.Contains(t, survivor.PassedTags, tag)
	}

	// Diagnostics include the cross offset.
	assert.Equal(t, 2.0, survivor.Metrics[contracts.TagGoldenCross1+".cross_offset"])

	// Results and summary are persisted.
	stored, err := mem.ResultsByDate(context.Background(), runDate)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	storedSum, err := mem.SummaryByDate(context.Background(), runDate)
	require.NoError(t, err)
	require.NotNil(t, storedSum)
	assert.Equal(t, summary.RunID, storedSum.RunID)

	// Notifier saw the same outcome.
	require.NotNil(t, notifier.summary)
	assert.Equal(t, 1, notifier.summary.FinalPassed)
}

func TestRunTighteningThresholdIsMonotone(t *testing.T) {
	rp, runDate := threeSymbolFixture()

	base := compactStrategy()
	baseSummary, _, err := newTestScreener(rp, store.NewMemoryStore(), nil).
		Run(context.Background(), runDate, base)
	require.NoError(t, err)

	tightened := compactStrategy()
	tightened.VolumeTiers[0].Multiple = 3.0 // 250k < 3x 100k
	tightSummary, _, err := newTestScreener(rp, store.NewMemoryStore(), nil).
		Run(context.Background(), runDate, tightened)
	require.NoError(t, err)

	assert.LessOrEqual(t, tightSummary.Stage2.Passed, baseSummary.Stage2.Passed)
	assert.Equal(t, 0, tightSummary.FinalPassed)
}

func TestRunInvalidStrategyAborts(t *testing.T) {
	rp, runDate := threeSymbolFixture()
	cfg := compactStrategy()
	cfg.GoldenCross.Lookback = 0

	_, _, err := newTestScreener(rp, store.NewMemoryStore(), nil).
		Run(context.Background(), runDate, cfg)
	assert.ErrorIs(t, err, contracts.ErrInvalidStrategyConfig)
}

func TestRunAbortsWhenSnapshotUnavailable(t *testing.T) {
	rp := provider.NewReplay() // no recordings at all
	mem := store.NewMemoryStore()

	_, _, err := newTestScreener(rp, mem, nil).
		Run(context.Background(), day(19), compactStrategy())
	require.ErrorIs(t, err, contracts.ErrDataUnavailable)

	// Nothing partial is produced.
	stored, err2 := mem.ResultsByDate(context.Background(), day(19))
	require.NoError(t, err2)
	assert.Empty(t, stored)
}

func TestRunInsufficientHistoryIsSkippedNotFailed(t *testing.T) {
	rp, runDate := threeSymbolFixture()
	// C has only 4 bars: below the strategy's 8-bar maximum lookback.
	rp.Bars["CCC003"] = rp.Bars["CCC003"][6:]

	summary, results, err := newTestScreener(rp, store.NewMemoryStore(), nil).
		Run(context.Background(), runDate, compactStrategy())
	require.NoError(t, err)

	assert.Equal(t, contracts.StageCounts{Input: 2, Passed: 1, Skipped: 1}, summary.Stage2)
	require.Len(t, results, 1)
	assert.Equal(t, "AAA001", results[0].Code)
}

func TestRunMissingFlowRecordIsSkipped(t *testing.T) {
	rp, runDate := threeSymbolFixture()
	delete(rp.Flows, "CCC003")

	summary, _, err := newTestScreener(rp, store.NewMemoryStore(), nil).
		Run(context.Background(), runDate, compactStrategy())
	require.NoError(t, err)

	assert.Equal(t, contracts.StageCounts{Input: 2, Passed: 1, Skipped: 1}, summary.Stage3)
}

func TestRunNotifierFailureDoesNotFailRun(t *testing.T) {
	rp, runDate := threeSymbolFixture()
	notifier := &captureNotifier{err: errors.New("telegram down")}

	summary, _, err := newTestScreener(rp, store.NewMemoryStore(), notifier).
		Run(context.Background(), runDate, compactStrategy())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FinalPassed)
}

func TestRunStage1Counts(t *testing.T) {
	snap := &contracts.UniverseSnapshot{
		Date:       day(19),
		Codes:      []string{"A", "B", "C", "D"},
		Names:      []string{"a", "b", "c", "d"},
		Markets:    []string{"KOSPI", "KOSPI", "KOSPI", "KOSPI"},
		Opens:      []float64{100, 100, 100, 100},
		Closes:     []float64{105, 95, 105, 105},
		PrevCloses: []float64{100, 100, 100, 100},
		Volumes:    []int64{50000, 50000, 10000, 50000},
		AvgVolumes: []float64{40000, 40000, 40000, -1},
	}

	candidates, counts := runStage1(snap, compactStrategy())

	// A passes; B fails P-1; C fails the volume floor; D is skipped for
	// missing trailing history.
	assert.Equal(t, contracts.StageCounts{Input: 4, Passed: 1, Failed: 2, Skipped: 1}, counts)
	require.Len(t, candidates, 1)
	assert.Equal(t, "A", candidates[0].Code)
}
