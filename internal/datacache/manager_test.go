package datacache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/internal/store"
	"github.com/wonny/screener/backend/pkg/logger"
)

// fakeProvider serves bars/flows from a fixed map and counts calls
type fakeProvider struct {
	mu       sync.Mutex
	bars     map[string][]contracts.DailyBar
	flows    map[string][]contracts.InvestorFlow
	barCalls int32
	delay    time.Duration
	err      error
}

func (p *fakeProvider) GetUniverseSnapshot(ctx context.Context, date time.Time) (*contracts.UniverseSnapshot, error) {
	return nil, contracts.DataUnavailable("snapshot", nil)
}

func (p *fakeProvider) GetBars(ctx context.Context, code string, from, to time.Time) ([]contracts.DailyBar, error) {
	atomic.AddInt32(&p.barCalls, 1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []contracts.DailyBar
	for _, b := range p.bars[code] {
		if !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (p *fakeProvider) GetInvestorFlows(ctx context.Context, code string, from, to time.Time) ([]contracts.InvestorFlow, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []contracts.InvestorFlow
	for _, f := range p.flows[code] {
		if !f.Date.Before(from) && !f.Date.After(to) {
			out = append(out, f)
		}
	}
	return out, nil
}

func day(d int) time.Time {
	return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC)
}

func bar(d int, close float64) contracts.DailyBar {
	return contracts.DailyBar{Code: "005930", Date: day(d), Open: close, Close: close, Volume: 100000}
}

func newManager(p *fakeProvider, mem *store.MemoryStore, timeout time.Duration) *Manager {
	return New(p, mem, mem, timeout, logger.NewNop())
}

func TestGetBarsFetchThrough(t *testing.T) {
	p := &fakeProvider{bars: map[string][]contracts.DailyBar{
		"005930": {bar(3, 100), bar(4, 101), bar(5, 102)},
	}}
	mem := store.NewMemoryStore()
	m := newManager(p, mem, time.Second)
	ctx := context.Background()

	got, err := m.GetBars(ctx, "005930", day(3), day(5))
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Second identical request is served from the store.
	got2, err := m.GetBars(ctx, "005930", day(3), day(5))
	require.NoError(t, err)
	assert.Equal(t, got, got2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.barCalls))
}

func TestGetBarsHeadAndTailGapFill(t *testing.T) {
	p := &fakeProvider{bars: map[string][]contracts.DailyBar{
		"005930": {bar(3, 100), bar(4, 101), bar(5, 102), bar(6, 103), bar(7, 104)},
	}}
	mem := store.NewMemoryStore()
	// Only the middle of the range is stored.
	require.NoError(t, mem.SaveBars(context.Background(), []contracts.DailyBar{bar(4, 101), bar(5, 102)}))

	m := newManager(p, mem, time.Second)
	got, err := m.GetBars(context.Background(), "005930", day(3), day(7))
	require.NoError(t, err)

	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Date.After(got[i-1].Date), "result must be date-ascending")
	}
	// One provider call per uncovered side: head [3,3] and tail [6,7].
	assert.Equal(t, int32(2), atomic.LoadInt32(&p.barCalls))

	// The gap rows are now persisted; a repeat request stays store-only.
	_, err = m.GetBars(context.Background(), "005930", day(3), day(7))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&p.barCalls))
}

func TestGetBarsWeekendHeadFetchedOnce(t *testing.T) {
	// The range starts on Saturday; sessions exist Mon..Wed only. The store
	// can never hold a weekend row, so the empty head must be remembered,
	// not re-probed on every warmed request.
	p := &fakeProvider{bars: map[string][]contracts.DailyBar{
		"005930": {bar(3, 100), bar(4, 101), bar(5, 102)},
	}}
	mem := store.NewMemoryStore()
	m := newManager(p, mem, time.Second)
	ctx := context.Background()

	got, err := m.GetBars(ctx, "005930", day(1), day(5))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.barCalls))

	got2, err := m.GetBars(ctx, "005930", day(1), day(5))
	require.NoError(t, err)
	assert.Equal(t, got, got2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.barCalls),
		"second identical request must be store-only")
}

func TestGetBarsEmptyHeadProbeNotRepeated(t *testing.T) {
	// Store already warmed by someone else; the manager has no memory of the
	// range. The weekend head is probed exactly once, then known empty.
	p := &fakeProvider{bars: map[string][]contracts.DailyBar{
		"005930": {bar(3, 100), bar(4, 101), bar(5, 102)},
	}}
	mem := store.NewMemoryStore()
	require.NoError(t, mem.SaveBars(context.Background(), []contracts.DailyBar{
		bar(3, 100), bar(4, 101), bar(5, 102),
	}))
	m := newManager(p, mem, time.Second)

	for i := 0; i < 3; i++ {
		got, err := m.GetBars(context.Background(), "005930", day(1), day(5))
		require.NoError(t, err)
		require.Len(t, got, 3)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.barCalls),
		"holiday head probe must not repeat")
}

func TestGetBarsHolidayRangeIsNotAnError(t *testing.T) {
	// Provider has nothing for the weekend range.
	p := &fakeProvider{bars: map[string][]contracts.DailyBar{}}
	m := newManager(p, store.NewMemoryStore(), time.Second)

	got, err := m.GetBars(context.Background(), "005930", day(1), day(2))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetBarsProviderFailure(t *testing.T) {
	p := &fakeProvider{err: errors.New("upstream 500")}
	m := newManager(p, store.NewMemoryStore(), time.Second)

	_, err := m.GetBars(context.Background(), "005930", day(3), day(5))
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestGetBarsProviderTimeout(t *testing.T) {
	p := &fakeProvider{
		bars:  map[string][]contracts.DailyBar{"005930": {bar(3, 100)}},
		delay: 200 * time.Millisecond,
	}
	m := newManager(p, store.NewMemoryStore(), 10*time.Millisecond)

	_, err := m.GetBars(context.Background(), "005930", day(3), day(5))
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestGetBarsConcurrentRequestsCollapse(t *testing.T) {
	p := &fakeProvider{
		bars:  map[string][]contracts.DailyBar{"005930": {bar(3, 100), bar(4, 101)}},
		delay: 50 * time.Millisecond,
	}
	m := newManager(p, store.NewMemoryStore(), time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := m.GetBars(context.Background(), "005930", day(3), day(4))
			assert.NoError(t, err)
			assert.Len(t, got, 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&p.barCalls))
}

func TestGetBarsDoesNotOverwriteStoredRows(t *testing.T) {
	// Provider disagrees with a stored closed date; the stored row wins.
	p := &fakeProvider{bars: map[string][]contracts.DailyBar{
		"005930": {bar(3, 999), bar(4, 101)},
	}}
	mem := store.NewMemoryStore()
	require.NoError(t, mem.SaveBars(context.Background(), []contracts.DailyBar{bar(3, 100)}))

	m := newManager(p, mem, time.Second)
	got, err := m.GetBars(context.Background(), "005930", day(3), day(4))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, 100.0, got[0].Close)
}

func TestGetFlows(t *testing.T) {
	flow := contracts.InvestorFlow{Code: "005930", Date: day(21), ProgramNet: 500, IndividualNet: -300}
	p := &fakeProvider{flows: map[string][]contracts.InvestorFlow{"005930": {flow}}}
	mem := store.NewMemoryStore()
	m := newManager(p, mem, time.Second)

	got, err := m.GetFlows(context.Background(), "005930", day(21), day(21))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(500), got[0].ProgramNet)

	// Persisted on the way out.
	stored, err := mem.GetFlows(context.Background(), "005930", day(21), day(21))
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
