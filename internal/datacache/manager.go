package datacache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/pkg/logger"
)

// Manager is the fetch-through cache in front of the market data provider.
// ⭐ SSOT: 파이프라인의 시계열 조회는 전부 이 매니저를 통해서만
//
// Read path: stored rows first, provider only for the uncovered head/tail of
// the requested range. Fetched rows are persisted append-if-absent before
// returning, so a second identical request is served entirely from the store.
// Concurrent identical requests are collapsed into one provider call.
type Manager struct {
	provider contracts.DataProvider
	bars     contracts.BarStore
	flows    contracts.FlowStore
	timeout  time.Duration
	log      *logger.Logger

	group singleflight.Group

	// noData remembers sub-ranges the provider already answered empty for
	// (weekend/holiday heads). Without it, a range starting on a non-trading
	// day would re-probe its empty head on every request: the store can never
	// hold a row there, so the head gap would never close.
	mu     sync.Mutex
	noData map[string]struct{}
}

// New creates a cache manager. timeout bounds every provider call.
func New(provider contracts.DataProvider, bars contracts.BarStore, flows contracts.FlowStore, timeout time.Duration, log *logger.Logger) *Manager {
	return &Manager{
		provider: provider,
		bars:     bars,
		flows:    flows,
		timeout:  timeout,
		log:      log,
		noData:   make(map[string]struct{}),
	}
}

func rangeKey(kind, code string, from, to time.Time) string {
	return fmt.Sprintf("%s|%s|%s|%s", kind, code, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// knownEmpty reports whether this exact sub-range was already probed empty
func (m *Manager) knownEmpty(kind, code string, from, to time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.noData[rangeKey(kind, code, from, to)]
	return ok
}

// markEmpty records a probed empty sub-range. Callers only mark ranges that
// can never fill in: days preceding a known trading day, or fully closed
// past ranges.
func (m *Manager) markEmpty(kind, code string, from, to time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noData[rangeKey(kind, code, from, to)] = struct{}{}
}

// closedRange reports whether the range end lies strictly before today.
// A range touching today may still fill in after the session closes, so it
// is never negative-cached.
func closedRange(to time.Time) bool {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, to.Location())
	return to.Before(today)
}

// GetBars returns daily bars for [from, to], date-ascending.
// Fails with ErrDataUnavailable when the provider cannot cover a gap; a
// stored-only answer is never silently truncated.
func (m *Manager) GetBars(ctx context.Context, code string, from, to time.Time) ([]contracts.DailyBar, error) {
	key := rangeKey("bars", code, from, to)
	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		return m.getBars(ctx, code, from, to)
	})
	if err != nil {
		return nil, err
	}
	return v.([]contracts.DailyBar), nil
}

func (m *Manager) getBars(ctx context.Context, code string, from, to time.Time) ([]contracts.DailyBar, error) {
	stored, err := m.bars.GetBars(ctx, code, from, to)
	if err != nil {
		return nil, contracts.PersistenceError("get bars", err)
	}

	if len(stored) == 0 {
		if m.knownEmpty("bars", code, from, to) {
			return nil, nil
		}
		fetched, err := m.fetchBars(ctx, code, from, to)
		if err != nil {
			return nil, err
		}
		if len(fetched) == 0 {
			if closedRange(to) {
				m.markEmpty("bars", code, from, to)
			}
		} else if first := fetched[0].Date; first.After(from) {
			// Days before the first trading day of the answer stay
			// non-trading forever; later requests skip this head probe.
			m.markEmpty("bars", code, from, first.AddDate(0, 0, -1))
		}
		return fetched, nil
	}

	// Internal gaps between stored rows are non-trading days; only the
	// uncovered head and tail of the range go to the provider.
	var merged []contracts.DailyBar
	if head := stored[0].Date; head.After(from) {
		gapTo := head.AddDate(0, 0, -1)
		if !m.knownEmpty("bars", code, from, gapTo) {
			fetched, err := m.fetchBars(ctx, code, from, gapTo)
			if err != nil {
				return nil, err
			}
			if len(fetched) == 0 {
				m.markEmpty("bars", code, from, gapTo)
			}
			merged = append(merged, fetched...)
		}
	}
	merged = append(merged, stored...)
	if tail := stored[len(stored)-1].Date; tail.Before(to) {
		gapFrom := tail.AddDate(0, 0, 1)
		if !m.knownEmpty("bars", code, gapFrom, to) {
			fetched, err := m.fetchBars(ctx, code, gapFrom, to)
			if err != nil {
				return nil, err
			}
			if len(fetched) == 0 && closedRange(to) {
				m.markEmpty("bars", code, gapFrom, to)
			}
			merged = append(merged, fetched...)
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged, nil
}

// fetchBars pulls a range from the provider and persists it before returning
func (m *Manager) fetchBars(ctx context.Context, code string, from, to time.Time) ([]contracts.DailyBar, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	fetched, err := m.provider.GetBars(ctx, code, from, to)
	if err != nil {
		return nil, wrapProviderErr(fmt.Sprintf("bars %s %s..%s", code, from.Format("2006-01-02"), to.Format("2006-01-02")), err)
	}
	if len(fetched) == 0 {
		// Holidays and suspensions: an empty answer is a valid answer.
		return nil, nil
	}
	if err := m.bars.SaveBars(ctx, fetched); err != nil {
		return nil, contracts.PersistenceError("save bars", err)
	}
	m.log.WithFields(map[string]interface{}{
		"code": code,
		"rows": len(fetched),
	}).Debug("bar gap fetched")
	return fetched, nil
}

// GetFlows returns investor flow records for [from, to], date-ascending.
// Same store-first contract as GetBars.
func (m *Manager) GetFlows(ctx context.Context, code string, from, to time.Time) ([]contracts.InvestorFlow, error) {
	key := rangeKey("flows", code, from, to)
	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		return m.getFlows(ctx, code, from, to)
	})
	if err != nil {
		return nil, err
	}
	return v.([]contracts.InvestorFlow), nil
}

func (m *Manager) getFlows(ctx context.Context, code string, from, to time.Time) ([]contracts.InvestorFlow, error) {
	stored, err := m.flows.GetFlows(ctx, code, from, to)
	if err != nil {
		return nil, contracts.PersistenceError("get flows", err)
	}

	if len(stored) == 0 {
		if m.knownEmpty("flows", code, from, to) {
			return nil, nil
		}
		fetched, err := m.fetchFlows(ctx, code, from, to)
		if err != nil {
			return nil, err
		}
		if len(fetched) == 0 {
			if closedRange(to) {
				m.markEmpty("flows", code, from, to)
			}
		} else if first := fetched[0].Date; first.After(from) {
			m.markEmpty("flows", code, from, first.AddDate(0, 0, -1))
		}
		return fetched, nil
	}

	var merged []contracts.InvestorFlow
	if head := stored[0].Date; head.After(from) {
		gapTo := head.AddDate(0, 0, -1)
		if !m.knownEmpty("flows", code, from, gapTo) {
			fetched, err := m.fetchFlows(ctx, code, from, gapTo)
			if err != nil {
				return nil, err
			}
			if len(fetched) == 0 {
				m.markEmpty("flows", code, from, gapTo)
			}
			merged = append(merged, fetched...)
		}
	}
	merged = append(merged, stored...)
	if tail := stored[len(stored)-1].Date; tail.Before(to) {
		gapFrom := tail.AddDate(0, 0, 1)
		if !m.knownEmpty("flows", code, gapFrom, to) {
			fetched, err := m.fetchFlows(ctx, code, gapFrom, to)
			if err != nil {
				return nil, err
			}
			if len(fetched) == 0 && closedRange(to) {
				m.markEmpty("flows", code, gapFrom, to)
			}
			merged = append(merged, fetched...)
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged, nil
}

func (m *Manager) fetchFlows(ctx context.Context, code string, from, to time.Time) ([]contracts.InvestorFlow, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	fetched, err := m.provider.GetInvestorFlows(ctx, code, from, to)
	if err != nil {
		return nil, wrapProviderErr(fmt.Sprintf("flows %s %s..%s", code, from.Format("2006-01-02"), to.Format("2006-01-02")), err)
	}
	if len(fetched) == 0 {
		return nil, nil
	}
	if err := m.flows.SaveFlows(ctx, fetched); err != nil {
		return nil, contracts.PersistenceError("save flows", err)
	}
	return fetched, nil
}

// wrapProviderErr maps any provider failure, timeouts included, onto the
// data-unavailable sentinel exactly once.
func wrapProviderErr(key string, err error) error {
	if errors.Is(err, contracts.ErrDataUnavailable) {
		return err
	}
	return contracts.DataUnavailable(key, err)
}
