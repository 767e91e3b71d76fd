package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/screener/backend/internal/contracts"
)

// MemoryStore is the in-memory store set used when running without a
// database (bypass mode) and by tests. Same append-if-absent semantics as
// the Postgres stores: a (code, date) row is never overwritten.
type MemoryStore struct {
	mu        sync.RWMutex
	bars      map[string]map[int64]contracts.DailyBar     // code -> unix day -> bar
	flows     map[string]map[int64]contracts.InvestorFlow // code -> unix day -> flow
	symbols   map[string]contracts.Symbol
	results   map[int64][]contracts.ScreeningResult // unix day -> results
	summaries map[int64]*contracts.ScreeningSummary
}

// NewMemoryStore creates an empty in-memory store set
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bars:      map[string]map[int64]contracts.DailyBar{},
		flows:     map[string]map[int64]contracts.InvestorFlow{},
		symbols:   map[string]contracts.Symbol{},
		results:   map[int64][]contracts.ScreeningResult{},
		summaries: map[int64]*contracts.ScreeningSummary{},
	}
}

func dayKey(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}

// GetBars returns stored bars for [from, to], date-ascending
func (s *MemoryStore) GetBars(ctx context.Context, code string, from, to time.Time) ([]contracts.DailyBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []contracts.DailyBar
	for day, bar := range s.bars[code] {
		if day >= dayKey(from) && day <= dayKey(to) {
			out = append(out, bar)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// SaveBars appends bars, skipping (code, date) rows that already exist
func (s *MemoryStore) SaveBars(ctx context.Context, bars []contracts.DailyBar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range bars {
		days, ok := s.bars[b.Code]
		if !ok {
			days = map[int64]contracts.DailyBar{}
			s.bars[b.Code] = days
		}
		key := dayKey(b.Date)
		if _, exists := days[key]; exists {
			continue // closed dates are immutable
		}
		days[key] = b
	}
	return nil
}

// GetFlows returns stored investor flows for [from, to], date-ascending
func (s *MemoryStore) GetFlows(ctx context.Context, code string, from, to time.Time) ([]contracts.InvestorFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []contracts.InvestorFlow
	for day, f := range s.flows[code] {
		if day >= dayKey(from) && day <= dayKey(to) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// SaveFlows appends flows, skipping rows that already exist
func (s *MemoryStore) SaveFlows(ctx context.Context, flows []contracts.InvestorFlow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range flows {
		days, ok := s.flows[f.Code]
		if !ok {
			days = map[int64]contracts.InvestorFlow{}
			s.flows[f.Code] = days
		}
		key := dayKey(f.Date)
		if _, exists := days[key]; exists {
			continue
		}
		days[key] = f
	}
	return nil
}

// UpsertSymbols inserts or replaces symbol master rows
func (s *MemoryStore) UpsertSymbols(ctx context.Context, symbols []contracts.Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sym := range symbols {
		s.symbols[sym.Code] = sym
	}
	return nil
}

// ListSymbols returns the symbol master, code-ascending
func (s *MemoryStore) ListSymbols(ctx context.Context) ([]contracts.Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contracts.Symbol, 0, len(s.symbols))
	for _, sym := range s.symbols {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// SaveResults replaces the result set for the run date
func (s *MemoryStore) SaveResults(ctx context.Context, results []contracts.ScreeningResult) error {
	if len(results) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(results[0].RunDate)
	s.results[key] = append([]contracts.ScreeningResult(nil), results...)
	return nil
}

// SaveSummary upserts the run summary for its date
func (s *MemoryStore) SaveSummary(ctx context.Context, summary *contracts.ScreeningSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *summary
	s.summaries[dayKey(summary.RunDate)] = &cp
	return nil
}

// ResultsByDate returns the stored results for a run date
func (s *MemoryStore) ResultsByDate(ctx context.Context, date time.Time) ([]contracts.ScreeningResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]contracts.ScreeningResult(nil), s.results[dayKey(date)]...), nil
}

// SummaryByDate returns the stored summary for a run date, nil if absent
func (s *MemoryStore) SummaryByDate(ctx context.Context, date time.Time) (*contracts.ScreeningSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, ok := s.summaries[dayKey(date)]
	if !ok {
		return nil, nil
	}
	cp := *sum
	return &cp, nil
}

var (
	_ contracts.BarStore    = (*MemoryStore)(nil)
	_ contracts.FlowStore   = (*MemoryStore)(nil)
	_ contracts.SymbolStore = (*MemoryStore)(nil)
	_ contracts.ResultStore = (*MemoryStore)(nil)
)
