package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/screener/backend/internal/contracts"
)

// Replay serves recorded market data. Used by tests and offline runs: the
// pipeline sees exactly the same port as in production, with deterministic
// answers.
type Replay struct {
	Snapshots map[string]*contracts.UniverseSnapshot // by run date (2006-01-02)
	Bars      map[string][]contracts.DailyBar        // by code, date-ascending
	Flows     map[string][]contracts.InvestorFlow    // by code, date-ascending
}

// NewReplay creates an empty replay provider
func NewReplay() *Replay {
	return &Replay{
		Snapshots: map[string]*contracts.UniverseSnapshot{},
		Bars:      map[string][]contracts.DailyBar{},
		Flows:     map[string][]contracts.InvestorFlow{},
	}
}

// GetUniverseSnapshot returns the recorded snapshot for the date
func (r *Replay) GetUniverseSnapshot(ctx context.Context, date time.Time) (*contracts.UniverseSnapshot, error) {
	snap, ok := r.Snapshots[date.Format("2006-01-02")]
	if !ok {
		return nil, contracts.DataUnavailable("universe snapshot "+date.Format("2006-01-02"), fmt.Errorf("no recording"))
	}
	return snap, nil
}

// GetBars returns recorded bars inside [from, to]
func (r *Replay) GetBars(ctx context.Context, code string, from, to time.Time) ([]contracts.DailyBar, error) {
	var out []contracts.DailyBar
	for _, b := range r.Bars[code] {
		if !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

// GetInvestorFlows returns recorded flows inside [from, to]
func (r *Replay) GetInvestorFlows(ctx context.Context, code string, from, to time.Time) ([]contracts.InvestorFlow, error) {
	var out []contracts.InvestorFlow
	for _, f := range r.Flows[code] {
		if !f.Date.Before(from) && !f.Date.After(to) {
			out = append(out, f)
		}
	}
	return out, nil
}

var _ contracts.DataProvider = (*Replay)(nil)
