package contracts

import (
	"context"
	"time"
)

// DataProvider is the upstream market data port.
// All calls may fail with ErrDataUnavailable. The production variant composes
// two sources (KRX for bars/snapshot/program flow, Naver for investor flow);
// the test variant replays recorded snapshots.
type DataProvider interface {
	// GetUniverseSnapshot returns the whole-universe latest-bar snapshot for
	// the trading date, with rolling average volume precomputed from trailing
	// history.
	GetUniverseSnapshot(ctx context.Context, date time.Time) (*UniverseSnapshot, error)

	// GetBars returns daily bars for [from, to], date-ascending.
	GetBars(ctx context.Context, code string, from, to time.Time) ([]DailyBar, error)

	// GetInvestorFlows returns investor flow records for [from, to],
	// date-ascending. A single run date is the from == to case.
	GetInvestorFlows(ctx context.Context, code string, from, to time.Time) ([]InvestorFlow, error)
}

// BarStore is the persistent bar store behind the cache manager.
// Save is append-if-absent: closed trading dates are immutable.
type BarStore interface {
	GetBars(ctx context.Context, code string, from, to time.Time) ([]DailyBar, error)
	SaveBars(ctx context.Context, bars []DailyBar) error
}

// FlowStore is the persistent investor flow store behind the cache manager.
type FlowStore interface {
	GetFlows(ctx context.Context, code string, from, to time.Time) ([]InvestorFlow, error)
	SaveFlows(ctx context.Context, flows []InvestorFlow) error
}

// SymbolStore maintains the symbol master (종목 마스터)
type SymbolStore interface {
	UpsertSymbols(ctx context.Context, symbols []Symbol) error
	ListSymbols(ctx context.Context) ([]Symbol, error)
}

// ResultStore persists screening output. Write failures are reported to the
// caller, never retried by the core.
type ResultStore interface {
	SaveResults(ctx context.Context, results []ScreeningResult) error
	SaveSummary(ctx context.Context, summary *ScreeningSummary) error
	ResultsByDate(ctx context.Context, date time.Time) ([]ScreeningResult, error)
	SummaryByDate(ctx context.Context, date time.Time) (*ScreeningSummary, error)
}

// Notifier delivers the run outcome. Best-effort: a Send failure must not
// fail the run.
type Notifier interface {
	Send(ctx context.Context, summary *ScreeningSummary, results []ScreeningResult) error
}
