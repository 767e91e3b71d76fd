package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/internal/external/krx"
	"github.com/wonny/screener/backend/internal/external/naver"
	"github.com/wonny/screener/backend/pkg/logger"
	"github.com/wonny/screener/backend/pkg/redis"
)

// Composite is the production market data provider: KRX for the universe
// snapshot and program trading, Naver for per-symbol bars and investor flows.
// Per-day quote tables and the assembled snapshot are cached in Redis so a
// rerun within the day costs no upstream calls.
type Composite struct {
	krx       *krx.Client
	naver     *naver.Client
	cache     *redis.Cache // nil when Redis is disabled
	avgWindow int          // rolling average volume window (trading days)
	log       *logger.Logger
}

// NewComposite creates the production provider. avgWindow is the rolling
// average volume window baked into the snapshot (typically the widest
// volume-tier window of the active strategy).
func NewComposite(krxClient *krx.Client, naverClient *naver.Client, cache *redis.Cache, avgWindow int, log *logger.Logger) *Composite {
	if avgWindow <= 0 {
		avgWindow = 20
	}
	return &Composite{
		krx:       krxClient,
		naver:     naverClient,
		cache:     cache,
		avgWindow: avgWindow,
		log:       log,
	}
}

// GetUniverseSnapshot assembles the whole-universe columnar snapshot for the
// trading date: the date's quote table plus enough trailing sessions to
// compute each symbol's rolling average volume. Symbols without a full
// trailing window get a negative average (Stage1 skips them).
func (p *Composite) GetUniverseSnapshot(ctx context.Context, date time.Time) (*contracts.UniverseSnapshot, error) {
	dateStr := date.Format("2006-01-02")

	if p.cache != nil {
		var cached contracts.UniverseSnapshot
		if ok, err := p.cache.Get(ctx, redis.SnapshotKey(dateStr), &cached); err == nil && ok {
			return &cached, nil
		}
	}

	quotes, err := p.fetchQuotesCached(ctx, date)
	if err != nil {
		return nil, contracts.DataUnavailable("universe quotes "+dateStr, err)
	}
	if len(quotes) == 0 {
		return nil, contracts.DataUnavailable("universe quotes "+dateStr, fmt.Errorf("no trading data for date"))
	}

	history, err := p.fetchTrailingVolumes(ctx, date)
	if err != nil {
		return nil, err
	}

	snap := buildSnapshot(date, quotes, history, p.avgWindow)

	if p.cache != nil {
		if err := p.cache.Set(ctx, redis.SnapshotKey(dateStr), snap, redis.TTLShort); err != nil {
			p.log.WithError(err).Warn("snapshot cache write failed")
		}
	}
	return snap, nil
}

// fetchTrailingVolumes collects per-symbol volumes over the avgWindow
// trading sessions preceding the run date. Calendar days that turn out to be
// holidays are skipped; the scan is bounded so a data outage cannot loop.
func (p *Composite) fetchTrailingVolumes(ctx context.Context, date time.Time) ([]map[string]int64, error) {
	history := make([]map[string]int64, 0, p.avgWindow)
	maxScan := p.avgWindow*2 + 14

	day := date
	for i := 0; i < maxScan && len(history) < p.avgWindow; i++ {
		day = day.AddDate(0, 0, -1)
		quotes, err := p.fetchQuotesCached(ctx, day)
		if err != nil {
			return nil, contracts.DataUnavailable("universe quotes "+day.Format("2006-01-02"), err)
		}
		if len(quotes) == 0 {
			continue // holiday
		}
		vols := make(map[string]int64, len(quotes))
		for _, q := range quotes {
			vols[q.Code] = q.Volume
		}
		history = append(history, vols)
	}

	if len(history) < p.avgWindow {
		return nil, contracts.DataUnavailable(
			fmt.Sprintf("trailing volumes before %s", date.Format("2006-01-02")),
			fmt.Errorf("only %d of %d sessions available", len(history), p.avgWindow))
	}
	return history, nil
}

// fetchQuotesCached fetches one day's quote table, Redis-cached per day
func (p *Composite) fetchQuotesCached(ctx context.Context, date time.Time) ([]krx.QuoteRow, error) {
	key := "krx:quotes:" + date.Format("2006-01-02")

	if p.cache != nil {
		var cached []krx.QuoteRow
		if ok, err := p.cache.Get(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}

	quotes, err := p.krx.FetchDailyQuotes(ctx, date)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		ttl := redis.TTLDaily
		if sameDay(date, time.Now()) {
			ttl = redis.TTLShort // today's table can still change intraday
		}
		if err := p.cache.Set(ctx, key, quotes, ttl); err != nil {
			p.log.WithError(err).Warn("quote cache write failed")
		}
	}
	return quotes, nil
}

// buildSnapshot folds quote rows and trailing volume maps into column form
func buildSnapshot(date time.Time, quotes []krx.QuoteRow, history []map[string]int64, window int) *contracts.UniverseSnapshot {
	n := len(quotes)
	snap := &contracts.UniverseSnapshot{
		Date:       date,
		Codes:      make([]string, n),
		Names:      make([]string, n),
		Markets:    make([]string, n),
		Opens:      make([]float64, n),
		Closes:     make([]float64, n),
		PrevCloses: make([]float64, n),
		Volumes:    make([]int64, n),
		AvgVolumes: make([]float64, n),
	}

	for i, q := range quotes {
		snap.Codes[i] = q.Code
		snap.Names[i] = q.Name
		snap.Markets[i] = q.Market
		snap.Opens[i] = q.Open
		snap.Closes[i] = q.Close
		snap.PrevCloses[i] = q.PrevClose
		snap.Volumes[i] = q.Volume

		var sum int64
		samples := 0
		for _, day := range history {
			if v, ok := day[q.Code]; ok {
				sum += v
				samples++
			}
		}
		if samples < window {
			snap.AvgVolumes[i] = -1 // insufficient trailing history
		} else {
			snap.AvgVolumes[i] = float64(sum) / float64(samples)
		}
	}
	return snap
}

// GetBars returns daily bars from the Naver chart API, date-ascending
func (p *Composite) GetBars(ctx context.Context, code string, from, to time.Time) ([]contracts.DailyBar, error) {
	bars, err := p.naver.FetchDailyBars(ctx, code, from, to)
	if err != nil {
		return nil, contracts.DataUnavailable("bars "+code, err)
	}
	return bars, nil
}

// GetInvestorFlows merges Naver investor flows (foreign/institution/
// individual) with KRX program trading net, keyed by session date.
func (p *Composite) GetInvestorFlows(ctx context.Context, code string, from, to time.Time) ([]contracts.InvestorFlow, error) {
	investor, err := p.naver.FetchInvestorFlows(ctx, code, from, to)
	if err != nil {
		return nil, contracts.DataUnavailable("investor flows "+code, err)
	}

	program, err := p.krx.FetchProgramTrading(ctx, code, from, to)
	if err != nil {
		return nil, contracts.DataUnavailable("program trading "+code, err)
	}
	programByDay := make(map[string]int64, len(program))
	for _, row := range program {
		programByDay[row.Date.Format("2006-01-02")] = row.ProgramNet
	}

	flows := make([]contracts.InvestorFlow, len(investor))
	for i, row := range investor {
		flows[i] = contracts.InvestorFlow{
			Code:           row.Code,
			Date:           row.Date,
			ProgramNet:     programByDay[row.Date.Format("2006-01-02")],
			IndividualNet:  row.IndividualNet,
			ForeignNet:     row.ForeignNet,
			InstitutionNet: row.InstitutionNet,
		}
	}
	return flows, nil
}

// SyncSymbols refreshes the symbol master from the date's quote table
func (p *Composite) SyncSymbols(ctx context.Context, date time.Time, store contracts.SymbolStore) (int, error) {
	quotes, err := p.fetchQuotesCached(ctx, date)
	if err != nil {
		return 0, contracts.DataUnavailable("universe quotes "+date.Format("2006-01-02"), err)
	}

	symbols := make([]contracts.Symbol, len(quotes))
	for i, q := range quotes {
		symbols[i] = contracts.Symbol{Code: q.Code, Name: q.Name, Market: q.Market}
	}
	if err := store.UpsertSymbols(ctx, symbols); err != nil {
		return 0, contracts.PersistenceError("upsert symbols", err)
	}
	return len(symbols), nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

var _ contracts.DataProvider = (*Composite)(nil)
