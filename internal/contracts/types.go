package contracts

import "time"

// Symbol represents a tradable listing (종목 마스터)
// Reference entity, created/updated by the universe sync only.
type Symbol struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market"` // KOSPI, KOSDAQ
}

// DailyBar represents one end-of-day OHLCV bar
// Append-only: unique per (code, date), never overwritten once the date is closed.
type DailyBar struct {
	Code   string    `json:"code"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// InvestorFlow represents one day of investor net flows (수급)
// Same uniqueness and immutability rule as DailyBar.
type InvestorFlow struct {
	Code           string    `json:"code"`
	Date           time.Time `json:"date"`
	ProgramNet     int64     `json:"program_net"`     // 프로그램 순매수
	IndividualNet  int64     `json:"individual_net"`  // 개인 순매수
	ForeignNet     int64     `json:"foreign_net"`     // 외국인 순매수
	InstitutionNet int64     `json:"institution_net"` // 기관 순매수
}

// UniverseSnapshot holds the latest bar for the whole universe in column form.
// Parallel slices share one index; Stage1 runs one pass over the columns
// instead of iterating symbol structs (universe is thousands of symbols).
// AvgVolumes carries the N-day rolling average volume computed from trailing
// history; a negative value marks a symbol whose history was too short.
type UniverseSnapshot struct {
	Date time.Time `json:"date"`

	Codes      []string  `json:"codes"`
	Names      []string  `json:"names"`
	Markets    []string  `json:"markets"`
	Opens      []float64 `json:"opens"`
	Closes     []float64 `json:"closes"`
	PrevCloses []float64 `json:"prev_closes"`
	Volumes    []int64   `json:"volumes"`
	AvgVolumes []float64 `json:"avg_volumes"`
}

// Len returns the number of symbols in the snapshot
func (s *UniverseSnapshot) Len() int {
	return len(s.Codes)
}

// VerdictStatus is the outcome of a single condition evaluation
type VerdictStatus string

const (
	VerdictPass VerdictStatus = "PASS"
	VerdictFail VerdictStatus = "FAIL"
	// VerdictInsufficient: lookback window not fully covered.
	// Distinct from FAIL — never counted as a failing condition.
	VerdictInsufficient VerdictStatus = "INSUFFICIENT_DATA"
)

// Verdict is the ephemeral result of one condition evaluation.
// Never persisted directly; metric snapshots survive on ScreeningResult.
type Verdict struct {
	Tag     string                 `json:"tag"`
	Status  VerdictStatus          `json:"status"`
	Metrics map[string]interface{} `json:"metrics,omitempty"`
	Sub     []Verdict              `json:"sub,omitempty"` // combinator sub-verdicts
}

// Passed reports whether the condition passed
func (v Verdict) Passed() bool {
	return v.Status == VerdictPass
}

// Insufficient reports whether the window lacked required history
func (v Verdict) Insufficient() bool {
	return v.Status == VerdictInsufficient
}

// Condition tags (조건명 SSOT)
const (
	TagUptrendDay    = "P-1" // close > prev close
	TagBullishCandle = "P-2" // close > open
	TagVolumeTierA   = "V-A"
	TagVolumeTierB   = "V-B"
	TagVolume        = "volume" // tier group
	TagTrendShort    = "T-1"    // close > SMA(short)
	TagTrendMedium   = "T-2"    // close > SMA(medium)
	TagTrendLong     = "T-3"    // close > SMA(long)
	TagTrendStack    = "T-4"    // SMA(short) > SMA(medium) > SMA(long)
	TagTrend         = "trend"  // trend group
	TagGoldenCross1  = "G-1"
	TagGoldenCross2  = "G-2"
	TagGoldenCross3  = "G-3"
	TagGoldenCross   = "golden_cross" // crossover group
	TagProgramBuy    = "S-1"          // program net buy > 0
	TagIndividualOut = "S-2"          // individual net flow < 0
)

// Pipeline stage reached by a screening result
type Stage int

const (
	StageBulk Stage = iota + 1
	StageTechnical
	StageSupplyDemand
)

// String returns the stage name
func (s Stage) String() string {
	switch s {
	case StageBulk:
		return "stage1_bulk"
	case StageTechnical:
		return "stage2_technical"
	case StageSupplyDemand:
		return "stage3_supply_demand"
	default:
		return "unknown"
	}
}

// ScreeningResult is one surviving symbol of a run.
// Created once per survivor per run; immutable after creation.
type ScreeningResult struct {
	RunDate    time.Time          `json:"run_date"`
	Code       string             `json:"code"`
	Name       string             `json:"name"`
	Market     string             `json:"market"`
	Stage      Stage              `json:"stage"` // highest stage reached
	PassedTags []string           `json:"passed_tags"`
	Metrics    map[string]float64 `json:"metrics,omitempty"` // SMA values, cross offsets 등
	CreatedAt  time.Time          `json:"created_at"`
}

// StageCounts aggregates per-stage outcomes.
// Skipped tracks insufficient-data and per-symbol data-unavailable symbols —
// "no result" is always distinguishable from "insufficient data".
type StageCounts struct {
	Input   int `json:"input"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// ScreeningSummary is the funnel summary of one run. One per run.
type ScreeningSummary struct {
	RunID         string        `json:"run_id"`
	RunDate       time.Time     `json:"run_date"`
	Strategy      string        `json:"strategy"`
	UniverseTotal int           `json:"universe_total"`
	Stage1        StageCounts   `json:"stage1"`
	Stage2        StageCounts   `json:"stage2"`
	Stage3        StageCounts   `json:"stage3"`
	FinalPassed   int           `json:"final_passed"`
	Elapsed       time.Duration `json:"elapsed"`
	CreatedAt     time.Time     `json:"created_at"`
}
