package condition

import (
	"github.com/wonny/screener/backend/internal/contracts"
)

// UptrendDay (P-1): close strictly above previous close (전일 대비 상승).
// Needs two bars — the latest and the one before it.
type UptrendDay struct{}

func (UptrendDay) Tag() string  { return contracts.TagUptrendDay }
func (UptrendDay) MinBars() int { return 2 }

func (c UptrendDay) Evaluate(w Window) contracts.Verdict {
	if len(w.Bars) < c.MinBars() {
		return insufficient(c.Tag())
	}
	last := w.Last()
	prev := w.Bars[len(w.Bars)-2]
	return verdict(c.Tag(), last.Close > prev.Close, map[string]interface{}{
		"close":      last.Close,
		"prev_close": prev.Close,
	})
}

// BullishCandle (P-2): close strictly above open (양봉).
// Flat candles (close == open) fail.
type BullishCandle struct{}

func (BullishCandle) Tag() string  { return contracts.TagBullishCandle }
func (BullishCandle) MinBars() int { return 1 }

func (c BullishCandle) Evaluate(w Window) contracts.Verdict {
	if len(w.Bars) < c.MinBars() {
		return insufficient(c.Tag())
	}
	last := w.Last()
	return verdict(c.Tag(), last.Close > last.Open, map[string]interface{}{
		"close": last.Close,
		"open":  last.Open,
	})
}
