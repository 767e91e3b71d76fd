package condition

import (
	"github.com/wonny/screener/backend/internal/contracts"
)

// TrendAboveSMA: latest close strictly above the N-day simple moving average.
// Covers T-1/T-2/T-3 with the strategy's short/medium/long periods.
type TrendAboveSMA struct {
	TrendTag string
	Period   int
}

func (c TrendAboveSMA) Tag() string  { return c.TrendTag }
func (c TrendAboveSMA) MinBars() int { return c.Period }

func (c TrendAboveSMA) Evaluate(w Window) contracts.Verdict {
	end := len(w.Bars) - 1
	avg, ok := w.sma(c.Period, end)
	if !ok {
		return insufficient(c.TrendTag)
	}
	close := w.Last().Close
	return verdict(c.TrendTag, close > avg, map[string]interface{}{
		"close":  close,
		"sma":    avg,
		"period": c.Period,
	})
}

// TrendStacked (T-4): 정배열 — SMA(short) > SMA(medium) > SMA(long), both
// inequalities strict, all three averages as of the latest bar.
type TrendStacked struct {
	Short  int
	Medium int
	Long   int
}

func (TrendStacked) Tag() string { return contracts.TagTrendStack }

// MinBars is the longest period; shorter averages are covered a fortiori
func (c TrendStacked) MinBars() int { return c.Long }

func (c TrendStacked) Evaluate(w Window) contracts.Verdict {
	end := len(w.Bars) - 1
	s, okS := w.sma(c.Short, end)
	m, okM := w.sma(c.Medium, end)
	l, okL := w.sma(c.Long, end)
	if !okS || !okM || !okL {
		return insufficient(c.Tag())
	}
	return verdict(c.Tag(), s > m && m > l, map[string]interface{}{
		"sma_short":  s,
		"sma_medium": m,
		"sma_long":   l,
	})
}
