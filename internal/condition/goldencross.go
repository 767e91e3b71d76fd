package condition

import (
	"github.com/wonny/screener/backend/internal/contracts"
)

// GoldenCross: SMA(Short) crossed above SMA(Long) within the last Lookback
// trading days (골든크로스). A cross at offset k (0 = today) means
// SMA(Short) <= SMA(Long) at k+1 and SMA(Short) > SMA(Long) at k. The most
// recent cross inside the lookback is reported.
type GoldenCross struct {
	CrossTag string
	Short    int
	Long     int
	Lookback int
}

func (c GoldenCross) Tag() string { return c.CrossTag }

// MinBars covers the long average at the oldest comparison point: a cross at
// offset Lookback-1 compares averages Lookback bars back.
func (c GoldenCross) MinBars() int { return c.Long + c.Lookback }

func (c GoldenCross) Evaluate(w Window) contracts.Verdict {
	if len(w.Bars) < c.MinBars() {
		return insufficient(c.CrossTag)
	}
	end := len(w.Bars) - 1
	for k := 0; k < c.Lookback; k++ {
		sNow, ok1 := w.sma(c.Short, end-k)
		lNow, ok2 := w.sma(c.Long, end-k)
		sPrev, ok3 := w.sma(c.Short, end-k-1)
		lPrev, ok4 := w.sma(c.Long, end-k-1)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return insufficient(c.CrossTag)
		}
		if sPrev <= lPrev && sNow > lNow {
			return verdict(c.CrossTag, true, map[string]interface{}{
				"short":        c.Short,
				"long":         c.Long,
				"cross_offset": k,
				"sma_short":    sNow,
				"sma_long":     lNow,
			})
		}
	}
	return verdict(c.CrossTag, false, map[string]interface{}{
		"short": c.Short,
		"long":  c.Long,
	})
}

var (
	_ Evaluator = GoldenCross{}
	_ Evaluator = TrendStacked{}
	_ Evaluator = TrendAboveSMA{}
	_ Evaluator = VolumeTier{}
	_ Evaluator = UptrendDay{}
	_ Evaluator = BullishCandle{}
)
