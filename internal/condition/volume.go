package condition

import (
	"github.com/wonny/screener/backend/internal/contracts"
)

// VolumeTier: today's volume strictly exceeds Multiple × the average volume of
// the Window trading days preceding today (거래량 급증). The latest bar is
// excluded from its own average so a spike cannot dilute the baseline.
type VolumeTier struct {
	TierTag  string
	Multiple float64
	Window   int
}

func (c VolumeTier) Tag() string { return c.TierTag }

// MinBars is Window+1: the averaging window plus the bar under test
func (c VolumeTier) MinBars() int { return c.Window + 1 }

func (c VolumeTier) Evaluate(w Window) contracts.Verdict {
	avg, ok := w.avgVolume(c.Window)
	if !ok {
		return insufficient(c.TierTag)
	}
	vol := float64(w.Last().Volume)
	return verdict(c.TierTag, vol > c.Multiple*avg, map[string]interface{}{
		"volume":     vol,
		"avg_volume": avg,
		"multiple":   c.Multiple,
		"ratio":      safeRatio(vol, avg),
	})
}

func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
