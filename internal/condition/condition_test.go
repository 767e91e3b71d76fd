package condition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/screener/backend/internal/contracts"
)

// barSeries builds a strictly date-ascending daily bar series from closes.
// Open defaults to the previous close (or the first close), volume to 100000.
func barSeries(t *testing.T, closes ...float64) []contracts.DailyBar {
	t.Helper()
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.DailyBar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		bars[i] = contracts.DailyBar{
			Code:   "005930",
			Date:   start.AddDate(0, 0, i),
			Open:   open,
			High:   c * 1.02,
			Low:    open * 0.98,
			Close:  c,
			Volume: 100000,
		}
	}
	return bars
}

func mustWindow(t *testing.T, bars []contracts.DailyBar, flows []contracts.InvestorFlow) Window {
	t.Helper()
	w, err := NewWindow(bars, flows)
	require.NoError(t, err)
	return w
}

func TestNewWindowRejectsUnorderedBars(t *testing.T) {
	bars := barSeries(t, 100, 101, 102)
	bars[2].Date = bars[0].Date // duplicate date

	_, err := NewWindow(bars, nil)
	assert.Error(t, err)
}

func TestUptrendDay(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   contracts.VerdictStatus
	}{
		{"rising close passes", []float64{100, 105}, contracts.VerdictPass},
		{"flat close fails", []float64{100, 100}, contracts.VerdictFail},
		{"falling close fails", []float64{105, 100}, contracts.VerdictFail},
		{"single bar insufficient", []float64{100}, contracts.VerdictInsufficient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := mustWindow(t, barSeries(t, tt.closes...), nil)
			v := UptrendDay{}.Evaluate(w)
			assert.Equal(t, tt.want, v.Status)
			assert.Equal(t, contracts.TagUptrendDay, v.Tag)
		})
	}
}

func TestBullishCandle(t *testing.T) {
	bar := contracts.DailyBar{
		Code: "005930", Date: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name        string
		open, close float64
		want        contracts.VerdictStatus
	}{
		{"close above open passes", 100, 103, contracts.VerdictPass},
		{"doji fails", 100, 100, contracts.VerdictFail},
		{"bearish candle fails", 103, 100, contracts.VerdictFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bar
			b.Open, b.Close = tt.open, tt.close
			w := mustWindow(t, []contracts.DailyBar{b}, nil)
			assert.Equal(t, tt.want, BullishCandle{}.Evaluate(w).Status)
		})
	}

	t.Run("empty window insufficient", func(t *testing.T) {
		v := BullishCandle{}.Evaluate(Window{})
		assert.Equal(t, contracts.VerdictInsufficient, v.Status)
	})
}

func TestVolumeTier(t *testing.T) {
	// 5 history bars at 100k, then the bar under test
	mk := func(todayVol int64) Window {
		bars := barSeries(t, 100, 101, 102, 103, 104, 105)
		bars[len(bars)-1].Volume = todayVol
		return mustWindow(t, bars, nil)
	}
	tier := VolumeTier{TierTag: contracts.TagVolumeTierA, Multiple: 1.5, Window: 5}

	tests := []struct {
		name     string
		todayVol int64
		want     contracts.VerdictStatus
	}{
		{"above multiple passes", 151000, contracts.VerdictPass},
		{"exactly at multiple fails", 150000, contracts.VerdictFail},
		{"below multiple fails", 120000, contracts.VerdictFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tier.Evaluate(mk(tt.todayVol))
			assert.Equal(t, tt.want, v.Status)
		})
	}

	t.Run("average excludes the bar under test", func(t *testing.T) {
		// A huge spike today must not raise its own baseline.
		v := tier.Evaluate(mk(10_000_000))
		require.Equal(t, contracts.VerdictPass, v.Status)
		assert.InDelta(t, 100000.0, v.Metrics["avg_volume"], 0.001)
	})

	t.Run("short history insufficient", func(t *testing.T) {
		w := mustWindow(t, barSeries(t, 100, 101, 102), nil)
		assert.Equal(t, contracts.VerdictInsufficient, tier.Evaluate(w).Status)
	})
}

func TestTrendAboveSMA(t *testing.T) {
	ev := TrendAboveSMA{TrendTag: contracts.TagTrendShort, Period: 3}

	tests := []struct {
		name   string
		closes []float64
		want   contracts.VerdictStatus
	}{
		// sma(3) of {100,100,106} = 102, close 106 > 102
		{"close above sma passes", []float64{100, 100, 106}, contracts.VerdictPass},
		// sma(3) of {100,100,100} = 100, close == sma
		{"close equal to sma fails", []float64{100, 100, 100}, contracts.VerdictFail},
		{"close below sma fails", []float64{110, 110, 95}, contracts.VerdictFail},
		{"short history insufficient", []float64{100, 106}, contracts.VerdictInsufficient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := mustWindow(t, barSeries(t, tt.closes...), nil)
			assert.Equal(t, tt.want, ev.Evaluate(w).Status)
		})
	}
}

func TestTrendStacked(t *testing.T) {
	ev := TrendStacked{Short: 2, Medium: 3, Long: 5}

	t.Run("rising series stacks", func(t *testing.T) {
		// Monotone rising closes: shorter averages sit above longer ones.
		w := mustWindow(t, barSeries(t, 100, 102, 104, 106, 108), nil)
		v := ev.Evaluate(w)
		assert.Equal(t, contracts.VerdictPass, v.Status)
	})

	t.Run("falling series does not stack", func(t *testing.T) {
		w := mustWindow(t, barSeries(t, 108, 106, 104, 102, 100), nil)
		assert.Equal(t, contracts.VerdictFail, ev.Evaluate(w).Status)
	})

	t.Run("flat series fails on strict inequality", func(t *testing.T) {
		w := mustWindow(t, barSeries(t, 100, 100, 100, 100, 100), nil)
		assert.Equal(t, contracts.VerdictFail, ev.Evaluate(w).Status)
	})

	t.Run("short history insufficient", func(t *testing.T) {
		w := mustWindow(t, barSeries(t, 100, 102, 104), nil)
		assert.Equal(t, contracts.VerdictInsufficient, ev.Evaluate(w).Status)
	})
}

func TestGoldenCross(t *testing.T) {
	ev := GoldenCross{CrossTag: contracts.TagGoldenCross1, Short: 2, Long: 3, Lookback: 2}

	t.Run("fresh cross passes with offset", func(t *testing.T) {
		// Downtrend then sharp reversal: sma(2) crosses above sma(3) on the
		// last bar.
		w := mustWindow(t, barSeries(t, 110, 108, 106, 104, 120), nil)
		v := ev.Evaluate(w)
		require.Equal(t, contracts.VerdictPass, v.Status)
		assert.Equal(t, 0, v.Metrics["cross_offset"])
	})

	t.Run("cross one day back still inside lookback", func(t *testing.T) {
		w := mustWindow(t, barSeries(t, 110, 108, 106, 104, 120, 121), nil)
		v := ev.Evaluate(w)
		require.Equal(t, contracts.VerdictPass, v.Status)
		assert.Equal(t, 1, v.Metrics["cross_offset"])
	})

	t.Run("stale cross outside lookback fails", func(t *testing.T) {
		// Cross happened 3 bars back; lookback only covers 2.
		w := mustWindow(t, barSeries(t, 110, 108, 106, 104, 120, 121, 122, 123), nil)
		v := ev.Evaluate(w)
		assert.Equal(t, contracts.VerdictFail, v.Status)
	})

	t.Run("no cross in steady uptrend", func(t *testing.T) {
		// Short average already above long for the whole lookback.
		w := mustWindow(t, barSeries(t, 100, 102, 104, 106, 108, 110), nil)
		assert.Equal(t, contracts.VerdictFail, ev.Evaluate(w).Status)
	})

	t.Run("short history insufficient", func(t *testing.T) {
		// MinBars = Long + Lookback = 5
		w := mustWindow(t, barSeries(t, 104, 120, 121, 122), nil)
		assert.Equal(t, contracts.VerdictInsufficient, ev.Evaluate(w).Status)
	})
}

func TestSupplyDemand(t *testing.T) {
	date := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	mk := func(program, individual int64) Window {
		return mustWindow(t, nil, []contracts.InvestorFlow{{
			Code: "005930", Date: date,
			ProgramNet: program, IndividualNet: individual,
		}})
	}

	tests := []struct {
		name                string
		program, individual int64
		wantS1, wantS2      contracts.VerdictStatus
	}{
		{"program buy and individual sell", 500, -300, contracts.VerdictPass, contracts.VerdictPass},
		{"zero program fails S-1", 0, -300, contracts.VerdictFail, contracts.VerdictPass},
		{"zero individual fails S-2", 500, 0, contracts.VerdictPass, contracts.VerdictFail},
		{"both wrong direction", -500, 300, contracts.VerdictFail, contracts.VerdictFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := mk(tt.program, tt.individual)
			assert.Equal(t, tt.wantS1, ProgramNetBuy{}.Evaluate(w).Status)
			assert.Equal(t, tt.wantS2, IndividualOutflow{}.Evaluate(w).Status)
		})
	}

	t.Run("missing flow record insufficient", func(t *testing.T) {
		w := mustWindow(t, barSeries(t, 100, 105), nil)
		assert.Equal(t, contracts.VerdictInsufficient, ProgramNetBuy{}.Evaluate(w).Status)
		assert.Equal(t, contracts.VerdictInsufficient, IndividualOutflow{}.Evaluate(w).Status)
	})
}

func TestAllOf(t *testing.T) {
	group := AllOf{
		GroupTag: contracts.TagTrend,
		Members: []Evaluator{
			TrendAboveSMA{TrendTag: contracts.TagTrendShort, Period: 2},
			TrendAboveSMA{TrendTag: contracts.TagTrendMedium, Period: 3},
		},
	}

	t.Run("all pass", func(t *testing.T) {
		w := mustWindow(t, barSeries(t, 100, 102, 110), nil)
		v := group.Evaluate(w)
		assert.Equal(t, contracts.VerdictPass, v.Status)
		assert.Len(t, v.Sub, 2)
	})

	t.Run("short-circuits on first failure", func(t *testing.T) {
		w := mustWindow(t, barSeries(t, 110, 108, 90), nil)
		v := group.Evaluate(w)
		assert.Equal(t, contracts.VerdictFail, v.Status)
		assert.Len(t, v.Sub, 1)
	})

	t.Run("window short for any member is insufficient for group", func(t *testing.T) {
		// Enough for Period=2 but not Period=3: group never reports FAIL here.
		w := mustWindow(t, barSeries(t, 100, 110), nil)
		v := group.Evaluate(w)
		assert.Equal(t, contracts.VerdictInsufficient, v.Status)
	})

	t.Run("minbars is max of members", func(t *testing.T) {
		assert.Equal(t, 3, group.MinBars())
	})
}

func TestAnyOf(t *testing.T) {
	group := AnyOf{
		GroupTag: contracts.TagGoldenCross,
		Members: []Evaluator{
			GoldenCross{CrossTag: contracts.TagGoldenCross1, Short: 2, Long: 3, Lookback: 2},
			GoldenCross{CrossTag: contracts.TagGoldenCross2, Short: 3, Long: 5, Lookback: 2},
		},
	}

	t.Run("one passing member passes the group", func(t *testing.T) {
		// Sharp reversal after a downtrend crosses both pairs; the first
		// member in declaration order supplies the group diagnostics.
		w := mustWindow(t, barSeries(t, 120, 118, 116, 114, 112, 110, 125), nil)
		v := group.Evaluate(w)
		require.Equal(t, contracts.VerdictPass, v.Status)
		// All members are still evaluated for diagnostics.
		assert.Len(t, v.Sub, 2)
		// Group diagnostics come from the first passing member.
		assert.Equal(t, 2, v.Metrics["short"])
	})

	t.Run("no passing member fails the group", func(t *testing.T) {
		w := mustWindow(t, barSeries(t, 120, 118, 116, 114, 112, 110, 108), nil)
		assert.Equal(t, contracts.VerdictFail, group.Evaluate(w).Status)
	})

	t.Run("window short for the longest member is insufficient", func(t *testing.T) {
		// 5 bars: enough for the (2,3) pair (needs 5) but not (3,5) (needs 7).
		// Even a (2,3) cross cannot rescue the group verdict.
		w := mustWindow(t, barSeries(t, 110, 108, 106, 104, 120), nil)
		v := group.Evaluate(w)
		assert.Equal(t, contracts.VerdictInsufficient, v.Status)
	})
}

func TestEvaluateIsDeterministic(t *testing.T) {
	w := mustWindow(t, barSeries(t, 110, 108, 106, 104, 120, 121), nil)
	ev := GoldenCross{CrossTag: contracts.TagGoldenCross1, Short: 2, Long: 3, Lookback: 2}

	first := ev.Evaluate(w)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ev.Evaluate(w))
	}
}

func TestPassedTags(t *testing.T) {
	v := contracts.Verdict{
		Tag: contracts.TagTrend, Status: contracts.VerdictPass,
		Sub: []contracts.Verdict{
			{Tag: contracts.TagTrendShort, Status: contracts.VerdictPass},
			{Tag: contracts.TagTrendMedium, Status: contracts.VerdictFail},
		},
	}
	assert.Equal(t, []string{contracts.TagTrend, contracts.TagTrendShort}, PassedTags(v))
}
