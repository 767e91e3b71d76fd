package condition

import (
	"fmt"

	"github.com/wonny/screener/backend/internal/contracts"
)

// Window is the bounded bar/flow series a condition evaluates over.
// Series are strictly date-ascending with no duplicate dates — NewWindow
// enforces the invariant so evaluators never have to.
type Window struct {
	Bars  []contracts.DailyBar
	Flows []contracts.InvestorFlow
}

// NewWindow validates ordering and returns a Window
func NewWindow(bars []contracts.DailyBar, flows []contracts.InvestorFlow) (Window, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return Window{}, fmt.Errorf("bars not strictly date-ordered at index %d (%s)", i, bars[i].Date.Format("2006-01-02"))
		}
	}
	for i := 1; i < len(flows); i++ {
		if !flows[i].Date.After(flows[i-1].Date) {
			return Window{}, fmt.Errorf("flows not strictly date-ordered at index %d (%s)", i, flows[i].Date.Format("2006-01-02"))
		}
	}
	return Window{Bars: bars, Flows: flows}, nil
}

// Last returns the most recent bar. Caller must check len(Bars) > 0.
func (w Window) Last() contracts.DailyBar {
	return w.Bars[len(w.Bars)-1]
}

// LastFlow returns the most recent flow record. Caller must check len(Flows) > 0.
func (w Window) LastFlow() contracts.InvestorFlow {
	return w.Flows[len(w.Flows)-1]
}

// sma returns the simple moving average of closes for `period` bars ending at
// index `end` (inclusive). Returns false when not enough bars.
func (w Window) sma(period, end int) (float64, bool) {
	if period <= 0 || end < 0 || end >= len(w.Bars) || end-period+1 < 0 {
		return 0, false
	}
	var sum float64
	for i := end - period + 1; i <= end; i++ {
		sum += w.Bars[i].Close
	}
	return sum / float64(period), true
}

// avgVolume returns the unweighted mean volume of the `period` bars preceding
// the latest bar (the latest bar itself is excluded).
func (w Window) avgVolume(period int) (float64, bool) {
	n := len(w.Bars)
	if period <= 0 || n < period+1 {
		return 0, false
	}
	var sum float64
	for i := n - 1 - period; i < n-1; i++ {
		sum += float64(w.Bars[i].Volume)
	}
	return sum / float64(period), true
}
