package condition

import (
	"github.com/wonny/screener/backend/internal/contracts"
)

// ProgramNetBuy (S-1): program trading net flow strictly positive on the run
// date (프로그램 순매수). Zero fails.
type ProgramNetBuy struct{}

func (ProgramNetBuy) Tag() string  { return contracts.TagProgramBuy }
func (ProgramNetBuy) MinBars() int { return 0 }

func (c ProgramNetBuy) Evaluate(w Window) contracts.Verdict {
	if len(w.Flows) == 0 {
		return insufficient(c.Tag())
	}
	f := w.LastFlow()
	return verdict(c.Tag(), f.ProgramNet > 0, map[string]interface{}{
		"program_net": f.ProgramNet,
	})
}

// IndividualOutflow (S-2): individual investor net flow strictly negative on
// the run date (개인 매도 우위). Zero fails.
type IndividualOutflow struct{}

func (IndividualOutflow) Tag() string  { return contracts.TagIndividualOut }
func (IndividualOutflow) MinBars() int { return 0 }

func (c IndividualOutflow) Evaluate(w Window) contracts.Verdict {
	if len(w.Flows) == 0 {
		return insufficient(c.Tag())
	}
	f := w.LastFlow()
	return verdict(c.Tag(), f.IndividualNet < 0, map[string]interface{}{
		"individual_net": f.IndividualNet,
	})
}

var (
	_ Evaluator = ProgramNetBuy{}
	_ Evaluator = IndividualOutflow{}
)
