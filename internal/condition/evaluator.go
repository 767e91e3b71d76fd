package condition

import (
	"github.com/wonny/screener/backend/internal/contracts"
)

// Evaluator is a pure, stateless predicate over a bounded window.
// ⭐ SSOT: 모든 조건 평가는 이 인터페이스를 통해서만
//
// Evaluating the same window twice yields an identical Verdict; evaluators
// carry their thresholds as plain fields and hold no other state.
type Evaluator interface {
	// Tag identifies the condition (e.g., "P-1", "G-2")
	Tag() string

	// MinBars is the lookback window required for a definitive pass/fail.
	// Fewer bars yields an insufficient-data verdict, never pass/fail.
	MinBars() int

	// Evaluate runs the predicate over the window
	Evaluate(w Window) contracts.Verdict
}

func insufficient(tag string) contracts.Verdict {
	return contracts.Verdict{Tag: tag, Status: contracts.VerdictInsufficient}
}

func verdict(tag string, passed bool, metrics map[string]interface{}) contracts.Verdict {
	status := contracts.VerdictFail
	if passed {
		status = contracts.VerdictPass
	}
	return contracts.Verdict{Tag: tag, Status: status, Metrics: metrics}
}

// AllOf is the AND combinator over a group of evaluators.
// A window too short for any member yields insufficient data for the whole
// group; otherwise members are evaluated in order with short-circuit on the
// first failure.
type AllOf struct {
	GroupTag string
	Members  []Evaluator
}

// Tag returns the group tag
func (g AllOf) Tag() string { return g.GroupTag }

// MinBars is the maximum lookback across members
func (g AllOf) MinBars() int {
	max := 0
	for _, m := range g.Members {
		if m.MinBars() > max {
			max = m.MinBars()
		}
	}
	return max
}

// Evaluate evaluates members in order, short-circuiting on first failure
func (g AllOf) Evaluate(w Window) contracts.Verdict {
	if len(w.Bars) < g.MinBars() {
		return insufficient(g.GroupTag)
	}

	out := contracts.Verdict{Tag: g.GroupTag, Status: contracts.VerdictPass}
	for _, m := range g.Members {
		v := m.Evaluate(w)
		out.Sub = append(out.Sub, v)
		if v.Insufficient() {
			out.Status = contracts.VerdictInsufficient
			return out
		}
		if !v.Passed() {
			out.Status = contracts.VerdictFail
			return out
		}
	}
	return out
}

// AnyOf is the OR combinator over a group of evaluators.
// All members are evaluated (diagnostics favor the first passing member, so
// members should be ordered by preference — e.g., shortest period pair first).
type AnyOf struct {
	GroupTag string
	Members  []Evaluator
}

// Tag returns the group tag
func (g AnyOf) Tag() string { return g.GroupTag }

// MinBars is the maximum lookback across members — a window too short for
// any member makes the group verdict insufficient, even if another member
// would pass.
func (g AnyOf) MinBars() int {
	max := 0
	for _, m := range g.Members {
		if m.MinBars() > max {
			max = m.MinBars()
		}
	}
	return max
}

// Evaluate evaluates all members; the group passes if any member passes
func (g AnyOf) Evaluate(w Window) contracts.Verdict {
	if len(w.Bars) < g.MinBars() {
		return insufficient(g.GroupTag)
	}

	out := contracts.Verdict{Tag: g.GroupTag, Status: contracts.VerdictFail}
	for _, m := range g.Members {
		v := m.Evaluate(w)
		out.Sub = append(out.Sub, v)
		if v.Insufficient() {
			out.Status = contracts.VerdictInsufficient
			return out
		}
		if v.Passed() && out.Status != contracts.VerdictPass {
			out.Status = contracts.VerdictPass
			// First passing member wins the group diagnostics
			out.Metrics = v.Metrics
		}
	}
	return out
}

// PassedTags walks a verdict tree and collects the tags of every passed
// verdict, leaves and groups alike.
func PassedTags(v contracts.Verdict) []string {
	var tags []string
	if v.Passed() {
		tags = append(tags, v.Tag)
	}
	for _, sub := range v.Sub {
		tags = append(tags, PassedTags(sub)...)
	}
	return tags
}
