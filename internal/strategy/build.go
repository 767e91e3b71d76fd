package strategy

import (
	"fmt"
	"sort"

	"github.com/wonny/screener/backend/internal/condition"
	"github.com/wonny/screener/backend/internal/contracts"
)

// TrendGroup builds the Stage2 trend group (T-1..T-4, AND)
func (c *Config) TrendGroup() condition.Evaluator {
	return condition.AllOf{
		GroupTag: contracts.TagTrend,
		Members: []condition.Evaluator{
			condition.TrendAboveSMA{TrendTag: contracts.TagTrendShort, Period: c.Trend.Short},
			condition.TrendAboveSMA{TrendTag: contracts.TagTrendMedium, Period: c.Trend.Medium},
			condition.TrendAboveSMA{TrendTag: contracts.TagTrendLong, Period: c.Trend.Long},
			condition.TrendStacked{Short: c.Trend.Short, Medium: c.Trend.Medium, Long: c.Trend.Long},
		},
	}
}

// CrossGroup builds the Stage2 golden cross group. Pairs are ordered by span
// (shortest first) so the tightest crossover supplies group diagnostics when
// several pairs pass in "any" mode.
func (c *Config) CrossGroup() condition.Evaluator {
	pairs := make([]CrossPair, len(c.GoldenCross.Pairs))
	copy(pairs, c.GoldenCross.Pairs)
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Span() < pairs[j].Span()
	})

	members := make([]condition.Evaluator, len(pairs))
	for i, p := range pairs {
		members[i] = condition.GoldenCross{
			CrossTag: crossTag(i),
			Short:    p.Short,
			Long:     p.Long,
			Lookback: c.GoldenCross.Lookback,
		}
	}
	if c.CrossMode == ModeAll {
		return condition.AllOf{GroupTag: contracts.TagGoldenCross, Members: members}
	}
	return condition.AnyOf{GroupTag: contracts.TagGoldenCross, Members: members}
}

// SupplyGroup builds the Stage3 supply/demand group (S-1 AND S-2)
func (c *Config) SupplyGroup() condition.Evaluator {
	return condition.AllOf{
		GroupTag: "supply_demand",
		Members: []condition.Evaluator{
			condition.ProgramNetBuy{},
			condition.IndividualOutflow{},
		},
	}
}

func crossTag(i int) string {
	switch i {
	case 0:
		return contracts.TagGoldenCross1
	case 1:
		return contracts.TagGoldenCross2
	case 2:
		return contracts.TagGoldenCross3
	default:
		return fmt.Sprintf("G-%d", i+1)
	}
}
