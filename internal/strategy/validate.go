package strategy

import (
	"fmt"

	"github.com/wonny/screener/backend/internal/contracts"
)

// Validate checks all threshold constraints before any stage executes.
// 실패 시 ErrInvalidStrategyConfig 반환 (실행 중단)
func Validate(cfg *Config) error {
	if cfg.Name == "" {
		return contracts.InvalidStrategyConfig("name", "required")
	}
	if cfg.MinVolume < 0 {
		return contracts.InvalidStrategyConfig("min_volume", "must be >= 0")
	}

	if len(cfg.VolumeTiers) == 0 {
		return contracts.InvalidStrategyConfig("volume_tiers", "at least one tier required")
	}
	for i, t := range cfg.VolumeTiers {
		if t.Multiple <= 0 {
			return contracts.InvalidStrategyConfig(
				fmt.Sprintf("volume_tiers[%d].multiple", i), "must be > 0")
		}
		if t.Window <= 0 {
			return contracts.InvalidStrategyConfig(
				fmt.Sprintf("volume_tiers[%d].window", i), "must be > 0")
		}
	}
	if err := validateMode(cfg.VolumeMode, "volume_mode"); err != nil {
		return err
	}

	tr := cfg.Trend
	if tr.Short <= 0 || tr.Medium <= 0 || tr.Long <= 0 {
		return contracts.InvalidStrategyConfig("trend", "all periods must be > 0")
	}
	if !(tr.Short < tr.Medium && tr.Medium < tr.Long) {
		return contracts.InvalidStrategyConfig("trend",
			fmt.Sprintf("periods must satisfy short < medium < long, got %d/%d/%d", tr.Short, tr.Medium, tr.Long))
	}

	gc := cfg.GoldenCross
	if len(gc.Pairs) == 0 {
		return contracts.InvalidStrategyConfig("golden_cross.pairs", "at least one pair required")
	}
	if gc.Lookback <= 0 {
		return contracts.InvalidStrategyConfig("golden_cross.lookback", "must be > 0")
	}
	for i, p := range gc.Pairs {
		if p.Short <= 0 {
			return contracts.InvalidStrategyConfig(
				fmt.Sprintf("golden_cross.pairs[%d].short", i), "must be > 0")
		}
		if p.Short >= p.Long {
			return contracts.InvalidStrategyConfig(
				fmt.Sprintf("golden_cross.pairs[%d]", i),
				fmt.Sprintf("short must be < long, got %d/%d", p.Short, p.Long))
		}
	}
	if err := validateMode(cfg.CrossMode, "cross_mode"); err != nil {
		return err
	}

	return nil
}

func validateMode(mode, field string) error {
	switch mode {
	case "", ModeAny, ModeAll:
		return nil
	default:
		return contracts.InvalidStrategyConfig(field, `must be "any" or "all"`)
	}
}
