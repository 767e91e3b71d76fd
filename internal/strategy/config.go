package strategy

// Config는 스크리닝 전략의 전체 설정 (조건 임계값 SSOT)
type Config struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// MinVolume is the Stage1 absolute volume floor (절대 거래량 하한)
	MinVolume int64 `yaml:"min_volume" json:"min_volume"`

	// VolumeTiers is the Stage1 surge tier set, combined per VolumeMode
	VolumeTiers []VolumeTier `yaml:"volume_tiers" json:"volume_tiers"`

	// VolumeMode: "any" (default, one tier suffices) or "all"
	VolumeMode string `yaml:"volume_mode,omitempty" json:"volume_mode,omitempty"`

	Trend Trend `yaml:"trend" json:"trend"`

	GoldenCross GoldenCross `yaml:"golden_cross" json:"golden_cross"`

	// CrossMode: "any" (default) or "all"
	CrossMode string `yaml:"cross_mode,omitempty" json:"cross_mode,omitempty"`
}

// VolumeTier: today's volume must exceed Multiple × Window-day average
type VolumeTier struct {
	Multiple float64 `yaml:"multiple" json:"multiple"`
	Window   int     `yaml:"window" json:"window"`
}

// Trend holds the SMA periods for T-1..T-4 (이동평균 기간)
type Trend struct {
	Short  int `yaml:"short" json:"short"`
	Medium int `yaml:"medium" json:"medium"`
	Long   int `yaml:"long" json:"long"`
}

// GoldenCross holds the crossover pairs and shared lookback
type GoldenCross struct {
	Pairs    []CrossPair `yaml:"pairs" json:"pairs"`
	Lookback int         `yaml:"lookback" json:"lookback"`
}

// CrossPair is one (short, long) SMA crossover pair
type CrossPair struct {
	Short int `yaml:"short" json:"short"`
	Long  int `yaml:"long" json:"long"`
}

// Span is the pair width, used to order diagnostics (shortest first)
func (p CrossPair) Span() int { return p.Long - p.Short }

// MaxLookback returns the longest bar history any condition of this strategy
// needs for a definitive verdict. Stage2 fetches exactly this many trading
// days per candidate.
func (c *Config) MaxLookback() int {
	max := c.Trend.Long
	for _, t := range c.VolumeTiers {
		if t.Window+1 > max {
			max = t.Window + 1
		}
	}
	for _, p := range c.GoldenCross.Pairs {
		if need := p.Long + c.GoldenCross.Lookback; need > max {
			max = need
		}
	}
	return max
}

// Default returns the stock daily screening strategy (기본 전략).
// Tier and period values mirror the long-running production settings.
func Default() *Config {
	return &Config{
		Name:        "default",
		Description: "Daily momentum screening: volume surge + aligned trend + fresh golden cross + program buying",
		MinVolume:   30000,
		VolumeTiers: []VolumeTier{
			{Multiple: 1.5, Window: 5},
			{Multiple: 2.0, Window: 20},
		},
		VolumeMode: ModeAny,
		Trend:      Trend{Short: 20, Medium: 60, Long: 120},
		GoldenCross: GoldenCross{
			Pairs: []CrossPair{
				{Short: 5, Long: 20},
				{Short: 10, Long: 60},
				{Short: 20, Long: 120},
			},
			Lookback: 5,
		},
		CrossMode: ModeAny,
	}
}

// VolumeBreakout returns a faster preset tuned for short swing entries:
// tighter trend periods, heavier surge multiples.
func VolumeBreakout() *Config {
	return &Config{
		Name:        "volume_breakout",
		Description: "Short swing preset: strong volume surge over tight averages",
		MinVolume:   50000,
		VolumeTiers: []VolumeTier{
			{Multiple: 2.5, Window: 5},
			{Multiple: 3.0, Window: 20},
		},
		VolumeMode: ModeAny,
		Trend:      Trend{Short: 5, Medium: 20, Long: 60},
		GoldenCross: GoldenCross{
			Pairs: []CrossPair{
				{Short: 5, Long: 20},
				{Short: 10, Long: 30},
			},
			Lookback: 3,
		},
		CrossMode: ModeAny,
	}
}

// Combinator modes
const (
	ModeAny = "any"
	ModeAll = "all"
)
