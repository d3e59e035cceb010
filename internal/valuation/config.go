package valuation

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// YieldTier maps a community keyword to a typical gross rental yield used as
// a fallback when no market snapshot is available. Hand-authored policy, not
// transaction-derived truth; first match wins.
type YieldTier struct {
	Keyword  string  `yaml:"keyword" mapstructure:"keyword"`
	YieldPct float64 `yaml:"yield_pct" mapstructure:"yield_pct"`
}

// Config gathers every estimator constant so the model is auditable.
type Config struct {
	// MaxComparables caps the comparable set used per estimate.
	MaxComparables int `yaml:"max_comparables" mapstructure:"max_comparables"`

	// Confidence interval: normal approximation z-score and the half-width
	// clamp expressed as fractions of the estimate.
	ZScore         float64 `yaml:"z_score" mapstructure:"z_score"`
	MinIntervalPct float64 `yaml:"min_interval_pct" mapstructure:"min_interval_pct"`
	MaxIntervalPct float64 `yaml:"max_interval_pct" mapstructure:"max_interval_pct"`

	// Confidence level thresholds.
	HighMinComparables   int     `yaml:"high_min_comparables" mapstructure:"high_min_comparables"`
	HighMinSimilarity    float64 `yaml:"high_min_similarity" mapstructure:"high_min_similarity"`
	MediumMinComparables int     `yaml:"medium_min_comparables" mapstructure:"medium_min_comparables"`
	MediumMinSimilarity  float64 `yaml:"medium_min_similarity" mapstructure:"medium_min_similarity"`

	// MAE defaults and cap (percent).
	EmptyMAE    float64 `yaml:"empty_mae" mapstructure:"empty_mae"`
	FallbackMAE float64 `yaml:"fallback_mae" mapstructure:"fallback_mae"`
	MaxMAE      float64 `yaml:"max_mae" mapstructure:"max_mae"`

	// Rental fallback.
	YieldTiers      []YieldTier `yaml:"yield_tiers" mapstructure:"yield_tiers"`
	DefaultYieldPct float64     `yaml:"default_yield_pct" mapstructure:"default_yield_pct"`
}

// DefaultConfig returns the built-in estimator parameters.
func DefaultConfig() Config {
	return Config{
		MaxComparables: 10,

		ZScore:         1.96,
		MinIntervalPct: 0.10,
		MaxIntervalPct: 0.25,

		HighMinComparables:   8,
		HighMinSimilarity:    0.8,
		MediumMinComparables: 5,
		MediumMinSimilarity:  0.6,

		EmptyMAE:    15,
		FallbackMAE: 12,
		MaxMAE:      25,

		YieldTiers: []YieldTier{
			{"palm jumeirah", 5.0},
			{"emirates hills", 5.0},
			{"downtown", 5.5},
			{"difc", 5.8},
			{"marina", 6.0},
			{"jbr", 6.0},
			{"business bay", 6.5},
			{"jvc", 7.5},
			{"sports city", 8.0},
			{"international city", 8.5},
		},
		DefaultYieldPct: 7.0,
	}
}

// ValidateConfig checks that a Config is internally consistent.
func ValidateConfig(c Config) error {
	var errs []string

	if c.MaxComparables <= 0 {
		errs = append(errs, "max_comparables must be > 0")
	}
	if c.ZScore <= 0 {
		errs = append(errs, "z_score must be > 0")
	}
	if c.MinIntervalPct < 0 || c.MinIntervalPct > c.MaxIntervalPct {
		errs = append(errs, "interval bounds must satisfy 0 <= min <= max")
	}
	if c.HighMinComparables < c.MediumMinComparables {
		errs = append(errs, "high_min_comparables must be >= medium_min_comparables")
	}
	if c.HighMinSimilarity < c.MediumMinSimilarity {
		errs = append(errs, "high_min_similarity must be >= medium_min_similarity")
	}
	if c.MaxMAE <= 0 {
		errs = append(errs, "max_mae must be > 0")
	}
	for _, tier := range c.YieldTiers {
		if tier.YieldPct <= 0 {
			errs = append(errs, fmt.Sprintf("yield tier %q must have positive yield", tier.Keyword))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("valuation: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
