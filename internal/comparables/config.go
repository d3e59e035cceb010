// Package comparables selects, scores, and price-adjusts comparable
// properties for a valuation target.
package comparables

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Config gathers every similarity weight and adjustment constant in one
// place so the heuristic model is auditable and swappable.
type Config struct {
	// Similarity weights (sum = 100).
	LocationWeight float64 `yaml:"location_weight" mapstructure:"location_weight"`
	SizeWeight     float64 `yaml:"size_weight" mapstructure:"size_weight"`
	BedroomWeight  float64 `yaml:"bedroom_weight" mapstructure:"bedroom_weight"`
	BathroomWeight float64 `yaml:"bathroom_weight" mapstructure:"bathroom_weight"`
	AgeWeight      float64 `yaml:"age_weight" mapstructure:"age_weight"`
	AmenityWeight  float64 `yaml:"amenity_weight" mapstructure:"amenity_weight"`

	// Candidate retrieval.
	AreaTolerancePct float64 `yaml:"area_tolerance_pct" mapstructure:"area_tolerance_pct"`
	BedroomTolerance int     `yaml:"bedroom_tolerance" mapstructure:"bedroom_tolerance"`
	OverfetchFactor  int     `yaml:"overfetch_factor" mapstructure:"overfetch_factor"`

	// Price adjustment constants. Linear heuristics, not a fitted regression.
	BedroomValueAED       float64 `yaml:"bedroom_value_aed" mapstructure:"bedroom_value_aed"`
	BathroomValueAED      float64 `yaml:"bathroom_value_aed" mapstructure:"bathroom_value_aed"`
	LocationSensitivity   float64 `yaml:"location_sensitivity" mapstructure:"location_sensitivity"`
	LocationDiffThreshold float64 `yaml:"location_diff_threshold" mapstructure:"location_diff_threshold"`
	AgeDriftPerYear       float64 `yaml:"age_drift_per_year" mapstructure:"age_drift_per_year"`
}

// DefaultConfig returns the built-in similarity and adjustment parameters.
// Weights sum to 100.
func DefaultConfig() Config {
	return Config{
		LocationWeight: 30,
		SizeWeight:     25,
		BedroomWeight:  15,
		BathroomWeight: 5,
		AgeWeight:      15,
		AmenityWeight:  10,

		AreaTolerancePct: 0.20,
		BedroomTolerance: 1,
		OverfetchFactor:  3,

		BedroomValueAED:       200_000,
		BathroomValueAED:      50_000,
		LocationSensitivity:   0.15,
		LocationDiffThreshold: 0.1,
		AgeDriftPerYear:       0.02,
	}
}

// WeightSum returns the sum of all similarity weights.
func WeightSum(c Config) float64 {
	return c.LocationWeight + c.SizeWeight + c.BedroomWeight +
		c.BathroomWeight + c.AgeWeight + c.AmenityWeight
}

// ValidateConfig checks that a Config is internally consistent.
func ValidateConfig(c Config) error {
	var errs []string

	weights := map[string]float64{
		"location_weight": c.LocationWeight,
		"size_weight":     c.SizeWeight,
		"bedroom_weight":  c.BedroomWeight,
		"bathroom_weight": c.BathroomWeight,
		"age_weight":      c.AgeWeight,
		"amenity_weight":  c.AmenityWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	sum := WeightSum(c)
	if sum <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}
	if math.Abs(sum-100) > 1 {
		errs = append(errs, fmt.Sprintf("weights should sum to 100, got %.1f", sum))
	}

	if c.AreaTolerancePct <= 0 || c.AreaTolerancePct >= 1 {
		errs = append(errs, "area_tolerance_pct must be in (0, 1)")
	}
	if c.BedroomTolerance < 0 {
		errs = append(errs, "bedroom_tolerance must be >= 0")
	}
	if c.OverfetchFactor < 1 {
		errs = append(errs, "overfetch_factor must be >= 1")
	}
	if c.LocationDiffThreshold < 0 {
		errs = append(errs, "location_diff_threshold must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("comparables: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// AdjacencyRule declares two community keywords as market-adjacent. The table
// is a hand-authored heuristic, not geographic ground truth.
type AdjacencyRule struct {
	A string `yaml:"a" mapstructure:"a"`
	B string `yaml:"b" mapstructure:"b"`
}

// DefaultAdjacency returns the built-in adjacent-community pairs.
func DefaultAdjacency() []AdjacencyRule {
	return []AdjacencyRule{
		{"marina", "jbr"},
		{"downtown", "business bay"},
		{"downtown", "difc"},
		{"jvc", "jvt"},
		{"palm jumeirah", "jbr"},
		{"city walk", "business bay"},
	}
}
