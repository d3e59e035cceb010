// Package features converts raw property attributes into normalized [0,1]
// sub-scores used by similarity scoring and valuation.
package features

import (
	"math"
	"strings"
	"time"

	"github.com/gulfgate/valuer/internal/model"
)

// Feature keys used in the normalized sub-score map.
const (
	KeyLocation = "location"
	KeySize     = "size"
	KeyAmenity  = "amenity"
	KeyAge      = "age"
	KeyFloor    = "floor"
	KeyView     = "view"
)

// Defaults applied by Normalize when a mandatory score is missing, e.g. when
// the map arrived from an external or serialized source.
const (
	defaultLocation = 0.5
	defaultSize     = 0.5
	defaultAmenity  = 0.3
	defaultAge      = 0.5
)

// Size normalization domain in sqft.
const (
	minAreaSqft = 300
	maxAreaSqft = 10000
)

// CommunityRule maps a community-name keyword to a desirability score.
// Rules are checked in order and the first match wins, so more specific or
// premium keywords must come before generic ones.
type CommunityRule struct {
	Keyword string  `yaml:"keyword" mapstructure:"keyword"`
	Score   float64 `yaml:"score" mapstructure:"score"`
}

// AmenityWeight assigns a fixed contribution to an amenity keyword.
type AmenityWeight struct {
	Keyword string  `yaml:"keyword" mapstructure:"keyword"`
	Weight  float64 `yaml:"weight" mapstructure:"weight"`
}

// ViewRule maps a view keyword to a score. Ordered, first match wins.
type ViewRule struct {
	Keyword string  `yaml:"keyword" mapstructure:"keyword"`
	Score   float64 `yaml:"score" mapstructure:"score"`
}

// Rules holds the lookup tables the engineer scores against. The tables are
// hand-authored market policy, not ground truth, and are fully replaceable.
type Rules struct {
	Communities      []CommunityRule `yaml:"communities" mapstructure:"communities"`
	CommunityDefault float64         `yaml:"community_default" mapstructure:"community_default"`
	Amenities        []AmenityWeight `yaml:"amenities" mapstructure:"amenities"`
	Views            []ViewRule      `yaml:"views" mapstructure:"views"`
	ViewDefault      float64         `yaml:"view_default" mapstructure:"view_default"`
}

// DefaultRules returns the built-in Dubai market tables.
func DefaultRules() Rules {
	return Rules{
		Communities: []CommunityRule{
			{"palm jumeirah", 1.0},
			{"emirates hills", 1.0},
			{"downtown", 0.95},
			{"difc", 0.92},
			{"marina", 0.90},
			{"jbr", 0.88},
			{"business bay", 0.85},
			{"city walk", 0.85},
			{"jumeirah", 0.82},
			{"arabian ranches", 0.78},
			{"damac hills", 0.72},
			{"jvc", 0.70},
			{"jvt", 0.68},
			{"sports city", 0.62},
			{"silicon oasis", 0.58},
			{"international city", 0.50},
		},
		CommunityDefault: 0.50,
		Amenities: []AmenityWeight{
			{"pool", 0.15},
			{"beach access", 0.12},
			{"gym", 0.10},
			{"parking", 0.10},
			{"maid", 0.10},
			{"balcony", 0.08},
			{"spa", 0.08},
			{"smart home", 0.07},
			{"concierge", 0.06},
			{"garden", 0.06},
			{"security", 0.05},
		},
		Views: []ViewRule{
			{"sea", 1.0},
			{"ocean", 1.0},
			{"beach", 1.0},
			{"golf", 0.9},
			{"marina", 0.85},
			{"canal", 0.85},
			{"skyline", 0.75},
			{"city", 0.75},
			{"park", 0.65},
			{"garden", 0.65},
			{"pool", 0.6},
		},
		ViewDefault: 0.5,
	}
}

// Engineer extracts normalized feature scores from property attributes.
// All methods are pure: no I/O, no clock reads (the caller supplies now).
type Engineer struct {
	rules Rules
}

// NewEngineer creates an Engineer. Empty rule tables fall back to defaults.
func NewEngineer(rules Rules) *Engineer {
	def := DefaultRules()
	if len(rules.Communities) == 0 {
		rules.Communities = def.Communities
	}
	if rules.CommunityDefault == 0 {
		rules.CommunityDefault = def.CommunityDefault
	}
	if len(rules.Amenities) == 0 {
		rules.Amenities = def.Amenities
	}
	if len(rules.Views) == 0 {
		rules.Views = def.Views
	}
	if rules.ViewDefault == 0 {
		rules.ViewDefault = def.ViewDefault
	}
	return &Engineer{rules: rules}
}

// Extract computes the feature map for a property. Optional scores (floor,
// view) are only present when the underlying attribute is known.
func (e *Engineer) Extract(p model.TargetProperty, now time.Time) map[string]float64 {
	scores := map[string]float64{
		KeyLocation: e.CommunityScore(p.Community),
		KeySize:     sizeScore(p.AreaSqft),
		KeyAmenity:  e.amenityScore(p.Amenities),
		KeyAge:      ageScore(p.Completion, p.CompletionYear, now.Year()),
	}
	if p.Floor != nil {
		scores[KeyFloor] = floorScore(*p.Floor)
	}
	if p.View != "" {
		scores[KeyView] = e.viewScore(p.View)
	}
	return scores
}

// Normalize fills missing mandatory scores with documented defaults and clamps
// every score to [0,1]. Used as a defensive pass after extraction and for
// feature maps that arrive from outside the engine.
func Normalize(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores)+4)
	for k, v := range scores {
		out[k] = clamp01(v)
	}
	fill := func(key string, def float64) {
		if _, ok := out[key]; !ok {
			out[key] = def
		}
	}
	fill(KeyLocation, defaultLocation)
	fill(KeySize, defaultSize)
	fill(KeyAmenity, defaultAmenity)
	fill(KeyAge, defaultAge)
	return out
}

// CommunityScore looks up the desirability score for a community name.
// Matching is case-insensitive substring, first rule wins.
func (e *Engineer) CommunityScore(community string) float64 {
	c := strings.ToLower(strings.TrimSpace(community))
	if c == "" {
		return e.rules.CommunityDefault
	}
	for _, r := range e.rules.Communities {
		if strings.Contains(c, r.Keyword) {
			return r.Score
		}
	}
	return e.rules.CommunityDefault
}

func sizeScore(areaSqft int) float64 {
	return clamp01(float64(areaSqft-minAreaSqft) / float64(maxAreaSqft-minAreaSqft))
}

func (e *Engineer) amenityScore(amenities []string) float64 {
	var total float64
	for _, w := range e.rules.Amenities {
		for _, a := range amenities {
			if strings.Contains(strings.ToLower(a), w.Keyword) {
				total += w.Weight
				break
			}
		}
	}
	return math.Min(total, 1.0)
}

func ageScore(status model.CompletionStatus, completionYear *int, currentYear int) float64 {
	switch status {
	case model.StatusReady:
		if completionYear == nil {
			return 0.75
		}
		age := currentYear - *completionYear
		switch {
		case age <= 2:
			return 1.0
		case age <= 5:
			return 0.9
		case age <= 10:
			return 0.75
		case age <= 20:
			return 0.6
		default:
			return 0.4
		}
	case model.StatusOffPlan:
		if completionYear == nil {
			return 0.7
		}
		yearsToCompletion := *completionYear - currentYear
		switch {
		case yearsToCompletion <= 1:
			return 0.85
		case yearsToCompletion <= 3:
			return 0.75
		default:
			return 0.65
		}
	default:
		return 0.5
	}
}

func floorScore(floor int) float64 {
	switch {
	case floor <= 0:
		return 0.3
	case floor <= 5:
		return 0.5
	case floor <= 15:
		return 0.7
	case floor <= 30:
		return 0.85
	default:
		return 1.0
	}
}

func (e *Engineer) viewScore(view string) float64 {
	v := strings.ToLower(view)
	for _, r := range e.rules.Views {
		if strings.Contains(v, r.Keyword) {
			return r.Score
		}
	}
	return e.rules.ViewDefault
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
