package comparables

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gulfgate/valuer/internal/features"
	"github.com/gulfgate/valuer/internal/model"
	"github.com/gulfgate/valuer/internal/store"
)

// DefaultLimit is the comparable count used when the caller passes limit <= 0.
const DefaultLimit = 10

// Selector finds and scores comparable properties for a target.
type Selector struct {
	props        store.PropertyStore
	eng          *features.Engineer
	cfg          Config
	adjacency    []AdjacencyRule
	areaKeywords []string
	now          func() time.Time
}

// NewSelector creates a Selector. A nil adjacency table falls back to the
// built-in one.
func NewSelector(props store.PropertyStore, eng *features.Engineer, cfg Config, adjacency []AdjacencyRule) *Selector {
	if adjacency == nil {
		adjacency = DefaultAdjacency()
	}
	return &Selector{
		props:        props,
		eng:          eng,
		cfg:          cfg,
		adjacency:    adjacency,
		areaKeywords: keywordsFromAdjacency(adjacency),
		now:          time.Now,
	}
}

// keywordsFromAdjacency collects the distinct community keywords referenced by
// the adjacency table; a shared keyword between two community names signals
// the same broader area.
func keywordsFromAdjacency(rules []AdjacencyRule) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rules {
		for _, k := range []string{strings.ToLower(r.A), strings.ToLower(r.B)} {
			if k != "" && !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

// FindComparables retrieves candidates from the property store, scores each
// against the target, price-adjusts it, and returns up to limit results in
// descending similarity order. targetID (when non-empty) is excluded from the
// candidate pool.
func (s *Selector) FindComparables(ctx context.Context, target model.TargetProperty, targetID string, limit int) ([]model.Comparable, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	filter := s.candidateFilter(target, targetID, limit)
	candidates, err := s.props.FindCandidates(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	comps := make([]model.Comparable, 0, len(candidates))
	for _, cand := range candidates {
		if cand.PriceAED <= 0 {
			continue
		}
		comps = append(comps, model.Comparable{
			PropertyID:       cand.ID,
			Similarity:       s.Similarity(target, cand.TargetProperty, now),
			RawPriceAED:      cand.PriceAED,
			AdjustedPriceAED: s.AdjustPrice(cand.PriceAED, target, cand.TargetProperty, now),
		})
	}

	sort.SliceStable(comps, func(i, j int) bool {
		if comps[i].Similarity != comps[j].Similarity {
			return comps[i].Similarity > comps[j].Similarity
		}
		return comps[i].PropertyID < comps[j].PropertyID
	})
	if len(comps) > limit {
		comps = comps[:limit]
	}

	zap.L().Debug("comparables: selection complete",
		zap.String("community", target.Community),
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(comps)),
	)

	return comps, nil
}

// candidateFilter translates the target and retrieval policy into a store
// filter. Over-fetches limit x OverfetchFactor to allow similarity pruning.
func (s *Selector) candidateFilter(target model.TargetProperty, targetID string, limit int) store.CandidateFilter {
	tolerance := float64(target.AreaSqft) * s.cfg.AreaTolerancePct

	terms := []string{target.Community}
	lc := strings.ToLower(target.Community)
	for _, r := range s.adjacency {
		switch {
		case strings.Contains(lc, r.A):
			terms = append(terms, r.B)
		case strings.Contains(lc, r.B):
			terms = append(terms, r.A)
		}
	}

	filter := store.CandidateFilter{
		PropertyType:   target.Type,
		MinAreaSqft:    int(math.Floor(float64(target.AreaSqft) - tolerance)),
		MaxAreaSqft:    int(math.Ceil(float64(target.AreaSqft) + tolerance)),
		Statuses:       []model.ListingStatus{model.ListingSold, model.ListingAvailable},
		CommunityTerms: terms,
		ExcludeID:      targetID,
		Limit:          limit * s.cfg.OverfetchFactor,
	}
	if target.Bedrooms != nil {
		minBeds := *target.Bedrooms - s.cfg.BedroomTolerance
		if minBeds < 0 {
			minBeds = 0
		}
		maxBeds := *target.Bedrooms + s.cfg.BedroomTolerance
		filter.MinBedrooms = &minBeds
		filter.MaxBedrooms = &maxBeds
	}
	return filter
}

// Similarity computes the weighted similarity of a candidate to the target,
// clamped to [0,1].
func (s *Selector) Similarity(target, cand model.TargetProperty, now time.Time) float64 {
	weightSum := WeightSum(s.cfg)
	if weightSum <= 0 {
		return 0
	}

	total := s.cfg.LocationWeight*s.locationSimilarity(target.Community, cand.Community) +
		s.cfg.SizeWeight*sizeSimilarity(target.AreaSqft, cand.AreaSqft) +
		s.cfg.BedroomWeight*bedroomSimilarity(target.Bedrooms, cand.Bedrooms) +
		s.cfg.BathroomWeight*bathroomSimilarity(target.Bathrooms, cand.Bathrooms) +
		s.cfg.AgeWeight*ageSimilarity(target, cand) +
		s.cfg.AmenityWeight*amenitySimilarity(target.Amenities, cand.Amenities)

	return clamp01(total / weightSum)
}

// locationSimilarity: exact community 1.0, shared area keyword 0.9, adjacent
// per the table 0.7, unrelated 0.3.
func (s *Selector) locationSimilarity(a, b string) float64 {
	la := strings.ToLower(strings.TrimSpace(a))
	lb := strings.ToLower(strings.TrimSpace(b))
	if la != "" && la == lb {
		return 1.0
	}
	for _, kw := range s.areaKeywords {
		if strings.Contains(la, kw) && strings.Contains(lb, kw) {
			return 0.9
		}
	}
	for _, r := range s.adjacency {
		if (strings.Contains(la, r.A) && strings.Contains(lb, r.B)) ||
			(strings.Contains(la, r.B) && strings.Contains(lb, r.A)) {
			return 0.7
		}
	}
	return 0.3
}

// sizeSimilarity buckets the percent difference relative to the target area.
func sizeSimilarity(targetArea, candArea int) float64 {
	if targetArea <= 0 || candArea <= 0 {
		return 0
	}
	diff := math.Abs(float64(targetArea-candArea)) / float64(targetArea)
	switch {
	case diff < 0.10:
		return 1.0
	case diff < 0.20:
		return 0.9
	case diff < 0.30:
		return 0.7
	default:
		return math.Max(0, 1-diff)
	}
}

func bedroomSimilarity(a, b *int) float64 {
	if a == nil && b == nil {
		return 1.0
	}
	if a == nil || b == nil {
		return 0.5
	}
	switch diff := abs(*a - *b); diff {
	case 0:
		return 1.0
	case 1:
		return 0.7
	case 2:
		return 0.4
	default:
		return 0.2
	}
}

func bathroomSimilarity(a, b *float64) float64 {
	if a == nil && b == nil {
		return 1.0
	}
	if a == nil || b == nil {
		return 0.5
	}
	diff := math.Abs(*a - *b)
	switch {
	case diff == 0:
		return 1.0
	case diff <= 1:
		return 0.8
	default:
		return 0.5
	}
}

// ageSimilarity compares completion status and year. Mixed status is a weak
// signal regardless of years.
func ageSimilarity(a, b model.TargetProperty) float64 {
	if a.Completion != b.Completion {
		return 0.5
	}
	if a.CompletionYear == nil || b.CompletionYear == nil {
		return 0.8
	}
	switch diff := abs(*a.CompletionYear - *b.CompletionYear); {
	case diff <= 1:
		return 1.0
	case diff <= 3:
		return 0.8
	case diff <= 5:
		return 0.6
	default:
		return 0.4
	}
}

// amenitySimilarity is the Jaccard similarity of the two amenity sets.
func amenitySimilarity(a, b []string) float64 {
	setA := amenitySet(a)
	setB := amenitySet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.3
	}
	var intersection int
	for k := range setA {
		if setB[k] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func amenitySet(amenities []string) map[string]bool {
	set := make(map[string]bool, len(amenities))
	for _, a := range amenities {
		key := strings.ToLower(strings.TrimSpace(a))
		if key != "" {
			set[key] = true
		}
	}
	return set
}

// AdjustPrice corrects a comparable's raw price for structural differences
// from the target. A linear heuristic hedonic adjustment; the result is never
// negative.
func (s *Selector) AdjustPrice(price float64, target, cand model.TargetProperty, now time.Time) float64 {
	adjusted := price

	// Area: price the missing or surplus sqft at the comparable's own rate.
	if cand.AreaSqft > 0 {
		pricePerSqft := price / float64(cand.AreaSqft)
		adjusted += float64(target.AreaSqft-cand.AreaSqft) * pricePerSqft
	}

	if target.Bedrooms != nil && cand.Bedrooms != nil {
		adjusted += float64(*target.Bedrooms-*cand.Bedrooms) * s.cfg.BedroomValueAED
	}
	if target.Bathrooms != nil && cand.Bathrooms != nil {
		adjusted += (*target.Bathrooms - *cand.Bathrooms) * s.cfg.BathroomValueAED
	}

	// Location: only material desirability gaps move the price.
	locationDiff := s.eng.CommunityScore(target.Community) - s.eng.CommunityScore(cand.Community)
	if math.Abs(locationDiff) > s.cfg.LocationDiffThreshold {
		adjusted *= 1 + locationDiff*s.cfg.LocationSensitivity
	}

	// Age: an older comparable understates the target's value and vice versa.
	if target.CompletionYear != nil && cand.CompletionYear != nil {
		targetAge := now.Year() - *target.CompletionYear
		candAge := now.Year() - *cand.CompletionYear
		adjusted *= 1 + float64(candAge-targetAge)*s.cfg.AgeDriftPerYear
	}

	return math.Max(0, adjusted)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
