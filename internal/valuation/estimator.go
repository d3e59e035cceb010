package valuation

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gulfgate/valuer/internal/comparables"
	"github.com/gulfgate/valuer/internal/features"
	"github.com/gulfgate/valuer/internal/model"
	"github.com/gulfgate/valuer/internal/resilience"
	"github.com/gulfgate/valuer/internal/store"
)

// Estimator produces Valuation records from a target and the external read
// ports. It holds no mutable state; concurrent estimates are independent.
type Estimator struct {
	props    store.PropertyStore
	market   store.MarketDataProvider
	selector *comparables.Selector
	eng      *features.Engineer
	cfg      Config
	retry    resilience.RetryConfig
	now      func() time.Time
}

// NewEstimator creates an Estimator. market may be nil, in which case every
// estimate degrades to heuristic market factors.
func NewEstimator(props store.PropertyStore, market store.MarketDataProvider, sel *comparables.Selector, eng *features.Engineer, cfg Config) *Estimator {
	return &Estimator{
		props:    props,
		market:   market,
		selector: sel,
		eng:      eng,
		cfg:      cfg,
		retry:    resilience.DefaultRetryConfig(),
		now:      time.Now,
	}
}

// SetRetryConfig overrides the retry policy for market snapshot reads.
func (e *Estimator) SetRetryConfig(rc resilience.RetryConfig) {
	e.retry = rc
}

// EstimateValue runs the full comparative valuation for a subject.
//
// Mandatory reads (property lookup, comparable candidates) abort the request
// on failure; the market snapshot is best-effort and degrades to heuristic
// defaults.
func (e *Estimator) EstimateValue(ctx context.Context, subject Subject, requestedBy string) (*model.Valuation, error) {
	target, propertyID, err := subject.Resolve(ctx, e.props)
	if err != nil {
		return nil, err
	}
	if target.AreaSqft <= 0 {
		return nil, eris.Wrap(ErrInvalidInput, "area must be positive")
	}

	now := e.now()
	featureScores := features.Normalize(e.eng.Extract(target, now))

	// Candidate retrieval and the snapshot lookup are independent; issue them
	// concurrently. Only the candidate fetch is fatal.
	var (
		comps []model.Comparable
		snap  *model.MarketSnapshot
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		comps, err = e.selector.FindComparables(gCtx, target, propertyID, e.cfg.MaxComparables)
		if err != nil {
			return eris.Wrap(err, "estimate: find comparables")
		}
		return nil
	})
	g.Go(func() error {
		snap = e.lookupSnapshot(gCtx, target.Community, target.Type)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(comps) == 0 {
		return nil, eris.Wrapf(ErrInsufficientData, "no comparables for %s/%s", target.Community, target.Type)
	}

	estimate, ok := weightedEstimate(comps)
	if !ok {
		return nil, eris.Wrap(ErrInsufficientData, "total similarity weight is zero")
	}

	low, high := e.confidenceInterval(estimate, comps)
	rent := e.estimateRent(target, snap, nil)

	v := &model.Valuation{
		ID:                uuid.NewString(),
		PropertyID:        propertyID,
		EstimatedValueAED: estimate,
		ConfidenceLowAED:  low,
		ConfidenceHighAED: high,
		ConfidenceLevel:   e.confidenceLevel(comps),
		Method:            model.MethodComparative,
		Comparables:       comps,
		Features:          featureScores,
		MarketFactors:     marketFactors(snap),
		PricePerSqft:      estimate / float64(target.AreaSqft),
		EstimatedRentAED:  rent,
		GrossYieldPct:     GrossYield(estimate, rent),
		MAE:               e.meanAbsoluteError(comps),
		RequestedBy:       requestedBy,
		CreatedAt:         now,
	}

	zap.L().Info("valuation: estimate complete",
		zap.String("valuation_id", v.ID),
		zap.String("property_id", propertyID),
		zap.String("community", target.Community),
		zap.Float64("estimated_value_aed", v.EstimatedValueAED),
		zap.String("confidence_level", string(v.ConfidenceLevel)),
		zap.Int("comparables", len(comps)),
		zap.Float64("mae", v.MAE),
	)

	return v, nil
}

// EstimateRental estimates annual and monthly rent for a stored property.
// purchasePrice (when > 0) overrides the listed price for yield computation.
func (e *Estimator) EstimateRental(ctx context.Context, propertyID string, purchasePrice float64) (*model.RentalEstimate, error) {
	target, _, err := PropertyRef(propertyID).Resolve(ctx, e.props)
	if err != nil {
		return nil, err
	}

	snap := e.lookupSnapshot(ctx, target.Community, target.Type)

	var override *float64
	if purchasePrice > 0 {
		override = &purchasePrice
	}
	annual := e.estimateRent(target, snap, override)

	price := purchasePrice
	if price <= 0 && target.ListedPriceAED != nil {
		price = *target.ListedPriceAED
	}

	return &model.RentalEstimate{
		AnnualRentAED:  annual,
		MonthlyRentAED: annual / 12,
		GrossYieldPct:  GrossYield(price, annual),
	}, nil
}

// FindComparables resolves a subject and returns its scored comparable set
// without producing a full valuation. limit <= 0 uses the configured cap.
func (e *Estimator) FindComparables(ctx context.Context, subject Subject, limit int) ([]model.Comparable, error) {
	target, propertyID, err := subject.Resolve(ctx, e.props)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = e.cfg.MaxComparables
	}
	return e.selector.FindComparables(ctx, target, propertyID, limit)
}

// ComparableStats summarizes a comparable set's raw and adjusted prices.
func (e *Estimator) ComparableStats(comps []model.Comparable) comparables.PriceStats {
	return comparables.Stats(comps)
}

// lookupSnapshot fetches the latest market snapshot with retries. Failures
// are logged and degrade to nil rather than aborting the estimate.
func (e *Estimator) lookupSnapshot(ctx context.Context, community string, propertyType model.PropertyType) *model.MarketSnapshot {
	if e.market == nil {
		return nil
	}
	snap, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (*model.MarketSnapshot, error) {
		return e.market.LatestSnapshot(ctx, community, propertyType)
	})
	if err != nil {
		zap.L().Warn("valuation: market snapshot unavailable, degrading",
			zap.String("community", community),
			zap.String("property_type", string(propertyType)),
			zap.Error(err),
		)
		return nil
	}
	return snap
}

// weightedEstimate is the similarity-weighted mean of adjusted prices. ok is
// false when the total weight is zero.
func weightedEstimate(comps []model.Comparable) (float64, bool) {
	var sum, weight float64
	for _, c := range comps {
		sum += c.AdjustedPriceAED * c.Similarity
		weight += c.Similarity
	}
	if weight <= 0 {
		return 0, false
	}
	return sum / weight, true
}

// confidenceInterval derives a 95% band from the dispersion of adjusted
// prices, clamped to [MinIntervalPct, MaxIntervalPct] of the estimate.
func (e *Estimator) confidenceInterval(estimate float64, comps []model.Comparable) (low, high float64) {
	n := float64(len(comps))

	var stdDev float64
	if len(comps) > 1 {
		var mean float64
		for _, c := range comps {
			mean += c.AdjustedPriceAED
		}
		mean /= n

		var variance float64
		for _, c := range comps {
			d := c.AdjustedPriceAED - mean
			variance += d * d
		}
		stdDev = math.Sqrt(variance / (n - 1))
	}

	margin := e.cfg.ZScore * stdDev / math.Sqrt(n)
	margin = math.Max(margin, estimate*e.cfg.MinIntervalPct)
	margin = math.Min(margin, estimate*e.cfg.MaxIntervalPct)

	low = math.Max(0, estimate-margin)
	high = math.Max(estimate, estimate+margin)
	return low, high
}

// confidenceLevel grades the estimate by comparable count and mean similarity.
func (e *Estimator) confidenceLevel(comps []model.Comparable) model.ConfidenceLevel {
	var avg float64
	for _, c := range comps {
		avg += c.Similarity
	}
	avg /= float64(len(comps))

	switch {
	case len(comps) >= e.cfg.HighMinComparables && avg > e.cfg.HighMinSimilarity:
		return model.ConfidenceHigh
	case len(comps) >= e.cfg.MediumMinComparables && avg > e.cfg.MediumMinSimilarity:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// estimateRent prefers snapshot rent-per-sqft; otherwise applies the
// community-tier typical yield to the purchase (or listed) price. Returns 0
// when no usable price exists.
func (e *Estimator) estimateRent(target model.TargetProperty, snap *model.MarketSnapshot, purchasePrice *float64) float64 {
	if snap != nil && snap.AvgRentSqft > 0 {
		return snap.AvgRentSqft * float64(target.AreaSqft)
	}

	price := 0.0
	if purchasePrice != nil && *purchasePrice > 0 {
		price = *purchasePrice
	} else if target.ListedPriceAED != nil && *target.ListedPriceAED > 0 {
		price = *target.ListedPriceAED
	}
	if price <= 0 {
		return 0
	}

	return price * e.typicalYieldPct(target.Community) / 100
}

// typicalYieldPct looks the community up in the yield tier table.
func (e *Estimator) typicalYieldPct(community string) float64 {
	c := strings.ToLower(community)
	for _, tier := range e.cfg.YieldTiers {
		if strings.Contains(c, tier.Keyword) {
			return tier.YieldPct
		}
	}
	return e.cfg.DefaultYieldPct
}

// GrossYield is annual rent over price as a percentage, guarded to 0 when
// either input is non-positive.
func GrossYield(price, annualRent float64) float64 {
	if price <= 0 || annualRent <= 0 {
		return 0
	}
	return annualRent / price * 100
}

// meanAbsoluteError reports the mean percent gap between raw and adjusted
// comparable prices, an accuracy proxy in [0, MaxMAE].
func (e *Estimator) meanAbsoluteError(comps []model.Comparable) float64 {
	if len(comps) == 0 {
		return e.cfg.EmptyMAE
	}

	var sum float64
	var n int
	for _, c := range comps {
		if c.RawPriceAED <= 0 {
			continue
		}
		sum += math.Abs(c.RawPriceAED-c.AdjustedPriceAED) / c.RawPriceAED * 100
		n++
	}
	if n == 0 {
		return e.cfg.FallbackMAE
	}

	return math.Min(sum/float64(n), e.cfg.MaxMAE)
}

// marketFactors converts a snapshot into best-effort market context; a nil
// snapshot yields the degraded form consumers can detect.
func marketFactors(snap *model.MarketSnapshot) model.MarketFactors {
	if snap == nil {
		return model.MarketFactors{Trend: model.TrendUnknown}
	}
	return model.MarketFactors{
		AvgPriceSqft:      snap.AvgPriceSqft,
		Trend:             snap.Trend(),
		TransactionVolume: snap.TransactionCount,
	}
}
