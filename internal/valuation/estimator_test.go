package valuation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulfgate/valuer/internal/comparables"
	"github.com/gulfgate/valuer/internal/features"
	"github.com/gulfgate/valuer/internal/model"
	"github.com/gulfgate/valuer/internal/store"
)

var testNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }

func marinaTarget() model.TargetProperty {
	return model.TargetProperty{
		Community:      "Dubai Marina",
		Type:           model.TypeApartment,
		Bedrooms:       ptrInt(2),
		Bathrooms:      ptrFloat64(2),
		AreaSqft:       1200,
		Completion:     model.StatusReady,
		CompletionYear: ptrInt(2020),
		Amenities:      []string{"pool", "gym"},
	}
}

// seedClones stores n sold copies of the target, all at the same price, so
// every comparable scores similarity 1.0 with no price adjustment.
func seedClones(mem *store.MemoryStore, target model.TargetProperty, n int, price float64) {
	for i := 0; i < n; i++ {
		mem.PutProperty(model.Property{
			TargetProperty: target,
			ID:             fmt.Sprintf("comp-%03d", i),
			PriceAED:       price,
			Status:         model.ListingSold,
		})
	}
}

func newTestEstimator(mem *store.MemoryStore) *Estimator {
	eng := features.NewEngineer(features.DefaultRules())
	sel := comparables.NewSelector(mem, eng, comparables.DefaultConfig(), comparables.DefaultAdjacency())
	e := NewEstimator(mem, mem, sel, eng, DefaultConfig())
	e.now = func() time.Time { return testNow }
	return e
}

func TestEstimateValueIdenticalComparables(t *testing.T) {
	mem := store.NewMemory()
	target := marinaTarget()
	seedClones(mem, target, 10, 2_400_000)

	e := newTestEstimator(mem)
	v, err := e.EstimateValue(context.Background(), ManualTarget(target), "test")
	require.NoError(t, err)

	assert.InDelta(t, 2_400_000, v.EstimatedValueAED, 0.01)
	assert.Equal(t, model.ConfidenceHigh, v.ConfidenceLevel)
	assert.Equal(t, model.MethodComparative, v.Method)
	assert.Len(t, v.Comparables, 10)
	assert.InDelta(t, 2_400_000.0/1200, v.PricePerSqft, 0.01)
	assert.InDelta(t, 0, v.MAE, 0.001)
	assert.Equal(t, testNow, v.CreatedAt)
	assert.NotEmpty(t, v.ID)
	assert.Empty(t, v.PropertyID)
}

func TestEstimateValueConfidenceBounds(t *testing.T) {
	mem := store.NewMemory()
	target := marinaTarget()
	seedClones(mem, target, 10, 2_400_000)

	e := newTestEstimator(mem)
	v, err := e.EstimateValue(context.Background(), ManualTarget(target), "test")
	require.NoError(t, err)

	// Identical prices leave no dispersion; the band floors at 10% of estimate.
	assert.InDelta(t, 2_400_000*0.90, v.ConfidenceLowAED, 0.01)
	assert.InDelta(t, 2_400_000*1.10, v.ConfidenceHighAED, 0.01)
	assert.LessOrEqual(t, v.ConfidenceLowAED, v.EstimatedValueAED)
	assert.GreaterOrEqual(t, v.ConfidenceHighAED, v.EstimatedValueAED)
}

func TestEstimateValueNoComparables(t *testing.T) {
	mem := store.NewMemory()
	e := newTestEstimator(mem)

	_, err := e.EstimateValue(context.Background(), ManualTarget(marinaTarget()), "test")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInsufficientData))
}

func TestEstimateValueByPropertyRef(t *testing.T) {
	mem := store.NewMemory()
	target := marinaTarget()
	seedClones(mem, target, 8, 2_000_000)
	mem.PutProperty(model.Property{
		TargetProperty: target,
		ID:             "subject-1",
		PriceAED:       2_100_000,
		Status:         model.ListingAvailable,
	})

	e := newTestEstimator(mem)
	v, err := e.EstimateValue(context.Background(), PropertyRef("subject-1"), "test")
	require.NoError(t, err)

	assert.Equal(t, "subject-1", v.PropertyID)
	// The subject must not appear among its own comparables.
	for _, c := range v.Comparables {
		assert.NotEqual(t, "subject-1", c.PropertyID)
	}
}

func TestEstimateValueUnknownProperty(t *testing.T) {
	e := newTestEstimator(store.NewMemory())

	_, err := e.EstimateValue(context.Background(), PropertyRef("missing"), "test")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestEstimateValueInvalidManualTarget(t *testing.T) {
	e := newTestEstimator(store.NewMemory())

	target := marinaTarget()
	target.AreaSqft = 0
	_, err := e.EstimateValue(context.Background(), ManualTarget(target), "test")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidInput))
}

func TestEstimateValueMarketFactorsFromSnapshot(t *testing.T) {
	mem := store.NewMemory()
	target := marinaTarget()
	seedClones(mem, target, 6, 2_000_000)
	mem.PutSnapshot(model.MarketSnapshot{
		Community:        "Dubai Marina",
		PropertyType:     model.TypeApartment,
		AvgPriceSqft:     1650,
		AvgRentSqft:      95,
		TransactionCount: 412,
		PriceChangeYoY:   4.2,
		AsOfDate:         testNow.AddDate(0, -1, 0),
	})

	e := newTestEstimator(mem)
	v, err := e.EstimateValue(context.Background(), ManualTarget(target), "test")
	require.NoError(t, err)

	assert.Equal(t, model.TrendRising, v.MarketFactors.Trend)
	assert.InDelta(t, 1650, v.MarketFactors.AvgPriceSqft, 0.01)
	assert.Equal(t, 412, v.MarketFactors.TransactionVolume)
	// Rent comes from the snapshot's rent-per-sqft when available.
	assert.InDelta(t, 95*1200, v.EstimatedRentAED, 0.01)
	assert.Greater(t, v.GrossYieldPct, 0.0)
}

func TestEstimateValueDegradesWithoutSnapshot(t *testing.T) {
	mem := store.NewMemory()
	target := marinaTarget()
	seedClones(mem, target, 6, 2_000_000)

	e := newTestEstimator(mem)
	v, err := e.EstimateValue(context.Background(), ManualTarget(target), "test")
	require.NoError(t, err)

	assert.Equal(t, model.TrendUnknown, v.MarketFactors.Trend)
	assert.Zero(t, v.MarketFactors.AvgPriceSqft)
	assert.Zero(t, v.MarketFactors.TransactionVolume)
}

func TestConfidenceLevel(t *testing.T) {
	e := newTestEstimator(store.NewMemory())

	comps := func(n int, sim float64) []model.Comparable {
		out := make([]model.Comparable, n)
		for i := range out {
			out[i] = model.Comparable{Similarity: sim}
		}
		return out
	}

	tests := []struct {
		name  string
		comps []model.Comparable
		want  model.ConfidenceLevel
	}{
		{"many close comparables", comps(8, 0.9), model.ConfidenceHigh},
		{"seven close comparables capped at medium", comps(7, 0.95), model.ConfidenceMedium},
		{"enough but only moderately similar", comps(8, 0.7), model.ConfidenceMedium},
		{"five at medium similarity", comps(5, 0.65), model.ConfidenceMedium},
		{"too few", comps(4, 0.99), model.ConfidenceLow},
		{"dissimilar", comps(10, 0.5), model.ConfidenceLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.confidenceLevel(tt.comps))
		})
	}
}

func TestWeightedEstimate(t *testing.T) {
	got, ok := weightedEstimate([]model.Comparable{
		{Similarity: 1.0, AdjustedPriceAED: 1_000_000},
		{Similarity: 0.5, AdjustedPriceAED: 2_000_000},
	})
	require.True(t, ok)
	assert.InDelta(t, 1_333_333.33, got, 0.5)

	_, ok = weightedEstimate([]model.Comparable{{Similarity: 0, AdjustedPriceAED: 1_000_000}})
	assert.False(t, ok)
}

func TestConfidenceIntervalClampedToMax(t *testing.T) {
	e := newTestEstimator(store.NewMemory())

	// Two wildly dispersed comparables push the raw margin past 25%.
	comps := []model.Comparable{
		{AdjustedPriceAED: 500_000},
		{AdjustedPriceAED: 3_500_000},
	}
	low, high := e.confidenceInterval(2_000_000, comps)
	assert.InDelta(t, 2_000_000*0.75, low, 0.01)
	assert.InDelta(t, 2_000_000*1.25, high, 0.01)
}

func TestGrossYield(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		rent  float64
		want  float64
	}{
		{"zero price", 0, 100_000, 0},
		{"zero rent", 500_000, 0, 0},
		{"negative price", -1, 100_000, 0},
		{"typical", 2_000_000, 140_000, 7.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, GrossYield(tt.price, tt.rent), 0.001)
		})
	}
}

func TestMeanAbsoluteError(t *testing.T) {
	e := newTestEstimator(store.NewMemory())

	t.Run("empty set uses default", func(t *testing.T) {
		assert.InDelta(t, 15.0, e.meanAbsoluteError(nil), 0.001)
	})

	t.Run("no adjustments means zero error", func(t *testing.T) {
		comps := []model.Comparable{
			{RawPriceAED: 1_000_000, AdjustedPriceAED: 1_000_000},
			{RawPriceAED: 2_000_000, AdjustedPriceAED: 2_000_000},
		}
		assert.InDelta(t, 0, e.meanAbsoluteError(comps), 0.001)
	})

	t.Run("averages percent gaps", func(t *testing.T) {
		comps := []model.Comparable{
			{RawPriceAED: 1_000_000, AdjustedPriceAED: 1_100_000}, // 10%
			{RawPriceAED: 1_000_000, AdjustedPriceAED: 950_000},   // 5%
		}
		assert.InDelta(t, 7.5, e.meanAbsoluteError(comps), 0.001)
	})

	t.Run("capped", func(t *testing.T) {
		comps := []model.Comparable{
			{RawPriceAED: 1_000_000, AdjustedPriceAED: 2_000_000},
		}
		assert.InDelta(t, 25.0, e.meanAbsoluteError(comps), 0.001)
	})

	t.Run("no valid ratios uses fallback", func(t *testing.T) {
		comps := []model.Comparable{{RawPriceAED: 0, AdjustedPriceAED: 500_000}}
		assert.InDelta(t, 12.0, e.meanAbsoluteError(comps), 0.001)
	})
}

func TestEstimateRentalFromSnapshot(t *testing.T) {
	mem := store.NewMemory()
	target := marinaTarget()
	target.ListedPriceAED = ptrFloat64(2_000_000)
	mem.PutProperty(model.Property{
		TargetProperty: target,
		ID:             "p-1",
		PriceAED:       2_000_000,
		Status:         model.ListingAvailable,
	})
	mem.PutSnapshot(model.MarketSnapshot{
		Community:    "Dubai Marina",
		PropertyType: model.TypeApartment,
		AvgRentSqft:  100,
		AsOfDate:     testNow,
	})

	e := newTestEstimator(mem)
	got, err := e.EstimateRental(context.Background(), "p-1", 0)
	require.NoError(t, err)

	assert.InDelta(t, 120_000, got.AnnualRentAED, 0.01)
	assert.InDelta(t, 10_000, got.MonthlyRentAED, 0.01)
	assert.InDelta(t, 6.0, got.GrossYieldPct, 0.001)
}

func TestEstimateRentalYieldTierFallback(t *testing.T) {
	mem := store.NewMemory()
	target := marinaTarget()
	target.ListedPriceAED = ptrFloat64(2_000_000)
	mem.PutProperty(model.Property{
		TargetProperty: target,
		ID:             "p-1",
		PriceAED:       2_000_000,
		Status:         model.ListingAvailable,
	})

	e := newTestEstimator(mem)
	got, err := e.EstimateRental(context.Background(), "p-1", 0)
	require.NoError(t, err)

	// Marina tier yield applied to the listed price.
	want := 2_000_000 * e.typicalYieldPct("Dubai Marina") / 100
	assert.InDelta(t, want, got.AnnualRentAED, 0.01)
	assert.Greater(t, got.GrossYieldPct, 0.0)
}

func TestEstimateRentalPurchasePriceOverride(t *testing.T) {
	mem := store.NewMemory()
	target := marinaTarget()
	mem.PutProperty(model.Property{
		TargetProperty: target,
		ID:             "p-1",
		PriceAED:       0,
		Status:         model.ListingAvailable,
	})

	e := newTestEstimator(mem)
	got, err := e.EstimateRental(context.Background(), "p-1", 1_500_000)
	require.NoError(t, err)

	assert.Greater(t, got.AnnualRentAED, 0.0)
	assert.InDelta(t, got.AnnualRentAED/1_500_000*100, got.GrossYieldPct, 0.001)
}

func TestEstimateRentalNoPrice(t *testing.T) {
	mem := store.NewMemory()
	mem.PutProperty(model.Property{
		TargetProperty: marinaTarget(),
		ID:             "p-1",
		Status:         model.ListingAvailable,
	})

	e := newTestEstimator(mem)
	got, err := e.EstimateRental(context.Background(), "p-1", 0)
	require.NoError(t, err)

	assert.Zero(t, got.AnnualRentAED)
	assert.Zero(t, got.GrossYieldPct)
}

func TestTypicalYieldTiers(t *testing.T) {
	e := newTestEstimator(store.NewMemory())

	tests := []struct {
		community string
		want      float64
	}{
		{"Palm Jumeirah", 5.0},
		{"International City", 8.5},
		{"Some Unknown Place", e.cfg.DefaultYieldPct},
	}
	for _, tt := range tests {
		t.Run(tt.community, func(t *testing.T) {
			assert.InDelta(t, tt.want, e.typicalYieldPct(tt.community), 0.001)
		})
	}
}
