package model

import "time"

// Method identifies the valuation approach used.
type Method string

const (
	MethodComparative Method = "comparative"
	MethodHedonic     Method = "hedonic"
	MethodHybrid      Method = "hybrid"
)

// ConfidenceLevel is a coarse label summarizing how many, and how similar,
// comparables supported an estimate.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// Comparable is a reference property used to triangulate the target's value.
// Comparables are computed fresh per valuation request and only ever embedded
// in a Valuation, never persisted independently.
type Comparable struct {
	PropertyID       string  `json:"property_id"`
	Similarity       float64 `json:"similarity"`
	RawPriceAED      float64 `json:"raw_price_aed"`
	AdjustedPriceAED float64 `json:"adjusted_price_aed"`
}

// MarketFactors carries best-effort market context on a Valuation. When the
// market data provider is unavailable the trend is "unknown" and the volume 0.
type MarketFactors struct {
	AvgPriceSqft      float64 `json:"avg_price_sqft"`
	Trend             string  `json:"trend"`
	TransactionVolume int     `json:"transaction_volume"`
}

// Valuation is the immutable output of a single estimate request. New requests
// create new Valuations; an existing one is never edited.
type Valuation struct {
	ID                string             `json:"id"`
	PropertyID        string             `json:"property_id,omitempty"`
	EstimatedValueAED float64            `json:"estimated_value_aed"`
	ConfidenceLowAED  float64            `json:"confidence_low_aed"`
	ConfidenceHighAED float64            `json:"confidence_high_aed"`
	ConfidenceLevel   ConfidenceLevel    `json:"confidence_level"`
	Method            Method             `json:"method"`
	Comparables       []Comparable       `json:"comparable_properties"`
	Features          map[string]float64 `json:"features"`
	MarketFactors     MarketFactors      `json:"market_factors"`
	PricePerSqft      float64            `json:"price_per_sqft"`
	EstimatedRentAED  float64            `json:"estimated_rent_aed"`
	GrossYieldPct     float64            `json:"gross_yield_pct"`
	MAE               float64            `json:"mae"`
	RequestedBy       string             `json:"requested_by"`
	CreatedAt         time.Time          `json:"created_at"`
}

// RentalEstimate is the output of a standalone rental estimate request.
type RentalEstimate struct {
	AnnualRentAED  float64 `json:"annual_rent_aed"`
	MonthlyRentAED float64 `json:"monthly_rent_aed"`
	GrossYieldPct  float64 `json:"gross_yield_pct"`
}
