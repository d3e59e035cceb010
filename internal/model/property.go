// Package model defines the domain types shared across the valuation engine.
package model

import "time"

// PropertyType classifies a real-estate unit.
type PropertyType string

const (
	TypeApartment  PropertyType = "apartment"
	TypeVilla      PropertyType = "villa"
	TypeTownhouse  PropertyType = "townhouse"
	TypePenthouse  PropertyType = "penthouse"
	TypeLand       PropertyType = "land"
	TypeCommercial PropertyType = "commercial"
)

// CompletionStatus describes whether a unit is handed over or still under
// construction. The zero value means the status is not known.
type CompletionStatus string

const (
	StatusReady   CompletionStatus = "ready"
	StatusOffPlan CompletionStatus = "off_plan"
)

// ListingStatus is the market state of a stored property record.
type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingSold      ListingStatus = "sold"
	ListingRented    ListingStatus = "rented"
	ListingDelisted  ListingStatus = "delisted"
)

// TargetProperty is the attribute bundle the valuation core scores against.
// It is either populated from a stored property record or supplied ad hoc by
// the caller; both flow through identical feature and comparable code.
type TargetProperty struct {
	Community      string           `json:"community" yaml:"community"`
	Type           PropertyType     `json:"type" yaml:"type"`
	Bedrooms       *int             `json:"bedrooms,omitempty" yaml:"bedrooms,omitempty"`
	Bathrooms      *float64         `json:"bathrooms,omitempty" yaml:"bathrooms,omitempty"`
	AreaSqft       int              `json:"area_sqft" yaml:"area_sqft"`
	Completion     CompletionStatus `json:"completion,omitempty" yaml:"completion,omitempty"`
	CompletionYear *int             `json:"completion_year,omitempty" yaml:"completion_year,omitempty"`
	Amenities      []string         `json:"amenities,omitempty" yaml:"amenities,omitempty"`
	Floor          *int             `json:"floor,omitempty" yaml:"floor,omitempty"`
	View           string           `json:"view,omitempty" yaml:"view,omitempty"`
	ListedPriceAED *float64         `json:"listed_price_aed,omitempty" yaml:"listed_price_aed,omitempty"`
}

// Property is a stored property record as read from the property store.
type Property struct {
	TargetProperty `yaml:",inline"`

	ID       string        `json:"id" yaml:"id"`
	PriceAED float64       `json:"price_aed" yaml:"price_aed"`
	Status   ListingStatus `json:"status" yaml:"status"`
}

// MarketSnapshot is a community/type-level market data point supplied by an
// external market data provider. Read-only from this core's perspective.
type MarketSnapshot struct {
	Community        string       `json:"community" yaml:"community"`
	PropertyType     PropertyType `json:"property_type" yaml:"property_type"`
	AvgPriceSqft     float64      `json:"avg_price_sqft" yaml:"avg_price_sqft"`
	AvgRentSqft      float64      `json:"avg_rent_sqft" yaml:"avg_rent_sqft"`
	TransactionCount int          `json:"transaction_count" yaml:"transaction_count"`
	PriceChangeYoY   float64      `json:"price_change_yoy" yaml:"price_change_yoy"`
	AsOfDate         time.Time    `json:"as_of_date" yaml:"as_of_date"`
	Source           string       `json:"source" yaml:"source"`
}

// Trend summarizes the direction of a snapshot's year-over-year price change.
func (s *MarketSnapshot) Trend() string {
	switch {
	case s == nil:
		return TrendUnknown
	case s.PriceChangeYoY > 1.0:
		return TrendRising
	case s.PriceChangeYoY < -1.0:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// Market trend labels carried on a Valuation's market factors.
const (
	TrendRising    = "rising"
	TrendDeclining = "declining"
	TrendStable    = "stable"
	TrendUnknown   = "unknown"
)
