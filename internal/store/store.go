// Package store defines the read ports the valuation core consumes and the
// backing adapters (Postgres, SQLite, in-memory) that implement them.
package store

import (
	"context"

	"github.com/gulfgate/valuer/internal/model"
)

// CandidateFilter specifies criteria for fetching comparable candidates.
// CommunityTerms are case-insensitive substring terms; a candidate matches
// when its community contains any of them.
type CandidateFilter struct {
	PropertyType   model.PropertyType    `json:"property_type"`
	MinAreaSqft    int                   `json:"min_area_sqft"`
	MaxAreaSqft    int                   `json:"max_area_sqft"`
	Statuses       []model.ListingStatus `json:"statuses"`
	CommunityTerms []string              `json:"community_terms"`
	MinBedrooms    *int                  `json:"min_bedrooms,omitempty"`
	MaxBedrooms    *int                  `json:"max_bedrooms,omitempty"`
	ExcludeID      string                `json:"exclude_id,omitempty"`
	Limit          int                   `json:"limit"`
}

// PropertyStore is the read-only source of property records. The valuation
// core never writes through it.
type PropertyStore interface {
	// GetByID returns the property with the given id, or nil when it does
	// not exist.
	GetByID(ctx context.Context, id string) (*model.Property, error)

	// FindCandidates returns properties matching the filter, up to
	// filter.Limit records.
	FindCandidates(ctx context.Context, filter CandidateFilter) ([]model.Property, error)
}

// MarketDataProvider is the read-only source of community/type-level market
// snapshots. A nil snapshot without error means no data is available; callers
// degrade gracefully in that case.
type MarketDataProvider interface {
	LatestSnapshot(ctx context.Context, community string, propertyType model.PropertyType) (*model.MarketSnapshot, error)
}
