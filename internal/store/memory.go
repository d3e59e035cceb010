package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/gulfgate/valuer/internal/model"
)

// MemoryStore is an in-memory PropertyStore and MarketDataProvider. It backs
// unit tests and the demo mode of the CLI; it is safe for concurrent reads
// and writes.
type MemoryStore struct {
	mu         sync.RWMutex
	properties map[string]model.Property
	snapshots  []model.MarketSnapshot
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{properties: make(map[string]model.Property)}
}

// PutProperty adds or replaces a property record.
func (m *MemoryStore) PutProperty(p model.Property) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[p.ID] = p
}

// PutSnapshot adds a market snapshot.
func (m *MemoryStore) PutSnapshot(s model.MarketSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, s)
}

// GetByID implements PropertyStore.
func (m *MemoryStore) GetByID(_ context.Context, id string) (*model.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.properties[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// FindCandidates implements PropertyStore.
func (m *MemoryStore) FindCandidates(_ context.Context, filter CandidateFilter) ([]model.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Property
	for _, p := range m.properties {
		if matchesFilter(p, filter) {
			out = append(out, p)
		}
	}

	// Deterministic order for tests: newest-style sort by id.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// LatestSnapshot implements MarketDataProvider. The most recent snapshot for
// the community/type pair wins; nil when none exists.
func (m *MemoryStore) LatestSnapshot(_ context.Context, community string, propertyType model.PropertyType) (*model.MarketSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *model.MarketSnapshot
	for i := range m.snapshots {
		s := m.snapshots[i]
		if !strings.EqualFold(s.Community, community) || s.PropertyType != propertyType {
			continue
		}
		if latest == nil || s.AsOfDate.After(latest.AsOfDate) {
			latest = &m.snapshots[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func matchesFilter(p model.Property, f CandidateFilter) bool {
	if f.ExcludeID != "" && p.ID == f.ExcludeID {
		return false
	}
	if f.PropertyType != "" && p.Type != f.PropertyType {
		return false
	}
	if f.MinAreaSqft > 0 && p.AreaSqft < f.MinAreaSqft {
		return false
	}
	if f.MaxAreaSqft > 0 && p.AreaSqft > f.MaxAreaSqft {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if p.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.CommunityTerms) > 0 {
		community := strings.ToLower(p.Community)
		ok := false
		for _, term := range f.CommunityTerms {
			if term != "" && strings.Contains(community, strings.ToLower(term)) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.MinBedrooms != nil && (p.Bedrooms == nil || *p.Bedrooms < *f.MinBedrooms) {
		return false
	}
	if f.MaxBedrooms != nil && p.Bedrooms != nil && *p.Bedrooms > *f.MaxBedrooms {
		return false
	}
	return true
}
