package valuation

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/gulfgate/valuer/internal/model"
	"github.com/gulfgate/valuer/internal/store"
)

// Subject supplies the target attributes for a valuation request. A stored
// property reference and an ad hoc manual bundle both implement it, so they
// traverse identical feature, comparable, and estimate code paths.
type Subject interface {
	// Resolve returns the target attributes and the backing property id
	// (empty for ad hoc subjects).
	Resolve(ctx context.Context, props store.PropertyStore) (model.TargetProperty, string, error)
}

// PropertyRef is a Subject backed by a stored property id.
type PropertyRef string

// Resolve implements Subject. A missing record yields ErrNotFound.
func (r PropertyRef) Resolve(ctx context.Context, props store.PropertyStore) (model.TargetProperty, string, error) {
	id := string(r)
	if id == "" {
		return model.TargetProperty{}, "", eris.Wrap(ErrInvalidInput, "empty property id")
	}

	p, err := props.GetByID(ctx, id)
	if err != nil {
		return model.TargetProperty{}, "", eris.Wrapf(err, "resolve property %s", id)
	}
	if p == nil {
		return model.TargetProperty{}, "", eris.Wrapf(ErrNotFound, "property %s", id)
	}
	return p.TargetProperty, p.ID, nil
}

// ManualTarget is a Subject supplied ad hoc by the caller, without a backing
// property record.
type ManualTarget model.TargetProperty

// Resolve implements Subject. Mandatory fields are community, type, bedrooms,
// and a positive area.
func (m ManualTarget) Resolve(_ context.Context, _ store.PropertyStore) (model.TargetProperty, string, error) {
	t := model.TargetProperty(m)
	switch {
	case t.Community == "":
		return model.TargetProperty{}, "", eris.Wrap(ErrInvalidInput, "community is required")
	case t.Type == "":
		return model.TargetProperty{}, "", eris.Wrap(ErrInvalidInput, "property type is required")
	case t.Bedrooms == nil:
		return model.TargetProperty{}, "", eris.Wrap(ErrInvalidInput, "bedrooms is required")
	case t.AreaSqft <= 0:
		return model.TargetProperty{}, "", eris.Wrap(ErrInvalidInput, "area must be positive")
	}
	return t, "", nil
}
