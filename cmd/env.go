package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gulfgate/valuer/internal/comparables"
	"github.com/gulfgate/valuer/internal/config"
	"github.com/gulfgate/valuer/internal/features"
	"github.com/gulfgate/valuer/internal/store"
	"github.com/gulfgate/valuer/internal/valuation"
)

// env bundles the wired store and estimator for a command invocation.
type env struct {
	Estimator *valuation.Estimator
	closeFn   func()
}

func (e *env) Close() {
	if e.closeFn != nil {
		e.closeFn()
	}
}

// propertyBackend is the combined surface every store driver provides.
type propertyBackend interface {
	store.PropertyStore
	store.MarketDataProvider
}

// openBackend opens the configured store driver.
func openBackend(ctx context.Context, cfg *config.Config) (propertyBackend, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case "sqlite":
		sq, err := store.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := sq.Migrate(ctx); err != nil {
			sq.Close()
			return nil, nil, err
		}
		closeFn := func() {
			if err := sq.Close(); err != nil {
				zap.L().Warn("sqlite close", zap.Error(err))
			}
		}
		return sq, closeFn, nil
	case "memory":
		return store.NewMemory(), nil, nil
	default:
		return nil, nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEnv validates config, opens the store, and wires the estimator.
func initEnv(ctx context.Context) (*env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, closeFn, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	eng := features.NewEngineer(features.DefaultRules())
	sel := comparables.NewSelector(backend, eng, cfg.Comparables, comparables.DefaultAdjacency())
	est := valuation.NewEstimator(backend, backend, sel, eng, cfg.Valuation)
	est.SetRetryConfig(cfg.Retry)

	return &env{Estimator: est, closeFn: closeFn}, nil
}
