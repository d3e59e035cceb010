// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gulfgate/valuer/internal/comparables"
	"github.com/gulfgate/valuer/internal/resilience"
	"github.com/gulfgate/valuer/internal/valuation"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig            `yaml:"store" mapstructure:"store"`
	Comparables comparables.Config     `yaml:"comparables" mapstructure:"comparables"`
	Valuation   valuation.Config       `yaml:"valuation" mapstructure:"valuation"`
	Retry       resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
	Batch       BatchConfig            `yaml:"batch" mapstructure:"batch"`
	Log         LogConfig              `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the property store backend.
type StoreConfig struct {
	// Driver is one of "postgres", "sqlite", "memory".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// BatchConfig configures batch valuation runs.
type BatchConfig struct {
	MaxConcurrent int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks cross-field constraints that viper cannot express.
func (c *Config) Validate() error {
	var errs []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required for the sqlite driver")
		}
	case "memory":
	default:
		errs = append(errs, "store.driver must be one of postgres, sqlite, memory")
	}

	if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 50 {
		errs = append(errs, "batch.max_concurrent must be between 1 and 50")
	}
	if c.Batch.RatePerSecond <= 0 {
		errs = append(errs, "batch.rate_per_second must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from file and environment. Unset keys fall back
// to the built-in model parameters.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VALUER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "valuer.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("batch.max_concurrent", 5)
	v.SetDefault("batch.rate_per_second", 20.0)

	cc := comparables.DefaultConfig()
	v.SetDefault("comparables.location_weight", cc.LocationWeight)
	v.SetDefault("comparables.size_weight", cc.SizeWeight)
	v.SetDefault("comparables.bedroom_weight", cc.BedroomWeight)
	v.SetDefault("comparables.bathroom_weight", cc.BathroomWeight)
	v.SetDefault("comparables.age_weight", cc.AgeWeight)
	v.SetDefault("comparables.amenity_weight", cc.AmenityWeight)
	v.SetDefault("comparables.area_tolerance_pct", cc.AreaTolerancePct)
	v.SetDefault("comparables.bedroom_tolerance", cc.BedroomTolerance)
	v.SetDefault("comparables.overfetch_factor", cc.OverfetchFactor)
	v.SetDefault("comparables.bedroom_value_aed", cc.BedroomValueAED)
	v.SetDefault("comparables.bathroom_value_aed", cc.BathroomValueAED)
	v.SetDefault("comparables.location_sensitivity", cc.LocationSensitivity)
	v.SetDefault("comparables.location_diff_threshold", cc.LocationDiffThreshold)
	v.SetDefault("comparables.age_drift_per_year", cc.AgeDriftPerYear)

	vc := valuation.DefaultConfig()
	v.SetDefault("valuation.max_comparables", vc.MaxComparables)
	v.SetDefault("valuation.z_score", vc.ZScore)
	v.SetDefault("valuation.min_interval_pct", vc.MinIntervalPct)
	v.SetDefault("valuation.max_interval_pct", vc.MaxIntervalPct)
	v.SetDefault("valuation.high_min_comparables", vc.HighMinComparables)
	v.SetDefault("valuation.high_min_similarity", vc.HighMinSimilarity)
	v.SetDefault("valuation.medium_min_comparables", vc.MediumMinComparables)
	v.SetDefault("valuation.medium_min_similarity", vc.MediumMinSimilarity)
	v.SetDefault("valuation.empty_mae", vc.EmptyMAE)
	v.SetDefault("valuation.fallback_mae", vc.FallbackMAE)
	v.SetDefault("valuation.max_mae", vc.MaxMAE)
	v.SetDefault("valuation.default_yield_pct", vc.DefaultYieldPct)

	rc := resilience.DefaultRetryConfig()
	v.SetDefault("retry.max_attempts", rc.MaxAttempts)
	v.SetDefault("retry.initial_backoff", rc.InitialBackoff)
	v.SetDefault("retry.max_backoff", rc.MaxBackoff)
	v.SetDefault("retry.multiplier", rc.Multiplier)
	v.SetDefault("retry.jitter_fraction", rc.JitterFraction)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	// The yield tier table has no flat viper defaults; fill it when the file
	// left it empty.
	if len(cfg.Valuation.YieldTiers) == 0 {
		cfg.Valuation.YieldTiers = vc.YieldTiers
	}

	if err := comparables.ValidateConfig(cfg.Comparables); err != nil {
		return nil, err
	}
	if err := valuation.ValidateConfig(cfg.Valuation); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
