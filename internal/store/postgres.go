package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/gulfgate/valuer/internal/db"
	"github.com/gulfgate/valuer/internal/model"
)

// PostgresStore implements PropertyStore and MarketDataProvider over pgx.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS properties (
	id               TEXT PRIMARY KEY,
	community        TEXT NOT NULL,
	type             TEXT NOT NULL,
	bedrooms         INT,
	bathrooms        DOUBLE PRECISION,
	area_sqft        INT NOT NULL,
	completion       TEXT NOT NULL DEFAULT '',
	completion_year  INT,
	amenities        TEXT[] NOT NULL DEFAULT '{}',
	floor            INT,
	view             TEXT NOT NULL DEFAULT '',
	listed_price_aed DOUBLE PRECISION,
	price_aed        DOUBLE PRECISION NOT NULL,
	status           TEXT NOT NULL DEFAULT 'available'
);

CREATE TABLE IF NOT EXISTS market_snapshots (
	id                BIGSERIAL PRIMARY KEY,
	community         TEXT NOT NULL,
	property_type     TEXT NOT NULL,
	avg_price_sqft    DOUBLE PRECISION NOT NULL,
	avg_rent_sqft     DOUBLE PRECISION NOT NULL,
	transaction_count INT NOT NULL DEFAULT 0,
	price_change_yoy  DOUBLE PRECISION NOT NULL DEFAULT 0,
	as_of_date        DATE NOT NULL,
	source            TEXT NOT NULL DEFAULT '',
	UNIQUE (community, property_type, as_of_date)
);

CREATE INDEX IF NOT EXISTS idx_properties_type_area ON properties(type, area_sqft);
CREATE INDEX IF NOT EXISTS idx_properties_community ON properties(LOWER(community));
CREATE INDEX IF NOT EXISTS idx_snapshots_lookup ON market_snapshots(LOWER(community), property_type, as_of_date DESC);
`

// Migrate creates the property and snapshot tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

const propertyColumns = `id, community, type, bedrooms, bathrooms, area_sqft,
	completion, completion_year, amenities, floor, view, listed_price_aed,
	price_aed, status`

// GetByID implements PropertyStore.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*model.Property, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)

	p, err := scanProperty(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get property %s", id)
	}
	return p, nil
}

// FindCandidates implements PropertyStore.
func (s *PostgresStore) FindCandidates(ctx context.Context, filter CandidateFilter) ([]model.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE 1=1`
	var args []any
	argNum := 1

	add := func(clause string, arg any) {
		query += fmt.Sprintf(clause, argNum)
		args = append(args, arg)
		argNum++
	}

	if filter.PropertyType != "" {
		add(" AND type = $%d", string(filter.PropertyType))
	}
	if filter.MinAreaSqft > 0 {
		add(" AND area_sqft >= $%d", filter.MinAreaSqft)
	}
	if filter.MaxAreaSqft > 0 {
		add(" AND area_sqft <= $%d", filter.MaxAreaSqft)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		add(" AND status = ANY($%d)", statuses)
	}
	if len(filter.CommunityTerms) > 0 {
		var clauses []string
		for _, term := range filter.CommunityTerms {
			if term == "" {
				continue
			}
			clauses = append(clauses, fmt.Sprintf("LOWER(community) LIKE $%d", argNum))
			args = append(args, "%"+strings.ToLower(term)+"%")
			argNum++
		}
		if len(clauses) > 0 {
			query += " AND (" + strings.Join(clauses, " OR ") + ")"
		}
	}
	if filter.MinBedrooms != nil {
		add(" AND bedrooms >= $%d", *filter.MinBedrooms)
	}
	if filter.MaxBedrooms != nil {
		add(" AND bedrooms <= $%d", *filter.MaxBedrooms)
	}
	if filter.ExcludeID != "" {
		add(" AND id <> $%d", filter.ExcludeID)
	}

	query += " ORDER BY area_sqft"
	if filter.Limit > 0 {
		add(" LIMIT $%d", filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find candidates")
	}
	defer rows.Close()

	var out []model.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate candidates")
	}
	return out, nil
}

// LatestSnapshot implements MarketDataProvider.
func (s *PostgresStore) LatestSnapshot(ctx context.Context, community string, propertyType model.PropertyType) (*model.MarketSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT community, property_type, avg_price_sqft, avg_rent_sqft,
		       transaction_count, price_change_yoy, as_of_date, source
		FROM market_snapshots
		WHERE LOWER(community) = LOWER($1) AND property_type = $2
		ORDER BY as_of_date DESC
		LIMIT 1`,
		community, string(propertyType))

	var snap model.MarketSnapshot
	err := row.Scan(
		&snap.Community,
		&snap.PropertyType,
		&snap.AvgPriceSqft,
		&snap.AvgRentSqft,
		&snap.TransactionCount,
		&snap.PriceChangeYoY,
		&snap.AsOfDate,
		&snap.Source,
	)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: latest snapshot for %s/%s", community, propertyType)
	}
	return &snap, nil
}

// SeedProperties bulk-loads property records via COPY. Demo/bootstrap only.
func (s *PostgresStore) SeedProperties(ctx context.Context, properties []model.Property) (int64, error) {
	columns := []string{
		"id", "community", "type", "bedrooms", "bathrooms", "area_sqft",
		"completion", "completion_year", "amenities", "floor", "view",
		"listed_price_aed", "price_aed", "status",
	}
	rows := make([][]any, 0, len(properties))
	for _, p := range properties {
		rows = append(rows, []any{
			p.ID, p.Community, string(p.Type), p.Bedrooms, p.Bathrooms, p.AreaSqft,
			string(p.Completion), p.CompletionYear, p.Amenities, p.Floor, p.View,
			p.ListedPriceAED, p.PriceAED, string(p.Status),
		})
	}
	return db.CopyFrom(ctx, s.pool, "properties", columns, rows)
}

// SeedSnapshots upserts market snapshots keyed by community/type/date.
func (s *PostgresStore) SeedSnapshots(ctx context.Context, snapshots []model.MarketSnapshot) error {
	for _, snap := range snapshots {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO market_snapshots
				(community, property_type, avg_price_sqft, avg_rent_sqft,
				 transaction_count, price_change_yoy, as_of_date, source)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (community, property_type, as_of_date) DO UPDATE SET
				avg_price_sqft = EXCLUDED.avg_price_sqft,
				avg_rent_sqft = EXCLUDED.avg_rent_sqft,
				transaction_count = EXCLUDED.transaction_count,
				price_change_yoy = EXCLUDED.price_change_yoy,
				source = EXCLUDED.source`,
			snap.Community, string(snap.PropertyType), snap.AvgPriceSqft,
			snap.AvgRentSqft, snap.TransactionCount, snap.PriceChangeYoY,
			snap.AsOfDate, snap.Source,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: seed snapshot %s/%s", snap.Community, snap.PropertyType)
		}
	}
	return nil
}

func scanProperty(row pgx.Row) (*model.Property, error) {
	var p model.Property
	var (
		propType   string
		completion string
		status     string
	)
	err := row.Scan(
		&p.ID,
		&p.Community,
		&propType,
		&p.Bedrooms,
		&p.Bathrooms,
		&p.AreaSqft,
		&completion,
		&p.CompletionYear,
		&p.Amenities,
		&p.Floor,
		&p.View,
		&p.ListedPriceAED,
		&p.PriceAED,
		&status,
	)
	if err != nil {
		return nil, err
	}
	p.Type = model.PropertyType(propType)
	p.Completion = model.CompletionStatus(completion)
	p.Status = model.ListingStatus(status)
	return &p, nil
}
