package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/gulfgate/valuer/internal/model"
)

// SQLiteStore implements PropertyStore and MarketDataProvider using
// modernc.org/sqlite. Intended for local and demo use.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sqlDB}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS properties (
	id               TEXT PRIMARY KEY,
	community        TEXT NOT NULL,
	type             TEXT NOT NULL,
	bedrooms         INTEGER,
	bathrooms        REAL,
	area_sqft        INTEGER NOT NULL,
	completion       TEXT NOT NULL DEFAULT '',
	completion_year  INTEGER,
	amenities        TEXT NOT NULL DEFAULT '[]',
	floor            INTEGER,
	view             TEXT NOT NULL DEFAULT '',
	listed_price_aed REAL,
	price_aed        REAL NOT NULL,
	status           TEXT NOT NULL DEFAULT 'available'
);

CREATE TABLE IF NOT EXISTS market_snapshots (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	community         TEXT NOT NULL,
	property_type     TEXT NOT NULL,
	avg_price_sqft    REAL NOT NULL,
	avg_rent_sqft     REAL NOT NULL,
	transaction_count INTEGER NOT NULL DEFAULT 0,
	price_change_yoy  REAL NOT NULL DEFAULT 0,
	as_of_date        DATETIME NOT NULL,
	source            TEXT NOT NULL DEFAULT '',
	UNIQUE (community, property_type, as_of_date)
);

CREATE INDEX IF NOT EXISTS idx_properties_type_area ON properties(type, area_sqft);
CREATE INDEX IF NOT EXISTS idx_snapshots_lookup ON market_snapshots(community, property_type, as_of_date DESC);
`

// Migrate creates the tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqlitePropertyColumns = `id, community, type, bedrooms, bathrooms, area_sqft,
	completion, completion_year, amenities, floor, view, listed_price_aed,
	price_aed, status`

// GetByID implements PropertyStore.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*model.Property, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqlitePropertyColumns+` FROM properties WHERE id = ?`, id)

	p, err := scanSQLiteProperty(row.Scan)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get property %s", id)
	}
	return p, nil
}

// FindCandidates implements PropertyStore.
func (s *SQLiteStore) FindCandidates(ctx context.Context, filter CandidateFilter) ([]model.Property, error) {
	query := `SELECT ` + sqlitePropertyColumns + ` FROM properties WHERE 1=1`
	var args []any

	if filter.PropertyType != "" {
		query += " AND type = ?"
		args = append(args, string(filter.PropertyType))
	}
	if filter.MinAreaSqft > 0 {
		query += " AND area_sqft >= ?"
		args = append(args, filter.MinAreaSqft)
	}
	if filter.MaxAreaSqft > 0 {
		query += " AND area_sqft <= ?"
		args = append(args, filter.MaxAreaSqft)
	}
	if len(filter.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.Statuses)), ",")
		query += fmt.Sprintf(" AND status IN (%s)", placeholders)
		for _, st := range filter.Statuses {
			args = append(args, string(st))
		}
	}
	if len(filter.CommunityTerms) > 0 {
		var clauses []string
		for _, term := range filter.CommunityTerms {
			if term == "" {
				continue
			}
			clauses = append(clauses, "LOWER(community) LIKE ?")
			args = append(args, "%"+strings.ToLower(term)+"%")
		}
		if len(clauses) > 0 {
			query += " AND (" + strings.Join(clauses, " OR ") + ")"
		}
	}
	if filter.MinBedrooms != nil {
		query += " AND bedrooms >= ?"
		args = append(args, *filter.MinBedrooms)
	}
	if filter.MaxBedrooms != nil {
		query += " AND bedrooms <= ?"
		args = append(args, *filter.MaxBedrooms)
	}
	if filter.ExcludeID != "" {
		query += " AND id <> ?"
		args = append(args, filter.ExcludeID)
	}

	query += " ORDER BY area_sqft"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find candidates")
	}
	defer rows.Close()

	var out []model.Property
	for rows.Next() {
		p, err := scanSQLiteProperty(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate candidates")
	}
	return out, nil
}

// LatestSnapshot implements MarketDataProvider.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context, community string, propertyType model.PropertyType) (*model.MarketSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT community, property_type, avg_price_sqft, avg_rent_sqft,
		       transaction_count, price_change_yoy, as_of_date, source
		FROM market_snapshots
		WHERE LOWER(community) = LOWER(?) AND property_type = ?
		ORDER BY as_of_date DESC
		LIMIT 1`,
		community, string(propertyType))

	var snap model.MarketSnapshot
	var propType string
	err := row.Scan(
		&snap.Community,
		&propType,
		&snap.AvgPriceSqft,
		&snap.AvgRentSqft,
		&snap.TransactionCount,
		&snap.PriceChangeYoY,
		&snap.AsOfDate,
		&snap.Source,
	)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: latest snapshot for %s/%s", community, propertyType)
	}
	snap.PropertyType = model.PropertyType(propType)
	return &snap, nil
}

// PutProperty inserts or replaces a property record. Used by seeding.
func (s *SQLiteStore) PutProperty(ctx context.Context, p model.Property) error {
	amenities, err := json.Marshal(p.Amenities)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal amenities")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO properties
			(`+sqlitePropertyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Community, string(p.Type), p.Bedrooms, p.Bathrooms, p.AreaSqft,
		string(p.Completion), p.CompletionYear, string(amenities), p.Floor,
		p.View, p.ListedPriceAED, p.PriceAED, string(p.Status),
	)
	return eris.Wrapf(err, "sqlite: put property %s", p.ID)
}

// PutSnapshot inserts or replaces a market snapshot. Used by seeding.
func (s *SQLiteStore) PutSnapshot(ctx context.Context, snap model.MarketSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO market_snapshots
			(community, property_type, avg_price_sqft, avg_rent_sqft,
			 transaction_count, price_change_yoy, as_of_date, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Community, string(snap.PropertyType), snap.AvgPriceSqft,
		snap.AvgRentSqft, snap.TransactionCount, snap.PriceChangeYoY,
		snap.AsOfDate, snap.Source,
	)
	return eris.Wrapf(err, "sqlite: put snapshot %s/%s", snap.Community, snap.PropertyType)
}

// scanSQLiteProperty scans a property row using database/sql null types, then
// converts to the domain model.
func scanSQLiteProperty(scan func(dest ...any) error) (*model.Property, error) {
	var (
		p           model.Property
		propType    string
		completion  string
		status      string
		bedrooms    sql.NullInt64
		bathrooms   sql.NullFloat64
		complYear   sql.NullInt64
		floor       sql.NullInt64
		listedPrice sql.NullFloat64
		amenities   string
	)
	err := scan(
		&p.ID,
		&p.Community,
		&propType,
		&bedrooms,
		&bathrooms,
		&p.AreaSqft,
		&completion,
		&complYear,
		&amenities,
		&floor,
		&p.View,
		&listedPrice,
		&p.PriceAED,
		&status,
	)
	if err != nil {
		return nil, err
	}

	p.Type = model.PropertyType(propType)
	p.Completion = model.CompletionStatus(completion)
	p.Status = model.ListingStatus(status)
	if bedrooms.Valid {
		v := int(bedrooms.Int64)
		p.Bedrooms = &v
	}
	if bathrooms.Valid {
		v := bathrooms.Float64
		p.Bathrooms = &v
	}
	if complYear.Valid {
		v := int(complYear.Int64)
		p.CompletionYear = &v
	}
	if floor.Valid {
		v := int(floor.Int64)
		p.Floor = &v
	}
	if listedPrice.Valid {
		v := listedPrice.Float64
		p.ListedPriceAED = &v
	}
	if amenities != "" {
		if err := json.Unmarshal([]byte(amenities), &p.Amenities); err != nil {
			return nil, eris.Wrap(err, "unmarshal amenities")
		}
	}
	return &p, nil
}
