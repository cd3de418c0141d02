package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/platform/obs"
)

// DefaultGeocodeMaxAge bounds how long a resolved address is trusted.
const DefaultGeocodeMaxAge = 30 * 24 * time.Hour

// SQLGeocodeCache keeps resolved addresses in the geocode_cache table.
// Keys are produced by the geocoder and are opaque here.
type SQLGeocodeCache struct {
	DB     *sql.DB
	MaxAge time.Duration
}

func NewSQLGeocodeCache(db *sql.DB, maxAge time.Duration) *SQLGeocodeCache {
	if maxAge <= 0 {
		maxAge = DefaultGeocodeMaxAge
	}
	return &SQLGeocodeCache{DB: db, MaxAge: maxAge}
}

func (s *SQLGeocodeCache) Lookup(ctx context.Context, key string) (_ domain.Location, _ bool, err error) {
	defer obs.Time(ctx, "geocode.cache.Lookup")(&err)

	if s.DB == nil {
		return domain.Location{}, false, errors.New("geocode cache: db is nil")
	}

	var loc domain.Location
	err = s.DB.QueryRowContext(ctx, `
	SELECT lat, lng
	FROM geocode_cache
	WHERE address = $1
		AND updated_at >= $2;
	`, key, time.Now().Add(-s.MaxAge)).Scan(&loc.Lat, &loc.Lng)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Location{}, false, nil
	}
	if err != nil {
		return domain.Location{}, false, fmt.Errorf("lookup geocode cache: %w", err)
	}

	return loc, true, nil
}

// Store records loc under key and refreshes its timestamp.
func (s *SQLGeocodeCache) Store(ctx context.Context, key string, loc domain.Location) (err error) {
	defer obs.Time(ctx, "geocode.cache.Store")(&err)

	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}
	if err := checkGeocodeEntry(key, loc); err != nil {
		return err
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO geocode_cache (address, lat, lng, updated_at)
	VALUES ($1, $2, $3, now())
	ON CONFLICT (address) DO UPDATE
	SET lat = EXCLUDED.lat,
		lng = EXCLUDED.lng,
		updated_at = EXCLUDED.updated_at;
	`, key, loc.Lat, loc.Lng)
	if err != nil {
		return fmt.Errorf("store geocode cache key=%q: %w", key, err)
	}

	return nil
}

func checkGeocodeEntry(key string, loc domain.Location) error {
	if key == "" {
		return errors.New("store geocode cache: key must not be empty")
	}
	if err := loc.Validate(); err != nil {
		return fmt.Errorf("store geocode cache key=%q: %w", key, err)
	}
	return nil
}
