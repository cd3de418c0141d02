package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"food-dispatch-service/internal/platform/obs"
	"food-dispatch-service/internal/ports"
)

// DefaultTripMaxAge bounds how long an optimized trip is reused.
const DefaultTripMaxAge = 24 * time.Hour

// SQLTripCache is a SQL-backed cache of route provider results keyed by
// request signature.
type SQLTripCache struct {
	DB     *sql.DB
	MaxAge time.Duration
}

func NewSQLTripCache(db *sql.DB, maxAge time.Duration) *SQLTripCache {
	if maxAge <= 0 {
		maxAge = DefaultTripMaxAge
	}
	return &SQLTripCache{DB: db, MaxAge: maxAge}
}

// Fetch a cached trip no older than MaxAge.
func (s *SQLTripCache) Get(ctx context.Context, key string) (_ ports.OptimizeResult, _ bool, err error) {
	defer obs.Time(ctx, "trip.cache.Get")(&err)

	if s.DB == nil {
		return ports.OptimizeResult{}, false, errors.New("trip cache: db is nil")
	}

	q := `
	SELECT ordered_indices, distance_meters, duration_seconds
	FROM trip_cache
	WHERE key = $1
		AND updated_at >= $2;
	`

	var (
		raw string
		res ports.OptimizeResult
	)
	err = s.DB.QueryRowContext(ctx, q, key, time.Now().Add(-s.MaxAge)).
		Scan(&raw, &res.TotalDistanceMeters, &res.TotalDurationSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.OptimizeResult{}, false, nil
	}
	if err != nil {
		return ports.OptimizeResult{}, false, fmt.Errorf("get trip cache: query trip_cache table: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &res.OrderedIndices); err != nil {
		return ports.OptimizeResult{}, false, fmt.Errorf("get trip cache: decode ordered indices: %w", err)
	}

	return res, true, nil
}

// Store a trip, replacing any previous entry for key.
func (s *SQLTripCache) Put(ctx context.Context, key string, res ports.OptimizeResult) (err error) {
	defer obs.Time(ctx, "trip.cache.Put")(&err)

	if s.DB == nil {
		return errors.New("trip cache: db is nil")
	}

	if key == "" {
		return errors.New("insert trip cache: key must not be empty")
	}

	order, err := json.Marshal(res.OrderedIndices)
	if err != nil {
		return fmt.Errorf("insert trip cache: encode ordered indices: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO trip_cache (key, ordered_indices, distance_meters, duration_seconds, updated_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (key) DO UPDATE
	SET ordered_indices = EXCLUDED.ordered_indices,
		distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds,
		updated_at = EXCLUDED.updated_at;
	`, key, string(order), res.TotalDistanceMeters, res.TotalDurationSeconds)
	if err != nil {
		return fmt.Errorf("insert trip cache key=%q: %w", key, err)
	}

	return nil
}
