package ports

import (
	"context"

	"food-dispatch-service/internal/domain"
)

// Contract for resolving free-form addresses to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Location, error)
}

// Persistent cache of resolved addresses keyed by the geocoder.
type GeocodeCache interface {
	Lookup(ctx context.Context, key string) (domain.Location, bool, error)
	Store(ctx context.Context, key string, loc domain.Location) error
}

// Persistent cache of provider trip results keyed by request signature.
type TripCache interface {
	Get(ctx context.Context, key string) (OptimizeResult, bool, error)
	Put(ctx context.Context, key string, result OptimizeResult) error
}
