package ports

import (
	"context"
	"errors"

	"food-dispatch-service/internal/domain"
)

var (
	// ErrProviderUnavailable covers unconfigured, unreachable or failing providers.
	ErrProviderUnavailable = errors.New("route provider unavailable")
	// ErrProviderTimeout is returned when the provider call exceeds its deadline.
	ErrProviderTimeout = errors.New("route provider timeout")
)

// Input to a route-optimization provider.
type OptimizeRequest struct {
	Profile domain.Profile
	Start   domain.Location
	// Pickup, when set, is visited right after Start and before any stop.
	Pickup *domain.Location
	Stops  []domain.Location
}

// Optimized visiting order returned by a provider.
// OrderedIndices index into OptimizeRequest.Stops.
type OptimizeResult struct {
	OrderedIndices       []int
	TotalDistanceMeters  float64
	TotalDurationSeconds float64
}

// Contract for an external road-network trip optimizer.
type RouteProvider interface {
	// Return an optimized round trip from start through the pickup, if
	// any, and then all stops.
	Optimize(ctx context.Context, req OptimizeRequest) (OptimizeResult, error)
}
