package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"slices"
	"time"

	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/geo"
	"food-dispatch-service/internal/platform/metrics"
	"food-dispatch-service/internal/ports"
)

const (
	DefaultDrivingSpeedKmh = 40.0
	DefaultCyclingSpeedKmh = 15.0
	DefaultProviderTimeout = 10 * time.Second
)

// Tour is the visiting order computed for a set of stops from a start.
type Tour struct {
	OrderedStops         []domain.Task
	TotalDistanceMeters  float64
	TotalDurationSeconds float64
	Quality              domain.TourQuality
}

type TourOptions struct {
	ProviderTimeout time.Duration
	DrivingSpeedKmh float64
	CyclingSpeedKmh float64
}

// TourBuilder sequences stops, preferring the route provider and falling
// back to a nearest-neighbor heuristic whenever the provider fails.
type TourBuilder struct {
	provider        ports.RouteProvider
	timeout         time.Duration
	drivingSpeedKmh float64
	cyclingSpeedKmh float64
}

// NewTourBuilder returns a builder using provider. A nil provider means
// every tour is estimated.
func NewTourBuilder(provider ports.RouteProvider, opts TourOptions) *TourBuilder {
	b := &TourBuilder{
		provider:        provider,
		timeout:         opts.ProviderTimeout,
		drivingSpeedKmh: opts.DrivingSpeedKmh,
		cyclingSpeedKmh: opts.CyclingSpeedKmh,
	}
	if b.timeout <= 0 {
		b.timeout = DefaultProviderTimeout
	}
	if b.drivingSpeedKmh <= 0 {
		b.drivingSpeedKmh = DefaultDrivingSpeedKmh
	}
	if b.cyclingSpeedKmh <= 0 {
		b.cyclingSpeedKmh = DefaultCyclingSpeedKmh
	}
	return b
}

// BuildTour orders stops starting (and ending) at start.
//
// Provider failures never surface: the tour is rebuilt with the
// nearest-neighbor heuristic and tagged QualityEstimated. The only error
// returned is cancellation of ctx itself.
func (b *TourBuilder) BuildTour(
	ctx context.Context,
	start domain.Location,
	stops []domain.Task,
	profile domain.Profile,
) (Tour, error) {
	return b.build(ctx, start, nil, stops, profile)
}

// BuildPickupTour is BuildTour with a load stop at pickup between start and
// the first drop. Distances and durations include the pickup leg.
func (b *TourBuilder) BuildPickupTour(
	ctx context.Context,
	start domain.Location,
	pickup domain.Location,
	stops []domain.Task,
	profile domain.Profile,
) (Tour, error) {
	return b.build(ctx, start, &pickup, stops, profile)
}

func (b *TourBuilder) build(
	ctx context.Context,
	start domain.Location,
	pickup *domain.Location,
	stops []domain.Task,
	profile domain.Profile,
) (Tour, error) {
	if len(stops) == 0 {
		return Tour{OrderedStops: []domain.Task{}, Quality: domain.QualityEstimated}, nil
	}
	stops = routingOrder(stops)

	if b.provider != nil {
		tour, err := b.fromProvider(ctx, start, pickup, stops, profile)
		if err == nil {
			metrics.Tours.WithLabelValues(string(tour.Quality)).Inc()
			return tour, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Tour{}, fmt.Errorf("build tour: %w", ctxErr)
		}
		log.Printf("op=build_tour fallback=nearest_neighbor stops=%d err=%v", len(stops), err)
	}

	var (
		ordered []domain.Task
		meters  float64
	)
	if pickup != nil {
		ordered, meters = NearestNeighborPickupTour(start, *pickup, stops)
	} else {
		ordered, meters = NearestNeighborTour(start, stops)
	}
	tour := Tour{
		OrderedStops:         ordered,
		TotalDistanceMeters:  meters,
		TotalDurationSeconds: b.estimateSeconds(meters, profile),
		Quality:              domain.QualityEstimated,
	}
	metrics.Tours.WithLabelValues(string(tour.Quality)).Inc()
	return tour, nil
}

func (b *TourBuilder) fromProvider(
	ctx context.Context,
	start domain.Location,
	pickup *domain.Location,
	stops []domain.Task,
	profile domain.Profile,
) (Tour, error) {
	pctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	locations := make([]domain.Location, len(stops))
	for i, s := range stops {
		locations[i] = s.Location
	}

	res, err := b.provider.Optimize(pctx, ports.OptimizeRequest{
		Profile: profile,
		Start:   start,
		Pickup:  pickup,
		Stops:   locations,
	})
	if err != nil {
		if ctx.Err() == nil && errors.Is(pctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ports.ErrProviderTimeout) {
			err = fmt.Errorf("%w: %v", ports.ErrProviderTimeout, err)
		}
		return Tour{}, err
	}

	if !isPermutation(res.OrderedIndices, len(stops)) {
		return Tour{}, fmt.Errorf("%w: ordering %v does not cover %d stops", ports.ErrProviderUnavailable, res.OrderedIndices, len(stops))
	}
	if res.TotalDistanceMeters < 0 || res.TotalDurationSeconds < 0 ||
		math.IsNaN(res.TotalDistanceMeters) || math.IsNaN(res.TotalDurationSeconds) {
		return Tour{}, fmt.Errorf("%w: invalid totals distance=%v duration=%v", ports.ErrProviderUnavailable, res.TotalDistanceMeters, res.TotalDurationSeconds)
	}

	ordered := make([]domain.Task, len(stops))
	for i, idx := range res.OrderedIndices {
		ordered[i] = stops[idx]
	}

	return Tour{
		OrderedStops:         ordered,
		TotalDistanceMeters:  res.TotalDistanceMeters,
		TotalDurationSeconds: res.TotalDurationSeconds,
		Quality:              domain.QualityProvider,
	}, nil
}

func (b *TourBuilder) estimateSeconds(meters float64, profile domain.Profile) float64 {
	speedKmh := b.drivingSpeedKmh
	if profile == domain.ProfileCycling {
		speedKmh = b.cyclingSpeedKmh
	}
	return meters / (speedKmh * 1000 / 3600)
}

// routingOrder returns a copy of stops with higher priorities first, then
// earlier time windows. Stops with a window come before stops without one
// of the same priority; other ties keep input order.
func routingOrder(stops []domain.Task) []domain.Task {
	out := slices.Clone(stops)
	slices.SortStableFunc(out, func(a, b domain.Task) int {
		if c := cmp.Compare(b.Priority.Rank(), a.Priority.Rank()); c != 0 {
			return c
		}
		switch {
		case a.TimeWindow != nil && b.TimeWindow != nil:
			return a.TimeWindow.Start.Compare(b.TimeWindow.Start)
		case a.TimeWindow != nil:
			return -1
		case b.TimeWindow != nil:
			return 1
		}
		return 0
	})
	return out
}

// NearestNeighborTour orders stops greedily by great-circle distance,
// starting at start. The returned distance includes the leg back to start.
//
// Ties go to the stop listed first so the result is deterministic.
func NearestNeighborTour(start domain.Location, stops []domain.Task) ([]domain.Task, float64) {
	ordered, meters, last := nearestNeighbor(start, stops)
	return ordered, meters + geo.Distance(last, start)
}

// NearestNeighborPickupTour drives from start to pickup, orders stops
// greedily from there and returns to start. The distance covers every leg.
func NearestNeighborPickupTour(start, pickup domain.Location, stops []domain.Task) ([]domain.Task, float64) {
	ordered, meters, last := nearestNeighbor(pickup, stops)
	return ordered, geo.Distance(start, pickup) + meters + geo.Distance(last, start)
}

func nearestNeighbor(from domain.Location, stops []domain.Task) ([]domain.Task, float64, domain.Location) {
	remaining := slices.Clone(stops)
	ordered := make([]domain.Task, 0, len(stops))

	current := from
	total := 0.0

	for len(remaining) > 0 {
		best := 0
		bestDist := geo.Distance(current, remaining[0].Location)
		for i := 1; i < len(remaining); i++ {
			if d := geo.Distance(current, remaining[i].Location); d < bestDist {
				best = i
				bestDist = d
			}
		}

		next := remaining[best]
		ordered = append(ordered, next)
		total += bestDist
		current = next.Location
		remaining = slices.Delete(remaining, best, best+1)
	}

	return ordered, total, current
}

func isPermutation(indices []int, n int) bool {
	if len(indices) != n {
		return false
	}
	seen := make([]bool, n)
	for _, i := range indices {
		if i < 0 || i >= n || seen[i] {
			return false
		}
		seen[i] = true
	}
	return true
}
