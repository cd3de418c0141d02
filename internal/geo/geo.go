// Package geo provides the distance and geometry primitives used by dispatch.
//
// Distances use the haversine formula on a spherical Earth, which is
// symmetric and satisfies the triangle inequality.
package geo

import (
	"fmt"
	"math"

	"food-dispatch-service/internal/domain"
)

const (
	// EarthRadiusMeters is the mean Earth radius.
	EarthRadiusMeters = 6371000.0

	kmPerDegreeLat = 110.574
	kmPerDegreeLng = 111.320

	DefaultCircleSegments = 32
)

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b domain.Location) float64 {
	if a == b {
		return 0
	}

	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// DistanceKm is Distance expressed in kilometers.
func DistanceKm(a, b domain.Location) float64 {
	return Distance(a, b) / 1000
}

// Centroid returns the arithmetic mean of the points' latitudes and longitudes.
func Centroid(points []domain.Location) (domain.Location, error) {
	if len(points) == 0 {
		return domain.Location{}, fmt.Errorf("centroid: %w", domain.ErrEmptyInput)
	}

	var sumLat, sumLng float64
	for _, p := range points {
		sumLat += p.Lat
		sumLng += p.Lng
	}

	n := float64(len(points))
	return domain.Location{Lat: sumLat / n, Lng: sumLng / n}, nil
}

// PointInPolygon reports whether point lies inside polygon using ray casting.
// The polygon is implicitly closed; fewer than three vertices never contain a point.
func PointInPolygon(point domain.Location, polygon []domain.Location) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}

	x, y := point.Lng, point.Lat
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := polygon[i].Lng, polygon[i].Lat
		xj, yj := polygon[j].Lng, polygon[j].Lat

		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}

	return inside
}

// CirclePolygon approximates a circle of radiusKm around center with
// segments vertices (DefaultCircleSegments when segments <= 0).
// Intended for affected-area display and containment queries.
func CirclePolygon(center domain.Location, radiusKm float64, segments int) []domain.Location {
	if segments <= 0 {
		segments = DefaultCircleSegments
	}

	dLat := radiusKm / kmPerDegreeLat
	dLng := radiusKm / (kmPerDegreeLng * math.Cos(toRad(center.Lat)))

	out := make([]domain.Location, 0, segments)
	for i := 0; i < segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		out = append(out, domain.Location{
			Lat: center.Lat + dLat*math.Sin(theta),
			Lng: center.Lng + dLng*math.Cos(theta),
		})
	}

	return out
}
