package geo

import (
	"errors"
	"math"
	"testing"

	"food-dispatch-service/internal/domain"
)

func TestDistanceSymmetryAndIdentity(t *testing.T) {
	points := []domain.Location{
		{Lat: 37.7849, Lng: -122.4133},
		{Lat: 37.7599, Lng: -122.4194},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 0, Lng: 0},
		{Lat: 89.9, Lng: 179.9},
	}

	for _, a := range points {
		if d := Distance(a, a); d != 0 {
			t.Fatalf("Distance(%v, %v) = %v, want 0", a, a, d)
		}
		for _, b := range points {
			ab := Distance(a, b)
			ba := Distance(b, a)
			if math.Abs(ab-ba) > 1e-6 {
				t.Fatalf("asymmetric distance %v vs %v for %v, %v", ab, ba, a, b)
			}
			if a != b && ab <= 0 {
				t.Fatalf("Distance(%v, %v) = %v, want > 0", a, b, ab)
			}
		}
	}
}

func TestDistanceTriangleInequality(t *testing.T) {
	a := domain.Location{Lat: 37.7749, Lng: -122.4194}
	b := domain.Location{Lat: 37.8044, Lng: -122.2711}
	c := domain.Location{Lat: 37.3382, Lng: -121.8863}

	if Distance(a, c) > Distance(a, b)+Distance(b, c)+1e-6 {
		t.Fatal("triangle inequality violated")
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// 0.01 degrees of longitude at the equator is ~1.11 km.
	got := DistanceKm(domain.Location{Lat: 0, Lng: 0}, domain.Location{Lat: 0, Lng: 0.01})
	if math.Abs(got-1.112) > 0.01 {
		t.Fatalf("DistanceKm = %v, want ~1.112", got)
	}
}

func TestCentroid(t *testing.T) {
	c, err := Centroid([]domain.Location{{Lat: 0, Lng: 0}, {Lat: 2, Lng: 4}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Lat != 1 || c.Lng != 2 {
		t.Fatalf("centroid = %v, want {1 2}", c)
	}

	_, err = Centroid(nil)
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Fatalf("Centroid(nil) err = %v, want ErrEmptyInput", err)
	}
}

func TestPointInPolygon(t *testing.T) {
	square := []domain.Location{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 1},
		{Lat: 1, Lng: 1},
		{Lat: 1, Lng: 0},
	}

	if !PointInPolygon(domain.Location{Lat: 0.5, Lng: 0.5}, square) {
		t.Error("center of square should be inside")
	}
	if PointInPolygon(domain.Location{Lat: 1.5, Lng: 0.5}, square) {
		t.Error("point north of square should be outside")
	}
	if PointInPolygon(domain.Location{Lat: 0.5, Lng: 0.5}, square[:2]) {
		t.Error("degenerate polygon should contain nothing")
	}
}

func TestCirclePolygon(t *testing.T) {
	center := domain.Location{Lat: 37.7749, Lng: -122.4194}

	poly := CirclePolygon(center, 2, 0)
	if len(poly) != DefaultCircleSegments {
		t.Fatalf("len = %d, want %d", len(poly), DefaultCircleSegments)
	}

	for _, p := range poly {
		d := DistanceKm(center, p)
		if math.Abs(d-2) > 0.05 {
			t.Fatalf("vertex %v is %.3f km from center, want ~2", p, d)
		}
	}

	if !PointInPolygon(center, poly) {
		t.Fatal("center should be inside its circle")
	}
	far := domain.Location{Lat: center.Lat + 0.1, Lng: center.Lng}
	if PointInPolygon(far, poly) {
		t.Fatal("point ~11 km away should be outside a 2 km circle")
	}

	if got := len(CirclePolygon(center, 1, 8)); got != 8 {
		t.Fatalf("len = %d, want 8", got)
	}
}
