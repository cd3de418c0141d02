package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"food-dispatch-service/internal/domain"
)

type mapGeocodeCache map[string]domain.Location

func (m mapGeocodeCache) Lookup(_ context.Context, key string) (domain.Location, bool, error) {
	l, ok := m[key]
	return l, ok, nil
}

func (m mapGeocodeCache) Store(_ context.Context, key string, loc domain.Location) error {
	m[key] = loc
	return nil
}

func TestORSGeocoderUsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.URL.Query().Get("text"); got != "1 Market St, San Francisco" {
			t.Errorf("text = %q, want normalized address", got)
		}
		w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-122.3949,37.7946]}}]}`))
	}))
	defer srv.Close()

	cache := mapGeocodeCache{}
	g, err := NewORSGeocoder("key", cache, Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		loc, err := g.Geocode(context.Background(), "  1 Market St,   San Francisco ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loc.Lat != 37.7946 || loc.Lng != -122.3949 {
			t.Fatalf("location = %+v, want lat 37.7946 lng -122.3949", loc)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("geocode calls = %d, want 1", got)
	}
}

func TestORSGeocoderCacheKeyScopedByCountry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-122.3949,37.7946]}}]}`))
	}))
	defer srv.Close()

	cache := mapGeocodeCache{}
	us, _ := NewORSGeocoder("key", cache, Options{BaseURL: srv.URL, Country: "US"})
	ca, _ := NewORSGeocoder("key", cache, Options{BaseURL: srv.URL, Country: "CA"})

	ctx := context.Background()
	if _, err := us.Geocode(ctx, "1 Market St"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := us.Geocode(ctx, "1 MARKET ST"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("geocode calls = %d, want 1 after case-only change", got)
	}

	if _, err := ca.Geocode(ctx, "1 Market St"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("geocode calls = %d, want 2 for another country", got)
	}
	if _, ok := cache["us|1 market st"]; !ok {
		t.Fatalf("cache keys = %v, want us|1 market st", cache)
	}
}

func TestORSGeocoderNoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	g, _ := NewORSGeocoder("key", nil, Options{BaseURL: srv.URL})

	_, err := g.Geocode(context.Background(), "nowhere")
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("err = %v, want ErrNoResult", err)
	}
}
