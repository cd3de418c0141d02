package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"food-dispatch-service/internal/adapters/httpclient"
	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/platform/obs"
	"food-dispatch-service/internal/ports"
)

const orsBaseURL = "https://api.openrouteservice.org"

// ErrNoResult means the geocoder found nothing for the address.
var ErrNoResult = errors.New("no geocode result")

type Options struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerMinute int
	// Country restricts matches (ISO alpha-2); empty searches worldwide.
	Country string
}

// ORSGeocoder implements ports.Geocoder using OpenRouteService
// (/geocode/search) with an optional persistent cache in front.
//
// The geocoder is safe for concurrent use.
type ORSGeocoder struct {
	client  *httpclient.Client
	baseURL string
	country string
	cache   ports.GeocodeCache
}

func NewORSGeocoder(apiKey string, cache ports.GeocodeCache, opts Options) (*ORSGeocoder, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = orsBaseURL
	}

	return &ORSGeocoder{
		client: httpclient.New(httpclient.Options{
			Timeout:       opts.Timeout,
			RatePerMinute: opts.RatePerMinute,
			Header:        http.Header{"Authorization": []string{apiKey}},
		}),
		baseURL: strings.TrimRight(baseURL, "/"),
		country: opts.Country,
		cache:   cache,
	}, nil
}

// normalize collapses whitespace so the query text is stable.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cacheKey scopes an address to the country boundary it was searched in.
func (g *ORSGeocoder) cacheKey(norm string) string {
	return strings.ToLower(g.country) + "|" + strings.ToLower(norm)
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

func (g *ORSGeocoder) Geocode(ctx context.Context, address string) (_ domain.Location, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	norm := normalize(address)
	if norm == "" {
		return domain.Location{}, errors.New("geocode: address must be non-empty")
	}

	key := g.cacheKey(norm)
	if g.cache != nil {
		loc, ok, err := g.cache.Lookup(ctx, key)
		if err != nil {
			log.Printf("geocode cache read failed: %v", err)
		} else if ok {
			return loc, nil
		}
	}

	loc, err := g.search(ctx, norm)
	if err != nil {
		return domain.Location{}, fmt.Errorf("geocode %q: %w", norm, err)
	}

	if g.cache != nil {
		if err := g.cache.Store(ctx, key, loc); err != nil {
			log.Printf("geocode cache write failed: %v", err)
		}
	}

	return loc, nil
}

func (g *ORSGeocoder) search(ctx context.Context, text string) (domain.Location, error) {
	endpoint := g.baseURL + "/geocode/search"

	resp, err := g.client.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := g.client.NewRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", text)
		q.Set("size", "1")
		if g.country != "" {
			q.Set("boundary.country", g.country)
		}
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Location{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Location{}, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return domain.Location{}, ErrNoResult
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return domain.Location{}, fmt.Errorf("invalid coordinate format %v", coords)
	}

	loc := domain.Location{Lng: coords[0], Lat: coords[1]}
	if err := loc.Validate(); err != nil {
		return domain.Location{}, err
	}
	return loc, nil
}
