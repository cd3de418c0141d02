package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"food-dispatch-service/internal/adapters/httpclient"
	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/platform/obs"
	"food-dispatch-service/internal/ports"
)

const (
	mapboxBaseURL = "https://api.mapbox.com"
	// Optimization API v1 accepts at most 12 coordinates per request.
	mapboxMaxCoordinates = 12
)

type MapboxOptions struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerMinute int
}

// MapboxProvider implements RouteProvider with the Mapbox Optimization API
// (optimized-trips v1). Trips start at the vehicle and return to it. A
// pickup is sent as the second coordinate with a distribution pair to every
// stop, so it is always visited before the drops.
//
// The provider is safe for concurrent use.
type MapboxProvider struct {
	client  *httpclient.Client
	token   string
	baseURL string
}

func NewMapboxProvider(token string, opts MapboxOptions) (*MapboxProvider, error) {
	if token == "" {
		return nil, errors.New("mapbox access token is empty")
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = mapboxBaseURL
	}

	return &MapboxProvider{
		client: httpclient.New(httpclient.Options{
			Timeout:       opts.Timeout,
			RatePerMinute: opts.RatePerMinute,
		}),
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

type optimizedTripsResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Waypoints []struct {
		WaypointIndex int `json:"waypoint_index"`
		TripsIndex    int `json:"trips_index"`
	} `json:"waypoints"`
	Trips []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"trips"`
}

func (m *MapboxProvider) Optimize(
	ctx context.Context,
	req ports.OptimizeRequest,
) (_ ports.OptimizeResult, err error) {
	defer obs.Time(ctx, "mapbox.Optimize")(&err)

	n := len(req.Stops)
	if n == 0 {
		return ports.OptimizeResult{OrderedIndices: []int{}}, nil
	}

	lead := []domain.Location{req.Start}
	if req.Pickup != nil {
		lead = append(lead, *req.Pickup)
	}
	if len(lead)+n > mapboxMaxCoordinates {
		return ports.OptimizeResult{}, fmt.Errorf(
			"%w: mapbox accepts at most %d coordinates, got %d",
			ports.ErrProviderUnavailable, mapboxMaxCoordinates, len(lead)+n,
		)
	}

	endpoint := fmt.Sprintf(
		"%s/optimized-trips/v1/mapbox/%s/%s",
		m.baseURL, mapboxProfile(req.Profile), coordinatePath(append(lead, req.Stops...)),
	)

	resp, err := m.client.DoWithRetry(ctx, func() (*http.Request, error) {
		r, err := m.client.NewRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := r.URL.Query()
		q.Set("access_token", m.token)
		q.Set("source", "first")
		q.Set("roundtrip", "true")
		q.Set("overview", "false")
		if req.Pickup != nil {
			q.Set("distributions", distributions(n))
		}
		r.URL.RawQuery = q.Encode()
		return r, nil
	})
	if err != nil {
		return ports.OptimizeResult{}, classify(fmt.Errorf("optimized trips request: %w", redactToken(err)))
	}
	defer resp.Body.Close()

	var decoded optimizedTripsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.OptimizeResult{}, classify(fmt.Errorf("decode optimized trips response: %w", err))
	}

	if decoded.Code != "Ok" || len(decoded.Trips) == 0 {
		return ports.OptimizeResult{}, fmt.Errorf(
			"%w: mapbox code=%q message=%q",
			ports.ErrProviderUnavailable, decoded.Code, decoded.Message,
		)
	}

	order, err := tripOrder(decoded, len(lead), n)
	if err != nil {
		return ports.OptimizeResult{}, fmt.Errorf("%w: %v", ports.ErrProviderUnavailable, err)
	}

	return ports.OptimizeResult{
		OrderedIndices:       order,
		TotalDistanceMeters:  decoded.Trips[0].Distance,
		TotalDurationSeconds: decoded.Trips[0].Duration,
	}, nil
}

// tripOrder converts Mapbox waypoints (input order, each carrying its
// position in the trip) into stop indices in visiting order. The lead
// waypoints (start, then pickup if any) must keep their positions.
func tripOrder(resp optimizedTripsResponse, lead, n int) ([]int, error) {
	if len(resp.Waypoints) != lead+n {
		return nil, fmt.Errorf("expected %d waypoints, got %d", lead+n, len(resp.Waypoints))
	}
	for i, wp := range resp.Waypoints[:lead] {
		if wp.WaypointIndex != i {
			return nil, fmt.Errorf("lead waypoint %d at position %d", i, wp.WaypointIndex)
		}
	}

	order := make([]int, n)
	filled := make([]bool, n)
	for i, wp := range resp.Waypoints[lead:] {
		pos := wp.WaypointIndex - lead
		if pos < 0 || pos >= n || filled[pos] {
			return nil, fmt.Errorf("invalid waypoint_index %d for stop %d", wp.WaypointIndex, i)
		}
		order[pos] = i
		filled[pos] = true
	}
	return order, nil
}

func mapboxProfile(p domain.Profile) string {
	if p == domain.ProfileCycling {
		return "cycling"
	}
	return "driving"
}

func coordinatePath(locations []domain.Location) string {
	parts := make([]string, 0, len(locations))
	for _, l := range locations {
		parts = append(parts, formatLngLat(l))
	}
	return strings.Join(parts, ";")
}

// distributions pairs the pickup (coordinate 1) with each of n stops.
func distributions(n int) string {
	pairs := make([]string, n)
	for i := range pairs {
		pairs[i] = "1," + strconv.Itoa(i+2)
	}
	return strings.Join(pairs, ";")
}

// redactToken masks the access token in URLs carried by transport errors,
// which would otherwise print it.
func redactToken(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	u, perr := url.Parse(uerr.URL)
	if perr != nil {
		uerr.URL = "[redacted]"
		return err
	}
	q := u.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	uerr.URL = u.String()
	return err
}

func formatLngLat(l domain.Location) string {
	return strconv.FormatFloat(l.Lng, 'f', 6, 64) + "," + strconv.FormatFloat(l.Lat, 'f', 6, 64)
}
