package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"food-dispatch-service/internal/adapters/httpclient"
	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/platform/obs"
	"food-dispatch-service/internal/ports"
)

const orsBaseURL = "https://api.openrouteservice.org"

type ORSOptions struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerMinute int
}

// ORSMatrixProvider implements RouteProvider on the OpenRouteService matrix
// endpoint. It fetches the full road-network matrix between the start, the
// pickup and all stops, then orders the stops by greedy nearest travel
// duration from the pickup (or the start when there is none).
//
// This is used when no Mapbox token is configured; the ordering is
// heuristic but distances and durations are road-network values.
type ORSMatrixProvider struct {
	client  *httpclient.Client
	baseURL string
}

func NewORSMatrixProvider(apiKey string, opts ORSOptions) (*ORSMatrixProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = orsBaseURL
	}

	return &ORSMatrixProvider{
		client: httpclient.New(httpclient.Options{
			Timeout:       opts.Timeout,
			RatePerMinute: opts.RatePerMinute,
			Header:        http.Header{"Authorization": []string{apiKey}},
		}),
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

type matrixRequest struct {
	Locations [][]float64 `json:"locations"`
	Metrics   []string    `json:"metrics"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

func (o *ORSMatrixProvider) Optimize(
	ctx context.Context,
	req ports.OptimizeRequest,
) (_ ports.OptimizeResult, err error) {
	defer obs.Time(ctx, "ors.Optimize")(&err)

	n := len(req.Stops)
	if n == 0 {
		return ports.OptimizeResult{OrderedIndices: []int{}}, nil
	}

	distances, durations, err := o.fetchMatrix(ctx, req)
	if err != nil {
		return ports.OptimizeResult{}, err
	}

	lead := 1
	if req.Pickup != nil {
		lead = 2
	}
	return greedyByDuration(distances, durations, lead), nil
}

// fetchMatrix returns the all-pairs matrices over [start, pickup?, stops...].
func (o *ORSMatrixProvider) fetchMatrix(
	ctx context.Context,
	req ports.OptimizeRequest,
) ([][]float64, [][]float64, error) {
	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, orsProfile(req.Profile))

	locations := make([][]float64, 0, 2+len(req.Stops))
	locations = append(locations, req.Start.CoordsToList())
	if req.Pickup != nil {
		locations = append(locations, req.Pickup.CoordsToList())
	}
	for _, s := range req.Stops {
		locations = append(locations, s.CoordsToList())
	}

	payload, err := json.Marshal(matrixRequest{
		Locations: locations,
		Metrics:   []string{"distance", "duration"},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := o.client.DoWithRetry(ctx, func() (*http.Request, error) {
		return o.client.NewRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, nil, classify(fmt.Errorf("matrix request failed: %w", err))
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, nil, classify(fmt.Errorf("decode matrix response: %w", err))
	}

	size := len(locations)
	distances, err := denseMatrix(mr.Distances, size)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: distances: %v", ports.ErrProviderUnavailable, err)
	}
	durations, err := denseMatrix(mr.Durations, size)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: durations: %v", ports.ErrProviderUnavailable, err)
	}
	return distances, durations, nil
}

// ORS reports unroutable pairs as null.
func denseMatrix(rows [][]*float64, size int) ([][]float64, error) {
	if len(rows) != size {
		return nil, fmt.Errorf("expected %d rows, got %d", size, len(rows))
	}
	out := make([][]float64, size)
	for i, row := range rows {
		if len(row) != size {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", i, size, len(row))
		}
		out[i] = make([]float64, size)
		for j, v := range row {
			if v == nil {
				return nil, fmt.Errorf("no route between locations %d and %d", i, j)
			}
			out[i][j] = *v
		}
	}
	return out, nil
}

// greedyByDuration walks the lead locations in order, then visits the stop
// with the shortest travel duration from the current position, first index
// winning ties, then returns to start. Index 0 in the matrices is the start
// and stops begin at index lead.
func greedyByDuration(distances, durations [][]float64, lead int) ports.OptimizeResult {
	size := len(distances)
	n := size - lead
	visited := make([]bool, size)

	res := ports.OptimizeResult{OrderedIndices: make([]int, 0, n)}
	current := 0
	visited[0] = true
	for j := 1; j < lead; j++ {
		res.TotalDistanceMeters += distances[current][j]
		res.TotalDurationSeconds += durations[current][j]
		visited[j] = true
		current = j
	}

	for len(res.OrderedIndices) < n {
		best := -1
		for j := lead; j < size; j++ {
			if visited[j] {
				continue
			}
			if best == -1 || durations[current][j] < durations[current][best] {
				best = j
			}
		}

		res.TotalDistanceMeters += distances[current][best]
		res.TotalDurationSeconds += durations[current][best]
		res.OrderedIndices = append(res.OrderedIndices, best-lead)
		visited[best] = true
		current = best
	}

	res.TotalDistanceMeters += distances[current][0]
	res.TotalDurationSeconds += durations[current][0]
	return res
}

func orsProfile(p domain.Profile) string {
	if p == domain.ProfileCycling {
		return "cycling-regular"
	}
	return "driving-car"
}
