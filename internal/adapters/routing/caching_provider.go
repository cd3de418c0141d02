package routing

import (
	"context"
	"log"
	"strconv"
	"strings"

	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/ports"
)

// CachingProvider serves repeated optimize requests from a TripCache.
// Cache failures are logged and never fail the call.
type CachingProvider struct {
	next  ports.RouteProvider
	cache ports.TripCache
}

func NewCachingProvider(next ports.RouteProvider, cache ports.TripCache) *CachingProvider {
	return &CachingProvider{next: next, cache: cache}
}

func (c *CachingProvider) Optimize(ctx context.Context, req ports.OptimizeRequest) (ports.OptimizeResult, error) {
	key := TripKey(req)

	if res, ok, err := c.cache.Get(ctx, key); err != nil {
		log.Printf("trip cache read failed: key=%s err=%v", key, err)
	} else if ok && len(res.OrderedIndices) == len(req.Stops) {
		return res, nil
	}

	res, err := c.next.Optimize(ctx, req)
	if err != nil {
		return ports.OptimizeResult{}, err
	}

	if err := c.cache.Put(ctx, key, res); err != nil {
		log.Printf("trip cache write failed: key=%s err=%v", key, err)
	}
	return res, nil
}

// TripKey identifies a request by profile, pickup and coordinates rounded
// to five decimals (about one metre).
func TripKey(req ports.OptimizeRequest) string {
	var b strings.Builder
	b.WriteString(string(req.Profile))
	b.WriteByte('|')
	writeCoord(&b, req.Start)
	if req.Pickup != nil {
		b.WriteByte('>')
		writeCoord(&b, *req.Pickup)
	}
	for _, s := range req.Stops {
		b.WriteByte(';')
		writeCoord(&b, s)
	}
	return b.String()
}

func writeCoord(b *strings.Builder, l domain.Location) {
	b.WriteString(strconv.FormatFloat(l.Lng, 'f', 5, 64))
	b.WriteByte(',')
	b.WriteString(strconv.FormatFloat(l.Lat, 'f', 5, 64))
}
