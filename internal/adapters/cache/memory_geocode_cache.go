package cache

import (
	"context"
	"sync"
	"time"

	"food-dispatch-service/internal/domain"
)

type geocodeEntry struct {
	loc    domain.Location
	stored time.Time
}

// MemoryGeocodeCache is the in-process geocode cache used without a database.
type MemoryGeocodeCache struct {
	mu      sync.Mutex
	entries map[string]geocodeEntry
	maxAge  time.Duration
	now     func() time.Time
}

func NewMemoryGeocodeCache(maxAge time.Duration) *MemoryGeocodeCache {
	if maxAge <= 0 {
		maxAge = DefaultGeocodeMaxAge
	}
	return &MemoryGeocodeCache{
		entries: make(map[string]geocodeEntry),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

func (c *MemoryGeocodeCache) Lookup(_ context.Context, key string) (domain.Location, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Location{}, false, nil
	}
	if c.now().Sub(e.stored) > c.maxAge {
		delete(c.entries, key)
		return domain.Location{}, false, nil
	}
	return e.loc, true, nil
}

func (c *MemoryGeocodeCache) Store(_ context.Context, key string, loc domain.Location) error {
	if err := checkGeocodeEntry(key, loc); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = geocodeEntry{loc: loc, stored: c.now()}
	return nil
}
