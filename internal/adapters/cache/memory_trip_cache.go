package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"food-dispatch-service/internal/ports"
)

type tripEntry struct {
	res    ports.OptimizeResult
	stored time.Time
}

// MemoryTripCache is the in-process trip cache used without a database.
type MemoryTripCache struct {
	mu      sync.Mutex
	entries map[string]tripEntry
	maxAge  time.Duration
	now     func() time.Time
}

func NewMemoryTripCache(maxAge time.Duration) *MemoryTripCache {
	if maxAge <= 0 {
		maxAge = DefaultTripMaxAge
	}
	return &MemoryTripCache{
		entries: make(map[string]tripEntry),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

func (c *MemoryTripCache) Get(_ context.Context, key string) (ports.OptimizeResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return ports.OptimizeResult{}, false, nil
	}
	if c.now().Sub(e.stored) > c.maxAge {
		delete(c.entries, key)
		return ports.OptimizeResult{}, false, nil
	}

	res := e.res
	res.OrderedIndices = slices.Clone(e.res.OrderedIndices)
	return res, true, nil
}

func (c *MemoryTripCache) Put(_ context.Context, key string, res ports.OptimizeResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	res.OrderedIndices = slices.Clone(res.OrderedIndices)
	c.entries[key] = tripEntry{res: res, stored: c.now()}
	return nil
}
