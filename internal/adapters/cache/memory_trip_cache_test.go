package cache

import (
	"context"
	"testing"
	"time"

	"food-dispatch-service/internal/ports"
)

func TestMemoryTripCacheRoundTrip(t *testing.T) {
	c := NewMemoryTripCache(time.Hour)
	ctx := context.Background()

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss on empty cache")
	}

	in := ports.OptimizeResult{OrderedIndices: []int{1, 0}, TotalDistanceMeters: 1200}
	if err := c.Put(ctx, "k", in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in.OrderedIndices[0] = 9

	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get = ok %v err %v, want hit", ok, err)
	}
	if got.OrderedIndices[0] != 1 {
		t.Fatalf("cached order mutated through caller slice: %v", got.OrderedIndices)
	}
}

func TestMemoryTripCacheExpires(t *testing.T) {
	c := NewMemoryTripCache(time.Minute)
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	ctx := context.Background()
	_ = c.Put(ctx, "k", ports.OptimizeResult{OrderedIndices: []int{0}})

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected expired entry to miss")
	}
}
