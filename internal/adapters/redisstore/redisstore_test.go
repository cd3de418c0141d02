package redisstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"food-dispatch-service/internal/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisCycleLockExcludesSecondHolder(t *testing.T) {
	_, rdb := newTestClient(t)
	ctx := context.Background()

	a := NewRedisCycleLock(rdb, "")
	b := NewRedisCycleLock(rdb, "")

	release, ok, err := a.Acquire(ctx, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire = ok %v err %v, want ok", ok, err)
	}

	if _, ok, err := b.Acquire(ctx, time.Minute); err != nil || ok {
		t.Fatalf("second acquire = ok %v err %v, want contention", ok, err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	if _, ok, err := b.Acquire(ctx, time.Minute); err != nil || !ok {
		t.Fatalf("acquire after release = ok %v err %v, want ok", ok, err)
	}
}

func TestRedisCycleLockStaleReleaseKeepsNewHolder(t *testing.T) {
	mr, rdb := newTestClient(t)
	ctx := context.Background()

	lock := NewRedisCycleLock(rdb, "")

	staleRelease, ok, _ := lock.Acquire(ctx, time.Second)
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}
	mr.FastForward(2 * time.Second)

	if _, ok, _ := lock.Acquire(ctx, time.Minute); !ok {
		t.Fatal("expected acquire after expiry to succeed")
	}

	if err := staleRelease(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if !mr.Exists(DefaultLockKey) {
		t.Fatal("stale release must not delete the new holder's lock")
	}
}

func TestLocalLock(t *testing.T) {
	var l LocalLock
	ctx := context.Background()

	release, ok, _ := l.Acquire(ctx, 0)
	if !ok {
		t.Fatal("expected acquire to succeed")
	}
	if _, ok, _ := l.Acquire(ctx, 0); ok {
		t.Fatal("expected contention while held")
	}
	_ = release(ctx)
	_ = release(ctx)
	if _, ok, _ := l.Acquire(ctx, 0); !ok {
		t.Fatal("expected acquire after release")
	}
}

func TestPlanPublisherPublishesJSON(t *testing.T) {
	_, rdb := newTestClient(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, DefaultPlansChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub := NewPlanPublisher(rdb, "")
	plans := []domain.RoutePlan{{VehicleID: "drv-1", Stops: []domain.Task{{ID: "dp-1"}}}}
	if err := pub.Publish(ctx, plans); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var evt domain.PlanEvent
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if len(evt.Plans) != 1 || evt.Plans[0].VehicleID != "drv-1" {
			t.Fatalf("plans = %+v, want drv-1", evt.Plans)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published plans")
	}
}
