package ports

import (
	"context"
	"time"

	"food-dispatch-service/internal/domain"
)

// Cross-process guard ensuring only one dispatch cycle runs at a time.
type CycleLock interface {
	// Acquire returns false without error when another holder owns the lock.
	Acquire(ctx context.Context, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// Sink for committed route plans (UI, execution layer).
type PlanPublisher interface {
	Publish(ctx context.Context, plans []domain.RoutePlan) error
}
