package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/platform/obs"
)

const DefaultPlansChannel = "dispatch:plans"

// PlanPublisher publishes committed plans over Redis Pub/Sub.
type PlanPublisher struct {
	rdb     *redis.Client
	channel string
	now     func() time.Time
}

func NewPlanPublisher(rdb *redis.Client, channel string) *PlanPublisher {
	if channel == "" {
		channel = DefaultPlansChannel
	}
	return &PlanPublisher{rdb: rdb, channel: channel, now: time.Now}
}

func (p *PlanPublisher) Publish(ctx context.Context, plans []domain.RoutePlan) (err error) {
	defer obs.Time(ctx, "redis.PublishPlans")(&err)

	data, err := json.Marshal(domain.PlanEvent{PublishedAt: p.now().UTC(), Plans: plans})
	if err != nil {
		return fmt.Errorf("publish plans: marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish plans: %w", err)
	}
	return nil
}
