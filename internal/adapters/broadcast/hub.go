// Package broadcast fans committed plans out to in-process subscribers such
// as websocket streams.
package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/ports"
)

const subscriberBuffer = 8

// Hub is an in-memory PlanPublisher. Slow subscribers miss events rather
// than block the dispatch cycle.
type Hub struct {
	mu   sync.Mutex
	subs map[chan domain.PlanEvent]struct{}
	now  func() time.Time
}

func NewHub() *Hub {
	return &Hub{subs: map[chan domain.PlanEvent]struct{}{}, now: time.Now}
}

// Subscribe returns a channel of plan events and a function that removes
// the subscription and closes the channel.
func (h *Hub) Subscribe() (<-chan domain.PlanEvent, func()) {
	ch := make(chan domain.PlanEvent, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) Publish(_ context.Context, plans []domain.RoutePlan) error {
	evt := domain.PlanEvent{PublishedAt: h.now().UTC(), Plans: plans}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

// FanOut publishes to every non-nil publisher and joins their errors.
type FanOut []ports.PlanPublisher

func (f FanOut) Publish(ctx context.Context, plans []domain.RoutePlan) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, plans); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
