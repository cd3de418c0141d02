package routing

import (
	"context"
	"sync"

	"food-dispatch-service/internal/ports"
)

// MockRouteProvider answers Optimize with Fn and counts calls.
type MockRouteProvider struct {
	Fn func(ctx context.Context, req ports.OptimizeRequest) (ports.OptimizeResult, error)

	mu    sync.Mutex
	calls []ports.OptimizeRequest
}

func NewMockRouteProvider(fn func(ctx context.Context, req ports.OptimizeRequest) (ports.OptimizeResult, error)) *MockRouteProvider {
	return &MockRouteProvider{Fn: fn}
}

// NewFailingRouteProvider always returns err.
func NewFailingRouteProvider(err error) *MockRouteProvider {
	return NewMockRouteProvider(func(context.Context, ports.OptimizeRequest) (ports.OptimizeResult, error) {
		return ports.OptimizeResult{}, err
	})
}

func (p *MockRouteProvider) Optimize(ctx context.Context, req ports.OptimizeRequest) (ports.OptimizeResult, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	return p.Fn(ctx, req)
}

func (p *MockRouteProvider) Calls() []ports.OptimizeRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.OptimizeRequest(nil), p.calls...)
}
