package routing

import (
	"context"
	"fmt"

	"food-dispatch-service/internal/ports"
)

// NullProvider is the route provider used when none is configured. Every
// call fails with ErrProviderUnavailable so tours fall back to estimates.
type NullProvider struct{}

func (NullProvider) Optimize(context.Context, ports.OptimizeRequest) (ports.OptimizeResult, error) {
	return ports.OptimizeResult{}, fmt.Errorf("%w: no route provider configured", ports.ErrProviderUnavailable)
}
