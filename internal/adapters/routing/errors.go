package routing

import (
	"context"
	"errors"
	"fmt"
	"net"

	"food-dispatch-service/internal/ports"
)

// classify maps transport failures onto the provider error taxonomy.
func classify(err error) error {
	if errors.Is(err, ports.ErrProviderTimeout) || errors.Is(err, ports.ErrProviderUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ports.ErrProviderTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ports.ErrProviderTimeout, err)
	}
	return fmt.Errorf("%w: %v", ports.ErrProviderUnavailable, err)
}
