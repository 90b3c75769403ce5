package hal

import (
	"context"
	"log/slog"

	"pipower-go/services/hal/internal/platform"
	"pipower-go/types"
)

// OpenPeriph opens the HAL on the host's GPIO controller via periph.io.
func OpenPeriph(ctx context.Context, cfg types.Config, log *slog.Logger) (*HAL, error) {
	pins, err := platform.OpenPeriph()
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg, pins, log)
}
