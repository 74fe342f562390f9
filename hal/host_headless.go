//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"
)

// RunConfig controls the host runner.
type RunConfig struct {
	// Watchdog bounds the whole run. The partition has no timeout of its own,
	// so a lost timer firing is only detected here. Zero waits forever.
	Watchdog time.Duration
}

// RunHeadless starts run on its own goroutine and waits for the partition to
// halt, the context to end, or the watchdog to expire.
func RunHeadless(ctx context.Context, h HAL, run func(HAL), cfg RunConfig) error {
	if cfg.Watchdog > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Watchdog)
		defer cancel()
	}

	part := h.Partition()
	go run(h)

	select {
	case <-part.Halted():
		return nil
	case <-ctx.Done():
		part.Halt()
		return fmt.Errorf("partition %d did not halt: %w", part.ID(), ctx.Err())
	}
}
