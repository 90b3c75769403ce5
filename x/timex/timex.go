package timex

import (
	"context"
	"time"
)

// Clock abstracts wall time so that blink cycles, hold sampling and grace
// periods can run against simulated time.
type Clock interface {
	Now() time.Time
	// Sleep waits for d and reports whether to continue (false => cancelled).
	Sleep(ctx context.Context, d time.Duration) bool
}

// System is the real clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

func (System) Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
