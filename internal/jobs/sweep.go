package jobs

import (
	"context"
	"log/slog"
	"time"

	"collectorhub/internal/middleware"
)

// Sweeper drops limiter state idle for longer than idle.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

// SweepJob evicts idle in-process rate limit buckets.
func SweepJob(s Sweeper, idle time.Duration) Job {
	return func(ctx context.Context) error {
		if n := s.Sweep(idle); n > 0 {
			middleware.Logger.DebugContext(ctx, "rate limit buckets swept", slog.Int("removed", n))
		}
		return nil
	}
}
