package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"collectorhub/internal/models"
	"collectorhub/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// RateLimiterOptions configures NewRateLimiter.
type RateLimiterOptions struct {
	// Redis backs a fixed window shared by every instance. When nil the
	// limiter keeps per-process token buckets instead.
	Redis    *redis.Client
	Policy   FailPolicy
	Disabled bool
}

// RateLimiter enforces per-caller request budgets. It is constructed once
// per process and passed to the routes that need it.
type RateLimiter struct {
	rdb      *redis.Client
	policy   FailPolicy
	disabled bool

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter returns a limiter configured by opts.
func NewRateLimiter(opts RateLimiterOptions) *RateLimiter {
	return &RateLimiter{
		rdb:      opts.Redis,
		policy:   opts.Policy,
		disabled: opts.Disabled,
		buckets:  make(map[string]*bucket),
	}
}

// Allow reports whether the caller id may spend one more request on
// resource. A Redis failure is returned as an error and the caller decides
// through the fail policy.
func (l *RateLimiter) Allow(ctx context.Context, resource, id string, limit int, window time.Duration) (bool, error) {
	if l.disabled {
		return true, nil
	}
	if limit <= 0 {
		return false, nil
	}
	key := fmt.Sprintf("rl:%s:%s", resource, id)
	if l.rdb == nil {
		return l.allowLocal(key, limit, window), nil
	}

	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		observability.RedisErrorRate.WithLabelValues("ratelimit_incr").Inc()
		return false, err
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			observability.RedisErrorRate.WithLabelValues("ratelimit_expire").Inc()
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

func (l *RateLimiter) allowLocal(key string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		every := window / time.Duration(limit)
		b = &bucket{limiter: rate.NewLimiter(rate.Every(every), limit)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

// Sweep drops in-process buckets idle for longer than idle and returns how
// many were removed. Redis-backed limiters have nothing to sweep.
func (l *RateLimiter) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	removed := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Middleware returns a Fiber handler enforcing limit requests per window on
// resource. Authenticated callers are keyed by user id, anonymous ones by IP.
func (l *RateLimiter) Middleware(resource string, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if uid := UserID(c); uid != 0 {
			id = "user:" + strconv.FormatUint(uint64(uid), 10)
		}

		allowed, err := l.Allow(c.UserContext(), resource, id, limit, window)
		if err != nil {
			if l.policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing closed",
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
				return models.RespondWithError(c, fiber.StatusServiceUnavailable, models.NewUnavailableError(err))
			}
			return c.Next()
		}

		if !allowed {
			observability.RateLimited.WithLabelValues(resource).Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
			return models.RespondWithError(c, fiber.StatusTooManyRequests, &models.AppError{
				Code:    "RATE_LIMITED",
				Message: "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
