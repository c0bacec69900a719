// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"collectorhub/internal/middleware"
	"collectorhub/internal/observability"

	"github.com/redis/go-redis/v9"
)

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Options builds client options from either a redis:// URL or a bare
// host:port address.
func Options(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// Connect returns a Redis client for addr, or nil when addr is empty, invalid
// or unreachable. Callers treat a nil client as "no cache".
func Connect(ctx context.Context, addr string) *redis.Client {
	if strings.TrimSpace(addr) == "" {
		return nil
	}
	opts, err := Options(addr)
	if err != nil {
		middleware.Logger.Warn("invalid REDIS_URL, continuing without cache",
			slog.String("error", err.Error()))
		return nil
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("redis unreachable, continuing without cache",
			slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	middleware.Logger.Info("redis connected", slog.String("addr", opts.Addr))
	return client
}
