// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"faithfulcity/internal/middleware"
	"faithfulcity/internal/observability"

	"github.com/redis/go-redis/v9"
)

// redisErrorHook counts failed commands. A miss is not a failure.
type redisErrorHook struct{}

func (redisErrorHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (redisErrorHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (redisErrorHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Connect dials addr (host:port or a redis:// URL) and pings it. It returns
// nil when addr is empty or Redis cannot be reached; callers then run
// without Redis.
func Connect(ctx context.Context, addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "invalid REDIS_URL, continuing without redis", slog.String("error", err.Error()))
			return nil
		}
		opts = parsed
	}

	rdb := redis.NewClient(opts)
	rdb.AddHook(redisErrorHook{})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "redis unavailable, continuing without redis",
			slog.String("addr", opts.Addr), slog.String("error", err.Error()))
		_ = rdb.Close()
		return nil
	}
	middleware.Logger.InfoContext(ctx, "redis connected", slog.String("addr", opts.Addr))
	return rdb
}
