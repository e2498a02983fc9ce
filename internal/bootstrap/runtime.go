// Package bootstrap wires the shared runtime dependencies of the binaries.
package bootstrap

import (
	"context"
	"fmt"

	"faithfulcity/internal/cache"
	"faithfulcity/internal/config"
	"faithfulcity/internal/database"
	"faithfulcity/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedFamilies bool
}

// InitRuntime connects to the database and Redis and optionally seeds the
// built-in families. The Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r := cache.Connect(context.Background(), cfg.RedisURL)

	if opts.SeedFamilies {
		if err := seed.Families(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed built-in families: %w", err)
		}
	}

	return db, r, nil
}
