// cmd/server/stores.go
package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/tresillo/internal/cache"
	"github.com/jason-s-yu/tresillo/internal/config"
	"github.com/jason-s-yu/tresillo/internal/database"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// openDatabase connects and migrates the optional store. Any failure leaves the
// server running without persistence.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *logrus.Logger) *pgxpool.Pool {
	pool, err := database.Connect(ctx, cfg.URL)
	if err != nil {
		logger.Errorf("database unavailable, hands will not be recorded: %v", err)
		return nil
	}
	if pool == nil {
		logger.Warn("DATABASE_URL not set; hands will not be recorded")
		return nil
	}
	applied, err := database.Migrate(ctx, pool)
	if err != nil {
		logger.Errorf("migrate failed, hands will not be recorded: %v", err)
		pool.Close()
		return nil
	}
	if len(applied) > 0 {
		logger.Infof("applied migrations %v", applied)
	}
	return pool
}

// openRedis connects the optional Redis. Any failure disables matchmaking and
// action history.
func openRedis(ctx context.Context, cfg config.RedisConfig, logger *logrus.Logger) *redis.Client {
	rdb, err := cache.Connect(ctx, cfg)
	if err != nil {
		logger.Errorf("redis unavailable, matchmaking and action history disabled: %v", err)
		return nil
	}
	if rdb == nil {
		logger.Warn("redis not configured; matchmaking and action history disabled")
	}
	return rdb
}
