// cmd/historian/main.go is the historian service: it pops accepted actions from
// the Redis queue and persists them to PostgreSQL in batches.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jason-s-yu/tresillo/internal/cache"
	"github.com/jason-s-yu/tresillo/internal/config"
	"github.com/jason-s-yu/tresillo/internal/database"
	"github.com/jason-s-yu/tresillo/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	flag.Parse()

	logger := logrus.New()
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	if pool == nil {
		logger.Fatal("DATABASE_URL is not set")
	}
	defer pool.Close()

	rdb, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	if rdb == nil {
		logger.Fatal("redis is not configured")
	}
	defer rdb.Close()

	svc := historian.NewService(rdb, database.NewStore(pool), historian.Options{
		Queue:      getEnv("HISTORIAN_QUEUE_NAME", cfg.Redis.HistorianQueue),
		BatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
	}, logger)

	logger.Info("tresillo-historian service started.")
	svc.Run(ctx)
	logger.Info("tresillo-historian shut down.")
}

// getEnv returns the value of key or def if it is unset.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns key parsed as an int, or def if it is unset or invalid.
func getEnvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
