// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/tresillo/internal/auth"
	"github.com/jason-s-yu/tresillo/internal/cache"
	"github.com/jason-s-yu/tresillo/internal/config"
	"github.com/jason-s-yu/tresillo/internal/database"
	"github.com/jason-s-yu/tresillo/internal/game"
	"github.com/jason-s-yu/tresillo/internal/handlers"
	"github.com/jason-s-yu/tresillo/internal/lobby"
	"github.com/jason-s-yu/tresillo/internal/models"
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
	setupLogger(logger, cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ttl, _ := cfg.Auth.ResumeTTL()
	var signer *auth.ResumeSigner
	if cfg.Auth.PrivateKeyFile != "" && cfg.Auth.PublicKeyFile != "" {
		signer, err = auth.LoadResumeSigner(cfg.Auth.PrivateKeyFile, cfg.Auth.PublicKeyFile, ttl)
	} else {
		signer, err = auth.NewResumeSigner(ttl)
	}
	if err != nil {
		logger.Fatalf("resume signer: %v", err)
	}

	opts := game.Options{
		Mode:   models.Mode(cfg.Game.DefaultMode),
		Rules:  houseRules(cfg.Game),
		Logger: logger,
		Tokens: signer.CreateResumeToken,
	}

	if pool := openDatabase(ctx, cfg.Database, logger); pool != nil {
		defer pool.Close()
		opts.Recorder = database.NewStore(pool)
	}

	var queue *cache.Queue
	if rdb := openRedis(ctx, cfg.Redis, logger); rdb != nil {
		defer rdb.Close()
		publisher := cache.NewPublisher(rdb, cfg.Redis.HistorianQueue, 1024, logger)
		defer publisher.Close()
		opts.Publisher = publisher
		queue = cache.NewQueue(rdb, cfg.Redis.QueuePrefix)
	}

	rooms := game.NewRegistry(opts)
	srv := &handlers.Server{
		Rooms:      rooms,
		Matchmaker: lobby.NewMatchmaker(queue, rooms, logger),
		Signer:     signer,
		Logger:     logger,
		Config:     cfg.Server,
		Rules:      opts.Rules,
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handlers.NewRouter(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go maintain(ctx, rooms, cfg.Game.RoomIdleTimeout(), logger)

	go func() {
		logger.Infof("Running on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	// closing rooms first sends every socket its close frame
	rooms.CloseAll()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

func setupLogger(logger *logrus.Logger, cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func houseRules(cfg config.GameConfig) game.HouseRules {
	return game.HouseRules{
		EspadaObligatoria: cfg.EspadaObligatoria,
		PenetroEnabled:    cfg.PenetroEnabled,
		GameTarget:        cfg.GameTarget,
		TurnTimerSec:      cfg.TurnTimeoutSec,
		BotDelayMinMs:     cfg.BotDelayMinMs,
		BotDelayMaxMs:     cfg.BotDelayMaxMs,
		GameEndPauseMs:    int(cfg.GameEndPause() / time.Millisecond),
	}
}

// maintain reaps idle rooms and logs a heartbeat until ctx ends.
func maintain(ctx context.Context, rooms *game.Registry, idle time.Duration, logger *logrus.Logger) {
	reap := time.NewTicker(time.Minute)
	defer reap.Stop()
	health := time.NewTicker(60 * time.Second)
	defer health.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-reap.C:
			if idle <= 0 {
				continue
			}
			if n := rooms.ReapIdle(idle); n > 0 {
				logger.Infof("reaped %d idle rooms", n)
			}
		case <-health.C:
			logger.WithFields(logrus.Fields{
				"rooms":       len(rooms.List()),
				"connections": rooms.Connections(),
			}).Info("health")
		}
	}
}
