// cmd/migrate/main.go applies the embedded SQL migrations and exits.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/jason-s-yu/tresillo/internal/config"
	"github.com/jason-s-yu/tresillo/internal/database"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	list := flag.Bool("list", false, "print the embedded migrations without applying them")
	flag.Parse()

	if *list {
		migrations, err := database.Migrations()
		if err != nil {
			logrus.Fatal(err)
		}
		for _, m := range migrations {
			logrus.Info(m.Name)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logrus.Fatalf("database: %v", err)
	}
	if pool == nil {
		logrus.Fatal("DATABASE_URL is not set")
	}
	defer pool.Close()

	applied, err := database.Migrate(ctx, pool)
	if err != nil {
		logrus.Fatalf("migrate: %v", err)
	}
	if len(applied) == 0 {
		logrus.Info("schema up to date")
		return
	}
	for _, name := range applied {
		logrus.Infof("applied %s", name)
	}
}
