package main

import (
	"context"
	"fmt"
	"os"

	"inventory-engine/internal/adapters/cli"
	"inventory-engine/internal/app"
	"inventory-engine/internal/config"
	"inventory-engine/internal/db"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)
	logger.SetOutput(os.Stderr)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("database")
	}

	svc := app.NewAppService(pool, &cfg, logger)
	err = cli.Run(ctx, svc, os.Args[1:], os.Stdout)
	pool.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
