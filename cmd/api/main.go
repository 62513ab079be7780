package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/config"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/server"
	"github.com/distrubuted-game-mechanic/bruteforce/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Error("Failed to load configuration", logger.Err(err))
		os.Exit(1)
	}

	log := logger.NewWithOptions(os.Stdout, cfg.Log.Level, logger.Format(cfg.Log.Format))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, log); err != nil {
		log.Error("Server failed", logger.Err(err))
		os.Exit(1)
	}
}
