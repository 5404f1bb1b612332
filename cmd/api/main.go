package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"docreader/internal/api"
	"docreader/internal/app"
	"docreader/internal/config"
	"docreader/internal/logging"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	if err := api.NewServer(a).ListenAndServe(ctx, cfg.APIAddr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
