package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"thakajabe/config"
	"thakajabe/di"
	"thakajabe/shared/logger"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := di.InitializeWorker()
	worker.Run(ctx)
}
