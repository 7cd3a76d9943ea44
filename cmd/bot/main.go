package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/avelira/lumen-tg-bot/internal/app"
	"github.com/avelira/lumen-tg-bot/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New()
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return
	}

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Bot stopped", "error", err)
		return
	}

	logger.Info("Shutting down")
}
