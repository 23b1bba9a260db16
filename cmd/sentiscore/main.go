package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spacesedan/sentiscore/config"
	"github.com/spacesedan/sentiscore/internal/logging"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	settings := config.GetSettings()
	logging.InitLogger(settings.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(settings).ExecuteContext(ctx); err != nil {
		slog.Error("[Main] Sentiment scoring failed",
			slog.String("error", err.Error()))
		cancel()
		os.Exit(1)
	}
}
