package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kondate-shopper/internal/app"
	"kondate-shopper/internal/config"
	"kondate-shopper/internal/logger"
	"kondate-shopper/internal/telegram"

	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	// 2. Wire scraper, model cascade and storage
	rt, err := app.Bootstrap(context.Background(), cfg, zl)
	if err != nil {
		zl.Fatal("failed to bootstrap", zap.Error(err))
	}
	defer rt.Close()

	// 3. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, rt.App, rt.Metrics, zl.Named("telegram"))
	if err != nil {
		zl.Fatal("failed to initialize telegram bot", zap.Error(err))
	}

	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	// 4. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		zl.Info("telegram bot server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
		return
	}

	zl.Info("server exiting")
}
