package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/brojonat/xrplwatch/service/config"
	"github.com/brojonat/xrplwatch/service/journal"
	"github.com/brojonat/xrplwatch/service/metrics"
	"github.com/brojonat/xrplwatch/service/server"
)

func main() {
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"journal", cfg.JournalPath,
		"log_level", cfg.LogLevel,
	)

	registry := prometheus.NewRegistry()
	metricsCollector := metrics.NewMetrics(registry)

	// The monitor owns the journal; the server only reads it.
	store := journal.NewStore(cfg.JournalPath, metricsCollector, logger)

	httpServer := server.New(server.Config{
		Addr:             cfg.ServerAddr,
		Account:          cfg.TargetAddress,
		Source:           store,
		Hours:            cfg.HoursToCheck,
		MaxMessageLength: cfg.MaxMessageLength,
		Metrics:          metricsCollector,
		Gatherer:         registry,
		Logger:           logger,
	})

	logger.Info("server initialized, all dependencies ready",
		"account", cfg.TargetAddress,
		"hours", cfg.HoursToCheck,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server gracefully", "error", err)
		os.Exit(1)
	}
	logger.Info("server shutdown complete")
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
