package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/xrplwatch/service/config"
	"github.com/brojonat/xrplwatch/service/journal"
	"github.com/brojonat/xrplwatch/service/metrics"
	"github.com/brojonat/xrplwatch/service/monitor"
	natspkg "github.com/brojonat/xrplwatch/service/nats"
	"github.com/brojonat/xrplwatch/service/notify"
	"github.com/brojonat/xrplwatch/service/temporal"
)

func main() {
	// Load and validate configuration from environment
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting temporal worker",
		"temporal_host", cfg.TemporalHost,
		"namespace", cfg.TemporalNamespace,
		"task_queue", cfg.TemporalTaskQueue,
		"account", cfg.TargetAddress,
		"log_level", cfg.LogLevel,
	)

	// Cancelled on SIGINT/SIGTERM, which stops the worker gracefully
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Prometheus metrics collector
	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry

	// Start metrics HTTP server
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metrics.NewServeMux(metricsCollector, nil),
	}

	go func() {
		logger.Info("starting metrics HTTP server", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}()

	// Initialize journal
	store := journal.NewStore(cfg.JournalPath, metricsCollector, logger)
	if err := store.Init(ctx); err != nil {
		logger.Error("failed to initialize journal", "error", err)
		os.Exit(1)
	}

	if !cfg.DigestEnabled() {
		logger.Warn("DISCORD_WEBHOOK_URL not set, digest activities will fail")
	}
	digester := notify.NewDigester(notify.DigesterConfig{
		Source:           store,
		Sender:           notify.NewWebhook(cfg.DiscordWebhookURL, nil, logger),
		Hours:            cfg.HoursToCheck,
		MaxMessageLength: cfg.MaxMessageLength,
		Unattended:       cfg.Unattended,
		Metrics:          metricsCollector,
		Logger:           logger,
	})

	strategy, _ := monitor.StrategyByName(cfg.StopStrategy) // validated by config

	// Digests are driven by the workflow, so the monitor has no schedule.
	monCfg := monitor.Config{
		Account:   cfg.TargetAddress,
		Endpoints: cfg.RPCURLs,
		Hours:     cfg.HoursToCheck,
		PageSize:  cfg.PageSize,
		Strategy:  strategy,
		Journal:   store,
		Digest:    digester,
		Metrics:   metricsCollector,
		Logger:    logger,
	}

	// Initialize NATS publisher
	if cfg.NATSURL != "" {
		natsPublisher, err := natspkg.NewPublisher(cfg.NATSURL, metricsCollector, logger)
		if err != nil {
			logger.Error("failed to create NATS publisher", "error", err)
			os.Exit(1)
		}
		defer natsPublisher.Close()
		monCfg.Sink = natsPublisher
		logger.Info("connected to NATS", "url", cfg.NATSURL)
	}

	mon := monitor.New(monCfg)

	// Initialize Temporal worker
	worker, err := temporal.NewWorker(temporal.WorkerConfig{
		TemporalHost:      cfg.TemporalHost,
		TemporalNamespace: cfg.TemporalNamespace,
		TaskQueue:         cfg.TemporalTaskQueue,
		Monitor:           mon,
		Metrics:           metricsCollector,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("failed to create temporal worker", "error", err)
		os.Exit(1)
	}

	logger.Info("temporal worker initialized, all dependencies ready",
		"total_endpoints", len(cfg.RPCURLs),
		"journal", cfg.JournalPath,
		"digest_enabled", cfg.DigestEnabled(),
	)

	if err := worker.Run(ctx); err != nil {
		logger.Error("temporal worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
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
