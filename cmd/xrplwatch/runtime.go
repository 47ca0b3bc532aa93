package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/brojonat/xrplwatch/service/config"
	"github.com/brojonat/xrplwatch/service/journal"
	"github.com/brojonat/xrplwatch/service/metrics"
	"github.com/brojonat/xrplwatch/service/monitor"
	natspkg "github.com/brojonat/xrplwatch/service/nats"
	"github.com/brojonat/xrplwatch/service/notify"
)

// runtime holds the components built from one Config.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	store    *journal.Store
	digester *notify.Digester
	monitor  *monitor.Monitor

	publisher natspkg.Publisher
	server    *http.Server
}

// newRuntime builds the journal, digester and monitor. Continuous mode adds
// a digest schedule; one-shot mode always sends an unattended digest.
func newRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, continuous bool) (*runtime, error) {
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	store := journal.NewStore(cfg.JournalPath, m, logger)
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}

	if !cfg.DigestEnabled() {
		logger.Warn("DISCORD_WEBHOOK_URL not set, digests are disabled")
	}
	digester := notify.NewDigester(notify.DigesterConfig{
		Source:           store,
		Sender:           notify.NewWebhook(cfg.DiscordWebhookURL, nil, logger),
		Hours:            cfg.HoursToCheck,
		MaxMessageLength: cfg.MaxMessageLength,
		Unattended:       cfg.Unattended || !continuous,
		Metrics:          m,
		Logger:           logger,
	})

	strategy, ok := monitor.StrategyByName(cfg.StopStrategy)
	if !ok {
		return nil, fmt.Errorf("unknown stop strategy %q", cfg.StopStrategy)
	}

	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  m,
		store:    store,
		digester: digester,
	}

	monCfg := monitor.Config{
		Account:         cfg.TargetAddress,
		Endpoints:       cfg.RPCURLs,
		Hours:           cfg.HoursToCheck,
		PageSize:        cfg.PageSize,
		Strategy:        strategy,
		SessionInterval: cfg.SessionInterval,
		Journal:         store,
		Digest:          digester,
		Metrics:         m,
		Logger:          logger,
	}
	if continuous && cfg.DigestEnabled() {
		monCfg.Schedule = monitor.NewDigestSchedule(cfg.DigestInterval, cfg.DigestRetryInterval, time.Now())
	}

	if cfg.NATSURL != "" {
		publisher, err := natspkg.NewPublisher(cfg.NATSURL, m, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
		}
		logger.Info("connected to NATS", "url", cfg.NATSURL)
		rt.publisher = publisher
		monCfg.Sink = publisher
	}

	rt.monitor = monitor.New(monCfg)
	return rt, nil
}

// startMetricsServer serves /metrics and /healthz on METRICS_ADDR.
// An empty address disables the server.
func (rt *runtime) startMetricsServer() {
	if rt.cfg.MetricsAddr == "" {
		return
	}

	rt.server = &http.Server{
		Addr:    rt.cfg.MetricsAddr,
		Handler: metrics.NewServeMux(rt.metrics, rt.registry),
	}

	go func() {
		rt.logger.Info("starting metrics HTTP server", "addr", rt.cfg.MetricsAddr)
		if err := rt.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			rt.logger.Error("metrics server error", "error", err)
		}
	}()
}

// Close stops the metrics server and the NATS connection.
func (rt *runtime) Close() {
	if rt.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.server.Shutdown(shutdownCtx); err != nil {
			rt.logger.Error("failed to shutdown metrics server", "error", err)
		}
	}
	if rt.publisher != nil {
		if err := rt.publisher.Close(); err != nil {
			rt.logger.Error("failed to close NATS publisher", "error", err)
		}
	}
}

// loadConfig loads configuration and builds the logger from LOG_LEVEL.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, setupLogger(cfg.LogLevel), nil
}
