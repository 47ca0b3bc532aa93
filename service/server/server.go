package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brojonat/xrplwatch/service/journal"
	"github.com/brojonat/xrplwatch/service/metrics"
)

// EntrySource is the read side of the journal.
type EntrySource interface {
	LoadWithin(ctx context.Context, w journal.Window) ([]journal.Entry, error)
}

// Config holds the dependencies of a Server.
type Config struct {
	Addr    string
	Account string
	Source  EntrySource
	// Hours is the window used when a request does not specify one.
	Hours int
	// MaxMessageLength is the chunk budget for digest previews.
	MaxMessageLength int
	// Metrics and Gatherer are optional. Without a Gatherer /metrics is not served.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	Now      func() time.Time
}

// Server is a read-only HTTP API over the journal.
type Server struct {
	cfg    Config
	logger *slog.Logger
	server *http.Server
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Hours <= 0 {
		cfg.Hours = 24
	}
	return &Server{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "server"),
	}
}

// Handler returns the routed handler, wrapped with CORS and request metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/v1/blacklist", s.instrument("blacklist",
		handleListRecent(s.cfg.Source, s.cfg.Account, s.cfg.Hours, s.cfg.Now, s.logger)))
	mux.Handle("GET /api/v1/digest/preview", s.instrument("digest_preview",
		handleDigestPreview(s.cfg.Source, s.cfg.Hours, s.cfg.MaxMessageLength, s.cfg.Now, s.logger)))

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if s.cfg.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return corsMiddleware(mux)
}

func (s *Server) instrument(name string, h http.Handler) http.Handler {
	if s.cfg.Metrics == nil {
		return h
	}
	return metrics.HTTPMetricsMiddleware(s.cfg.Metrics, name)(h)
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.cfg.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
