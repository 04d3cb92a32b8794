package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solmint/relay/internal/query"
	"github.com/solmint/relay/internal/query/provider"
	"github.com/solmint/relay/internal/tracking"
)

// Config wires the HTTP server's collaborators.
type Config struct {
	Port        int
	RateLimit   float64
	RateBurst   int
	AdminTokens []string

	Tracking   *tracking.Service
	Dispatcher *query.Dispatcher
	WS         http.Handler

	// Pingers are backing services reported on /health, keyed by name.
	Pingers map[string]Pinger

	// Providers are surfaced on /health when they report stats.
	Providers []provider.Provider
}

// Server exposes the REST surface, the WebSocket endpoint, and
// operational endpoints.
type Server struct {
	cfg        Config
	tracking   *tracking.Service
	dispatcher *query.Dispatcher
	ws         http.Handler
	pingers    map[string]Pinger
	providers  []provider.Provider
	log        *slog.Logger

	httpServer *http.Server
}

// NewServer builds the server and its routes.
func NewServer(cfg Config) *Server {
	s := &Server{
		cfg:        cfg,
		tracking:   cfg.Tracking,
		dispatcher: cfg.Dispatcher,
		ws:         cfg.WS,
		pingers:    cfg.Pingers,
		providers:  cfg.Providers,
		log:        slog.Default(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	limiter := newRateLimiter(cfg.RateLimit, cfg.RateBurst)

	r.Group(func(r chi.Router) {
		r.Use(limiter.middleware)

		r.Route("/cross-chain", func(r chi.Router) {
			r.Get("/messages", s.handleListMessages)
			r.Post("/messages", s.handleCreateMessage)
			r.Get("/messages/{id}", s.handleGetMessage)
			r.Get("/chains", s.handleListChains)
			r.Get("/message-types", s.handleListMessageTypes)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin(cfg.AdminTokens))
				r.Patch("/messages/{id}/status", s.handleUpdateStatus)
			})
		})

		r.Post("/query", s.handleQuery)
	})

	if s.ws != nil {
		r.Handle("/ws", s.ws)
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving. Blocks until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("HTTP server stopping")
	return s.httpServer.Shutdown(ctx)
}
