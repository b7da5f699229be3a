// Package api provides the HTTP REST API for the metricsd daemon. It exposes
// the metrics manager operations (dump, enable/disable, self-test), health
// endpoints, a Prometheus exposition endpoint and a WebSocket snapshot
// stream.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apihandlers "github.com/anstrom/metricsd/internal/api/handlers"
	"github.com/anstrom/metricsd/internal/api/middleware"
	"github.com/anstrom/metricsd/internal/config"
	"github.com/anstrom/metricsd/internal/logging"
	"github.com/anstrom/metricsd/internal/metrics"
)

// Server represents the API server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	config     *config.Config
	manager    *metrics.Manager
	bridge     *metrics.Bridge
	logger     *slog.Logger
}

// New creates a new API server instance around an existing manager. The
// manager is constructor-injected; the server never creates its own, so all
// collaborators observe the same registry state.
func New(cfg *config.Config, manager *metrics.Manager) (*Server, error) {
	if manager == nil {
		return nil, fmt.Errorf("metrics manager is required")
	}

	logger := logging.Default().WithComponent("api").Logger

	server := &Server{
		router:  mux.NewRouter(),
		config:  cfg,
		manager: manager,
		bridge:  metrics.NewBridge(manager),
		logger:  logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:           net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port)),
		Handler:        server.router,
		ReadTimeout:    cfg.API.ReadTimeout,
		WriteTimeout:   cfg.API.WriteTimeout,
		IdleTimeout:    cfg.API.IdleTimeout,
		MaxHeaderBytes: cfg.API.MaxHeaderBytes,
	}

	return server, nil
}

// setupMiddleware installs the global middleware chain.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.Logging(s.logger))
	s.router.Use(middleware.Metrics(s.manager))
	s.router.Use(handlers.CompressHandler)

	if s.config.API.EnableCORS {
		corsOrigins := handlers.AllowedOrigins(s.config.API.CORSOrigins)
		corsHeaders := handlers.AllowedHeaders([]string{"Content-Type", "X-API-Key", "X-Request-ID"})
		corsMethods := handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})
		s.router.Use(handlers.CORS(corsOrigins, corsHeaders, corsMethods))
	}

	if s.config.API.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(
			s.config.API.RateLimitRequests,
			s.config.API.RateLimitWindow)
		s.router.Use(limiter.Middleware)
	}
}

// setupRoutes registers all API routes.
func (s *Server) setupRoutes() {
	metricsHandler := apihandlers.NewMetricsHandler(s.manager, s.logger)
	healthHandler := apihandlers.NewHealthHandler(s.manager, s.logger)
	watchHandler := apihandlers.NewWatchHandler(s.manager, s.logger, s.config.Metrics.WatchInterval)

	// Unauthenticated operational endpoints.
	s.router.HandleFunc("/healthz", healthHandler.Health).Methods(http.MethodGet)
	s.router.HandleFunc("/livez", healthHandler.Liveness).Methods(http.MethodGet)
	s.router.HandleFunc("/version", healthHandler.Version).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(
		s.bridge.Registry(),
		promhttp.HandlerOpts{},
	)).Methods(http.MethodGet)

	// Management API.
	apiRouter := s.router.PathPrefix("/api/v1").Subrouter()
	if s.config.API.AuthEnabled {
		apiRouter.Use(middleware.APIKeyAuth(s.config.API.APIKeyHashes, s.logger))
	}

	apiRouter.HandleFunc("/metrics", metricsHandler.Dump).Methods(http.MethodGet)
	apiRouter.HandleFunc("/metrics/instruments", metricsHandler.ListInstruments).Methods(http.MethodGet)
	apiRouter.HandleFunc("/metrics/enable", metricsHandler.Enable).Methods(http.MethodPost)
	apiRouter.HandleFunc("/metrics/test", metricsHandler.Test).Methods(http.MethodPost)
	apiRouter.HandleFunc("/metrics/watch", watchHandler.Watch).Methods(http.MethodGet)
	apiRouter.HandleFunc("/metrics/{scope}", metricsHandler.GetScope).Methods(http.MethodGet)
}

// Router returns the assembled router. Exposed for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start starts the API server and blocks until the context is canceled or
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting API server",
		"address", s.httpServer.Addr,
		"auth_enabled", s.config.API.AuthEnabled,
		"rate_limit_enabled", s.config.API.RateLimitEnabled)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	timeout := s.config.Daemon.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
