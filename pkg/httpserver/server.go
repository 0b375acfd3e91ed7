package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/internal/circuitbreaker"
	"github.com/arb-engine/predictionarb/internal/execution"
	"github.com/arb-engine/predictionarb/pkg/healthprobe"
	"github.com/arb-engine/predictionarb/pkg/types"
)

// DashboardOrchestrator is the narrow slice of internal/orchestrator.Orchestrator
// the dashboard handler reads from, satisfied by duck typing so tests can
// fake it.
type DashboardOrchestrator interface {
	Pairs() []types.MatchedPair
	Positions() []*types.Position
}

// Server provides HTTP endpoints for metrics, health checks and the
// opportunity/position dashboard.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Orchestrator  DashboardOrchestrator
	Executor      *execution.Executor
	Breaker       *circuitbreaker.BalanceCircuitBreaker
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	if cfg.Orchestrator != nil {
		dash := NewDashboardHandler(cfg.Orchestrator, cfg.Executor, cfg.Breaker, cfg.Logger)
		r.Get("/api/pairs", dash.HandlePairs)
		r.Get("/api/positions", dash.HandlePositions)
		r.Get("/api/audit", dash.HandleAudit)
		r.Get("/api/circuit-breaker", dash.HandleCircuitBreaker)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
