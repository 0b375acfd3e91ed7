// Package app wires every component into the single running process:
// venue clients, matching, arbitrage, execution, alerting, circuit
// breaker and the orchestrator that schedules them all, plus the HTTP
// metrics/health/dashboard surface.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/internal/alerting"
	"github.com/arb-engine/predictionarb/internal/arbitrage"
	"github.com/arb-engine/predictionarb/internal/circuitbreaker"
	"github.com/arb-engine/predictionarb/internal/execution"
	"github.com/arb-engine/predictionarb/internal/orchestrator"
	"github.com/arb-engine/predictionarb/internal/storage"
	"github.com/arb-engine/predictionarb/internal/venueA"
	"github.com/arb-engine/predictionarb/internal/venueB"
	"github.com/arb-engine/predictionarb/pkg/config"
	"github.com/arb-engine/predictionarb/pkg/healthprobe"
	"github.com/arb-engine/predictionarb/pkg/httpserver"
)

// App is the main application orchestrator.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	venueAClient *venueA.Client
	venueBClient *venueB.Client
	stream       *venueA.Stream

	detector *arbitrage.Detector
	executor *execution.Executor
	alerter  *alerting.Manager
	breaker  *circuitbreaker.BalanceCircuitBreaker
	storage  storage.Storage

	orch *orchestrator.Orchestrator

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct{}
