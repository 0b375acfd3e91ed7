// Package orchestrator assembles market discovery, price ingest, the
// scan loop, position tracking/rotation, and the resolution watcher into
// the single process-wide scheduler. It is the one component allowed to
// depend on every other core package: matching, arbitrage, execution,
// alerting and circuitbreaker all remain decoupled from each other and
// are wired together here.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/internal/arbitrage"
	"github.com/arb-engine/predictionarb/internal/circuitbreaker"
	"github.com/arb-engine/predictionarb/internal/execution"
	"github.com/arb-engine/predictionarb/internal/matching"
	"github.com/arb-engine/predictionarb/internal/storage"
	"github.com/arb-engine/predictionarb/internal/venueA"
	"github.com/arb-engine/predictionarb/pkg/types"
)

// Alerter is the narrow slice of internal/alerting.Manager the
// orchestrator drives directly.
type Alerter interface {
	Send(ctx context.Context, alertType, message string, level types.AlertLevel)
}

// VenueASource is the slice of internal/venueA.Client the orchestrator
// needs for discovery and settlement-lag resolution checks, satisfied by
// duck typing so tests can fake it.
type VenueASource interface {
	FetchActiveMarkets(ctx context.Context, limit int) ([]types.Outcome, error)
	FetchClosedMarkets(ctx context.Context, limit int) ([]types.Outcome, error)
}

// VenueBSource is the slice of internal/venueB.Client the orchestrator
// needs for discovery and polling.
type VenueBSource interface {
	FetchActiveMarkets(ctx context.Context) ([]types.Outcome, error)
}

// PriceStream is the slice of internal/venueA.Stream the orchestrator
// needs to drive streaming price ingest.
type PriceStream interface {
	Start() error
	Subscribe(ctx context.Context, tokenIDs []string) error
	Updates() <-chan venueA.PriceUpdate
	Close() error
}

// SameMarketBookSource is the slice of internal/venueB.Client the
// same-market (SM) track needs to probe both sides of a recurring market's
// book independently of the S1/S2 liquidity probe.
type SameMarketBookSource interface {
	FetchBook(ctx context.Context, outcomeID string, side types.Side) (types.OrderBook, error)
}

// TradeRecorder is the narrow slice of internal/storage.Storage the
// orchestrator uses to persist a completed round trip once a position closes.
type TradeRecorder interface {
	StoreTrade(ctx context.Context, trade *storage.Trade) error
}

// Config holds every tunable of the orchestrator's scheduling surface.
type Config struct {
	MarketRefreshInterval time.Duration
	MaxMarketDuration     time.Duration
	DiscoveryLimit        int

	KalshiPollInterval time.Duration

	ScanInterval          time.Duration
	MinTimeToExpiry       time.Duration
	TradeCooldown         time.Duration
	RotationEpsilonCents  float64
	AlertThresholdCents   int
	MaxGlobalPositions    int
	TradeContractsPerLeg  float64
	MinProfitCents        int

	ResolutionCheckInterval time.Duration
	ResolutionEnabled       bool

	// Same-market (SM) track: buying YES and NO on one venue's own binary
	// market, recurring short-duration markets identified by ticker
	// (venue B's "btc15min"-style product family).
	SameMarketScanInterval          time.Duration
	SameMarketMarketRefreshInterval time.Duration
	SameMarketOrderSize             float64
	SameMarketTickers               []string
	SameMarketMaxPositionsPerMarket int
	SameMarketGlobalCap             int
	SameMarketCooldown              time.Duration
	SameMarketMinTimeRemaining      time.Duration

	Logger *zap.Logger
}

// Orchestrator is the single process-wide scheduler. It owns the
// matched-pair set, the price caches, and the position ledger; the
// executor owns the audit ring, and the alert manager owns its own
// queue — no component mutates another's state directly.
type Orchestrator struct {
	cfg    Config
	logger *zap.Logger

	venueA   VenueASource
	venueB   VenueBSource
	stream   PriceStream
	smBook   SameMarketBookSource
	matcher  *matching.Matcher
	detector *arbitrage.Detector
	executor *execution.Executor
	alerter  Alerter
	breaker  *circuitbreaker.BalanceCircuitBreaker
	trades   TradeRecorder

	mu            sync.RWMutex
	outcomesA     map[string]types.Outcome // tokenID -> outcome
	outcomesB     map[string]types.Outcome // ticker -> outcome
	pairs         []types.MatchedPair
	lastTradeAt   map[string]time.Time // pair key -> last trade time
	positions     map[string]*types.Position
	smMarkets     map[string]types.Outcome   // ticker -> tracked same-market candidate
	smPositions   map[string][]*types.Position // ticker -> open same-market positions
	smLastTradeAt map[string]time.Time         // ticker -> last SM trade time
}

// Deps bundles the collaborators the orchestrator wires together.
type Deps struct {
	VenueA         VenueASource
	VenueB         VenueBSource
	Stream         PriceStream
	SameMarketBook SameMarketBookSource
	Matcher        *matching.Matcher
	Detector       *arbitrage.Detector
	Executor       *execution.Executor
	Alerter        Alerter
	Breaker        *circuitbreaker.BalanceCircuitBreaker
	Trades         TradeRecorder
}

// New builds an Orchestrator. All Deps fields are required except Stream,
// SameMarketBook and Trades: Stream is optional for deployments that don't
// yet have venue-A streaming credentials (the scan loop still works off the
// venue-A polling refresh); SameMarketBook is optional for deployments that
// haven't configured any same-market tickers (the SM track stays disabled);
// Trades is optional for deployments that don't want trade history persisted
// beyond the in-memory position ledger and audit ring.
func New(cfg Config, deps Deps) *Orchestrator {
	return &Orchestrator{
		cfg:           cfg,
		logger:        cfg.Logger,
		venueA:        deps.VenueA,
		venueB:        deps.VenueB,
		stream:        deps.Stream,
		smBook:        deps.SameMarketBook,
		matcher:       deps.Matcher,
		detector:      deps.Detector,
		executor:      deps.Executor,
		alerter:       deps.Alerter,
		breaker:       deps.Breaker,
		trades:        deps.Trades,
		outcomesA:     make(map[string]types.Outcome),
		outcomesB:     make(map[string]types.Outcome),
		lastTradeAt:   make(map[string]time.Time),
		positions:     make(map[string]*types.Position),
		smMarkets:     make(map[string]types.Outcome),
		smPositions:   make(map[string][]*types.Position),
		smLastTradeAt: make(map[string]time.Time),
	}
}

// Run starts every concurrent activity and blocks until ctx is cancelled.
// A shutdown signal stops new scans, lets in-flight probes observe
// cancellation on their own timeouts, and returns — in-flight order
// placements are not force-cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("orchestrator-starting",
		zap.Duration("market-refresh", o.cfg.MarketRefreshInterval),
		zap.Duration("scan-interval", o.cfg.ScanInterval))

	if o.breaker != nil {
		o.breaker.Start(ctx)
	}

	o.refreshMarkets(ctx)

	if o.stream != nil {
		if err := o.stream.Start(); err != nil {
			o.logger.Error("venue-a-stream-start-failed", zap.Error(err))
		} else {
			o.subscribeStream(ctx)
			go o.consumeStream(ctx)
		}
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); o.discoveryLoop(ctx) }()
	go func() { defer wg.Done(); o.venueBPollLoop(ctx) }()
	go func() { defer wg.Done(); o.scanLoop(ctx) }()

	if o.cfg.ResolutionEnabled {
		wg.Add(1)
		go func() { defer wg.Done(); o.resolutionLoop(ctx) }()
	}

	if o.smBook != nil && len(o.cfg.SameMarketTickers) > 0 {
		o.refreshSameMarketTickers(ctx)
		wg.Add(2)
		go func() { defer wg.Done(); o.sameMarketDiscoveryLoop(ctx) }()
		go func() { defer wg.Done(); o.sameMarketScanLoop(ctx) }()
	}

	wg.Wait()
	o.logger.Info("orchestrator-stopped")
}

func (o *Orchestrator) discoveryLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.MarketRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.refreshMarkets(ctx)
		}
	}
}
