package circuitbreaker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// BalanceFetcher fetches a venue's tradable balance in dollars. Venue A's
// implementation wraps pkg/wallet.Client (on-chain USDC balance); venue
// B's wraps internal/venueB.Client (REST portfolio balance). Both venues
// are checked against the same dynamically-computed threshold: trading is
// disabled if either venue's tradable balance drops under its floor.
type BalanceFetcher interface {
	GetBalance(ctx context.Context) (float64, error)
}

// BalanceCircuitBreaker monitors both venues' tradable balances and
// controls trade execution. It dynamically calculates thresholds based on
// recent trade history and uses hysteresis to prevent rapid state changes.
type BalanceCircuitBreaker struct {
	enabled atomic.Bool // lock-free reads from hot paths

	checkInterval   time.Duration
	venueA          BalanceFetcher
	venueB          BalanceFetcher
	logger          *zap.Logger
	tradeMultiplier float64
	minAbsolute     float64
	hysteresisRatio float64

	mu               sync.RWMutex
	lastBalanceA     float64
	lastBalanceB     float64
	lastCheck        time.Time
	recentTrades     []float64
	disableThreshold float64
	enableThreshold  float64
}

// Config holds circuit breaker configuration.
type Config struct {
	CheckInterval   time.Duration
	TradeMultiplier float64
	MinAbsolute     float64
	HysteresisRatio float64
	VenueA          BalanceFetcher
	VenueB          BalanceFetcher
	Logger          *zap.Logger
}

// Status holds current circuit breaker status for debugging and HTTP endpoints.
type Status struct {
	Enabled          bool
	LastBalanceA     float64
	LastBalanceB     float64
	LastCheck        time.Time
	DisableThreshold float64
	EnableThreshold  float64
	AvgTradeSize     float64
	RecentTradeCount int
}

// New creates a new circuit breaker with the given configuration.
func New(cfg *Config) (*BalanceCircuitBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.VenueA == nil || cfg.VenueB == nil {
		return nil, fmt.Errorf("both venue balance fetchers are required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	if cfg.TradeMultiplier <= 0 {
		return nil, fmt.Errorf("trade multiplier must be positive")
	}
	if cfg.MinAbsolute <= 0 {
		return nil, fmt.Errorf("min absolute must be positive")
	}
	if cfg.HysteresisRatio < 1.0 {
		return nil, fmt.Errorf("hysteresis ratio must be >= 1.0")
	}

	b := &BalanceCircuitBreaker{
		checkInterval:    cfg.CheckInterval,
		venueA:           cfg.VenueA,
		venueB:           cfg.VenueB,
		logger:           cfg.Logger,
		tradeMultiplier:  cfg.TradeMultiplier,
		minAbsolute:      cfg.MinAbsolute,
		hysteresisRatio:  cfg.HysteresisRatio,
		recentTrades:     make([]float64, 0, 20),
		disableThreshold: cfg.MinAbsolute,
		enableThreshold:  cfg.MinAbsolute * cfg.HysteresisRatio,
	}

	b.enabled.Store(true)

	CircuitBreakerEnabled.Set(1)
	CircuitBreakerDisableThreshold.Set(b.disableThreshold)
	CircuitBreakerEnableThreshold.Set(b.enableThreshold)
	CircuitBreakerAvgTradeSize.Set(0)

	return b, nil
}

// IsEnabled returns true if trades should be executed. Lock-free, safe for
// hot paths.
func (b *BalanceCircuitBreaker) IsEnabled() bool {
	return b.enabled.Load()
}

// RecordTrade adds a trade to the rolling window and recalculates thresholds.
func (b *BalanceCircuitBreaker) RecordTrade(tradeSize float64) {
	if tradeSize <= 0 {
		b.logger.Warn("invalid-trade-size", zap.Float64("size", tradeSize))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.recentTrades = append(b.recentTrades, tradeSize)
	if len(b.recentTrades) > 20 {
		b.recentTrades = b.recentTrades[1:]
	}

	sum := 0.0
	for _, size := range b.recentTrades {
		sum += size
	}
	avgTradeSize := sum / float64(len(b.recentTrades))

	b.disableThreshold = math.Max(avgTradeSize*b.tradeMultiplier, b.minAbsolute)
	b.enableThreshold = b.disableThreshold * b.hysteresisRatio

	CircuitBreakerAvgTradeSize.Set(avgTradeSize)
	CircuitBreakerDisableThreshold.Set(b.disableThreshold)
	CircuitBreakerEnableThreshold.Set(b.enableThreshold)

	b.logger.Debug("thresholds-updated",
		zap.Float64("avg-trade-size", avgTradeSize),
		zap.Int("trade-count", len(b.recentTrades)),
		zap.Float64("disable-threshold", b.disableThreshold),
		zap.Float64("enable-threshold", b.enableThreshold))
}

// CheckBalance checks both venues' balances and updates enabled state
// based on thresholds. Trading is disabled whenever either venue's
// balance falls under the disable threshold, and only re-enabled once
// both venues clear the (higher) enable threshold.
func (b *BalanceCircuitBreaker) CheckBalance(ctx context.Context) error {
	start := time.Now()
	defer func() {
		CircuitBreakerCheckDuration.Observe(time.Since(start).Seconds())
	}()

	balanceA, errA := b.venueA.GetBalance(ctx)
	if errA != nil {
		b.logger.Error("failed-to-check-venue-a-balance", zap.Error(errA))
	}
	balanceB, errB := b.venueB.GetBalance(ctx)
	if errB != nil {
		b.logger.Error("failed-to-check-venue-b-balance", zap.Error(errB))
	}
	if errA != nil && errB != nil {
		return fmt.Errorf("check balances: venue A: %w; venue B: %v", errA, errB)
	}

	b.mu.RLock()
	disableThreshold := b.disableThreshold
	enableThreshold := b.enableThreshold
	b.mu.RUnlock()

	currentlyEnabled := b.enabled.Load()

	b.mu.Lock()
	if errA == nil {
		b.lastBalanceA = balanceA
	}
	if errB == nil {
		b.lastBalanceB = balanceB
	}
	b.lastCheck = time.Now()
	b.mu.Unlock()

	if errA == nil {
		CircuitBreakerBalanceA.Set(balanceA)
	}
	if errB == nil {
		CircuitBreakerBalanceB.Set(balanceB)
	}

	minBalance := math.Min(balanceA, balanceB)
	if errA != nil {
		minBalance = balanceB
	} else if errB != nil {
		minBalance = balanceA
	}

	shouldDisable := currentlyEnabled && minBalance < disableThreshold
	shouldEnable := !currentlyEnabled && minBalance >= enableThreshold

	switch {
	case shouldDisable:
		b.enabled.Store(false)
		CircuitBreakerEnabled.Set(0)
		CircuitBreakerStateChanges.Inc()
		b.logger.Warn("circuit-breaker-disabled",
			zap.Float64("min-balance", minBalance),
			zap.Float64("disable-threshold", disableThreshold),
			zap.Float64("enable-threshold", enableThreshold))
	case shouldEnable:
		b.enabled.Store(true)
		CircuitBreakerEnabled.Set(1)
		CircuitBreakerStateChanges.Inc()
		b.logger.Info("circuit-breaker-enabled",
			zap.Float64("min-balance", minBalance),
			zap.Float64("disable-threshold", disableThreshold),
			zap.Float64("enable-threshold", enableThreshold))
	default:
		b.logger.Debug("balance-checked",
			zap.Float64("balance-a", balanceA),
			zap.Float64("balance-b", balanceB),
			zap.Bool("enabled", currentlyEnabled))
	}

	return nil
}

// Start begins the background monitoring loop. Runs until ctx is cancelled.
func (b *BalanceCircuitBreaker) Start(ctx context.Context) {
	b.logger.Info("circuit-breaker-started",
		zap.Duration("check-interval", b.checkInterval),
		zap.Float64("trade-multiplier", b.tradeMultiplier),
		zap.Float64("min-absolute", b.minAbsolute),
		zap.Float64("hysteresis-ratio", b.hysteresisRatio))

	if err := b.CheckBalance(ctx); err != nil {
		b.logger.Error("initial-balance-check-failed", zap.Error(err))
	}

	go b.monitorLoop(ctx)
}

func (b *BalanceCircuitBreaker) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(b.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("circuit-breaker-stopped")
			return
		case <-ticker.C:
			if err := b.CheckBalance(ctx); err != nil {
				b.logger.Error("balance-check-error", zap.Error(err))
			}
		}
	}
}

// GetStatus returns current circuit breaker status for debugging and HTTP endpoints.
func (b *BalanceCircuitBreaker) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sum := 0.0
	for _, size := range b.recentTrades {
		sum += size
	}
	avgTradeSize := 0.0
	if len(b.recentTrades) > 0 {
		avgTradeSize = sum / float64(len(b.recentTrades))
	}

	return Status{
		Enabled:          b.enabled.Load(),
		LastBalanceA:     b.lastBalanceA,
		LastBalanceB:     b.lastBalanceB,
		LastCheck:        b.lastCheck,
		DisableThreshold: b.disableThreshold,
		EnableThreshold:  b.enableThreshold,
		AvgTradeSize:     avgTradeSize,
		RecentTradeCount: len(b.recentTrades),
	}
}
