// Package execution implements the dual-leg execution engine: sizing,
// liquidity margin, minimum-order checks, parallel dual-leg placement,
// partial-fill detection, and the audit ledger.
package execution

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arb-engine/predictionarb/internal/circuitbreaker"
	"github.com/arb-engine/predictionarb/internal/pricing"
	"github.com/arb-engine/predictionarb/internal/storage"
	"github.com/arb-engine/predictionarb/pkg/types"
)

// Leg describes one side of a dual-leg order, already resolved to a
// venue-specific identifier (a token ID for venue A, a ticker for venue B).
type Leg struct {
	Venue      types.Venue
	Side       types.Side
	Action     types.Action
	OutcomeID  string
	PriceCents int
}

// Mapping pairs the two legs an Opportunity resolves to. For S1/S2 the legs
// are on different venues; for SM both legs share a venue but differ by side.
type Mapping struct {
	LegA Leg
	LegB Leg
}

// Confirmation is a successful order placement result.
type Confirmation struct {
	OrderID         string
	FilledContracts float64
	AvgPriceCents   int
}

// OrderPlacer places a single order and blocks until it is confirmed,
// rejected, or the context expires. Implementations live in internal/venueA
// and internal/venueB; the executor is agnostic to which.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, leg Leg, contracts float64) (*Confirmation, error)
}

// BookFetcher fetches the live order book for a venue-specific outcome, used
// for the best-effort liquidity probe.
type BookFetcher interface {
	FetchBook(ctx context.Context, venue types.Venue, outcomeID string) (types.OrderBook, error)
}

// Alerter is the narrow slice of internal/alerting.Manager the executor
// needs: raising a critical, cooldown-bypassing notification.
type Alerter interface {
	Send(ctx context.Context, alertType, message string, level types.AlertLevel)
}

// NearMissRecorder is the narrow slice of internal/storage.Storage the
// executor uses to log an opportunity that didn't clear an execution
// threshold, so the reason it was skipped survives past the audit ring.
type NearMissRecorder interface {
	StoreNearMiss(ctx context.Context, nm *storage.NearMiss) error
}

// Result is what execute() returns to the caller.
type Result struct {
	Success             bool
	Reason              string
	CriticalPartialFill bool
	DryRun              bool
	ContractsExecuted   float64
	ConfirmationA       *Confirmation
	ConfirmationB       *Confirmation
	ErrA                error
	ErrB                error
	ElapsedMs           int64
}

// Config holds executor configuration.
type Config struct {
	Logger                *zap.Logger
	DryRun                bool
	LiquidityMargin       float64 // (0,1], default 0.5
	MinOrderDollars       float64 // default 1.10
	PlacementTimeout      time.Duration
	ProbeTimeout          time.Duration
	AuditCapacity         int
	PlacerA               OrderPlacer
	PlacerB               OrderPlacer
	BookFetcherA          BookFetcher
	BookFetcherB          BookFetcher
	Alerter               Alerter
	CircuitBreaker        *circuitbreaker.BalanceCircuitBreaker
	NearMissStorage       NearMissRecorder
}

// Executor runs the state machine for one opportunity at a
// time. It owns the audit ring.
type Executor struct {
	logger           *zap.Logger
	dryRun           bool
	liquidityMargin  float64
	minOrderDollars  float64
	placementTimeout time.Duration
	probeTimeout     time.Duration
	placers          map[types.Venue]OrderPlacer
	bookFetchers     map[types.Venue]BookFetcher
	alerter          Alerter
	circuitBreaker   *circuitbreaker.BalanceCircuitBreaker
	nearMissStorage  NearMissRecorder

	auditRing *AuditRing

	mu               sync.Mutex
	cumulativeProfit float64
}

// New creates a dual-leg Executor.
func New(cfg *Config) *Executor {
	margin := cfg.LiquidityMargin
	if margin <= 0 || margin > 1 {
		margin = 0.5
	}
	minOrder := cfg.MinOrderDollars
	if minOrder <= 0 {
		minOrder = 1.10
	}
	placementTimeout := cfg.PlacementTimeout
	if placementTimeout <= 0 {
		placementTimeout = 15 * time.Second
	}
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 10 * time.Second
	}

	return &Executor{
		logger:           cfg.Logger,
		dryRun:           cfg.DryRun,
		liquidityMargin:  margin,
		minOrderDollars:  minOrder,
		placementTimeout: placementTimeout,
		probeTimeout:     probeTimeout,
		placers: map[types.Venue]OrderPlacer{
			types.VenueA: cfg.PlacerA,
			types.VenueB: cfg.PlacerB,
		},
		bookFetchers: map[types.Venue]BookFetcher{
			types.VenueA: cfg.BookFetcherA,
			types.VenueB: cfg.BookFetcherB,
		},
		alerter:         cfg.Alerter,
		circuitBreaker:  cfg.CircuitBreaker,
		nearMissStorage: cfg.NearMissStorage,
		auditRing:       NewAuditRing(cfg.AuditCapacity),
	}
}

// recordNearMiss logs an opportunity that was evaluated but never placed.
// Storage is optional; a nil NearMissStorage just means near-misses aren't
// persisted beyond the in-memory audit ring.
func (e *Executor) recordNearMiss(ctx context.Context, opp *types.Opportunity, reason string) {
	if e.nearMissStorage == nil {
		return
	}
	nm := &storage.NearMiss{
		Name:      opp.Name,
		Strategy:  opp.Strategy,
		Reason:    reason,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := e.nearMissStorage.StoreNearMiss(ctx, nm); err != nil {
		e.logger.Debug("near-miss-store-failed", zap.String("opportunity", opp.Name), zap.Error(err))
	}
}

// AuditEntries returns a snapshot of the bounded audit ring.
func (e *Executor) AuditEntries() []types.AuditEntry {
	return e.auditRing.Snapshot()
}

// CumulativeProfitCents returns the running total of executed opportunities'
// expected net profit.
func (e *Executor) CumulativeProfitCents() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cumulativeProfit
}

// Execute runs the full dual-leg state machine for one opportunity. It
// never places more than two orders.
func (e *Executor) Execute(ctx context.Context, opp *types.Opportunity, mapping Mapping, contracts float64) *Result {
	start := time.Now()
	OpportunitiesReceived.Inc()

	if e.circuitBreaker != nil && !e.circuitBreaker.IsEnabled() {
		e.logger.Warn("execution-skipped-circuit-breaker-disabled", zap.String("opportunity", opp.Name))
		ExecutionsTotal.WithLabelValues("circuit_breaker_disabled").Inc()
		return &Result{Success: false, Reason: "circuit breaker disabled"}
	}

	result := e.execute(ctx, opp, mapping, contracts)
	result.ElapsedMs = time.Since(start).Milliseconds()
	ExecutionDurationSeconds.Observe(time.Since(start).Seconds())
	return result
}

func (e *Executor) execute(ctx context.Context, opp *types.Opportunity, mapping Mapping, contracts float64) *Result {
	marketKey := opp.Name

	// Step 1: validate min-order on both legs.
	if !pricing.ValidateMinOrder(mapping.LegA.PriceCents, contracts, e.minOrderDollars) ||
		!pricing.ValidateMinOrder(mapping.LegB.PriceCents, contracts, e.minOrderDollars) {
		reason := fmt.Sprintf("requested %.4f contracts below min order $%.2f", contracts, e.minOrderDollars)
		e.audit(types.AuditSkipMinOrder, marketKey, reason)
		e.recordNearMiss(ctx, opp, reason)
		ExecutionsTotal.WithLabelValues("skip_min_order").Inc()
		return &Result{Success: false, Reason: "below minimum order size"}
	}

	// Step 2: best-effort liquidity probe.
	safe := e.probeAndSize(ctx, mapping, contracts)
	if safe < 1 ||
		!pricing.ValidateMinOrder(mapping.LegA.PriceCents, safe, e.minOrderDollars) ||
		!pricing.ValidateMinOrder(mapping.LegB.PriceCents, safe, e.minOrderDollars) {
		reason := fmt.Sprintf("safe size %.4f insufficient after liquidity margin", safe)
		e.audit(types.AuditSkipLiquidity, marketKey, reason)
		e.recordNearMiss(ctx, opp, reason)
		ExecutionsTotal.WithLabelValues("skip_liquidity").Inc()
		return &Result{Success: false, Reason: "insufficient liquidity after margin"}
	}

	// Step 3: dry-run gate.
	if e.dryRun {
		e.audit(types.AuditDryRun, marketKey, fmt.Sprintf("dry-run: would execute %.4f contracts", safe))
		ExecutionsTotal.WithLabelValues("dry_run").Inc()
		e.recordProfit(opp.NetProfitCents * safe)
		return &Result{
			Success:           true,
			DryRun:            true,
			ContractsExecuted: safe,
			ConfirmationA:     &Confirmation{OrderID: "dry-run", FilledContracts: safe, AvgPriceCents: mapping.LegA.PriceCents},
			ConfirmationB:     &Confirmation{OrderID: "dry-run", FilledContracts: safe, AvgPriceCents: mapping.LegB.PriceCents},
		}
	}

	// Step 4: live, concurrent placement bounded by independent timeouts.
	confA, errA, confB, errB := e.placeBothLegs(ctx, mapping, safe)

	// Step 5: reconcile.
	switch {
	case errA == nil && errB == nil:
		e.audit(types.AuditExecuted, marketKey, fmt.Sprintf("both legs filled: A=%s B=%s", confA.OrderID, confB.OrderID))
		ExecutionsTotal.WithLabelValues("executed").Inc()
		e.recordProfit(opp.NetProfitCents * safe)
		return &Result{
			Success:           true,
			ContractsExecuted: safe,
			ConfirmationA:     confA,
			ConfirmationB:     confB,
		}

	case errA == nil && errB != nil:
		e.reportCriticalPartialFill(ctx, marketKey, "B", mapping.LegA, errB)
		return &Result{Success: false, CriticalPartialFill: true, ConfirmationA: confA, ErrB: errB}

	case errA != nil && errB == nil:
		e.reportCriticalPartialFill(ctx, marketKey, "A", mapping.LegB, errA)
		return &Result{Success: false, CriticalPartialFill: true, ConfirmationB: confB, ErrA: errA}

	default:
		e.audit(types.AuditBothFailed, marketKey, fmt.Sprintf("A: %v; B: %v", errA, errB))
		ExecutionsTotal.WithLabelValues("both_failed").Inc()
		e.classifyAndCount(types.VenueA, errA)
		e.classifyAndCount(types.VenueB, errB)
		return &Result{Success: false, Reason: "both legs failed", ErrA: errA, ErrB: errB}
	}
}

// probeAndSize fetches both legs' books (best-effort) and computes the safe
// order size: min(available depth * liquidityMargin, requested) across both
// legs. A probe failure on either leg is logged and does not abort — the
// leg is simply treated as having unknown (unbounded) depth.
func (e *Executor) probeAndSize(ctx context.Context, mapping Mapping, requested float64) float64 {
	probeCtx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	depthA := e.probeDepth(probeCtx, mapping.LegA)
	depthB := e.probeDepth(probeCtx, mapping.LegB)

	safe := requested
	if depthA >= 0 {
		safe = minFloat(safe, pricing.SafeSize(depthA, e.liquidityMargin, requested))
	}
	if depthB >= 0 {
		safe = minFloat(safe, pricing.SafeSize(depthB, e.liquidityMargin, requested))
	}
	return safe
}

// probeDepth returns the total ask-side depth for one leg, or -1 if the
// probe failed or no fetcher is configured (unbounded/unknown).
func (e *Executor) probeDepth(ctx context.Context, leg Leg) float64 {
	fetcher, ok := e.bookFetchers[leg.Venue]
	if !ok || fetcher == nil {
		return -1
	}
	book, err := fetcher.FetchBook(ctx, leg.Venue, leg.OutcomeID)
	if err != nil {
		e.logger.Warn("liquidity-probe-failed", zap.String("venue", string(leg.Venue)), zap.Error(err))
		return -1
	}
	total := 0.0
	for _, lvl := range book.Asks {
		total += lvl.Size
	}
	return total
}

// placeBothLegs issues both orders concurrently and waits for both
// completions (not first-to-finish), each leg bounded by its own timeout.
// The legs are detached from the caller's cancellation, so a shutdown
// waits for in-flight placements (up to placementTimeout) instead of
// abandoning them. It uses errgroup only to bound the two goroutines' lifetimes under one
// group Wait: the group's own error return is discarded because the
// executor needs both legs' (result, error) pairs even when one leg
// fails, not just the first error.
func (e *Executor) placeBothLegs(ctx context.Context, mapping Mapping, contracts float64) (*Confirmation, error, *Confirmation, error) {
	var confA, confB *Confirmation
	var errA, errB error

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.Go(func() error {
		legCtx, cancel := context.WithTimeout(gctx, e.placementTimeout)
		defer cancel()
		confA, errA = e.placeLeg(legCtx, mapping.LegA, contracts)
		return nil
	})
	g.Go(func() error {
		legCtx, cancel := context.WithTimeout(gctx, e.placementTimeout)
		defer cancel()
		confB, errB = e.placeLeg(legCtx, mapping.LegB, contracts)
		return nil
	})
	_ = g.Wait()

	return confA, errA, confB, errB
}

func (e *Executor) placeLeg(ctx context.Context, leg Leg, contracts float64) (*Confirmation, error) {
	placer, ok := e.placers[leg.Venue]
	if !ok || placer == nil {
		return nil, fmt.Errorf("no order placer configured for venue %s", leg.Venue)
	}
	return placer.PlaceOrder(ctx, leg, contracts)
}

func (e *Executor) reportCriticalPartialFill(ctx context.Context, marketKey, failedVenue string, filledLeg Leg, failErr error) {
	details := fmt.Sprintf("unhedged leg on venue %s (%s %s @ %d¢); failed venue %s error: %v",
		filledLeg.Venue, filledLeg.Action, filledLeg.Side, filledLeg.PriceCents, failedVenue, failErr)

	e.audit(types.AuditCriticalPartialFill, marketKey, details)
	ExecutionsTotal.WithLabelValues("critical_partial_fill").Inc()
	e.classifyAndCount(types.Venue(failedVenue), failErr)

	if e.alerter != nil {
		e.alerter.Send(ctx, "critical_partial_fill",
			fmt.Sprintf("PARTIAL FILL on %s: %s", marketKey, details), types.AlertCritical)
	}

	e.logger.Error("critical-partial-fill",
		zap.String("market", marketKey),
		zap.String("failed-venue", failedVenue),
		zap.Error(failErr))
}

func (e *Executor) audit(entryType types.AuditEntryType, market, details string) {
	e.auditRing.Append(types.AuditEntry{
		Type:         entryType,
		Market:       market,
		TimestampISO: nowISO(),
		Details:      details,
	})
}

func (e *Executor) recordProfit(cents float64) {
	e.mu.Lock()
	e.cumulativeProfit += cents
	e.mu.Unlock()
	ProfitRealizedCents.Add(cents)
}

func (e *Executor) classifyAndCount(venue types.Venue, err error) {
	if err == nil {
		return
	}
	LegPlacementErrorsByType.WithLabelValues(string(venue), classifyError(err)).Inc()
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// classifyError buckets a leg placement error for metrics into coarse
// families: network, api, validation, funds.
func classifyError(err error) string {
	if err == nil {
		return "unknown"
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "dial"),
		strings.Contains(msg, "eof"),
		strings.Contains(msg, "network"):
		return "network"
	case strings.Contains(msg, "api error"),
		strings.Contains(msg, "invalid"),
		strings.Contains(msg, "bad request"),
		strings.Contains(msg, "400"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "404"),
		strings.Contains(msg, "500"):
		return "api"
	case strings.Contains(msg, "missing"),
		strings.Contains(msg, "required"),
		strings.Contains(msg, "not configured"):
		return "validation"
	case strings.Contains(msg, "insufficient"),
		strings.Contains(msg, "balance"),
		strings.Contains(msg, "funds"):
		return "funds"
	default:
		return "unknown"
	}
}
