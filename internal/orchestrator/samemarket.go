package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/internal/execution"
	"github.com/arb-engine/predictionarb/pkg/types"
)

// sameMarketDiscoveryLoop re-resolves the configured SM ticker allowlist
// against venue B's active-market catalog on its own refresh interval,
// independent of the cross-venue discoveryLoop.
func (o *Orchestrator) sameMarketDiscoveryLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.SameMarketMarketRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.refreshSameMarketTickers(ctx)
		}
	}
}

// refreshSameMarketTickers fetches venue B's active markets and keeps only
// the ones on the configured ticker allowlist, dropping tracked markets
// and their position bookkeeping for tickers that rolled off.
func (o *Orchestrator) refreshSameMarketTickers(ctx context.Context) {
	outcomes, err := o.venueB.FetchActiveMarkets(ctx)
	if err != nil {
		o.logger.Error("same-market-discovery-failed", zap.Error(err))
		return
	}

	wanted := make(map[string]bool, len(o.cfg.SameMarketTickers))
	for _, t := range o.cfg.SameMarketTickers {
		wanted[t] = true
	}

	tracked := make(map[string]types.Outcome, len(wanted))
	for _, oc := range outcomes {
		if wanted[oc.MarketID] {
			tracked[oc.MarketID] = oc
		}
	}

	o.mu.Lock()
	o.smMarkets = tracked
	for ticker := range o.smPositions {
		if _, ok := tracked[ticker]; !ok {
			delete(o.smPositions, ticker)
		}
	}
	o.mu.Unlock()

	o.logger.Info("same-market-tickers-refreshed", zap.Int("tracked", len(tracked)))
}

// sameMarketScanLoop runs the same-market (SM) evaluation cycle on its own
// ticker, independent of scanLoop's cross-venue cadence.
func (o *Orchestrator) sameMarketScanLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.SameMarketScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.scanSameMarketOnce(ctx)
		}
	}
}

func (o *Orchestrator) scanSameMarketOnce(ctx context.Context) {
	o.mu.RLock()
	markets := make([]types.Outcome, 0, len(o.smMarkets))
	for _, oc := range o.smMarkets {
		markets = append(markets, oc)
	}
	o.mu.RUnlock()

	SameMarketScansTotal.Inc()

	for _, oc := range markets {
		o.evaluateSameMarket(ctx, oc)
	}
}

func (o *Orchestrator) evaluateSameMarket(ctx context.Context, oc types.Outcome) {
	ticker := oc.MarketID

	if o.inSameMarketCooldown(ticker) {
		return
	}
	if !o.sameMarketCapsAvailable(ticker) {
		return
	}

	yesBook, err := o.smBook.FetchBook(ctx, ticker, types.SideYes)
	if err != nil {
		o.logger.Warn("same-market-yes-book-fetch-failed", zap.String("ticker", ticker), zap.Error(err))
		return
	}
	noBook, err := o.smBook.FetchBook(ctx, ticker, types.SideNo)
	if err != nil {
		o.logger.Warn("same-market-no-book-fetch-failed", zap.String("ticker", ticker), zap.Error(err))
		return
	}

	opp, err := o.detector.EvaluateSameMarketOutcome(ctx, types.VenueB, ticker, yesBook.Asks, noBook.Asks, o.cfg.SameMarketOrderSize)
	if err != nil || opp == nil {
		return
	}

	if opp.NetProfitCents >= float64(o.cfg.AlertThresholdCents) {
		o.alerter.Send(ctx, "big_opportunity", opp.Name+": same-market", types.AlertInfo)
	}

	o.maybeExecuteSameMarket(ctx, opp, oc)
}

func (o *Orchestrator) inSameMarketCooldown(ticker string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	last, ok := o.smLastTradeAt[ticker]
	if !ok {
		return false
	}
	return time.Since(last) < o.cfg.SameMarketCooldown
}

// sameMarketCapsAvailable enforces the per-market and global same-market
// position caps before a new entry is attempted.
func (o *Orchestrator) sameMarketCapsAvailable(ticker string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	perMarketCap := o.cfg.SameMarketMaxPositionsPerMarket
	if perMarketCap <= 0 {
		perMarketCap = 1
	}
	if len(o.smPositions[ticker]) >= perMarketCap {
		return false
	}

	globalCap := o.cfg.SameMarketGlobalCap
	if globalCap <= 0 {
		globalCap = 10
	}
	total := 0
	for _, positions := range o.smPositions {
		total += len(positions)
	}
	return total < globalCap
}

func (o *Orchestrator) maybeExecuteSameMarket(ctx context.Context, opp *types.Opportunity, oc types.Outcome) {
	mapping := execution.Mapping{
		LegA: execution.Leg{
			Venue:      types.VenueB,
			Side:       types.SideYes,
			Action:     types.ActionBuy,
			OutcomeID:  oc.MarketID,
			PriceCents: opp.PriceACents,
		},
		LegB: execution.Leg{
			Venue:      types.VenueB,
			Side:       types.SideNo,
			Action:     types.ActionBuy,
			OutcomeID:  oc.MarketID,
			PriceCents: opp.PriceBCents,
		},
	}

	result := o.executor.Execute(ctx, opp, mapping, o.cfg.SameMarketOrderSize)

	o.mu.Lock()
	o.smLastTradeAt[oc.MarketID] = time.Now()
	o.mu.Unlock()

	if !result.Success {
		if result.CriticalPartialFill {
			o.alerter.Send(ctx, "trade_failed", oc.MarketID+": same-market critical partial fill", types.AlertCritical)
		}
		return
	}

	o.alerter.Send(ctx, "trade_executed", oc.MarketID+": same-market", types.AlertInfo)
	o.openSameMarketPosition(opp, oc, mapping, result)
}

func (o *Orchestrator) openSameMarketPosition(opp *types.Opportunity, oc types.Outcome, mapping execution.Mapping, result *execution.Result) {
	pos := &types.Position{
		ID:              oc.MarketID + "-sm-" + time.Now().UTC().Format(time.RFC3339Nano),
		OpportunityName: opp.Name,
		Strategy:        opp.Strategy,
		MarketIDs: map[types.Venue]string{
			types.VenueB: oc.MarketID,
		},
		Shares: map[types.Venue]float64{
			types.VenueB: result.ContractsExecuted,
		},
		OutcomeIDs: map[types.Venue]string{
			types.VenueB: oc.MarketID,
		},
		EntrySides: map[types.Venue]types.Side{
			types.VenueB: types.SideYes,
		},
		EntryPricesCents: map[types.Venue]int{
			types.VenueB: opp.PriceACents,
		},
		EntryTimestamp:         time.Now(),
		ExpectedNetProfitCents: opp.NetProfitCents,
	}

	o.mu.Lock()
	o.smPositions[oc.MarketID] = append(o.smPositions[oc.MarketID], pos)
	total := 0
	for _, positions := range o.smPositions {
		total += len(positions)
	}
	o.mu.Unlock()

	SameMarketPositionsOpen.Set(float64(total))
	o.logger.Info("same-market-position-opened", zap.String("ticker", oc.MarketID), zap.Float64("expected-net-cents", opp.NetProfitCents))
}

// SameMarketPositions returns a snapshot of currently open same-market
// positions, flattened across all tracked tickers.
func (o *Orchestrator) SameMarketPositions() []*types.Position {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var out []*types.Position
	for _, positions := range o.smPositions {
		out = append(out, positions...)
	}
	return out
}
