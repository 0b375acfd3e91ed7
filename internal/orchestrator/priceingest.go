package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/internal/venueA"
	"github.com/arb-engine/predictionarb/pkg/types"
)

// subscribeStream tells the venue-A streaming feed which token IDs are
// currently of interest, covering both the YES and NO side of every
// tracked outcome.
func (o *Orchestrator) subscribeStream(ctx context.Context) {
	o.mu.RLock()
	tokenIDs := make([]string, 0, len(o.outcomesA)*2)
	for _, oc := range o.outcomesA {
		if oc.YesID != "" {
			tokenIDs = append(tokenIDs, oc.YesID)
		}
		if oc.NoID != "" {
			tokenIDs = append(tokenIDs, oc.NoID)
		}
	}
	o.mu.RUnlock()

	if len(tokenIDs) == 0 {
		return
	}
	if err := o.stream.Subscribe(ctx, tokenIDs); err != nil {
		o.logger.Error("venue-a-stream-subscribe-failed", zap.Error(err))
	}
}

// consumeStream applies incoming venue-A price updates to the tracked
// outcome set. Price-cache updates are last-writer-wins per (venue,
// marketId) ordering guarantees.
func (o *Orchestrator) consumeStream(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-o.stream.Updates():
			if !ok {
				return
			}
			o.applyVenueAPrice(ctx, update)
		}
	}
}

// applyVenueAPrice updates the cached venue-A outcome price and immediately
// re-evaluates every matched pair the update touches, rather than waiting
// for the next scanLoop tick.
func (o *Orchestrator) applyVenueAPrice(ctx context.Context, update venueA.PriceUpdate) {
	priceCents := types.DecimalToCents(update.BestAsk)

	o.mu.Lock()
	var touchedMarketIDs []string
	for key, oc := range o.outcomesA {
		switch update.TokenID {
		case oc.YesID:
			oc.YesPriceCents = priceCents
			o.outcomesA[key] = oc
			touchedMarketIDs = append(touchedMarketIDs, oc.MarketID)
		case oc.NoID:
			oc.NoPriceCents = priceCents
			o.outcomesA[key] = oc
			touchedMarketIDs = append(touchedMarketIDs, oc.MarketID)
		}
	}
	affected := o.pairsForVenueAMarkets(touchedMarketIDs)
	o.mu.Unlock()

	o.evaluateAffectedPairs(ctx, affected)
}

// venueBPollLoop polls venue B's market data on a fixed interval, since
// venue B exposes no streaming feed.
func (o *Orchestrator) venueBPollLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.KalshiPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.pollVenueB(ctx)
		}
	}
}

// pollVenueB refreshes tracked venue-B outcome prices and immediately
// re-evaluates every matched pair whose venue-B side changed.
func (o *Orchestrator) pollVenueB(ctx context.Context) {
	outcomes, err := o.venueB.FetchActiveMarkets(ctx)
	if err != nil {
		o.logger.Error("venue-b-poll-failed", zap.Error(err))
		return
	}

	o.mu.Lock()
	var touchedMarketIDs []string
	for _, oc := range outcomes {
		if _, tracked := o.outcomesB[oc.YesID]; tracked {
			o.outcomesB[oc.YesID] = oc
			touchedMarketIDs = append(touchedMarketIDs, oc.MarketID)
		}
	}
	affected := o.pairsForVenueBMarkets(touchedMarketIDs)
	o.mu.Unlock()

	o.evaluateAffectedPairs(ctx, affected)
}

// pairsForVenueAMarkets returns the matched pairs whose venue-A side is one
// of the given market IDs. Callers must hold o.mu.
func (o *Orchestrator) pairsForVenueAMarkets(marketIDs []string) []types.MatchedPair {
	if len(marketIDs) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(marketIDs))
	for _, id := range marketIDs {
		wanted[id] = true
	}
	var affected []types.MatchedPair
	for _, p := range o.pairs {
		if wanted[p.OutcomeA.MarketID] {
			affected = append(affected, p)
		}
	}
	return affected
}

// pairsForVenueBMarkets returns the matched pairs whose venue-B side is one
// of the given market IDs. Callers must hold o.mu.
func (o *Orchestrator) pairsForVenueBMarkets(marketIDs []string) []types.MatchedPair {
	if len(marketIDs) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(marketIDs))
	for _, id := range marketIDs {
		wanted[id] = true
	}
	var affected []types.MatchedPair
	for _, p := range o.pairs {
		if wanted[p.OutcomeB.MarketID] {
			affected = append(affected, p)
		}
	}
	return affected
}
