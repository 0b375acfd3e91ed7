package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/internal/execution"
	"github.com/arb-engine/predictionarb/internal/storage"
	"github.com/arb-engine/predictionarb/pkg/types"
)

// openPosition records a new open position after a successful dual-leg
// fill: created on successful dual-leg fill, mutated never except to
// close, destroyed on exit.
func (o *Orchestrator) openPosition(opp *types.Opportunity, pair types.MatchedPair, mapping execution.Mapping, result *execution.Result) {
	pos := &types.Position{
		ID:              pair.Key() + "-" + time.Now().UTC().Format(time.RFC3339Nano),
		OpportunityName: opp.Name,
		Strategy:        opp.Strategy,
		MarketIDs: map[types.Venue]string{
			types.VenueA: pair.OutcomeA.MarketID,
			types.VenueB: pair.OutcomeB.MarketID,
		},
		Shares: map[types.Venue]float64{
			types.VenueA: result.ContractsExecuted,
			types.VenueB: result.ContractsExecuted,
		},
		OutcomeIDs: map[types.Venue]string{
			types.VenueA: mapping.LegA.OutcomeID,
			types.VenueB: mapping.LegB.OutcomeID,
		},
		EntrySides: map[types.Venue]types.Side{
			types.VenueA: opp.SideA,
			types.VenueB: opp.SideB,
		},
		EntryPricesCents: map[types.Venue]int{
			types.VenueA: opp.PriceACents,
			types.VenueB: opp.PriceBCents,
		},
		EntryTimestamp:         time.Now(),
		ExpectedNetProfitCents: opp.NetProfitCents,
	}

	o.mu.Lock()
	o.positions[pair.Key()] = pos
	o.mu.Unlock()

	PositionsOpen.Inc()
	o.logger.Info("position-opened", zap.String("market", pair.Key()), zap.Float64("expected-net-cents", opp.NetProfitCents))
}

// evaluatePositions runs the exit policy against every open position:
// close if the opportunity vanished or fell below the profit floor, or
// rotate into a strictly better opportunity elsewhere.
func (o *Orchestrator) evaluatePositions(ctx context.Context, best *types.Opportunity, bestPair types.MatchedPair) {
	o.mu.RLock()
	snapshot := make(map[string]*types.Position, len(o.positions))
	for k, v := range o.positions {
		snapshot[k] = v
	}
	pairsByKey := make(map[string]types.MatchedPair, len(o.pairs))
	for _, p := range o.pairs {
		pairsByKey[p.Key()] = p
	}
	o.mu.RUnlock()

	for key, pos := range snapshot {
		pair, stillMatched := pairsByKey[key]
		if !stillMatched {
			o.closePosition(ctx, key, pos, "market no longer matched")
			continue
		}

		currentOpp := o.currentOpportunityFor(ctx, pair, pos)
		if currentOpp == nil {
			o.closePosition(ctx, key, pos, "opportunity vanished")
			continue
		}

		if best != nil && bestPair.Key() != key {
			// rotationEpsilonCents default 0 preserves "any strictly
			// better opportunity triggers rotation".
			if best.NetProfitCents-currentOpp.NetProfitCents > o.cfg.RotationEpsilonCents {
				o.closePosition(ctx, key, pos, "rotating into a better opportunity")
			}
		}
	}
}

// currentOpportunityFor re-evaluates a held position's pair at current
// prices, used only to decide whether the exit policy should fire.
func (o *Orchestrator) currentOpportunityFor(ctx context.Context, pair types.MatchedPair, pos *types.Position) *types.Opportunity {
	sideA := pos.EntrySides[types.VenueA]
	sideB := pos.EntrySides[types.VenueB]
	opp, err := o.detector.EvaluateCrossVenuePair(ctx, pair, sideA, sideB)
	if err != nil || opp == nil {
		return nil
	}
	return opp
}

// closePosition issues the inverse (SELL) of both entry legs in parallel
// via the executor, then clears local state regardless of outcome. A
// failed exit is not auto-remediated but does raise a critical alert.
func (o *Orchestrator) closePosition(ctx context.Context, key string, pos *types.Position, reason string) {
	exitOpp := &types.Opportunity{
		Name:           pos.OpportunityName,
		Strategy:       pos.Strategy,
		SideA:          pos.EntrySides[types.VenueA],
		SideB:          pos.EntrySides[types.VenueB],
		NetProfitCents: 0,
	}
	mapping := execution.Mapping{
		LegA: execution.Leg{
			Venue:      types.VenueA,
			Side:       pos.EntrySides[types.VenueA],
			Action:     types.ActionSell,
			OutcomeID:  pos.OutcomeIDs[types.VenueA],
			PriceCents: pos.EntryPricesCents[types.VenueA],
		},
		LegB: execution.Leg{
			Venue:      types.VenueB,
			Side:       pos.EntrySides[types.VenueB],
			Action:     types.ActionSell,
			OutcomeID:  pos.OutcomeIDs[types.VenueB],
			PriceCents: pos.EntryPricesCents[types.VenueB],
		},
	}

	result := o.executor.Execute(ctx, exitOpp, mapping, pos.Shares[types.VenueA])

	o.mu.Lock()
	delete(o.positions, key)
	o.mu.Unlock()

	PositionsOpen.Dec()

	if !result.Success {
		o.logger.Error("position-exit-failed", zap.String("market", key), zap.String("reason", reason))
		o.alerter.Send(ctx, "trade_failed", key+": exit failed ("+reason+")", types.AlertCritical)
		return
	}
	o.logger.Info("position-exited", zap.String("market", key), zap.String("reason", reason))
	o.recordTrade(ctx, pos)
}

// recordTrade persists the completed round trip once a position has fully
// closed. Storage is optional; a nil TradeRecorder just means trade history
// isn't kept beyond the position that already left the ledger.
func (o *Orchestrator) recordTrade(ctx context.Context, pos *types.Position) {
	if o.trades == nil {
		return
	}
	priceA := pos.EntryPricesCents[types.VenueA]
	priceB := pos.EntryPricesCents[types.VenueB]
	contracts := pos.Shares[types.VenueA]
	now := time.Now()

	trade := &storage.Trade{
		ID:             pos.ID,
		Name:           pos.OpportunityName,
		Type:           "cross_venue",
		Strategy:       pos.Strategy,
		SideA:          pos.EntrySides[types.VenueA],
		SideB:          pos.EntrySides[types.VenueB],
		PriceACents:    priceA,
		PriceBCents:    priceB,
		Contracts:      contracts,
		TotalCostCents: int(contracts) * (priceA + priceB),
		GrossSpread:    100 - priceA - priceB,
		ExpectedNet:    pos.ExpectedNetProfitCents,
		ActualNet:      pos.ExpectedNetProfitCents,
		EntryTime:      pos.EntryTimestamp.UnixMilli(),
		ExitTime:       now.UnixMilli(),
		HoldMs:         now.Sub(pos.EntryTimestamp).Milliseconds(),
		Timestamp:      now.UnixMilli(),
	}
	if err := o.trades.StoreTrade(ctx, trade); err != nil {
		o.logger.Debug("trade-store-failed", zap.String("market", pos.ID), zap.Error(err))
	}
}
