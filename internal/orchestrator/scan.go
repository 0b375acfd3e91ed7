package orchestrator

import (
	"context"
	"time"

	"github.com/arb-engine/predictionarb/internal/execution"
	"github.com/arb-engine/predictionarb/pkg/types"
)

// scanLoop is the engine's core cycle: every scanInterval, evaluate every
// matched pair and act on whatever clears the profit bar. Cross-market
// evaluation proceeds sequentially here (the scan loop is logically
// single-threaded); nothing prevents a future split into per-market
// goroutines if the matched-pair count grows large enough to need it.
func (o *Orchestrator) scanLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.scanOnce(ctx)
		}
	}
}

func (o *Orchestrator) scanOnce(ctx context.Context) {
	o.mu.RLock()
	pairs := make([]types.MatchedPair, len(o.pairs))
	copy(pairs, o.pairs)
	o.mu.RUnlock()

	ScansTotal.Inc()

	best, bestPair := o.evaluatePairs(ctx, pairs)
	o.evaluatePositions(ctx, best, bestPair)

	if best == nil {
		return
	}

	o.maybeExecute(ctx, best, bestPair)
}

// evaluatePairs runs both cross-venue side combinations against every pair
// given and returns whichever clears the biggest net profit. It is the
// shared core of both the ticker-driven scanOnce and the reactive
// evaluation triggered by a single pair's price update.
func (o *Orchestrator) evaluatePairs(ctx context.Context, pairs []types.MatchedPair) (*types.Opportunity, types.MatchedPair) {
	var best *types.Opportunity
	var bestPair types.MatchedPair

	for _, pair := range pairs {
		key := pair.Key()
		if o.inCooldown(key) {
			continue
		}

		for _, sides := range [][2]types.Side{{types.SideYes, types.SideNo}, {types.SideNo, types.SideYes}} {
			opp, err := o.detector.EvaluateCrossVenuePair(ctx, pair, sides[0], sides[1])
			if err != nil || opp == nil {
				continue
			}
			if opp.NetProfitCents >= float64(o.cfg.AlertThresholdCents) {
				o.alerter.Send(ctx, "big_opportunity", opp.Name+": "+string(sides[0])+"/"+string(sides[1]), types.AlertInfo)
			}
			if best == nil || opp.NetProfitCents > best.NetProfitCents {
				best = opp
				bestPair = pair
			}
		}
	}

	return best, bestPair
}

// evaluateAffectedPairs reacts to a price update on venue A or venue B by
// re-running evaluation immediately for just the pairs the update touched,
// instead of waiting for the next scanLoop tick. This catches dislocations
// that open and close between scan intervals.
func (o *Orchestrator) evaluateAffectedPairs(ctx context.Context, pairs []types.MatchedPair) {
	if len(pairs) == 0 {
		return
	}

	best, bestPair := o.evaluatePairs(ctx, pairs)
	o.evaluatePositions(ctx, best, bestPair)

	if best == nil {
		return
	}

	o.maybeExecute(ctx, best, bestPair)
}

func (o *Orchestrator) inCooldown(key string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	last, ok := o.lastTradeAt[key]
	if !ok {
		return false
	}
	return time.Since(last) < o.cfg.TradeCooldown
}

func (o *Orchestrator) maybeExecute(ctx context.Context, opp *types.Opportunity, pair types.MatchedPair) {
	o.mu.RLock()
	openCount := len(o.positions)
	_, alreadyOpen := o.positions[pair.Key()]
	o.mu.RUnlock()

	if alreadyOpen {
		return
	}
	if openCount >= o.cfg.MaxGlobalPositions {
		return
	}

	mapping := buildMapping(opp, pair)
	result := o.executor.Execute(ctx, opp, mapping, o.cfg.TradeContractsPerLeg)

	o.mu.Lock()
	o.lastTradeAt[pair.Key()] = time.Now()
	o.mu.Unlock()

	if !result.Success {
		if result.CriticalPartialFill {
			o.alerter.Send(ctx, "trade_failed", pair.Key()+": critical partial fill", types.AlertCritical)
		}
		return
	}

	o.alerter.Send(ctx, "trade_executed", pair.Key(), types.AlertInfo)
	o.openPosition(opp, pair, mapping, result)
}

// buildMapping resolves an Opportunity's abstract sides to concrete
// dual-leg order legs.
func buildMapping(opp *types.Opportunity, pair types.MatchedPair) execution.Mapping {
	legA := execution.Leg{
		Venue:      types.VenueA,
		Side:       opp.SideA,
		Action:     types.ActionBuy,
		OutcomeID:  outcomeTokenID(pair.OutcomeA, opp.SideA),
		PriceCents: opp.PriceACents,
	}
	legB := execution.Leg{
		Venue:      types.VenueB,
		Side:       opp.SideB,
		Action:     types.ActionBuy,
		OutcomeID:  pair.OutcomeB.YesID,
		PriceCents: opp.PriceBCents,
	}
	return execution.Mapping{LegA: legA, LegB: legB}
}

func outcomeTokenID(o types.Outcome, side types.Side) string {
	if side == types.SideYes {
		return o.YesID
	}
	return o.NoID
}
