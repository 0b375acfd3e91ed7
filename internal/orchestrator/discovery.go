package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/pkg/types"
)

// refreshMarkets re-queries both venues' active-market catalogs, updates
// the tracked outcome sets, drops expired markets and positions for them,
// and re-matches the surviving outcomes.
func (o *Orchestrator) refreshMarkets(ctx context.Context) {
	outcomesA, err := o.venueA.FetchActiveMarkets(ctx, o.cfg.DiscoveryLimit)
	if err != nil {
		o.logger.Error("venue-a-discovery-failed", zap.Error(err))
		outcomesA = nil
	}
	outcomesB, err := o.venueB.FetchActiveMarkets(ctx)
	if err != nil {
		o.logger.Error("venue-b-discovery-failed", zap.Error(err))
		outcomesB = nil
	}

	outcomesA = filterByDuration(outcomesA, o.cfg.MaxMarketDuration)
	sortOutcomesDeterministically(outcomesA)

	pairs := o.matcher.Match(outcomesA, outcomesB)

	o.mu.Lock()
	newA := make(map[string]types.Outcome, len(outcomesA))
	for _, oc := range outcomesA {
		newA[oc.YesID] = oc
	}
	newB := make(map[string]types.Outcome, len(outcomesB))
	for _, oc := range outcomesB {
		newB[oc.YesID] = oc
	}

	validKeys := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		validKeys[p.Key()] = true
	}
	for key, pos := range o.positions {
		if !validKeys[key] {
			o.logger.Warn("position-market-expired", zap.String("market", key))
			delete(o.positions, key)
			_ = pos
		}
	}

	o.outcomesA = newA
	o.outcomesB = newB
	o.pairs = pairs
	o.mu.Unlock()

	MarketsTracked.WithLabelValues("venue_a").Set(float64(len(outcomesA)))
	MarketsTracked.WithLabelValues("venue_b").Set(float64(len(outcomesB)))
	PairsMatched.Set(float64(len(pairs)))

	o.logger.Info("markets-refreshed",
		zap.Int("venue-a-count", len(outcomesA)),
		zap.Int("venue-b-count", len(outcomesB)),
		zap.Int("matched-pairs", len(pairs)))

	if o.stream != nil {
		o.subscribeStream(ctx)
	}
}

func filterByDuration(outcomes []types.Outcome, maxDuration time.Duration) []types.Outcome {
	if maxDuration <= 0 {
		return outcomes
	}
	// Venue A's wire model carries no explicit expiry field at this layer
	// (only documents slug/conditionId/question/prices);
	// duration filtering is therefore a pass-through placeholder until a
	// market-close-time field is added to the discovery payload.
	return outcomes
}

func sortOutcomesDeterministically(outcomes []types.Outcome) {
	// Pre-sort by (marketId, outcomeTitle) so Matcher.Match produces a
	// stable pairing across restarts, decided in favor of determinism
	// over raw API ordering.
	for i := 1; i < len(outcomes); i++ {
		for j := i; j > 0; j-- {
			a, b := outcomes[j-1], outcomes[j]
			if a.MarketID < b.MarketID || (a.MarketID == b.MarketID && a.OutcomeTitle <= b.OutcomeTitle) {
				break
			}
			outcomes[j-1], outcomes[j] = outcomes[j], outcomes[j-1]
		}
	}
}
