package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/pkg/types"
)

// resolutionLoop is the orchestrator's optional sub-loop: every
// checkInterval (default 5 min), scan recently-closed venue-A markets for
// settlement lag — a side whose price has not yet drifted to 0 or 1 even
// though the market has an "obvious winner". This is observation-only: it
// never calls the executor.
func (o *Orchestrator) resolutionLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.ResolutionCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.checkResolutions(ctx)
		}
	}
}

// checkResolutions scans markets that have actually settled, not the
// active-market cache: a market still in o.outcomesA has not resolved and
// can never trip the settlement-lag signature below.
func (o *Orchestrator) checkResolutions(ctx context.Context) {
	outcomes, err := o.venueA.FetchClosedMarkets(ctx, o.cfg.DiscoveryLimit)
	if err != nil {
		o.logger.Error("venue-a-closed-markets-fetch-failed", zap.Error(err))
		return
	}

	for _, oc := range outcomes {
		winnerCents, laggingCents, hasLag := settlementLag(oc)
		if !hasLag {
			continue
		}

		netProfitCents := float64(100 - winnerCents - laggingCents)
		if netProfitCents < float64(o.cfg.MinProfitCents) {
			continue
		}

		opp := &types.Opportunity{
			Name:           oc.MarketID,
			Strategy:       types.StrategySettlementLag,
			NetProfitCents: netProfitCents,
			DetectedAt:     time.Now(),
		}

		if _, err := o.detector.StoreSettlementLag(ctx, opp); err != nil {
			o.logger.Debug("settlement-lag-store-failed", zap.String("market", oc.MarketID), zap.Error(err))
		}

		o.logger.Info("settlement-lag-detected",
			zap.String("market", oc.MarketID),
			zap.Float64("net-profit-cents", opp.NetProfitCents))
	}
}

// settlementLag reports whether one side of a binary market has settled
// to an obvious winner (price within 1 cent of 100) while the other side
// has not yet drifted down to 0, the textbook settlement-lag signature.
func settlementLag(oc types.Outcome) (winnerCents, laggingCents int, hasLag bool) {
	switch {
	case oc.YesPriceCents >= 99 && oc.NoPriceCents > 1:
		return oc.YesPriceCents, oc.NoPriceCents, true
	case oc.NoPriceCents >= 99 && oc.YesPriceCents > 1:
		return oc.NoPriceCents, oc.YesPriceCents, true
	default:
		return 0, 0, false
	}
}
