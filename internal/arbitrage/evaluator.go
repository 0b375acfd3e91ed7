package arbitrage

import (
	"fmt"
	"time"

	"github.com/arb-engine/predictionarb/internal/pricing"
	"github.com/arb-engine/predictionarb/pkg/types"
)

// EvaluateCrossVenue checks a matched pair for an S1/S2 complementary-side
// opportunity: buying sideA on the pair's venue-A outcome and sideB on its
// venue-B outcome. sideA and sideB must be opposite (enforced here, not
// left to caller discipline) — S1 is YES@A + NO@B, S2 is NO@A + YES@B.
//
// An opportunity is returned only when the net profit (gross spread minus
// feeConstCents) clears minProfitCents and both leg prices are strictly
// above minPriceThresholdCents, the dust filter. A nil, nil result means
// no opportunity; a non-nil error means the caller passed same-side legs.
func EvaluateCrossVenue(
	pair types.MatchedPair,
	sideA, sideB types.Side,
	minProfitCents, minPriceThresholdCents int,
	feeConstCents float64,
) (*types.Opportunity, error) {
	if sideA == sideB {
		return nil, fmt.Errorf("cross-venue evaluation requires complementary sides, got %s/%s", sideA, sideB)
	}

	priceA := priceForSide(pair.OutcomeA, sideA)
	priceB := priceForSide(pair.OutcomeB, sideB)

	if priceA <= minPriceThresholdCents || priceB <= minPriceThresholdCents {
		OpportunitiesRejectedTotal.WithLabelValues("below_price_floor").Inc()
		return nil, nil
	}

	strategy := types.StrategyS2
	if sideA == types.SideYes {
		strategy = types.StrategyS1
	}

	grossSpread := 100 - priceA - priceB
	netProfit := float64(grossSpread) - feeConstCents

	if netProfit < float64(minProfitCents) {
		OpportunitiesRejectedTotal.WithLabelValues("below_min_profit").Inc()
		return nil, nil
	}

	volume := pair.OutcomeA.VolumeUSD
	if pair.OutcomeB.VolumeUSD < volume {
		volume = pair.OutcomeB.VolumeUSD
	}

	opp := &types.Opportunity{
		Name:             pair.Key(),
		Strategy:         strategy,
		SideA:            sideA,
		SideB:            sideB,
		PriceACents:      priceA,
		PriceBCents:      priceB,
		GrossSpreadCents: grossSpread,
		FeesCents:        feeConstCents,
		NetProfitCents:   netProfit,
		TotalCostCents:   priceA + priceB,
		TotalVolumeUSD:   volume,
		DetectedAt:       time.Now(),
	}

	OpportunitiesDetectedTotal.WithLabelValues(string(strategy)).Inc()
	NetProfitCents.Observe(netProfit)

	return opp, nil
}

func priceForSide(o types.Outcome, side types.Side) int {
	if side == types.SideYes {
		return o.YesPriceCents
	}
	return o.NoPriceCents
}

// EvaluateSameMarket checks a single venue's own binary market for an SM
// opportunity: buying YES and NO on the same market. Both ask ladders are
// walked for orderSize shares; if either walk cannot fill orderSize the
// market is skipped (pricing.ErrInsufficientLiquidity, not an error to the
// caller since it's an expected, frequent condition). The pair is emitted
// only if pairCost < targetPairCost and the net profit after both-side
// venue-A taker fees is strictly positive.
func EvaluateSameMarket(
	venue types.Venue,
	marketID string,
	yesAsks, noAsks []types.PriceLevel,
	orderSize, targetPairCost float64,
) (*types.Opportunity, error) {
	yesFill, err := pricing.ComputeBuyFill(yesAsks, orderSize)
	if err != nil {
		OpportunitiesRejectedTotal.WithLabelValues("insufficient_liquidity").Inc()
		return nil, nil
	}
	noFill, err := pricing.ComputeBuyFill(noAsks, orderSize)
	if err != nil {
		OpportunitiesRejectedTotal.WithLabelValues("insufficient_liquidity").Inc()
		return nil, nil
	}

	pairCost := yesFill.VWAPDec + noFill.VWAPDec
	if pairCost >= targetPairCost {
		OpportunitiesRejectedTotal.WithLabelValues("pair_cost_above_target").Inc()
		return nil, nil
	}

	var fee float64
	if venue == types.VenueA {
		fee = pricing.CalcSameMarketFee(yesFill.VWAPDec, noFill.VWAPDec, orderSize)
	}

	grossProfit := (1 - pairCost) * orderSize
	netProfit := grossProfit - fee
	if netProfit <= 0 {
		OpportunitiesRejectedTotal.WithLabelValues("not_profitable_after_fees").Inc()
		return nil, nil
	}

	netProfitCents := netProfit * 100

	opp := &types.Opportunity{
		Name:             marketID,
		Strategy:         types.StrategySameMarket,
		SideA:            types.SideYes,
		SideB:            types.SideNo,
		PriceACents:      types.DecimalToCents(yesFill.VWAPDec),
		PriceBCents:      types.DecimalToCents(noFill.VWAPDec),
		GrossSpreadCents: types.DecimalToCents(1 - pairCost),
		FeesCents:        fee * 100,
		NetProfitCents:   netProfitCents,
		TotalCostCents:   types.DecimalToCents(pairCost),
		Contracts:        orderSize,
		TotalVolumeUSD:   0,
		DetectedAt:       time.Now(),
	}

	OpportunitiesDetectedTotal.WithLabelValues(string(types.StrategySameMarket)).Inc()
	NetProfitCents.Observe(netProfitCents)

	return opp, nil
}
