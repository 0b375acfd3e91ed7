// Package pricing implements the order-book walker and fee model shared by
// the cross-venue and same-market arbitrage evaluators.
package pricing

import (
	"errors"
	"math"
	"sort"

	"github.com/arb-engine/predictionarb/pkg/types"
)

// ErrInsufficientLiquidity is returned by ComputeBuyFill when the ask
// ladder cannot cover the requested target size. Callers must treat this
// as a skip, never as grounds for a partial order.
var ErrInsufficientLiquidity = errors.New("insufficient liquidity to fill target size")

// ComputeBuyFill walks a buy-side ask ladder and reports the VWAP cost to
// fill targetSize shares. Non-finite or non-positive levels are discarded
// before walking. The ladder is sorted ascending by price before the walk,
// so callers may pass asks in any order.
func ComputeBuyFill(asks []types.PriceLevel, targetSize float64) (types.Fill, error) {
	if targetSize <= 0 {
		return types.Fill{}, errors.New("target size must be positive")
	}

	clean := make([]types.PriceLevel, 0, len(asks))
	for _, lvl := range asks {
		if !isFinitePositive(lvl.Price) || !isFinitePositive(lvl.Size) {
			continue
		}
		clean = append(clean, lvl)
	}

	sort.Slice(clean, func(i, j int) bool { return clean[i].Price < clean[j].Price })

	var totalCost, filled float64
	var bestPrice, worstPrice float64

	for _, lvl := range clean {
		if filled >= targetSize {
			break
		}
		remaining := targetSize - filled
		take := lvl.Size
		if take > remaining {
			take = remaining
		}

		if filled == 0 {
			bestPrice = lvl.Price
		}
		worstPrice = lvl.Price

		totalCost += take * lvl.Price
		filled += take
	}

	if filled < targetSize {
		return types.Fill{}, ErrInsufficientLiquidity
	}

	return types.Fill{
		TotalCostDollars: totalCost,
		VWAPDec:          totalCost / targetSize,
		WorstPriceDec:    worstPrice,
		BestPriceDec:     bestPrice,
		Filled:           filled,
	}, nil
}

func isFinitePositive(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}
