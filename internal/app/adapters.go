package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/arb-engine/predictionarb/internal/venueA"
	"github.com/arb-engine/predictionarb/internal/venueB"
	"github.com/arb-engine/predictionarb/pkg/types"
	"github.com/arb-engine/predictionarb/pkg/wallet"
)

// venueABookAdapter bridges internal/venueA.Client's native
// FetchBook(ctx, tokenID) to execution.BookFetcher's venue-qualified
// signature. Venue A identifies YES and NO with distinct token IDs, so the
// outcomeID alone is already side-specific and venue is unused here.
type venueABookAdapter struct {
	client *venueA.Client
}

func (a venueABookAdapter) FetchBook(ctx context.Context, _ types.Venue, outcomeID string) (types.OrderBook, error) {
	return a.client.FetchBook(ctx, outcomeID)
}

// venueBBookAdapter bridges internal/venueB.Client's native
// FetchBook(ctx, outcomeID, side) to execution.BookFetcher. Venue B shares
// one ticker across both sides of a market, so the side must come from
// somewhere other than the interface's arguments; the liquidity probe only
// needs an approximate depth figure, so this always probes the YES side as
// a stand-in for the market's overall top-of-book depth.
type venueBBookAdapter struct {
	client *venueB.Client
}

func (a venueBBookAdapter) FetchBook(ctx context.Context, _ types.Venue, outcomeID string) (types.OrderBook, error) {
	return a.client.FetchBook(ctx, outcomeID, types.SideYes)
}

// venueABalanceAdapter bridges pkg/wallet.Client's on-chain balance lookup
// to circuitbreaker.BalanceFetcher, reporting tradable USDC in dollars.
type venueABalanceAdapter struct {
	wallet  *wallet.Client
	address common.Address
}

func (a venueABalanceAdapter) GetBalance(ctx context.Context) (float64, error) {
	balances, err := a.wallet.GetBalances(ctx, a.address)
	if err != nil {
		return 0, err
	}
	// USDC is a 6-decimal token; divide down to dollars.
	usdc := new(big.Float).SetInt(balances.USDC)
	usdc.Quo(usdc, big.NewFloat(1_000_000))
	dollars, _ := usdc.Float64()
	return dollars, nil
}
