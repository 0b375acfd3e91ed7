// Package storage persists trades, near-misses, portfolio state, and daily
// stats. It is a collaborator only: no core component (matching, pricing,
// arbitrage, execution) depends on it directly — each depends on its own
// narrow Storage interface, satisfied here by duck typing.
package storage

import (
	"context"

	"github.com/arb-engine/predictionarb/pkg/types"
)

// Trade is a persisted record of an executed (or dry-run) opportunity.
type Trade struct {
	ID             string
	Name           string
	Type           string
	Strategy       types.Strategy
	SideA          types.Side
	SideB          types.Side
	PriceACents    int
	PriceBCents    int
	Contracts      float64
	TotalCostCents int
	GrossSpread    int
	FeesCents      float64
	ExpectedNet    float64
	ActualNet      float64
	EntryTime      int64 // unix millis
	ExitTime       int64 // unix millis, 0 if still open
	HoldMs         int64
	Payout         float64
	Timestamp      int64
}

// NearMiss is a logged opportunity that didn't clear execution thresholds.
type NearMiss struct {
	Name      string
	Strategy  types.Strategy
	Reason    string
	Timestamp int64
}

// DailyStats aggregates a single day's outcomes.
type DailyStats struct {
	Date          string // YYYY-MM-DD
	TradesCount   int
	WinsCount     int
	LossesCount   int
	TotalPnLCents float64
}

// Storage is the interface for persisting engine state.
type Storage interface {
	StoreOpportunity(ctx context.Context, opp *types.Opportunity) error
	StoreTrade(ctx context.Context, trade *Trade) error
	StoreNearMiss(ctx context.Context, nm *NearMiss) error
	SetPortfolioState(ctx context.Context, key string, jsonValue string) error
	GetPortfolioState(ctx context.Context, key string) (string, error)
	UpsertDailyStats(ctx context.Context, stats *DailyStats) error
	Close() error
}
