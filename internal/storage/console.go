package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/pkg/types"
)

// ConsoleStorage implements Storage by pretty-printing to console. State
// mutations (trades, near-misses, portfolio state, daily stats) are also
// logged through zap so nothing is silently dropped in console mode.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{logger: logger}
}

// StoreOpportunity pretty-prints an arbitrage opportunity to console.
func (c *ConsoleStorage) StoreOpportunity(ctx context.Context, opp *types.Opportunity) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ARBITRAGE OPPORTUNITY DETECTED\n")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Name:     %s\n", opp.Name)
	fmt.Printf("Strategy: %s\n", opp.Strategy)
	fmt.Printf("Time:     %s\n", opp.DetectedAt.Format("2006-01-02 15:04:05"))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Side A (%s): %d cents\n", opp.SideA, opp.PriceACents)
	fmt.Printf("  Side B (%s): %d cents\n", opp.SideB, opp.PriceBCents)
	fmt.Printf("  ───────────────────────────────\n")
	fmt.Printf("  Total Cost:   %d cents\n", opp.TotalCostCents)
	fmt.Printf("  Gross Spread: %d cents\n", opp.GrossSpreadCents)
	fmt.Printf("  Fees:         %.2f cents\n", opp.FeesCents)
	fmt.Printf("  Net Profit:   %.2f cents\n", opp.NetProfitCents)
	if opp.NetProfitCents > 0 {
		fmt.Printf("  ✓ PROFITABLE after fees!\n")
	} else {
		fmt.Printf("  ✗ NOT profitable after fees\n")
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// StoreTrade logs a trade record.
func (c *ConsoleStorage) StoreTrade(ctx context.Context, trade *Trade) error {
	c.logger.Info("trade-recorded",
		zap.String("name", trade.Name),
		zap.String("strategy", string(trade.Strategy)),
		zap.Float64("actual-net", trade.ActualNet))
	return nil
}

// StoreNearMiss logs a near-miss.
func (c *ConsoleStorage) StoreNearMiss(ctx context.Context, nm *NearMiss) error {
	c.logger.Debug("near-miss-recorded",
		zap.String("name", nm.Name),
		zap.String("reason", nm.Reason))
	return nil
}

// SetPortfolioState is a no-op for console storage; logged only.
func (c *ConsoleStorage) SetPortfolioState(ctx context.Context, key string, jsonValue string) error {
	c.logger.Debug("portfolio-state-set", zap.String("key", key))
	return nil
}

// GetPortfolioState always misses for console storage.
func (c *ConsoleStorage) GetPortfolioState(ctx context.Context, key string) (string, error) {
	return "", nil
}

// UpsertDailyStats logs the day's stats.
func (c *ConsoleStorage) UpsertDailyStats(ctx context.Context, stats *DailyStats) error {
	c.logger.Info("daily-stats-updated",
		zap.String("date", stats.Date),
		zap.Int("trades", stats.TradesCount),
		zap.Float64("pnl-cents", stats.TotalPnLCents))
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
