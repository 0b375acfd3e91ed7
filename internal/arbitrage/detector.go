package arbitrage

import (
	"context"

	"go.uber.org/zap"

	"github.com/arb-engine/predictionarb/pkg/types"
)

// Storage is the interface for persisting detected opportunities.
type Storage interface {
	StoreOpportunity(ctx context.Context, opp *types.Opportunity) error
	Close() error
}

// Config holds evaluator configuration (trading-surface
// keys that bear directly on opportunity evaluation).
type Config struct {
	MinProfitCents         int
	MinPriceThresholdCents int
	FeeConstCents          float64
	TargetPairCost         float64
	Logger                 *zap.Logger
}

// Detector evaluates matched pairs and same-market ladders for arbitrage,
// persisting and surfacing whatever it finds. It holds no scan loop of its
// own — internal/orchestrator drives when evaluation happens.
type Detector struct {
	config  Config
	logger  *zap.Logger
	storage Storage
}

// New creates a new arbitrage Detector.
func New(cfg Config, storage Storage) *Detector {
	return &Detector{
		config:  cfg,
		logger:  cfg.Logger,
		storage: storage,
	}
}

// EvaluateCrossVenuePair evaluates one matched pair for an S1/S2
// opportunity and, if found, stores and returns it.
func (d *Detector) EvaluateCrossVenuePair(ctx context.Context, pair types.MatchedPair, sideA, sideB types.Side) (*types.Opportunity, error) {
	opp, err := EvaluateCrossVenue(pair, sideA, sideB, d.config.MinProfitCents, d.config.MinPriceThresholdCents, d.config.FeeConstCents)
	if err != nil {
		d.logger.Warn("cross-venue-evaluation-rejected", zap.Error(err), zap.String("pair", pair.Key()))
		return nil, err
	}
	if opp == nil {
		return nil, nil
	}
	return d.storeAndLog(ctx, opp)
}

// EvaluateSameMarketOutcome evaluates one venue's own binary market for an
// SM opportunity and, if found, stores and returns it.
func (d *Detector) EvaluateSameMarketOutcome(ctx context.Context, venue types.Venue, marketID string, yesAsks, noAsks []types.PriceLevel, orderSize float64) (*types.Opportunity, error) {
	targetPairCost := d.config.TargetPairCost
	if targetPairCost <= 0 {
		targetPairCost = 0.97
	}

	opp, err := EvaluateSameMarket(venue, marketID, yesAsks, noAsks, orderSize, targetPairCost)
	if err != nil || opp == nil {
		return nil, err
	}
	return d.storeAndLog(ctx, opp)
}

// StoreSettlementLag records an observation-only settlement_lag
// opportunity surfaced by the resolution watcher's optional sub-loop. It
// never runs profit evaluation — the caller has already decided the
// opportunity is worth logging.
func (d *Detector) StoreSettlementLag(ctx context.Context, opp *types.Opportunity) (*types.Opportunity, error) {
	return d.storeAndLog(ctx, opp)
}

func (d *Detector) storeAndLog(ctx context.Context, opp *types.Opportunity) (*types.Opportunity, error) {
	if err := d.storage.StoreOpportunity(ctx, opp); err != nil {
		d.logger.Error("failed-to-store-opportunity", zap.String("name", opp.Name), zap.Error(err))
	}

	d.logger.Info("arbitrage-opportunity-detected",
		zap.String("name", opp.Name),
		zap.String("strategy", string(opp.Strategy)),
		zap.Float64("net-profit-cents", opp.NetProfitCents),
		zap.Int("total-cost-cents", opp.TotalCostCents))

	return opp, nil
}
