package orchestrator

import "github.com/arb-engine/predictionarb/pkg/types"

// Pairs returns a snapshot of the currently matched cross-venue pairs.
func (o *Orchestrator) Pairs() []types.MatchedPair {
	o.mu.RLock()
	defer o.mu.RUnlock()

	pairs := make([]types.MatchedPair, len(o.pairs))
	copy(pairs, o.pairs)
	return pairs
}

// Positions returns a snapshot of currently open positions.
func (o *Orchestrator) Positions() []*types.Position {
	o.mu.RLock()
	defer o.mu.RUnlock()

	positions := make([]*types.Position, 0, len(o.positions))
	for _, pos := range o.positions {
		positions = append(positions, pos)
	}
	return positions
}
