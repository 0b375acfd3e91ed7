// Package matching pairs outcomes across the two tracked venues by fuzzy
// title similarity, producing the one-to-one MatchedPair set the evaluator
// scans each cycle.
package matching

import (
	"github.com/arb-engine/predictionarb/internal/matching/similarity"
	"github.com/arb-engine/predictionarb/pkg/types"
)

// DefaultThreshold is the minimum combined similarity score a pair must
// clear to be matched.
const DefaultThreshold = 0.7

// Matcher pairs venue-A outcomes against venue-B outcomes by title
// similarity. It holds no state between rounds; every call to Match is
// independent, keyed entirely off its inputs.
type Matcher struct {
	Threshold float64
}

// New returns a Matcher using DefaultThreshold.
func New() *Matcher {
	return &Matcher{Threshold: DefaultThreshold}
}

// NewWithThreshold returns a Matcher using the given threshold.
func NewWithThreshold(threshold float64) *Matcher {
	return &Matcher{Threshold: threshold}
}

// Match pairs outcomes from venue A against outcomes from venue B.
//
// Algorithm: for each A-outcome in input order, scan the
// still-unpaired B-outcomes, compute the combined similarity score against
// each, and keep the argmax if it clears the threshold; the chosen
// B-outcome is then consumed so later A-outcomes cannot also match it.
// This is greedy and deterministic, not globally optimal: stability across
// rounds matters more than finding the single best global assignment,
// because the outcome set is small and turns over continuously. Ties in
// the inner scan resolve to the first candidate encountered.
//
// Callers that need deterministic pairing across restarts should pre-sort
// outcomesA (e.g. by MarketID then OutcomeTitle) before calling Match; the
// matcher itself does not sort its input.
func (m *Matcher) Match(outcomesA, outcomesB []types.Outcome) []types.MatchedPair {
	threshold := m.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	consumed := make([]bool, len(outcomesB))
	pairs := make([]types.MatchedPair, 0, len(outcomesA))

	for _, a := range outcomesA {
		bestIdx := -1
		bestScore := -1.0

		for j, b := range outcomesB {
			if consumed[j] {
				continue
			}
			score := similarity.Combined(a.OutcomeTitle, b.OutcomeTitle)
			if score > bestScore {
				bestScore = score
				bestIdx = j
			}
		}

		if bestIdx == -1 || bestScore < threshold {
			continue
		}

		consumed[bestIdx] = true
		pairs = append(pairs, types.MatchedPair{
			OutcomeA:   a,
			OutcomeB:   outcomesB[bestIdx],
			Similarity: bestScore,
		})
	}

	return pairs
}
