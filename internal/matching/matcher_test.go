package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arb-engine/predictionarb/pkg/types"
)

func outcome(venue types.Venue, marketID, title string) types.Outcome {
	return types.Outcome{Venue: venue, MarketID: marketID, OutcomeTitle: title}
}

func TestMatchOneToOneInvariant(t *testing.T) {
	a := []types.Outcome{
		outcome(types.VenueA, "a1", "will the fed cut rates in march"),
		outcome(types.VenueA, "a2", "will bitcoin close above 100k"),
	}
	b := []types.Outcome{
		outcome(types.VenueB, "b1", "will the fed cut rates in march"),
		outcome(types.VenueB, "b2", "will bitcoin close above 100000"),
	}

	pairs := New().Match(a, b)
	require.Len(t, pairs, 2)

	seenA := map[string]bool{}
	seenB := map[string]bool{}
	for _, p := range pairs {
		assert.False(t, seenA[p.OutcomeA.MarketID], "outcome A matched twice")
		assert.False(t, seenB[p.OutcomeB.MarketID], "outcome B matched twice")
		seenA[p.OutcomeA.MarketID] = true
		seenB[p.OutcomeB.MarketID] = true
		assert.GreaterOrEqual(t, p.Similarity, DefaultThreshold)
	}
}

func TestMatchBelowThresholdSkipped(t *testing.T) {
	a := []types.Outcome{outcome(types.VenueA, "a1", "will the packers win the super bowl")}
	b := []types.Outcome{outcome(types.VenueB, "b1", "will it rain in tokyo tomorrow")}

	pairs := New().Match(a, b)
	assert.Empty(t, pairs)
}

func TestMatchIdempotent(t *testing.T) {
	a := []types.Outcome{
		outcome(types.VenueA, "a1", "will trump win the election"),
		outcome(types.VenueA, "a2", "will biden win the election"),
	}
	b := []types.Outcome{
		outcome(types.VenueB, "b1", "will biden win the election"),
		outcome(types.VenueB, "b2", "will trump win the election"),
	}

	m := New()
	first := m.Match(a, b)
	second := m.Match(a, b)

	require.Len(t, first, len(second))
	for i := range first {
		assert.Equal(t, first[i].OutcomeA.MarketID, second[i].OutcomeA.MarketID)
		assert.Equal(t, first[i].OutcomeB.MarketID, second[i].OutcomeB.MarketID)
	}
}

func TestMatchGreedyConsumesFirstArgmax(t *testing.T) {
	// Both A-outcomes prefer the same B-outcome; the first A in input
	// order should claim it, the second should fall back or go unmatched.
	a := []types.Outcome{
		outcome(types.VenueA, "a1", "will the fed raise rates"),
		outcome(types.VenueA, "a2", "will the fed raise rates in june"),
	}
	b := []types.Outcome{
		outcome(types.VenueB, "b1", "will the fed raise rates"),
	}

	pairs := New().Match(a, b)
	require.Len(t, pairs, 1)
	assert.Equal(t, "a1", pairs[0].OutcomeA.MarketID)
	assert.Equal(t, "b1", pairs[0].OutcomeB.MarketID)
}

func TestMatchEmptyInputs(t *testing.T) {
	assert.Empty(t, New().Match(nil, nil))
	assert.Empty(t, New().Match([]types.Outcome{outcome(types.VenueA, "a1", "x")}, nil))
}

func TestMatchCustomThreshold(t *testing.T) {
	a := []types.Outcome{outcome(types.VenueA, "a1", "foo bar baz")}
	b := []types.Outcome{outcome(types.VenueB, "b1", "foo qux zzz")}

	strict := NewWithThreshold(0.9)
	assert.Empty(t, strict.Match(a, b))

	loose := NewWithThreshold(0.1)
	assert.Len(t, loose.Match(a, b), 1)
}
