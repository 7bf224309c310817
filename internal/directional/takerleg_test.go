package directional

import (
	"testing"

	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestChooseTakerLegRejectsWhenBothEdgesNegative(t *testing.T) {
	t.Parallel()
	_, _, ok := chooseTakerLeg(d(0.60), d(0.60), d(0.59), d(0.59), d(1), d(1), decimal.Zero)
	if ok {
		t.Fatal("expected no leg to qualify when both edges are negative")
	}
}

func TestChooseTakerLegPicksTheOnlyQualifyingLeg(t *testing.T) {
	t.Parallel()
	// Up: 1 - (0.40 + 0.40) = 0.20 >= 0. Down: 1 - (0.61 + 0.61) = -0.22 < 0.
	leg, edge, ok := chooseTakerLeg(d(0.40), d(0.40), d(0.61), d(0.61), d(1), d(1), decimal.Zero)
	if !ok || leg != types.Up {
		t.Fatalf("expected Up to qualify alone, got leg=%v ok=%v", leg, ok)
	}
	if !edge.Equal(d(0.20)) {
		t.Errorf("expected edge 0.20, got %v", edge)
	}
}

func TestChooseTakerLegPrefersHeavierSizeFactorWhenBothQualify(t *testing.T) {
	t.Parallel()
	// Both edges qualify and are equal; size factors differ by >= 0.05.
	leg, _, ok := chooseTakerLeg(d(0.45), d(0.45), d(0.45), d(0.45), d(0.90), d(0.50), decimal.Zero)
	if !ok || leg != types.Up {
		t.Fatalf("expected the heavier size-factor leg (Up) to win, got leg=%v ok=%v", leg, ok)
	}
}

func TestChooseTakerLegPrefersLargerEdgeWhenFactorsClose(t *testing.T) {
	t.Parallel()
	// Size factors within 0.05 of each other: fall through to edge comparison.
	// The bids below give the two legs different edges.
	leg, _, ok := chooseTakerLeg(d(0.38), d(0.45), d(0.45), d(0.45), d(0.80), d(0.79), decimal.Zero)
	if !ok {
		t.Fatal("expected a leg to qualify")
	}
	// Up edge = 1-(0.38+0.45) = 0.17; Down edge = 1-(0.45+0.45) = 0.10.
	if leg != types.Up {
		t.Errorf("expected the larger-edge leg (Up) to win, got %v", leg)
	}
}

func TestChooseTakerLegTiebreaksTowardRebalancing(t *testing.T) {
	t.Parallel()
	// Identical edges and identical size factors: imbalance positive (Up-heavy)
	// should break the tie toward Down.
	leg, _, ok := chooseTakerLeg(d(0.40), d(0.40), d(0.40), d(0.40), d(1), d(1), d(10))
	if !ok || leg != types.Down {
		t.Fatalf("expected the tie to break toward Down (rebalancing an Up-heavy imbalance), got leg=%v ok=%v", leg, ok)
	}
}
