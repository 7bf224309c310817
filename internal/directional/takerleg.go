package directional

import (
	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

// chooseTakerLeg computes the edge of taking each leg at
// its opposing ask against the other leg's current bid, require the chosen
// leg's edge to be non-negative, prefer the heavier size-factor leg when
// both qualify and the factors differ by at least 0.05, otherwise the
// larger edge, ties broken toward the leg that reduces |imbalance|.
func chooseTakerLeg(askUp, bidDown, bidUp, askDown decimal.Decimal, sizeFactorUp, sizeFactorDown decimal.Decimal, imbalance decimal.Decimal) (types.Leg, decimal.Decimal, bool) {
	one := decimal.NewFromInt(1)
	edgeTakeUp := one.Sub(askUp.Add(bidDown))
	edgeTakeDown := one.Sub(bidUp.Add(askDown))

	upOK := edgeTakeUp.GreaterThanOrEqual(decimal.Zero)
	downOK := edgeTakeDown.GreaterThanOrEqual(decimal.Zero)

	switch {
	case upOK && !downOK:
		return types.Up, edgeTakeUp, true
	case downOK && !upOK:
		return types.Down, edgeTakeDown, true
	case !upOK && !downOK:
		return "", decimal.Zero, false
	}

	factorDelta := sizeFactorUp.Sub(sizeFactorDown).Abs()
	if factorDelta.GreaterThanOrEqual(decimal.NewFromFloat(0.05)) {
		if sizeFactorUp.GreaterThan(sizeFactorDown) {
			return types.Up, edgeTakeUp, true
		}
		return types.Down, edgeTakeDown, true
	}

	if !edgeTakeUp.Equal(edgeTakeDown) {
		if edgeTakeUp.GreaterThan(edgeTakeDown) {
			return types.Up, edgeTakeUp, true
		}
		return types.Down, edgeTakeDown, true
	}

	// Edges tied: prefer the leg that reduces the current imbalance.
	if imbalance.IsPositive() {
		return types.Down, edgeTakeDown, true // Up-heavy: taking Down rebalances
	}
	if imbalance.IsNegative() {
		return types.Up, edgeTakeUp, true
	}
	return types.Up, edgeTakeUp, true
}
