package directional

import (
	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

// priceLevelRange holds the [min, max) skew factor range for a bid bucket;
// the actual factor is a uniform draw within the range rather than a single
// fixed value.
type priceLevelRange struct {
	min, max float64
}

// priceLevelFactor maps the bid price to its bucket's skew factor range.
func priceLevelFactor(bid decimal.Decimal, rs randSource) float64 {
	b, _ := bid.Float64()

	var r priceLevelRange
	switch {
	case b < 0.30:
		r = priceLevelRange{0.70, 0.80}
	case b < 0.40:
		r = priceLevelRange{0.72, 0.82}
	case b < 0.50:
		r = priceLevelRange{0.80, 0.90}
	case b < 0.60:
		r = priceLevelRange{0.85, 0.95}
	default:
		r = priceLevelRange{1.00, 1.20}
	}
	return r.min + rs.Float64()*(r.max-r.min)
}

// momentumFactor is the momentum component for one leg, given the Up-leg
// trend: UP_RISING backs the Down leg off, UP_FALLING backs the Up leg off,
// NEUTRAL leaves both at 1.0.
func momentumFactor(leg types.Leg, trend Trend, rs randSource) float64 {
	lo, hi := 0.55, 0.65
	switch trend {
	case TrendUpRising:
		if leg == types.Down {
			return lo + rs.Float64()*(hi-lo)
		}
	case TrendUpFalling:
		if leg == types.Up {
			return lo + rs.Float64()*(hi-lo)
		}
	}
	return 1.0
}

// sizeSkewFactor combines the price-level and momentum factors for one leg
// into the final multiplier fed to quote.Inputs.SizeSkewFactor.
func sizeSkewFactor(leg types.Leg, bid decimal.Decimal, trend Trend, rs randSource) decimal.Decimal {
	f := priceLevelFactor(bid, rs) * momentumFactor(leg, trend, rs)
	return decimal.NewFromFloat(f)
}

// quoteProbLagging runs a per-tick Bernoulli deciding whether to quote the
// lagging leg at all once its size factor has been reduced below 1.0; a
// fail skips quoting that leg this tick.
func quoteProbLagging(sizeFactor decimal.Decimal, rs randSource) bool {
	one := decimal.NewFromInt(1)
	if sizeFactor.GreaterThanOrEqual(one) {
		return true
	}
	return bernoulli(rs, 0.95)
}
