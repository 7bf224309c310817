package directional

import (
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

// fastTopUpInputs decides, on a single-leg fill imbalance, whether to take
// the lagging leg now rather than wait for a maker fill.
// leadLeg is the heavier (over-filled) leg; lagLeg is the leg needing a
// top-up. now-leadFillAt is "time since the leading leg filled", observed
// from the lagging leg's perspective.
type fastTopUpInputs struct {
	Imbalance     decimal.Decimal
	LeadLeg       types.Leg
	LeadFillAt    time.Time
	LeadFillPrice decimal.Decimal
	LagFillAt     time.Time
	LagAsk        decimal.Decimal
	LagSpread     decimal.Decimal
	LastTopUpAt   time.Time
	Now           time.Time

	MinShares            decimal.Decimal
	CooldownMillis       int
	MinSecondsAfterFill  int
	MaxSecondsAfterFill  int
	TakerMaxSpread       decimal.Decimal
	MinEdge              decimal.Decimal
}

func (in fastTopUpInputs) trigger() bool {
	if in.Imbalance.Abs().LessThan(in.MinShares) {
		return false
	}

	cooldown := time.Duration(in.CooldownMillis) * time.Millisecond
	if !in.LastTopUpAt.IsZero() && in.Now.Sub(in.LastTopUpAt) < cooldown {
		return false
	}

	sinceLead := in.Now.Sub(in.LeadFillAt)
	minWindow := time.Duration(in.MinSecondsAfterFill) * time.Second
	maxWindow := time.Duration(in.MaxSecondsAfterFill) * time.Second
	if sinceLead < minWindow || sinceLead > maxWindow {
		return false
	}

	if in.LagFillAt.After(in.LeadFillAt) {
		return false // lagging leg actually filled more recently: no longer lagging
	}

	if in.LagSpread.GreaterThan(in.TakerMaxSpread) {
		return false
	}

	combinedEdge := decimal.NewFromInt(1).Sub(in.LeadFillPrice.Add(in.LagAsk))
	return combinedEdge.GreaterThanOrEqual(in.MinEdge)
}

// fastTopUpSize is the trigger size: |imbalance| × fraction, before the
// quote calculator's bankroll/risk caps are applied.
func fastTopUpSize(imbalance, fraction decimal.Decimal) decimal.Decimal {
	return imbalance.Abs().Mul(fraction)
}

// nearEndTopUpTrigger fires a top-up once the market is close enough to
// expiry and the residual imbalance is still above the minimum.
func nearEndTopUpTrigger(secondsToEnd int, cfgSecondsToEnd int, imbalance, minShares decimal.Decimal) bool {
	if secondsToEnd > cfgSecondsToEnd {
		return false
	}
	return imbalance.Abs().GreaterThanOrEqual(minShares)
}
