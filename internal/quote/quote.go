// Package quote implements the Quote Calculator (C6): tick-quantized entry
// price and risk-capped size for one leg of a directional quote.
//
// Tick-rounding helpers, size-factor application, and risk-budget capping,
// written with shopspring/decimal throughout so the maker-price invariant
// (never cross, always an exact multiple of tickSize) holds without float
// rounding.
package quote

import (
	"github.com/shopspring/decimal"

	"polymarket-mm/internal/config"
	"polymarket-mm/pkg/types"
)

// Inputs bundles everything the calculator needs for one leg.
type Inputs struct {
	Side            types.Side
	BestBid         decimal.Decimal
	BestAsk         decimal.Decimal
	TickSize        decimal.Decimal
	SkewTicks       int // signed, negative pulls back from the bid/ask
	ImproveTicks    int // signed, teeth above best bid (or below best ask)
	QuoteSizeBase   decimal.Decimal
	DynamicSizingMultiplier decimal.Decimal
	SizeSkewFactor  decimal.Decimal
	Bankroll        decimal.Decimal
	CurrentExposure decimal.Decimal // shares × price, across the book, denominated in USD
	Risk            config.RiskConfig
}

// Quote is the calculator's output for one leg; Size.IsZero() means "no
// quote" (size rounded below 0.01).
type Quote struct {
	Price decimal.Decimal
	Size  decimal.Decimal
	NoQuote bool
}

// Compute derives the tick-quantized maker price and risk-capped size for
// one leg.
func Compute(in Inputs) Quote {
	price := entryPrice(in)
	if price.IsZero() || price.IsNegative() {
		return Quote{NoQuote: true}
	}

	size := computeSize(in, price)
	size = size.Truncate(2)
	if size.LessThan(decimal.NewFromFloat(0.01)) {
		return Quote{NoQuote: true}
	}

	return Quote{Price: price, Size: size}
}

// entryPrice computes the tick-quantized maker price: BUY floors to a
// tick at bestBid+skew+improve but never crosses the ask; SELL is the mirror.
func entryPrice(in Inputs) decimal.Decimal {
	tick := in.TickSize
	offset := tick.Mul(decimal.NewFromInt(int64(in.SkewTicks + in.ImproveTicks)))

	if in.Side == types.BUY {
		raw := in.BestBid.Add(offset)
		price := floorToTick(raw, tick)
		maxPrice := in.BestAsk.Sub(tick)
		if price.GreaterThanOrEqual(in.BestAsk) {
			price = maxPrice
		}
		if price.IsNegative() {
			return decimal.Zero
		}
		return price
	}

	raw := in.BestAsk.Sub(offset)
	price := ceilingToTick(raw, tick)
	minPrice := in.BestBid.Add(tick)
	if price.LessThanOrEqual(in.BestBid) {
		price = minPrice
	}
	return price
}

// computeSize runs the five-step sizing cascade: base shares scaled by
// dynamic sizing and size-skew, then capped by risk.
func computeSize(in Inputs, price decimal.Decimal) decimal.Decimal {
	sizeSkew := in.SizeSkewFactor
	if sizeSkew.IsZero() {
		sizeSkew = decimal.NewFromInt(1)
	}
	dynMult := in.DynamicSizingMultiplier
	if dynMult.IsZero() {
		dynMult = decimal.NewFromInt(1)
	}

	// 1. base shares
	shares := in.QuoteSizeBase.Mul(dynMult).Mul(sizeSkew)
	return CapShares(shares, price, in.Bankroll, in.CurrentExposure, in.Risk)
}

// CapShares applies the risk cascade (per-order notional/bankroll-fraction
// caps, remaining global exposure headroom, and the risk service's
// per-order share cap) to an already-decided base share count. Exported so
// taker orders (fast top-up, near-end top-up, taker-mode) can reuse the
// same risk caps without routing through the maker entry-price logic.
func CapShares(requested, price, bankroll, currentExposure decimal.Decimal, risk config.RiskConfig) decimal.Decimal {
	shares := requested

	// 2. cap by per-order USD and bankroll-fraction caps
	if risk.MaxOrderNotionalUsd > 0 {
		maxByNotional := decimal.NewFromFloat(risk.MaxOrderNotionalUsd).Div(price)
		shares = decimal.Min(shares, maxByNotional)
	}
	if risk.MaxOrderBankrollFraction > 0 {
		maxByBankrollFraction := decimal.NewFromFloat(risk.MaxOrderBankrollFraction).Mul(bankroll).Div(price)
		shares = decimal.Min(shares, maxByBankrollFraction)
	}

	// 3. reduce to fit remaining global exposure headroom
	if risk.MaxTotalBankrollFraction > 0 {
		totalCap := decimal.NewFromFloat(risk.MaxTotalBankrollFraction).Mul(bankroll)
		headroomUSD := totalCap.Sub(currentExposure)
		if headroomUSD.IsNegative() {
			headroomUSD = decimal.Zero
		}
		maxByExposure := headroomUSD.Div(price)
		shares = decimal.Min(shares, maxByExposure)
	}

	// 4. cap by risk service's per-order caps
	if risk.MaxOrderSize > 0 {
		shares = decimal.Min(shares, decimal.NewFromFloat(risk.MaxOrderSize))
	}

	if shares.IsNegative() {
		return decimal.Zero
	}
	return shares
}

// floorToTick rounds v down to the nearest exact multiple of tick.
func floorToTick(v, tick decimal.Decimal) decimal.Decimal {
	if tick.IsZero() {
		return v
	}
	n := v.Div(tick).Floor()
	return n.Mul(tick)
}

// ceilingToTick rounds v up to the nearest exact multiple of tick.
func ceilingToTick(v, tick decimal.Decimal) decimal.Decimal {
	if tick.IsZero() {
		return v
	}
	n := v.Div(tick).Ceil()
	return n.Mul(tick)
}

// SkewTicksForImbalance maps |imbalance|
// linearly to [0, maxSkewTicks], capped at maxSkewShares, applying a negative
// sign on the heavy leg and positive on the light leg.
func SkewTicksForImbalance(imbalance decimal.Decimal, leg types.Leg, maxSkewShares decimal.Decimal, maxSkewTicks int) int {
	if maxSkewShares.IsZero() || maxSkewTicks == 0 {
		return 0
	}

	absImbalance := imbalance.Abs()
	if absImbalance.GreaterThan(maxSkewShares) {
		absImbalance = maxSkewShares
	}

	ticksFloat := absImbalance.Div(maxSkewShares).Mul(decimal.NewFromInt(int64(maxSkewTicks)))
	ticks := int(ticksFloat.Round(0).IntPart())

	heavyLeg := types.Up
	if imbalance.IsNegative() {
		heavyLeg = types.Down
	}
	if imbalance.IsZero() {
		return 0
	}

	if leg == heavyLeg {
		return -ticks
	}
	return ticks
}

// IsMaker reports whether an order at price would rest on the book rather
// than cross the opposite top-of-book at placement time (the ask for a BUY,
// the bid for a SELL). A zero TOB side (no
// resting liquidity on that side yet) is treated as non-crossing.
func IsMaker(side types.Side, price decimal.Decimal, tob types.TopOfBook) bool {
	if side == types.BUY {
		return tob.BestAsk.IsZero() || price.LessThan(tob.BestAsk)
	}
	return tob.BestBid.IsZero() || price.GreaterThan(tob.BestBid)
}
