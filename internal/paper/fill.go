package paper

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/events"
	"polymarket-mm/pkg/types"
)

// maxTicksBehindEligible bounds how far behind the best bid/ask a resting
// order may sit and still be eligible for a probabilistic or tape fill;
// further behind, it only moves by being replaced at a better price.
const maxTicksBehindEligible = 2

// Poll runs one fill-poll tick: the cross check and probabilistic maker fill
// for every open order, followed by trade-tape consumption if enabled.
// Intended to run on its own ticker at fillPollMillis, separate from the
// engine's refreshMillis cadence.
func (s *Simulator) Poll(ctx context.Context) {
	now := s.clk.Now()
	ageMin := time.Duration(s.cfg.MakerFillMinAgeMillis) * time.Millisecond
	tobMaxAge := time.Duration(s.cfg.TobMaxAgeMillis) * time.Millisecond
	if tobMaxAge <= 0 {
		tobMaxAge = types.StaleAfter
	}

	for _, order := range s.openOrders() {
		tob, ok := s.feed.TopOfBook(order.TokenID)
		if !ok || now.Sub(tob.UpdatedAt) > tobMaxAge {
			continue
		}

		if crossed(order.Side, order.LimitPrice, tob) {
			fillPrice := order.LimitPrice
			s.attemptFill(order.OrderID, fillPrice, order.Remaining, events.SimMakerCross, now)
			continue
		}

		if now.Sub(order.CreatedAt) < ageMin {
			continue
		}

		tick := s.tickSizeFor(order.TokenID)
		p, eligible := s.fillProbability(order, tob, tick)
		if eligible && bernoulli(s.rand, p) {
			fillSize := fractionOfRemaining(order.Remaining, s.cfg.MakerFillFractionOfRemaining)
			if fillSize.IsPositive() {
				s.attemptFill(order.OrderID, order.LimitPrice, fillSize, events.SimMaker, now)
			}
		}
	}

	s.consumeTape(ctx, now, ageMin)
}

// fillProbability implements the per-poll fill-probability formula: improved
// orders (better than the reference top-of-book price) scale up by
// multPerTick per tick of improvement; orders at or behind the reference
// price attenuate by 0.25 per tick behind and are only eligible within
// maxTicksBehindEligible ticks.
func (s *Simulator) fillProbability(order *types.Order, tob types.TopOfBook, tick decimal.Decimal) (float64, bool) {
	reference := tob.BestBid
	referenceSize := tob.BestBidSize
	improved := order.LimitPrice.GreaterThan(reference)
	if order.Side == types.SELL {
		reference = tob.BestAsk
		referenceSize = tob.BestAskSize
		improved = order.LimitPrice.LessThan(reference)
	}

	base := s.cfg.MakerFillProbability
	var mult float64
	if improved {
		ticksAbove := ticksBetween(order.LimitPrice, reference, tick)
		mult = math.Pow(s.cfg.MakerFillMultiplierPerTick, float64(ticksAbove))
	} else {
		ticksBehind := ticksBetween(reference, order.LimitPrice, tick)
		if ticksBehind > maxTicksBehindEligible {
			return 0, false
		}
		mult = math.Pow(0.25, float64(ticksBehind))
	}

	sizeFactor := 1.0
	if order.Remaining.IsPositive() {
		ratio := referenceSize.Div(order.Remaining)
		if f, _ := ratio.Float64(); f < 1.0 {
			sizeFactor = f
		}
	}

	queueFactor, _ := order.QueueFactor.Float64()
	if queueFactor <= 0 {
		queueFactor = 1.0
	}

	p := base * mult * sizeFactor * queueFactor
	if s.cfg.MakerFillMaxProbability > 0 && p > s.cfg.MakerFillMaxProbability {
		p = s.cfg.MakerFillMaxProbability
	}
	return p, true
}

// ticksBetween returns the non-negative number of ticks between a and b,
// rounded to the nearest tick.
func ticksBetween(a, b, tick decimal.Decimal) int {
	if tick.IsZero() {
		return 0
	}
	diff := a.Sub(b)
	if diff.IsNegative() {
		diff = diff.Neg()
	}
	ticks := diff.Div(tick).Round(0).IntPart()
	if ticks < 0 {
		return 0
	}
	return int(ticks)
}

func fractionOfRemaining(remaining decimal.Decimal, fraction float64) decimal.Decimal {
	if fraction <= 0 {
		fraction = 1.0
	}
	size := remaining.Mul(decimal.NewFromFloat(fraction)).Truncate(2)
	floor := decimal.NewFromFloat(0.01)
	if size.LessThan(floor) {
		size = floor
	}
	if size.GreaterThan(remaining) {
		size = remaining
	}
	return size
}

// consumeTape fetches recent opposing-side prints per token and walks
// eligible orders oldest-first, consuming queued-ahead shares before
// crediting an order's own remaining size.
func (s *Simulator) consumeTape(ctx context.Context, now time.Time, ageMin time.Duration) {
	if s.tape == nil || !s.tapeCfg.Enabled {
		return
	}

	simKind := events.SimMakerTape
	if s.tape.Fallback() {
		simKind = events.SimMakerTapeFallback
	}

	for token, orders := range s.openOrdersByToken() {
		prints, err := s.tape.FetchPrints(ctx, token, s.tapeCfg.Limit)
		if err != nil || len(prints) == 0 {
			continue
		}
		tob, ok := s.feed.TopOfBook(token)
		if !ok {
			continue
		}
		tick := s.tickSizeFor(token)

		sort.Slice(prints, func(i, j int) bool { return prints[i].Ts.Before(prints[j].Ts) })
		sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })

		for _, order := range orders {
			if order.Status.IsTerminal() || !order.Remaining.IsPositive() {
				continue
			}
			if now.Sub(order.CreatedAt) < ageMin {
				continue
			}

			reference := tob.BestBid
			if order.Side == types.SELL {
				reference = tob.BestAsk
			}
			improved := (order.Side == types.BUY && order.LimitPrice.GreaterThan(reference)) ||
				(order.Side == types.SELL && order.LimitPrice.LessThan(reference))
			if !improved && ticksBetween(reference, order.LimitPrice, tick) > maxTicksBehindEligible {
				continue
			}

			var cumOpposing decimal.Decimal
			for _, print := range prints {
				if print.Ts.Before(order.CreatedAt) {
					continue
				}
				if !opposingPrint(order.Side, print.Side) {
					continue
				}
				cumOpposing = cumOpposing.Add(print.Size)
			}

			effective := cumOpposing.Sub(order.QueueAheadShares)
			if !effective.IsPositive() {
				continue
			}
			if effective.GreaterThan(order.Remaining) {
				effective = order.Remaining
			}
			capped := fractionOfRemaining(effective, s.cfg.MakerFillFractionOfRemaining)
			if !capped.IsPositive() {
				continue
			}
			s.attemptFill(order.OrderID, order.LimitPrice, capped, simKind, now)
		}
	}
}

// opposingPrint reports whether a tape print on printSide can fill a resting
// order on orderSide: a resting BUY is filled by someone selling into it.
func opposingPrint(orderSide, printSide types.Side) bool {
	return printSide == orderSide.Opposite()
}
