package paper

import (
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/events"
	"polymarket-mm/pkg/types"
)

// openOrders snapshots every non-terminal order across all tokens.
func (s *Simulator) openOrders() []*types.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if !o.Status.IsTerminal() {
			snapshot := *o
			out = append(out, &snapshot)
		}
	}
	return out
}

// openOrdersByToken is openOrders grouped by TokenID, for per-token tape
// consumption.
func (s *Simulator) openOrdersByToken() map[string][]*types.Order {
	byToken := make(map[string][]*types.Order)
	for _, o := range s.openOrders() {
		byToken[o.TokenID] = append(byToken[o.TokenID], o)
	}
	return byToken
}

// tickSizeFor is the internal, lock-held-free equivalent of GetTickSize.
func (s *Simulator) tickSizeFor(token string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tick, ok := s.tickSizes[token]; ok {
		return tick
	}
	return defaultTickSize
}

// leadLagBlockedLocked reports whether a fill on leg should be suppressed
// because the opposite leg of the same paired market filled within
// LeadLagMinMillis. Must be called with s.mu held.
func (s *Simulator) leadLagBlockedLocked(marketSlug string, leg types.Leg, now time.Time) bool {
	if marketSlug == "" || s.cfg.LeadLagMinMillis <= 0 {
		return false
	}
	last, ok := s.pairLastFill[marketSlug]
	if !ok || last.leg == leg {
		return false
	}
	floor := time.Duration(s.cfg.LeadLagMinMillis) * time.Millisecond
	return now.Sub(last.ts) < floor
}

// attemptFill applies a fill of fillSize at fillPrice to the live order
// orderID, subject to the lead-lag cross-leg floor. Returns whether the fill
// was applied. Updates to Matched/Remaining/Status happen under lock; the
// resulting status and trade events are emitted after the lock is released.
func (s *Simulator) attemptFill(orderID string, fillPrice, fillSize decimal.Decimal, simKind events.SimKind, now time.Time) bool {
	s.mu.Lock()
	order, ok := s.orders[orderID]
	if !ok || order.Status.IsTerminal() || !fillSize.IsPositive() {
		s.mu.Unlock()
		return false
	}

	info := s.tokenMarket[order.TokenID]
	if s.leadLagBlockedLocked(info.marketSlug, info.leg, now) {
		s.mu.Unlock()
		return false
	}

	if fillSize.GreaterThan(order.Remaining) {
		fillSize = order.Remaining
	}
	order.Matched = order.Matched.Add(fillSize)
	order.Remaining = order.Remaining.Sub(fillSize)
	if order.Remaining.IsZero() {
		order.Status = types.StatusFilled
		delete(s.tokenOrder, order.TokenID)
	} else {
		order.Status = types.StatusPartial
	}

	if info.marketSlug != "" {
		s.pairLastFill[info.marketSlug] = pairState{leg: info.leg, ts: now}
	}

	snapshot := *order
	s.mu.Unlock()

	s.emitStatus(snapshot)
	s.emitTrade(events.UserTrade{
		Market:  info.marketSlug,
		Token:   snapshot.TokenID,
		Side:    snapshot.Side,
		Price:   fillPrice,
		Size:    fillSize,
		Ts:      now,
		SimKind: simKind,
	})
	return true
}

// emitStatus publishes an ExecutorOrderStatus event, suppressing emission
// unless status, matched, or remaining changed versus the last emission for
// that order ID, mirroring the order manager's own suppression rule so
// downstream subscribers see one coherent stream regardless of adapter mode.
func (s *Simulator) emitStatus(order types.Order) {
	next := emittedState{status: order.Status, matched: order.Matched, remaining: order.Remaining}

	s.mu.Lock()
	prev, seen := s.lastEmitted[order.OrderID]
	unchanged := seen && prev.status == next.status && prev.matched.Equal(next.matched) && prev.remaining.Equal(next.remaining)
	if !unchanged {
		s.lastEmitted[order.OrderID] = next
	}
	s.mu.Unlock()

	if unchanged || s.publisher == nil {
		return
	}
	s.publisher.Publish(events.Event{
		Kind:      events.KindExecutorOrderStatus,
		Timestamp: s.clk.Now(),
		Data: events.ExecutorOrderStatus{
			OrderID:        order.OrderID,
			Token:          order.TokenID,
			Side:           order.Side,
			RequestedPrice: order.LimitPrice,
			RequestedSize:  order.RequestedSize,
			Status:         order.Status,
			Matched:        order.Matched,
			Remaining:      order.Remaining,
		},
	})
}

// emitTrade publishes a synthetic UserTrade for a fill.
func (s *Simulator) emitTrade(trade events.UserTrade) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(events.Event{Kind: events.KindUserTrade, Timestamp: s.clk.Now(), Data: trade})
}
