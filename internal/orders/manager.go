// Package orders implements the Order Manager (C5): one live order per
// token, replace/keep/skip decisions, and status-event emission with
// strict-change suppression.
//
// Per-tick cancel/place diffing against an activeOrders map keyed by order
// ID, generalized into an explicit KEEP/SKIP/REPLACE decision function and a
// per-token (not per-market) single-live-order slot.
package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/coreerrors"
	"polymarket-mm/internal/events"
	"polymarket-mm/internal/exchange"
	"polymarket-mm/internal/quote"
	"polymarket-mm/pkg/types"
)

// Decision is the result of MaybeReplaceOrder's comparison of a desired
// quote against the resting order for a token.
type Decision string

const (
	DecisionKeep    Decision = "KEEP"
	DecisionSkip    Decision = "SKIP"
	DecisionReplace Decision = "REPLACE"
)

// ReplaceConfig carries the thresholds MaybeReplaceOrder uses.
type ReplaceConfig struct {
	MinPriceDelta      decimal.Decimal
	MinSizeDelta       decimal.Decimal
	MinReplaceMillis   time.Duration
	ForceReplaceMillis time.Duration
}

// Manager tracks at most one live order per token and drives placement,
// replacement, and cancellation through an exchange.Adapter (live or paper).
type Manager struct {
	adapter   exchange.Adapter
	publisher events.Publisher
	logger    *slog.Logger

	mu           sync.Mutex
	activeOrders map[string]*types.Order // tokenID -> live order
	lastEmitted  map[string]emittedState // orderID -> last emitted (status, matched, remaining)
}

type emittedState struct {
	status    types.OrderStatus
	matched   decimal.Decimal
	remaining decimal.Decimal
}

// New creates an order manager.
func New(adapter exchange.Adapter, publisher events.Publisher, logger *slog.Logger) *Manager {
	return &Manager{
		adapter:      adapter,
		publisher:    publisher,
		logger:       logger.With("component", "orders"),
		activeOrders: make(map[string]*types.Order),
		lastEmitted:  make(map[string]emittedState),
	}
}

// PlaceOrder places a new order for a token. An existing order
// must have been canceled first — placing over a live slot is a caller bug.
// tob is the top-of-book at placement time, used only to classify whether
// the order rests (maker) or crosses (taker); callers that are deliberately
// crossing (taker top-ups) still pass it so the resulting order carries an
// honest MakerAtPlacement.
func (m *Manager) PlaceOrder(ctx context.Context, token string, side types.Side, price, size decimal.Decimal, tob types.TopOfBook, now time.Time) (*types.Order, error) {
	m.mu.Lock()
	if _, exists := m.activeOrders[token]; exists {
		m.mu.Unlock()
		return nil, coreerrors.New(coreerrors.InternalInvariantViolation, "placeOrder", fmt.Errorf("token %s already has a live order", token))
	}
	m.mu.Unlock()

	result, err := m.adapter.PlaceLimit(ctx, token, side, price, size)
	if err != nil {
		if coreerrors.Is(err, coreerrors.Rejected) {
			m.emitStatus(events.ExecutorOrderStatus{
				Token:          token,
				Side:           side,
				RequestedPrice: price,
				RequestedSize:  size,
				Status:         types.StatusRejected,
				Error:          err.Error(),
			})
		}
		return nil, err
	}

	order := &types.Order{
		OrderID:        result.OrderID,
		TokenID:        token,
		Side:           side,
		LimitPrice:     price,
		RequestedSize:  size,
		CreatedAt:      now,
		Status:         result.Status,
		Matched:        decimal.Zero,
		Remaining:      size,
		MakerAtPlacement: quote.IsMaker(side, price, tob),
	}

	m.mu.Lock()
	m.activeOrders[token] = order
	m.mu.Unlock()

	m.emitStatus(events.ExecutorOrderStatus{
		OrderID:        order.OrderID,
		Token:          token,
		Side:           side,
		RequestedPrice: price,
		RequestedSize:  size,
		Status:         order.Status,
		Matched:        order.Matched,
		Remaining:      order.Remaining,
	})

	return order, nil
}

// MaybeReplaceOrder runs the KEEP/SKIP/REPLACE decision for the
// order currently resting on a token, given a newly desired price/size.
func (m *Manager) MaybeReplaceOrder(token string, newPrice, newSize decimal.Decimal, cfg ReplaceConfig, now time.Time) Decision {
	m.mu.Lock()
	order, exists := m.activeOrders[token]
	m.mu.Unlock()
	if !exists {
		return DecisionReplace
	}

	age := now.Sub(order.CreatedAt)
	if age < cfg.MinReplaceMillis {
		return DecisionSkip
	}

	priceDelta := newPrice.Sub(order.LimitPrice).Abs()
	sizeDelta := newSize.Sub(order.RequestedSize).Abs()

	if priceDelta.LessThan(cfg.MinPriceDelta) && age < cfg.ForceReplaceMillis && sizeDelta.LessThan(cfg.MinSizeDelta) {
		return DecisionKeep
	}
	return DecisionReplace
}

// Cancel cancels the live order on a token. The slot is freed immediately
// to avoid deadlocking the next tick's placement, even though a late fill
// on the just-canceled order can still arrive and mutate inventory.
func (m *Manager) Cancel(ctx context.Context, token string, reason string) error {
	m.mu.Lock()
	order, exists := m.activeOrders[token]
	if exists {
		delete(m.activeOrders, token)
	}
	m.mu.Unlock()

	if !exists {
		return nil // cancel on an unknown order is a no-op success
	}

	ok, err := m.adapter.Cancel(ctx, order.OrderID)
	if err != nil {
		return err
	}
	if ok {
		m.emitStatus(events.ExecutorOrderStatus{
			OrderID:        order.OrderID,
			Token:          token,
			Side:           order.Side,
			RequestedPrice: order.LimitPrice,
			RequestedSize:  order.RequestedSize,
			Status:         types.StatusCanceled,
			Matched:        order.Matched,
			Remaining:      decimal.Zero,
		})
	}
	m.logger.Debug("order canceled", "token", token, "order_id", order.OrderID, "reason", reason)
	return nil
}

// OnFillFunc is invoked for every matched-size increase observed while
// polling pending orders: delta is the newly-matched share count this poll.
type OnFillFunc func(order types.Order, delta decimal.Decimal)

// CheckPendingOrders polls every live order's current status, invoking
// onFill for matched-size increases and freeing the token slot on terminal
// status.
func (m *Manager) CheckPendingOrders(ctx context.Context, onFill OnFillFunc) {
	m.mu.Lock()
	tokens := make([]string, 0, len(m.activeOrders))
	for token := range m.activeOrders {
		tokens = append(tokens, token)
	}
	m.mu.Unlock()

	for _, token := range tokens {
		m.pollOne(ctx, token, onFill)
	}
}

func (m *Manager) pollOne(ctx context.Context, token string, onFill OnFillFunc) {
	m.mu.Lock()
	order, exists := m.activeOrders[token]
	m.mu.Unlock()
	if !exists {
		return
	}

	result, err := m.adapter.GetOrder(ctx, order.OrderID)
	if err != nil {
		m.logger.Warn("poll order failed", "token", token, "order_id", order.OrderID, "error", err)
		return
	}

	var matched decimal.Decimal
	if raw, ok := result.Raw.(*types.OpenOrder); ok && raw != nil {
		matched = parseMatched(raw)
	}

	m.mu.Lock()
	current, exists := m.activeOrders[token]
	if !exists {
		m.mu.Unlock()
		return
	}

	delta := matched.Sub(current.Matched)
	if delta.IsPositive() {
		current.Matched = matched
		current.Remaining = current.RequestedSize.Sub(current.Matched)
		if current.Remaining.IsNegative() {
			current.Remaining = decimal.Zero
		}
	}
	current.Status = result.Status
	terminal := current.Status.IsTerminal()
	if terminal {
		delete(m.activeOrders, token)
	}
	snapshot := *current
	m.mu.Unlock()

	if delta.IsPositive() && onFill != nil {
		onFill(snapshot, delta)
	}

	m.emitStatus(events.ExecutorOrderStatus{
		OrderID:        snapshot.OrderID,
		Token:          token,
		Side:           snapshot.Side,
		RequestedPrice: snapshot.LimitPrice,
		RequestedSize:  snapshot.RequestedSize,
		Status:         snapshot.Status,
		Matched:        snapshot.Matched,
		Remaining:      snapshot.Remaining,
	})
}

func parseMatched(open *types.OpenOrder) decimal.Decimal {
	matched, err := decimal.NewFromString(open.SizeMatched)
	if err != nil {
		return decimal.Zero
	}
	return matched
}

// ActiveOrder returns the current live order for a token, if any.
func (m *Manager) ActiveOrder(token string) (types.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.activeOrders[token]
	if !ok {
		return types.Order{}, false
	}
	return *order, true
}

// emitStatus publishes an ExecutorOrderStatus event, suppressing emission
// unless status, matched, or remaining changed versus the last emission for
// that order ID (case-insensitive, trimmed status).
func (m *Manager) emitStatus(evt events.ExecutorOrderStatus) {
	key := evt.OrderID
	if key == "" {
		key = evt.Token
	}

	next := emittedState{
		status:    types.OrderStatus(strings.ToUpper(strings.TrimSpace(string(evt.Status)))),
		matched:   evt.Matched,
		remaining: evt.Remaining,
	}

	m.mu.Lock()
	prev, seen := m.lastEmitted[key]
	unchanged := seen && prev.status == next.status && prev.matched.Equal(next.matched) && prev.remaining.Equal(next.remaining)
	if !unchanged {
		m.lastEmitted[key] = next
	}
	m.mu.Unlock()

	if unchanged {
		return
	}
	if m.publisher != nil {
		m.publisher.Publish(events.Event{Kind: events.KindExecutorOrderStatus, Timestamp: time.Now(), Data: evt})
	}
}
