// Package paper implements the Paper Simulator (C8): a deterministic-modulo-
// randomness order-matching engine that consumes the same book feed the live
// adapter would and satisfies the exchange.Adapter contract, so the engine
// and order manager run unmodified against it.
//
// Orders cross immediately against the opposing top-of-book at placement or
// on a later tick; short of crossing, a resting maker order fills
// probabilistically on each fill-poll tick, attenuated by its queue position,
// with an optional trade-tape consumer for a more realistic fill cadence.
package paper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"polymarket-mm/internal/bookfeed"
	"polymarket-mm/internal/clock"
	"polymarket-mm/internal/config"
	"polymarket-mm/internal/coreerrors"
	"polymarket-mm/internal/events"
	"polymarket-mm/internal/exchange"
	"polymarket-mm/internal/quote"
	"polymarket-mm/pkg/types"
)

var defaultTickSize = decimal.NewFromFloat(0.01)

// tokenInfo resolves a token back to the paired market and leg it belongs
// to, needed for the lead-lag cross-leg fill floor.
type tokenInfo struct {
	marketSlug string
	leg        types.Leg
}

// pairState is the last fill recorded for one market, across either leg.
type pairState struct {
	leg types.Leg
	ts  time.Time
}

type emittedState struct {
	status    types.OrderStatus
	matched   decimal.Decimal
	remaining decimal.Decimal
}

// Simulator is the paper-mode exchange.Adapter implementation.
type Simulator struct {
	cfg       config.SimulatorConfig
	tapeCfg   config.TradeTapeConfig
	feed      bookfeed.Feed
	publisher events.Publisher
	clk       clock.Clock
	rand      randSource
	logger    *slog.Logger
	tape      Tape

	mu           sync.Mutex
	orders       map[string]*types.Order // orderID -> order
	tokenOrder   map[string]string       // tokenID -> live orderID
	tokenMarket  map[string]tokenInfo
	tickSizes    map[string]decimal.Decimal
	pairLastFill map[string]pairState // marketSlug -> last fill
	lastEmitted  map[string]emittedState
}

// NewSimulator builds a Simulator. Pass a nil Tape to disable trade-tape
// consumption regardless of tapeCfg.Enabled.
func NewSimulator(cfg config.SimulatorConfig, tapeCfg config.TradeTapeConfig, feed bookfeed.Feed, publisher events.Publisher, clk clock.Clock, tape Tape, logger *slog.Logger) *Simulator {
	return &Simulator{
		cfg:          cfg,
		tapeCfg:      tapeCfg,
		feed:         feed,
		publisher:    publisher,
		clk:          clk,
		rand:         newRandSource(clk.Now().UnixNano()),
		logger:       logger.With("component", "paper"),
		tape:         tape,
		orders:       make(map[string]*types.Order),
		tokenOrder:   make(map[string]string),
		tokenMarket:  make(map[string]tokenInfo),
		tickSizes:    make(map[string]decimal.Decimal),
		pairLastFill: make(map[string]pairState),
		lastEmitted:  make(map[string]emittedState),
	}
}

// RegisterMarket records the token-to-(market,leg) mapping needed to enforce
// the lead-lag cross-leg fill floor. Safe to call repeatedly as discovery
// rotates the active market set.
func (s *Simulator) RegisterMarket(mkt types.Market) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenMarket[mkt.UpToken] = tokenInfo{marketSlug: mkt.Slug, leg: types.Up}
	s.tokenMarket[mkt.DownToken] = tokenInfo{marketSlug: mkt.Slug, leg: types.Down}
}

// SetTickSize overrides the tick size reported for a token; otherwise
// GetTickSize reports defaultTickSize.
func (s *Simulator) SetTickSize(token string, tick decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickSizes[token] = tick
}

// PlaceLimit opens a new paper order, filling it immediately if it crosses
// the current opposing top-of-book (subject to the lead-lag floor).
func (s *Simulator) PlaceLimit(ctx context.Context, tokenID string, side types.Side, price, size decimal.Decimal) (exchange.OrderResult, error) {
	if !price.IsPositive() {
		return exchange.OrderResult{Mode: exchange.ModePaper, Kind: coreerrors.InvalidPrice}, coreerrors.New(coreerrors.InvalidPrice, "placeLimit", nil)
	}
	if !size.IsPositive() {
		return exchange.OrderResult{Mode: exchange.ModePaper, Kind: coreerrors.InvalidSize}, coreerrors.New(coreerrors.InvalidSize, "placeLimit", nil)
	}

	now := s.clk.Now()
	tob, _ := s.feed.TopOfBook(tokenID)

	order := &types.Order{
		OrderID:       "paper-" + uuid.NewString(),
		TokenID:       tokenID,
		Side:          side,
		LimitPrice:    price,
		RequestedSize: size,
		CreatedAt:     now,
		Status:        types.StatusOpen,
		Matched:       decimal.Zero,
		Remaining:     size,
	}
	order.MakerAtPlacement = isMaker(side, price, tob)
	order.QueueFactor = s.drawQueueFactor()
	order.QueueAheadShares = initialQueueAhead(side, price, tob, order.QueueFactor)

	s.mu.Lock()
	s.orders[order.OrderID] = order
	s.tokenOrder[tokenID] = order.OrderID
	s.mu.Unlock()

	if crossed(side, price, tob) {
		fillPrice := tob.BestAsk
		if side == types.SELL {
			fillPrice = tob.BestBid
		}
		s.attemptFill(order.OrderID, fillPrice, order.RequestedSize, events.SimTaker, now)
	}

	s.mu.Lock()
	snapshot := *s.orders[order.OrderID]
	s.mu.Unlock()
	s.emitStatus(snapshot)
	return exchange.OrderResult{Mode: exchange.ModePaper, OrderID: order.OrderID, Status: order.Status}, nil
}

// Cancel marks a resting paper order canceled. Canceling an unknown or
// already-terminal order is a no-op success.
func (s *Simulator) Cancel(ctx context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	order, ok := s.orders[orderID]
	if !ok || order.Status.IsTerminal() {
		s.mu.Unlock()
		return true, nil
	}
	order.Status = types.StatusCanceled
	order.Remaining = decimal.Zero
	delete(s.tokenOrder, order.TokenID)
	snapshot := *order
	s.mu.Unlock()

	s.emitStatus(snapshot)
	return true, nil
}

// GetOrder reports the current state of a paper order, in the same
// OpenOrder-wrapped shape the live adapter returns so the order manager's
// poll loop works unmodified against either adapter.
func (s *Simulator) GetOrder(ctx context.Context, orderID string) (exchange.OrderResult, error) {
	s.mu.Lock()
	order, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		return exchange.OrderResult{Mode: exchange.ModePaper, Kind: coreerrors.Unavailable}, coreerrors.New(coreerrors.Unavailable, "getOrder", fmt.Errorf("unknown paper order %s", orderID))
	}
	snapshot := *order
	s.mu.Unlock()

	raw := &types.OpenOrder{
		ID:           snapshot.OrderID,
		Status:       string(snapshot.Status),
		AssetID:      snapshot.TokenID,
		Side:         string(snapshot.Side),
		OriginalSize: snapshot.RequestedSize.String(),
		SizeMatched:  snapshot.Matched.String(),
		Price:        snapshot.LimitPrice.String(),
	}
	return exchange.OrderResult{Mode: exchange.ModePaper, Raw: raw, OrderID: snapshot.OrderID, Status: snapshot.Status}, nil
}

// GetTickSize returns the tick size registered via SetTickSize, or the
// package default.
func (s *Simulator) GetTickSize(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tick, ok := s.tickSizes[tokenID]; ok {
		return tick, nil
	}
	return defaultTickSize, nil
}

// GetBankroll reports a fixed placeholder; paper-mode capital accounting is
// owned by the inventory ledger, not the simulator.
func (s *Simulator) GetBankroll(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	return decimal.Zero, decimal.Zero, nil
}

// GetPositions always reports no exchange-side positions in paper mode: the
// inventory ledger is the source of truth, there is nothing external to
// reconcile against.
func (s *Simulator) GetPositions(ctx context.Context) ([]types.Position, error) {
	return nil, nil
}

func isMaker(side types.Side, price decimal.Decimal, tob types.TopOfBook) bool {
	return quote.IsMaker(side, price, tob)
}

func crossed(side types.Side, price decimal.Decimal, tob types.TopOfBook) bool {
	if side == types.BUY {
		return !tob.BestAsk.IsZero() && price.GreaterThanOrEqual(tob.BestAsk)
	}
	return !tob.BestBid.IsZero() && price.LessThanOrEqual(tob.BestBid)
}

// initialQueueAhead is 0 when the order improves the book (a new best); else
// it is the same-side best-level size (BestBidSize for a BUY, BestAskSize
// for a SELL), scaled by queueFactor.
func initialQueueAhead(side types.Side, price decimal.Decimal, tob types.TopOfBook, queueFactor decimal.Decimal) decimal.Decimal {
	if side == types.BUY {
		if price.GreaterThan(tob.BestBid) {
			return decimal.Zero
		}
		return tob.BestBidSize.Mul(queueFactor)
	}
	if price.LessThan(tob.BestAsk) {
		return decimal.Zero
	}
	return tob.BestAskSize.Mul(queueFactor)
}

func (s *Simulator) drawQueueFactor() decimal.Decimal {
	lo, hi := s.cfg.MakerQueueFactorMin, s.cfg.MakerQueueFactorMax
	if hi <= lo {
		return decimal.NewFromFloat(1.0)
	}
	return decimal.NewFromFloat(lo + s.rand.Float64()*(hi-lo))
}

