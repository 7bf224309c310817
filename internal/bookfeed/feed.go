// Package bookfeed implements the Book Feed (C1): a read-only, per-token
// top-of-book mirror fed by the exchange's WebSocket market channel.
//
// Subscriptions are idempotent set-semantics: Subscribe accepts the full
// desired token set on each call and the feed computes add/remove deltas
// against what is currently subscribed, generalized from a fixed YES/NO
// pair to an arbitrary token set.
package bookfeed

import (
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

// Feed is the Book Feed contract consumed by the Directional Engine.
type Feed interface {
	TopOfBook(token string) (types.TopOfBook, bool)
	Subscribe(tokens []string)
}

// subscriber is satisfied by exchange.WSFeed; kept narrow so bookfeed does
// not import the exchange package's transport concerns directly.
type subscriber interface {
	Subscribe(tokens []string) error
	Unsubscribe(tokens []string) error
}

// Mirror maintains the latest TopOfBook per token in memory, applied from
// book/price_change/trade WS events. It is the Feed implementation used in
// both live and paper modes — the paper simulator reads the same mirror the
// live exchange adapter would.
type Mirror struct {
	mu    sync.RWMutex
	books map[string]types.TopOfBook

	subMu      sync.Mutex
	subscribed map[string]bool
	transport  subscriber // nil until wired to a live WS feed
}

// NewMirror creates an empty book mirror.
func NewMirror() *Mirror {
	return &Mirror{
		books:      make(map[string]types.TopOfBook),
		subscribed: make(map[string]bool),
	}
}

// AttachTransport wires the mirror to a live subscription transport
// (exchange.WSFeed). Safe to call once at startup; until attached, Subscribe
// only tracks desired state. cmd/directional attaches the market WS feed in
// both live and paper mode.
func (m *Mirror) AttachTransport(t subscriber) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.transport = t
}

// Subscribe accepts the full desired token set and adds/removes the delta
// against the currently subscribed set.
func (m *Mirror) Subscribe(tokens []string) {
	desired := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		desired[t] = true
	}

	m.subMu.Lock()
	defer m.subMu.Unlock()

	var toAdd, toRemove []string
	for t := range desired {
		if !m.subscribed[t] {
			toAdd = append(toAdd, t)
		}
	}
	for t := range m.subscribed {
		if !desired[t] {
			toRemove = append(toRemove, t)
		}
	}

	if m.transport != nil {
		if len(toAdd) > 0 {
			_ = m.transport.Subscribe(toAdd)
		}
		if len(toRemove) > 0 {
			_ = m.transport.Unsubscribe(toRemove)
		}
	}

	m.subscribed = desired
}

// TopOfBook returns the latest observation for a token, if any has arrived.
func (m *Mirror) TopOfBook(token string) (types.TopOfBook, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tob, ok := m.books[token]
	return tob, ok
}

// ApplyBookSnapshot replaces the book state for a token from a full snapshot
// (REST GET /book or a WS "book" event).
func (m *Mirror) ApplyBookSnapshot(token string, bids, asks []types.PriceLevel, ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.books[token]
	tob := types.TopOfBook{
		Token:          token,
		UpdatedAt:      ts,
		LastTradePrice: prev.LastTradePrice,
		LastTradeAt:    prev.LastTradeAt,
		HasLastTrade:   prev.HasLastTrade,
	}
	if len(bids) > 0 {
		tob.BestBid = parseDecimal(bids[0].Price)
		tob.BestBidSize = parseDecimal(bids[0].Size)
	}
	if len(asks) > 0 {
		tob.BestAsk = parseDecimal(asks[0].Price)
		tob.BestAskSize = parseDecimal(asks[0].Size)
	}
	m.books[token] = tob
}

// ApplyPriceChange applies an incremental update to the best bid/ask for a
// single token, as reported in a WS "price_change" event.
func (m *Mirror) ApplyPriceChange(token, bestBid, bestAsk string, ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tob := m.books[token]
	tob.Token = token
	if bestBid != "" {
		tob.BestBid = parseDecimal(bestBid)
	}
	if bestAsk != "" {
		tob.BestAsk = parseDecimal(bestAsk)
	}
	tob.UpdatedAt = ts
	m.books[token] = tob
}

// ApplyTrade records the last-trade price/time for a token, consumed by the
// Paper Simulator's trade tape (the engine's momentum signal uses mid prices).
func (m *Mirror) ApplyTrade(token, price string, ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tob := m.books[token]
	tob.Token = token
	tob.LastTradePrice = parseDecimal(price)
	tob.LastTradeAt = ts
	tob.HasLastTrade = true
	if tob.UpdatedAt.IsZero() {
		tob.UpdatedAt = ts
	}
	m.books[token] = tob
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		v, _ := strconv.ParseFloat(s, 64)
		return decimal.NewFromFloat(v)
	}
	return d
}
