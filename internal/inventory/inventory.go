// Package inventory implements the Inventory & Bankroll service (C3): a
// per-market signed share ledger plus an EMA-smoothed bankroll with circuit
// breaker and dynamic sizing multiplier.
//
// Fill accounting, realized PnL on reduction, and average-cost tracking,
// generalized from a fixed YES/NO pair to a tagged Leg variant, using
// shopspring/decimal throughout instead of float64 so cost-basis and
// imbalance arithmetic stays exact.
package inventory

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

// Ledger tracks MarketInventory for every active market. One Ledger serves
// the whole engine; access to every market is serialized by one ledger-wide
// mutex.
type Ledger struct {
	mu      sync.RWMutex
	markets map[string]*types.MarketInventory
}

// NewLedger creates an empty inventory ledger.
func NewLedger() *Ledger {
	return &Ledger{markets: make(map[string]*types.MarketInventory)}
}

func (l *Ledger) getOrCreateLocked(marketSlug string) *types.MarketInventory {
	mi, ok := l.markets[marketSlug]
	if !ok {
		mi = &types.MarketInventory{MarketSlug: marketSlug}
		l.markets[marketSlug] = mi
	}
	return mi
}

// RecordFill updates running shares, cost basis, and the last-fill
// bookkeeping for one leg of a market. signedShares is positive for a BUY
// (shares acquired) and negative for a SELL (shares given up); price is the
// fill price, used for both cost-basis maintenance and last-fill-price.
func (l *Ledger) RecordFill(marketSlug string, leg types.Leg, signedShares, price decimal.Decimal, ts time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	mi := l.getOrCreateLocked(marketSlug)

	var realized decimal.Decimal
	if leg == types.Up {
		mi.UpShares, mi.UpCostBasis, realized = applyFill(mi.UpShares, mi.UpCostBasis, signedShares, price)
		mi.LastUpFillAt = ts
		mi.LastUpFillPrice = price
	} else {
		mi.DownShares, mi.DownCostBasis, realized = applyFill(mi.DownShares, mi.DownCostBasis, signedShares, price)
		mi.LastDownFillAt = ts
		mi.LastDownFillPrice = price
	}
	mi.RealizedPnL = mi.RealizedPnL.Add(realized)
}

// applyFill folds one fill into a running (shares, costBasis) pair, keeping
// the running total cost rather than an average price, since decimal
// division on every fill would otherwise compound rounding error. A SELL
// that reduces the position realizes (price − avgCost) × sellQty.
func applyFill(shares, costBasis, signedShares, price decimal.Decimal) (newShares, newCostBasis, realizedPnL decimal.Decimal) {
	if signedShares.IsPositive() {
		return shares.Add(signedShares), costBasis.Add(signedShares.Mul(price)), decimal.Zero
	}

	sellQty := signedShares.Abs()
	if sellQty.GreaterThan(shares) {
		sellQty = shares
	}
	if shares.IsPositive() {
		avgCost := costBasis.Div(shares)
		newCostBasis = costBasis.Sub(sellQty.Mul(avgCost))
		realizedPnL = price.Sub(avgCost).Mul(sellQty)
	} else {
		newCostBasis = costBasis
	}
	newShares = shares.Sub(sellQty)
	if !newShares.IsPositive() {
		newShares = decimal.Zero
		newCostBasis = decimal.Zero
	}
	return newShares, newCostBasis, realizedPnL
}

// MarkTopUp records that a top-up order (near-end or fast top-up) was just
// issued for this market, used to enforce top-up cooldowns.
func (l *Ledger) MarkTopUp(marketSlug string, ts time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.getOrCreateLocked(marketSlug).LastTopUpAt = ts
}

// Snapshot returns a copy of the current inventory for a market.
func (l *Ledger) Snapshot(marketSlug string) types.MarketInventory {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if mi, ok := l.markets[marketSlug]; ok {
		return *mi
	}
	return types.MarketInventory{MarketSlug: marketSlug}
}

// Imbalance returns shares(up) - shares(down) for a market.
func (l *Ledger) Imbalance(marketSlug string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if mi, ok := l.markets[marketSlug]; ok {
		return mi.Imbalance()
	}
	return decimal.Zero
}

// SyncInventory reconciles exchange-reported positions into the local
// ledger, recovering from any missed fill events. tokenLeg maps a token id
// to the (marketSlug, leg) it belongs to.
func (l *Ledger) SyncInventory(positions []types.Position, tokenLeg map[string]TokenLeg) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, pos := range positions {
		tl, ok := tokenLeg[pos.Token]
		if !ok {
			continue
		}
		mi := l.getOrCreateLocked(tl.Market)
		if tl.Leg == types.Up {
			mi.UpShares = pos.Shares
			mi.UpCostBasis = pos.Shares.Mul(pos.AvgPrice)
		} else {
			mi.DownShares = pos.Shares
			mi.DownCostBasis = pos.Shares.Mul(pos.AvgPrice)
		}
	}
}

// TokenLeg identifies which market and leg a token id belongs to, used by
// SyncInventory to fold exchange positions back into the per-market ledger.
type TokenLeg struct {
	Market string
	Leg    types.Leg
}

// Evict removes all ledger state for a market, called on market expiry
// to keep the ledger's memory bounded.
func (l *Ledger) Evict(marketSlug string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.markets, marketSlug)
}
