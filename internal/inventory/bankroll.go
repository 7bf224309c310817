package inventory

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/clock"
	"polymarket-mm/internal/config"
	"polymarket-mm/pkg/types"
)

// BankrollSource fetches the raw {usdc, equity} pair from the exchange
// adapter (or the paper simulator's synthetic equivalent); kept narrow so
// the bankroll service doesn't depend on the full exchange.Adapter contract.
type BankrollSource interface {
	GetBankroll() (usdc, equity decimal.Decimal, err error)
}

// Bankroll implements the EMA-smoothed capital service.
// It is refreshed on a slower cadence than the engine tick (bankrollRefreshMillis)
// and exposes Effective(), which folds in the configured trading fraction and
// falls back to the fixed bankroll when the smoothing cache is stale or the
// candidate value is non-positive.
type Bankroll struct {
	cfg    config.BankrollConfig
	clock  clock.Clock
	source BankrollSource

	mu   sync.RWMutex
	snap types.BankrollSnapshot
}

// NewBankroll creates a bankroll service. source may be nil when mode is FIXED.
func NewBankroll(cfg config.BankrollConfig, clk clock.Clock, source BankrollSource) *Bankroll {
	return &Bankroll{cfg: cfg, clock: clk, source: source}
}

// Refresh fetches a new observation and folds it into the EMA:
// smoothed ← α·observed + (1−α)·smoothed_prev, α clamped to [0.01, 1.0].
func (b *Bankroll) Refresh() error {
	mode := types.BankrollMode(b.cfg.BankrollMode)
	if mode == types.BankrollFixed || b.source == nil {
		return nil
	}

	usdc, equity, err := b.source.GetBankroll()
	if err != nil {
		return err
	}

	alpha := decimal.NewFromFloat(clampAlpha(b.cfg.BankrollSmoothingAlpha))
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.snap.FetchedAt.IsZero() {
		b.snap = types.BankrollSnapshot{
			FetchedAt:      now,
			USDC:           usdc,
			Equity:         equity,
			SmoothedUSDC:   usdc,
			SmoothedEquity: equity,
		}
		return nil
	}

	b.snap.USDC = usdc
	b.snap.Equity = equity
	b.snap.SmoothedUSDC = ema(alpha, usdc, b.snap.SmoothedUSDC)
	b.snap.SmoothedEquity = ema(alpha, equity, b.snap.SmoothedEquity)
	b.snap.FetchedAt = now
	return nil
}

func ema(alpha, observed, prev decimal.Decimal) decimal.Decimal {
	return alpha.Mul(observed).Add(decimal.NewFromInt(1).Sub(alpha).Mul(prev))
}

func clampAlpha(a float64) float64 {
	if a < 0.01 {
		return 0.01
	}
	if a > 1.0 {
		return 1.0
	}
	return a
}

// Effective returns the bankroll value the engine should size orders
// against: clampedTradingFraction × sourceValue, falling back to the fixed
// configured bankroll if the smoothing cache is stale (>60s) or the
// candidate source value is non-positive.
func (b *Bankroll) Effective() decimal.Decimal {
	fraction := decimal.NewFromFloat(b.cfg.BankrollTradingFraction)
	fixed := decimal.NewFromFloat(b.cfg.BankrollUsd)

	mode := types.BankrollMode(b.cfg.BankrollMode)
	if mode == types.BankrollFixed || mode == "" {
		return fraction.Mul(fixed)
	}

	b.mu.RLock()
	snap := b.snap
	b.mu.RUnlock()

	if snap.FetchedAt.IsZero() || b.clock.Now().Sub(snap.FetchedAt) > types.MaxBankrollAge {
		return fraction.Mul(fixed)
	}

	var candidate decimal.Decimal
	if mode == types.BankrollAutoEquity {
		candidate = snap.SmoothedEquity
	} else {
		candidate = snap.SmoothedUSDC
	}
	if !candidate.IsPositive() {
		return fraction.Mul(fixed)
	}
	return fraction.Mul(candidate)
}

// CircuitOpen reports whether the effective bankroll has fallen below the
// configured minimum threshold — the engine must skip new-order evaluation
// this tick but continue processing pending fills.
func (b *Bankroll) CircuitOpen() bool {
	min := decimal.NewFromFloat(b.cfg.BankrollMinThreshold)
	return b.Effective().LessThan(min)
}

// DynamicSizingMultiplier returns clamp(actual/reference, min, max) when
// dynamic sizing is enabled, else 1.0.
func (b *Bankroll) DynamicSizingMultiplier() decimal.Decimal {
	ds := b.cfg.DynamicSizing
	if !ds.Enabled || ds.ReferenceUsd <= 0 {
		return decimal.NewFromInt(1)
	}

	actual := b.Effective()
	ref := decimal.NewFromFloat(ds.ReferenceUsd)
	ratio := actual.Div(ref)

	min := decimal.NewFromFloat(ds.MinMultiplier)
	max := decimal.NewFromFloat(ds.MaxMultiplier)
	if ratio.LessThan(min) {
		return min
	}
	if ratio.GreaterThan(max) {
		return max
	}
	return ratio
}

// RefreshInterval returns how often the bankroll should be refreshed.
func (b *Bankroll) RefreshInterval() time.Duration {
	if b.cfg.BankrollRefreshMillis <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.cfg.BankrollRefreshMillis) * time.Millisecond
}

// Snapshot returns the current raw bankroll snapshot (for diagnostics/events).
func (b *Bankroll) Snapshot() types.BankrollSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}
