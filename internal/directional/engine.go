// Package directional implements the per-market, per-tick state machine that
// drives maker quoting, taker top-ups, and hedge-delay behavior for paired
// Up/Down binary markets.
//
// A select-driven tick cadence with a stale-book short-circuit and
// risk-budget gating, plus a rolling-window momentum signal with
// eviction-on-read, generalized from a single YES/ASK market to a
// paired-leg, multi-market state machine.
package directional

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/bookfeed"
	"polymarket-mm/internal/clock"
	"polymarket-mm/internal/config"
	"polymarket-mm/internal/discovery"
	"polymarket-mm/internal/exchange"
	"polymarket-mm/internal/inventory"
	"polymarket-mm/internal/orders"
	"polymarket-mm/internal/quote"
	"polymarket-mm/pkg/types"
)

// defaultTickSize is the fallback used when a tick-size lookup fails; 0.01
// is every observed token's tick size in practice, but the lookup still goes
// through the adapter so a changed tick size is picked up within its cache
// window rather than baked in.
var defaultTickSize = decimal.NewFromFloat(0.01)

// Engine runs the directional quoting state machine across all currently
// active markets, one tick at a time, processing markets sequentially within
// a single tick task.
type Engine struct {
	cfg           config.EngineConfig
	risk          config.RiskConfig
	quoteSizeBase float64

	feed      bookfeed.Feed
	ledger    *inventory.Ledger
	bankroll  *inventory.Bankroll
	orderMgr  *orders.Manager
	adapter   exchange.Adapter
	clock     clock.Clock
	rand      randSource
	momentum  *MomentumTracker
	logger    *slog.Logger

	markets   map[string]types.Market
	runtimes  map[string]*marketRuntime
	tickSizes map[string]decimal.Decimal
}

// New creates a Directional Engine.
func New(cfg config.EngineConfig, risk config.RiskConfig, bankrollCfg config.BankrollConfig, feed bookfeed.Feed, ledger *inventory.Ledger, bankroll *inventory.Bankroll, orderMgr *orders.Manager, adapter exchange.Adapter, clk clock.Clock, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:           cfg,
		risk:          risk,
		quoteSizeBase: bankrollCfg.QuoteSize,
		feed:          feed,
		ledger:        ledger,
		bankroll:      bankroll,
		orderMgr:      orderMgr,
		adapter:       adapter,
		clock:         clk,
		rand:          newRandSource(clk.Now().UnixNano()),
		momentum:      NewMomentumTracker(),
		logger:        logger.With("component", "directional"),
		markets:       make(map[string]types.Market),
		runtimes:      make(map[string]*marketRuntime),
		tickSizes:     make(map[string]decimal.Decimal),
	}
}

// UpdateMarkets replaces the engine's active market set, evicting any market
// no longer present (cancels its orders, drops its inventory and runtime
// caches). Called from the discovery cadence, independent of the tick
// cadence.
func (e *Engine) UpdateMarkets(ctx context.Context, markets []types.Market) {
	desired := make(map[string]types.Market, len(markets))
	for _, m := range markets {
		desired[m.Slug] = m
	}

	for slug := range e.markets {
		if _, ok := desired[slug]; !ok {
			e.evict(ctx, e.markets[slug], "delisted")
		}
	}
	e.markets = desired

	tokens := make([]string, 0, len(markets)*2)
	for _, m := range markets {
		tokens = append(tokens, m.UpToken, m.DownToken)
	}
	e.feed.Subscribe(tokens)
}

// RunLoop ticks all active markets every cfg.RefreshInterval() until ctx is
// canceled.
func (e *Engine) RunLoop(ctx context.Context) {
	interval := e.cfg.RefreshInterval()
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.TickAll(ctx)
		}
	}
}

// TickAll runs one tick of the state machine across every active market,
// sequentially. A failure processing one market is logged and swallowed;
// the loop continues with the next market. Pending-order status is polled
// first so a fill observed this tick can inform the same tick's hedge-delay
// mask and fast top-up decisions.
func (e *Engine) TickAll(ctx context.Context) {
	now := e.clock.Now()
	e.orderMgr.CheckPendingOrders(ctx, func(order types.Order, delta decimal.Decimal) {
		e.onFill(ctx, order, delta)
	})
	for _, mkt := range e.markets {
		e.tickMarket(ctx, now, mkt)
	}
}

// onFill is the Order Manager's fill-notification callback. On a confirmed
// single-leg fill it updates the ledger and, with probability
// 1-fastTopUpProbability, cancels the opposite leg's resting order and
// holds it out of quoting for a sampled hedge-delay duration rather than
// re-quoting it immediately.
func (e *Engine) onFill(ctx context.Context, order types.Order, delta decimal.Decimal) {
	if !delta.IsPositive() {
		return
	}
	slug, leg, ok := e.findLeg(order.TokenID)
	if !ok {
		return
	}

	now := e.clock.Now()
	e.ledger.RecordFill(slug, leg, delta, order.LimitPrice, now)

	rt := e.runtimeFor(slug)
	rt.recordFillLead(leg, now)

	if !e.cfg.CompleteSetHedgeDelayEnabled {
		return
	}
	oppositeLeg := types.Down
	if leg == types.Down {
		oppositeLeg = types.Up
	}
	if bernoulli(e.rand, 1-e.cfg.CompleteSetFastTopUpProbability) {
		mkt, ok := e.markets[slug]
		if !ok {
			return
		}
		e.cancelLeg(ctx, mkt, oppositeLeg, "HEDGE_DELAY_FILL")
		hold := sampleHedgeDelay(e.rand, e.cfg.HedgeDelayMinSeconds, e.cfg.HedgeDelayMaxSeconds)
		rt.setHedgeHold(oppositeLeg, now.Add(hold))
	}
}

// findLeg resolves a token id to the (marketSlug, leg) it belongs to among
// currently tracked markets.
func (e *Engine) findLeg(token string) (string, types.Leg, bool) {
	for slug, mkt := range e.markets {
		switch token {
		case mkt.UpToken:
			return slug, types.Up, true
		case mkt.DownToken:
			return slug, types.Down, true
		}
	}
	return "", "", false
}

func (e *Engine) runtimeFor(slug string) *marketRuntime {
	r, ok := e.runtimes[slug]
	if !ok {
		r = newMarketRuntime()
		e.runtimes[slug] = r
	}
	return r
}

// tickMarket runs the eleven-step per-tick state machine for one market:
// evict if expired, read books, band filter, compute inventory and skew,
// fast top-up, near-end top-up, edge gate, hedge-delay mask, taker-mode
// decision, maker-improvement pair, quote or replace.
func (e *Engine) tickMarket(ctx context.Context, now time.Time, mkt types.Market) {
	// Step 1: EvictIfExpired.
	if now.After(mkt.EndTime) || !discovery.IsActiveNow(mkt, now) {
		e.evict(ctx, mkt, "expired")
		delete(e.markets, mkt.Slug)
		return
	}

	rt := e.runtimeFor(mkt.Slug)

	if e.bankroll.CircuitOpen() {
		e.cancelLeg(ctx, mkt, types.Up, "CIRCUIT_OPEN")
		e.cancelLeg(ctx, mkt, types.Down, "CIRCUIT_OPEN")
		return
	}

	// Step 2: ReadBooks.
	tobUp, okUp := e.feed.TopOfBook(mkt.UpToken)
	tobDown, okDown := e.feed.TopOfBook(mkt.DownToken)
	if !okUp || tobUp.IsStale(now) {
		e.cancelLeg(ctx, mkt, types.Up, "BOOK_STALE")
		return
	}
	if !okDown || tobDown.IsStale(now) {
		e.cancelLeg(ctx, mkt, types.Down, "BOOK_STALE")
		return
	}

	// Step 3: BandFilter.
	minBid := decimal.Min(tobUp.BestBid, tobDown.BestBid)
	maxBid := decimal.Max(tobUp.BestBid, tobDown.BestBid)
	if minBid.LessThan(decimal.NewFromFloat(0.05)) || maxBid.GreaterThan(decimal.NewFromFloat(0.95)) {
		e.cancelLeg(ctx, mkt, types.Up, "BOOK_OUT_OF_BAND")
		e.cancelLeg(ctx, mkt, types.Down, "BOOK_OUT_OF_BAND")
		return
	}

	// Step 4: ComputeInventoryAndSkew.
	e.momentum.Observe(mkt.Slug, tobUp.BestBid.Add(tobUp.BestAsk).Div(decimal.NewFromInt(2)), now)
	trend := e.momentum.Classify(mkt.Slug, now)

	inv := e.ledger.Snapshot(mkt.Slug)
	imbalance := inv.Imbalance()

	skewTicksUp := quote.SkewTicksForImbalance(imbalance, types.Up, decimal.NewFromFloat(e.cfg.CompleteSetMaxSkewShares), e.cfg.CompleteSetMaxSkewTicks)
	skewTicksDown := quote.SkewTicksForImbalance(imbalance, types.Down, decimal.NewFromFloat(e.cfg.CompleteSetMaxSkewShares), e.cfg.CompleteSetMaxSkewTicks)

	sizeFactorUp := sizeSkewFactor(types.Up, tobUp.BestBid, trend, e.rand)
	sizeFactorDown := sizeSkewFactor(types.Down, tobDown.BestBid, trend, e.rand)

	quoteUp := quoteProbLagging(sizeFactorUp, e.rand)
	quoteDown := quoteProbLagging(sizeFactorDown, e.rand)

	leadLeg, lagLeg := types.Up, types.Down
	if imbalance.IsNegative() {
		leadLeg, lagLeg = types.Down, types.Up
	}

	// Step 5: FastTopUpCheck.
	if e.cfg.CompleteSetFastTopUpEnabled && !imbalance.IsZero() {
		e.fastTopUp(ctx, now, mkt, rt, inv, leadLeg, lagLeg, tobUp, tobDown)
	}

	// Step 6: NearEndTopUp.
	secondsToEnd := int(mkt.EndTime.Sub(now).Seconds())
	if e.cfg.CompleteSetTopUpEnabled && nearEndTopUpTrigger(secondsToEnd, e.cfg.CompleteSetTopUpSecondsToEnd, imbalance, decimal.NewFromFloat(e.cfg.CompleteSetTopUpMinShares)) {
		e.topUpLeg(ctx, mkt, lagLeg, legTOB(tobUp, tobDown, lagLeg))
	}

	// Step 7: EdgeGate.
	entryUp := quote.Compute(e.quoteInputsFor(ctx, mkt, types.Up, tobUp, skewTicksUp, 0, sizeFactorUp, inv))
	entryDown := quote.Compute(e.quoteInputsFor(ctx, mkt, types.Down, tobDown, skewTicksDown, 0, sizeFactorDown, inv))
	if entryUp.NoQuote || entryDown.NoQuote {
		return
	}
	plannedEdge := decimal.NewFromInt(1).Sub(entryUp.Price.Add(entryDown.Price))

	entryThreshold := decimal.NewFromFloat(e.cfg.CompleteSetMinEdge)
	cancelThreshold := decimal.NewFromFloat(e.cfg.CompleteSetCancelEdge)
	if trend != TrendNeutral {
		relaxed := entryThreshold.Sub(decimal.NewFromFloat(0.01))
		floor := decimal.NewFromFloat(-0.01)
		if relaxed.LessThan(floor) {
			relaxed = floor
		}
		entryThreshold = relaxed
	}

	if plannedEdge.LessThan(cancelThreshold) {
		if rt.edgeBelowSince.IsZero() {
			rt.edgeBelowSince = now
		}
		maxHold := e.cfg.RefreshInterval()
		if maxHold < 750*time.Millisecond {
			maxHold = 750 * time.Millisecond
		}
		if now.Sub(rt.edgeBelowSince) > maxHold {
			e.cancelLeg(ctx, mkt, types.Up, "EDGE_BELOW_CANCEL")
			e.cancelLeg(ctx, mkt, types.Down, "EDGE_BELOW_CANCEL")
		}
		return
	}
	rt.edgeBelowSince = time.Time{}

	if plannedEdge.LessThan(entryThreshold) {
		return // hold: keep resting orders, place nothing new
	}

	// Step 8: HedgeDelayMask.
	if rt.hedgeHeld(types.Up, now) {
		quoteUp = false
	}
	if rt.hedgeHeld(types.Down, now) {
		quoteDown = false
	}

	// Step 9: TakerModeDecision.
	if e.cfg.TakerModeEnabled &&
		plannedEdge.LessThanOrEqual(decimal.NewFromFloat(e.cfg.TakerModeMaxEdge)) &&
		tobUp.Spread().LessThanOrEqual(decimal.NewFromFloat(e.cfg.TakerModeMaxSpread)) &&
		tobDown.Spread().LessThanOrEqual(decimal.NewFromFloat(e.cfg.TakerModeMaxSpread)) &&
		bernoulli(e.rand, e.cfg.TakerModeProbability) {

		leg, _, ok := chooseTakerLeg(tobUp.BestAsk, tobDown.BestBid, tobUp.BestBid, tobDown.BestAsk, sizeFactorUp, sizeFactorDown, imbalance)
		if ok {
			e.topUpLeg(ctx, mkt, leg, legTOB(tobUp, tobDown, leg))
			if leg == types.Up {
				quoteUp = false
			} else {
				quoteDown = false
			}
		}
	}

	// Step 10: MakerImprovementPair.
	improveUp, improveDown := e.makerImprovement(now, rt, tobUp, tobDown, plannedEdge, entryThreshold)

	// Step 11: QuoteOrReplace.
	if quoteUp {
		e.quoteOrReplace(ctx, mkt, types.Up, tobUp, skewTicksUp, improveUp, sizeFactorUp, inv, now)
	} else {
		e.cancelLeg(ctx, mkt, types.Up, "SKIPPED_THIS_TICK")
	}
	if quoteDown {
		e.quoteOrReplace(ctx, mkt, types.Down, tobDown, skewTicksDown, improveDown, sizeFactorDown, inv, now)
	} else {
		e.cancelLeg(ctx, mkt, types.Down, "SKIPPED_THIS_TICK")
	}
}

func legTOB(tobUp, tobDown types.TopOfBook, leg types.Leg) types.TopOfBook {
	if leg == types.Up {
		return tobUp
	}
	return tobDown
}

// quoteInputsFor builds a quote.Inputs for one leg at the current tick.
func (e *Engine) quoteInputsFor(ctx context.Context, mkt types.Market, leg types.Leg, tob types.TopOfBook, skewTicks, improveTicks int, sizeFactor decimal.Decimal, inv types.MarketInventory) quote.Inputs {
	return quote.Inputs{
		Side:                    types.BUY,
		BestBid:                 tob.BestBid,
		BestAsk:                 tob.BestAsk,
		TickSize:                e.tickSizeFor(ctx, mkt.TokenFor(leg)),
		SkewTicks:               skewTicks,
		ImproveTicks:            improveTicks,
		QuoteSizeBase:           decimal.NewFromFloat(e.quoteSizeBase),
		DynamicSizingMultiplier: e.bankroll.DynamicSizingMultiplier(),
		SizeSkewFactor:          sizeFactor,
		Bankroll:                e.bankroll.Effective(),
		CurrentExposure:         e.totalExposureUSD(),
		Risk:                    e.risk,
	}
}

// tickSizeFor returns a token's tick size, asking the adapter (which
// maintains its own 10-minute cache) and falling back to the last known
// value, or defaultTickSize, if the lookup errors.
func (e *Engine) tickSizeFor(ctx context.Context, token string) decimal.Decimal {
	ts, err := e.adapter.GetTickSize(ctx, token)
	if err != nil {
		if cached, ok := e.tickSizes[token]; ok {
			return cached
		}
		e.logger.Warn("tick size lookup failed", "token", token, "error", err)
		return defaultTickSize
	}
	e.tickSizes[token] = ts
	return ts
}

// totalExposureUSD sums cost-basis exposure across all tracked markets,
// used as the Quote Calculator's global-headroom input.
func (e *Engine) totalExposureUSD() decimal.Decimal {
	total := decimal.Zero
	for slug := range e.markets {
		inv := e.ledger.Snapshot(slug)
		total = total.Add(inv.UpCostBasis).Add(inv.DownCostBasis)
	}
	return total
}

// Markets returns the engine's currently active market set, for callers
// that need to build per-market reports (the risk guard) without reaching
// into engine-private state.
func (e *Engine) Markets() []types.Market {
	out := make([]types.Market, 0, len(e.markets))
	for _, mkt := range e.markets {
		out = append(out, mkt)
	}
	return out
}

// InventorySnapshot returns the current inventory for a tracked market.
func (e *Engine) InventorySnapshot(slug string) types.MarketInventory {
	return e.ledger.Snapshot(slug)
}

// CancelMarket cancels both legs of a single market's resting orders, for
// a per-market kill signal from the risk guard. It does not evict the
// market; the next tick re-quotes it (the engine does not check the risk
// guard's kill switch).
func (e *Engine) CancelMarket(ctx context.Context, slug, reason string) {
	mkt, ok := e.markets[slug]
	if !ok {
		return
	}
	e.cancelLeg(ctx, mkt, types.Up, reason)
	e.cancelLeg(ctx, mkt, types.Down, reason)
}

// CancelAll cancels both legs of every active market's resting orders, for
// a global kill signal from the risk guard.
func (e *Engine) CancelAll(ctx context.Context, reason string) {
	for slug := range e.markets {
		e.CancelMarket(ctx, slug, reason)
	}
}

func (e *Engine) quoteOrReplace(ctx context.Context, mkt types.Market, leg types.Leg, tob types.TopOfBook, skewTicks, improveTicks int, sizeFactor decimal.Decimal, inv types.MarketInventory, now time.Time) {
	token := mkt.TokenFor(leg)
	q := quote.Compute(e.quoteInputsFor(ctx, mkt, leg, tob, skewTicks, improveTicks, sizeFactor, inv))
	if q.NoQuote {
		e.cancelLeg(ctx, mkt, leg, "NO_QUOTE")
		return
	}

	replaceCfg := orders.ReplaceConfig{
		MinPriceDelta:      decimal.NewFromFloat(e.cfg.MinPriceDelta),
		MinSizeDelta:       decimal.NewFromFloat(e.cfg.MinSizeDelta),
		MinReplaceMillis:   time.Duration(e.cfg.MinReplaceMillis) * time.Millisecond,
		ForceReplaceMillis: time.Duration(e.cfg.ForceReplaceMillis) * time.Millisecond,
	}

	decision := e.orderMgr.MaybeReplaceOrder(token, q.Price, q.Size, replaceCfg, now)
	switch decision {
	case orders.DecisionKeep, orders.DecisionSkip:
		return
	case orders.DecisionReplace:
		_ = e.orderMgr.Cancel(ctx, token, "REPLACE")
		if _, err := e.orderMgr.PlaceOrder(ctx, token, types.BUY, q.Price, q.Size, tob, now); err != nil {
			e.logger.Warn("place order failed", "market", mkt.Slug, "leg", leg, "error", err)
		}
	}
}

// makerImprovement is a per-market cached decision of how many ticks above
// best bid each leg sits, resampled on a spread-bucket change or cache
// staleness, capped by the edge-above-minimum budget.
func (e *Engine) makerImprovement(now time.Time, rt *marketRuntime, tobUp, tobDown types.TopOfBook, plannedEdge, entryThreshold decimal.Decimal) (int, int) {
	bucket := spreadBucket(tobUp.Spread().Add(tobDown.Spread()))
	maxAge := clampDuration(time.Duration(e.cfg.ForceReplaceMillis)*time.Millisecond, 3*time.Second, 30*time.Second)

	stale := !rt.improve.valid || rt.improve.spreadBucket != bucket || now.Sub(rt.improve.sampledAt) > maxAge
	if stale {
		budget := 0
		if extra := plannedEdge.Sub(entryThreshold); extra.IsPositive() {
			budget = int(extra.Div(decimal.NewFromFloat(0.01)).IntPart())
		}
		up := sampleImproveTicks(e.rand, budget)
		down := sampleImproveTicks(e.rand, budget-up)
		rt.improve = improveCache{upTicks: up, downTicks: down, spreadBucket: bucket, sampledAt: now, valid: true}
	}
	return rt.improve.upTicks, rt.improve.downTicks
}

var improveWeights = []struct {
	ticks  int
	weight float64
}{
	{0, 0.50},
	{1, 0.30},
	{2, 0.15},
	{3, 0.05},
}

func sampleImproveTicks(rs randSource, budget int) int {
	if budget <= 0 {
		return 0
	}
	roll := rs.Float64()
	var cum float64
	chosen := 0
	for _, w := range improveWeights {
		cum += w.weight
		if roll < cum {
			chosen = w.ticks
			break
		}
	}
	if chosen > budget {
		chosen = budget
	}
	return chosen
}

func spreadBucket(totalSpread decimal.Decimal) int {
	f, _ := totalSpread.Float64()
	switch {
	case f < 0.02:
		return 0
	case f < 0.05:
		return 1
	case f < 0.10:
		return 2
	default:
		return 3
	}
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

func (e *Engine) fastTopUp(ctx context.Context, now time.Time, mkt types.Market, rt *marketRuntime, inv types.MarketInventory, leadLeg, lagLeg types.Leg, tobUp, tobDown types.TopOfBook) {
	lagTOB := legTOB(tobUp, tobDown, lagLeg)

	in := fastTopUpInputs{
		Imbalance:           inv.Imbalance(),
		LeadLeg:             leadLeg,
		LeadFillAt:          inv.LastFillAt(leadLeg),
		LeadFillPrice:       inv.LastFillPrice(leadLeg),
		LagFillAt:           inv.LastFillAt(lagLeg),
		LagAsk:              lagTOB.BestAsk,
		LagSpread:           lagTOB.Spread(),
		LastTopUpAt:         rt.lastFastTopUpAt,
		Now:                 now,
		MinShares:           decimal.NewFromFloat(e.cfg.FastTopUpMinShares),
		CooldownMillis:      e.cfg.CompleteSetFastTopUpCooldownMillis,
		MinSecondsAfterFill: e.cfg.CompleteSetFastTopUpMinSecondsAfterFill,
		MaxSecondsAfterFill: e.cfg.CompleteSetFastTopUpMaxSecondsAfterFill,
		TakerMaxSpread:      decimal.NewFromFloat(e.cfg.TakerMaxSpread),
		MinEdge:             decimal.NewFromFloat(e.cfg.CompleteSetFastTopUpMinEdge),
	}
	if !in.trigger() {
		return
	}

	size := fastTopUpSize(inv.Imbalance(), decimal.NewFromFloat(e.cfg.CompleteSetFastTopUpFraction))
	size = quote.CapShares(size, lagTOB.BestAsk, e.bankroll.Effective(), e.totalExposureUSD(), e.risk)
	if size.LessThan(decimal.NewFromFloat(0.01)) {
		return
	}

	token := mkt.TokenFor(lagLeg)
	_ = e.orderMgr.Cancel(ctx, token, "FAST_TOP_UP")
	if _, err := e.orderMgr.PlaceOrder(ctx, token, types.BUY, lagTOB.BestAsk, size, lagTOB, now); err != nil {
		e.logger.Warn("fast top-up failed", "market", mkt.Slug, "leg", lagLeg, "error", err)
		return
	}
	rt.lastFastTopUpAt = now
	e.ledger.MarkTopUp(mkt.Slug, now)
}

func (e *Engine) topUpLeg(ctx context.Context, mkt types.Market, leg types.Leg, tob types.TopOfBook) {
	token := mkt.TokenFor(leg)
	size := quote.CapShares(decimal.NewFromFloat(e.quoteSizeBase), tob.BestAsk, e.bankroll.Effective(), e.totalExposureUSD(), e.risk)
	if size.LessThan(decimal.NewFromFloat(0.01)) {
		return
	}
	now := e.clock.Now()
	_ = e.orderMgr.Cancel(ctx, token, "TOP_UP")
	if _, err := e.orderMgr.PlaceOrder(ctx, token, types.BUY, tob.BestAsk, size, tob, now); err != nil {
		e.logger.Warn("top-up failed", "market", mkt.Slug, "leg", leg, "error", err)
	}
}

func (e *Engine) cancelLeg(ctx context.Context, mkt types.Market, leg types.Leg, reason string) {
	token := mkt.TokenFor(leg)
	if err := e.orderMgr.Cancel(ctx, token, reason); err != nil {
		e.logger.Warn("cancel failed", "market", mkt.Slug, "leg", leg, "reason", reason, "error", err)
	}
}

func (e *Engine) evict(ctx context.Context, mkt types.Market, reason string) {
	e.cancelLeg(ctx, mkt, types.Up, reason)
	e.cancelLeg(ctx, mkt, types.Down, reason)
	e.ledger.Evict(mkt.Slug)
	delete(e.runtimes, mkt.Slug)
}
