package directional

import (
	"time"

	"polymarket-mm/pkg/types"
)

// improveCache holds the per-market cached maker-improvement decision,
// resampled only when the spread bucket changes or the cache goes stale.
type improveCache struct {
	upTicks      int
	downTicks    int
	spreadBucket int
	sampledAt    time.Time
	valid        bool
}

// marketRuntime holds the per-market state the tick state machine must
// remember across ticks: hedge holds, the edge-below-threshold timer, top-up
// cooldowns, and the maker-improvement cache. One exists per actively
// quoted market and is evicted alongside the market's inventory (step 1).
type marketRuntime struct {
	hedgeHoldUntil map[types.Leg]time.Time

	edgeBelowSince time.Time // zero when plannedEdge is not currently below cancelEdge

	lastFastTopUpAt time.Time

	improve improveCache

	lastFillLeg types.Leg
	lastFillAt  time.Time
}

func newMarketRuntime() *marketRuntime {
	return &marketRuntime{
		hedgeHoldUntil: make(map[types.Leg]time.Time),
	}
}

func (r *marketRuntime) hedgeHeld(leg types.Leg, now time.Time) bool {
	until, ok := r.hedgeHoldUntil[leg]
	return ok && until.After(now)
}

func (r *marketRuntime) setHedgeHold(leg types.Leg, until time.Time) {
	r.hedgeHoldUntil[leg] = until
}

// recordFillLead updates the lead/lag bookkeeping used by the fast top-up
// trigger: which leg filled most recently, and when.
func (r *marketRuntime) recordFillLead(leg types.Leg, ts time.Time) {
	r.lastFillLeg = leg
	r.lastFillAt = ts
}
