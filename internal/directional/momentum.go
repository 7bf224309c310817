package directional

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Trend classifies a short-window price trend. It is always
// computed from the Up leg's mid price; since Up and Down move inversely,
// UpRising implies the Down leg is the one losing ground and vice versa.
type Trend string

const (
	TrendUpRising  Trend = "UP_RISING"
	TrendUpFalling Trend = "UP_FALLING"
	TrendNeutral   Trend = "NEUTRAL"
)

const (
	momentumWindow    = 10 * time.Second
	momentumThreshold = "0.004" // minimum move over the window to call a direction
)

type sample struct {
	ts    time.Time
	price decimal.Decimal
}

// MomentumTracker keeps a short rolling window of Up-leg mid prices per
// market and classifies the trend used by the size-skew momentum factor.
// Stale entries are evicted on every read, the same shape applied here to
// price samples instead of fills.
type MomentumTracker struct {
	mu      sync.Mutex
	samples map[string][]sample // marketSlug -> samples, oldest first
}

// NewMomentumTracker creates an empty tracker.
func NewMomentumTracker() *MomentumTracker {
	return &MomentumTracker{samples: make(map[string][]sample)}
}

// Observe records a new Up-leg mid-price sample for a market.
func (m *MomentumTracker) Observe(marketSlug string, midUp decimal.Decimal, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := append(m.samples[marketSlug], sample{ts: now, price: midUp})
	m.samples[marketSlug] = evictStale(s, now)
}

func evictStale(s []sample, now time.Time) []sample {
	cutoff := now.Add(-momentumWindow)
	i := 0
	for i < len(s) && !s[i].ts.After(cutoff) {
		i++
	}
	if i == 0 {
		return s
	}
	return s[i:]
}

// Classify returns the current trend for a market: the sign of the move
// between the oldest and newest sample still in the window, ignored if
// smaller than momentumThreshold.
func (m *MomentumTracker) Classify(marketSlug string, now time.Time) Trend {
	m.mu.Lock()
	s := evictStale(m.samples[marketSlug], now)
	m.samples[marketSlug] = s
	m.mu.Unlock()

	if len(s) < 2 {
		return TrendNeutral
	}

	move := s[len(s)-1].price.Sub(s[0].price)
	threshold, _ := decimal.NewFromString(momentumThreshold)

	if move.GreaterThanOrEqual(threshold) {
		return TrendUpRising
	}
	if move.LessThanOrEqual(threshold.Neg()) {
		return TrendUpFalling
	}
	return TrendNeutral
}
