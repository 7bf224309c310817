package paper

import "math/rand"

// randSource abstracts the single draw the simulator needs, so tests can
// inject a fixed value instead of a seeded generator.
type randSource interface {
	Float64() float64
}

type lockedRand struct {
	r *rand.Rand
}

func newRandSource(seed int64) *lockedRand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Float64() float64 {
	return l.r.Float64()
}

func bernoulli(rs randSource, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return rs.Float64() < p
}
