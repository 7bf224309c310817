package directional

import (
	"testing"
	"time"
)

func TestPickBucketCoversFullRange(t *testing.T) {
	t.Parallel()
	// A roll of 0 should land in the first bucket, a roll just under 1
	// should land in the last.
	first := pickBucket(fixedRand{0})
	if first != hedgeBuckets[0] {
		t.Errorf("roll 0 should pick the first bucket, got %+v", first)
	}
	last := pickBucket(fixedRand{0.999})
	if last != hedgeBuckets[len(hedgeBuckets)-1] {
		t.Errorf("roll near 1 should pick the last bucket, got %+v", last)
	}
}

func TestSampleHedgeDelayClipsToConfiguredBounds(t *testing.T) {
	t.Parallel()
	// Roll 0 lands in the {2s,5s} bucket; a 60s floor should clip upward.
	d := sampleHedgeDelay(fixedRand{0}, 60, 300)
	if d != 60*time.Second {
		t.Errorf("expected the floor to clip the sampled duration to 60s, got %v", d)
	}

	// Roll near 1 lands in the {120s,300s} bucket; a 90s ceiling should
	// clip downward.
	d = sampleHedgeDelay(fixedRand{0.999}, 0, 90)
	if d != 90*time.Second {
		t.Errorf("expected the ceiling to clip the sampled duration to 90s, got %v", d)
	}
}

func TestSampleHedgeDelayDefaultsCeilingWhenUnset(t *testing.T) {
	t.Parallel()
	d := sampleHedgeDelay(fixedRand{0.5}, 0, 0)
	if d <= 0 || d > 300*time.Second {
		t.Errorf("expected a duration within the default [0, 300s] envelope, got %v", d)
	}
}
