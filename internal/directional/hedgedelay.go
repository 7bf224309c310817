package directional

import "time"

// hedgeBucket is one weighted range of the discrete hedge-delay distribution.
type hedgeBucket struct {
	min, max time.Duration
	weight   float64
}

var hedgeBuckets = []hedgeBucket{
	{2 * time.Second, 5 * time.Second, 0.05},
	{5 * time.Second, 10 * time.Second, 0.05},
	{10 * time.Second, 30 * time.Second, 0.10},
	{30 * time.Second, 60 * time.Second, 0.04},
	{60 * time.Second, 120 * time.Second, 0.30},
	{120 * time.Second, 300 * time.Second, 0.46},
}

// sampleHedgeDelay draws a hedge-hold duration from the bucket
// distribution, clipped to [minSeconds, maxSeconds].
func sampleHedgeDelay(rs randSource, minSeconds, maxSeconds int) time.Duration {
	lo := time.Duration(minSeconds) * time.Second
	hi := time.Duration(maxSeconds) * time.Second
	if hi <= 0 {
		hi = 300 * time.Second
	}

	bucket := pickBucket(rs)
	span := bucket.max - bucket.min
	d := bucket.min + time.Duration(rs.Float64()*float64(span))

	if lo > 0 && d < lo {
		d = lo
	}
	if d > hi {
		d = hi
	}
	return d
}

func pickBucket(rs randSource) hedgeBucket {
	roll := rs.Float64()
	var cum float64
	for _, b := range hedgeBuckets {
		cum += b.weight
		if roll < cum {
			return b
		}
	}
	return hedgeBuckets[len(hedgeBuckets)-1]
}
