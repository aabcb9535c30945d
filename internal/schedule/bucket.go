// Distance bucketing and first-match selection. Candidates are partitioned
// into ordered distance bands around the querying agent, each band is
// shuffled, and the first candidate passing the validator wins. This is a
// satisficing search: nothing beyond the first acceptable candidate is
// evaluated, and equidistant candidates get even attention over time.
package schedule

import (
	"math/rand"

	"github.com/talgya/taskpulse/internal/grid"
)

// DefaultThresholds are squared hex-distance bands (10/20/40 units) used
// when a category has no tuned bands of its own.
var DefaultThresholds = []int{100, 400, 1600}

// Bucket partitions candidates into len(thresholds)+1 distance bands around
// origin. Thresholds are squared distances in ascending order; a candidate
// lands in the first band whose threshold its squared distance does not
// exceed, or in the overflow band past the largest. Candidates the locator
// cannot resolve also land in the overflow band — they appear exactly once
// and fail validation later rather than vanishing here.
func Bucket(origin grid.HexCoord, candidates []Candidate, thresholds []int, locate Locator) [][]Candidate {
	buckets := make([][]Candidate, len(thresholds)+1)
	overflow := len(thresholds)

	for _, c := range candidates {
		pos, ok := locate(c)
		if !ok {
			buckets[overflow] = append(buckets[overflow], c)
			continue
		}
		d := grid.DistanceSq(origin, pos)
		band := overflow
		for i, t := range thresholds {
			if d <= t {
				band = i
				break
			}
		}
		buckets[band] = append(buckets[band], c)
	}
	return buckets
}

// Bucketer selects candidates from distance bands. It owns the shuffle
// source so selection stays deterministic under a fixed seed.
type Bucketer struct {
	rng *rand.Rand
}

// NewBucketer creates a Bucketer drawing shuffle order from rng.
func NewBucketer(rng *rand.Rand) *Bucketer {
	return &Bucketer{rng: rng}
}

// SelectFirstValid walks bands nearest-first, shuffling each band before
// scanning it. Candidates with a memoized false verdict are skipped without
// invoking the validator; every validator answer is memoized. Returns the
// first accepted candidate, or None.
func (b *Bucketer) SelectFirstValid(region RegionID, cat Category, buckets [][]Candidate, ag Agent, validate Validator, memo *ReachMemo) (Candidate, bool) {
	for _, band := range buckets {
		if len(band) == 0 {
			continue
		}
		b.rng.Shuffle(len(band), func(i, j int) {
			band[i], band[j] = band[j], band[i]
		})
		for _, c := range band {
			if memo != nil {
				if v, known := memo.Get(region, cat, c); known && !v {
					continue
				}
			}
			ok := validate(c, ag)
			if memo != nil {
				memo.Set(region, cat, c, ok)
			}
			if ok {
				return c, true
			}
		}
	}
	return None, false
}
